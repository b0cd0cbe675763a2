// Package sandbox defines the execution contract shared by every isolation
// backend: a declarative Policy in, an ExecutionRequest per call, an
// ExecutionResult out. Backends translate the policy into OS or tool
// specific isolation mechanics; the contract never changes shape.
package sandbox

import (
	"context"
	"time"
)

// ExecutionRequest describes one command to run inside a sandbox instance.
type ExecutionRequest struct {
	// Command is the program to run.
	Command string

	// Args are the program arguments.
	Args []string

	// Stdin, when non-nil, is written fully to the process and the input
	// stream is closed before the process can block waiting for more.
	Stdin []byte

	// Env is merged on top of the sandbox's minimal base environment.
	// The host environment is never inherited.
	Env map[string]string

	// WorkDir overrides the policy's default working directory.
	WorkDir string
}

// ExecutionResult is the uniform outcome of every sandboxed execution.
// Backends never report failure through a Go error from Execute; every
// failure mode is encoded here so call sites read fields, not try/catch.
type ExecutionResult struct {
	// Success is true only if ExitCode == 0 and neither TimedOut nor
	// Killed is set.
	Success bool

	// ExitCode is the process exit code, or -1 if the process never
	// reported one (spawn failure).
	ExitCode int

	// Stdout and Stderr are truncated at the policy's MaxOutputBytes.
	// Truncation is silent: the contract promises bounded memory, not
	// lossless capture.
	Stdout []byte
	Stderr []byte

	// TimedOut is true if the watchdog fired.
	TimedOut bool

	// Killed is true if the process was forcibly terminated outside the
	// timeout path (e.g. context cancellation during shutdown). The
	// timeout path sets TimedOut only, so callers can tell "took too
	// long" from "was cancelled".
	Killed bool

	// Duration is the wall-clock elapsed from first spawn attempt to
	// resolution.
	Duration time.Duration

	// Error describes why execution could not be attempted (e.g. binary
	// missing). Empty when the process ran to completion, even unhappily.
	Error string
}

// Sandbox is one isolation-mechanism backend. Instances are built for a
// supported platform; availability is probed before construction, so
// constructors never fail on platform grounds.
type Sandbox interface {
	// Initialize creates the instance's scratch state (unique identifier,
	// ephemeral directory, generated profile where applicable). It is
	// idempotent; Execute calls it lazily on first use.
	Initialize(ctx context.Context) error

	// Execute runs one command under the instance's policy. It always
	// returns a fully populated result and never panics or propagates
	// errors; inspect the result's fields.
	Execute(ctx context.Context, req ExecutionRequest) *ExecutionResult

	// Cleanup tears down scratch state: the scratch directory, generated
	// profile files, and any still-registered backend handle. Best-effort
	// and idempotent; safe to call multiple times and after partial
	// failure.
	Cleanup() error

	// Name returns the backend name (e.g. "bubblewrap", "container").
	Name() string
}

// SpawnFailure builds the uniform result for an execution that could not
// be attempted at all.
func SpawnFailure(err error, elapsed time.Duration) *ExecutionResult {
	return &ExecutionResult{
		Success:  false,
		ExitCode: -1,
		Duration: elapsed,
		Error:    err.Error(),
	}
}
