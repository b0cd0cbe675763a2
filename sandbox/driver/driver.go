// Package driver is the low-level process primitive shared by every
// backend: spawn one child for an already-translated argv, feed stdin,
// accumulate bounded output, enforce the watchdog, and normalize the
// outcome into an ExecutionResult. The driver holds no cross-call state.
package driver

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/safedep/cage/sandbox"
	"github.com/safedep/dry/log"
)

// Spec is one concrete, backend-specific process invocation.
type Spec struct {
	// Argv is the full command line; Argv[0] is the binary.
	Argv []string

	// Env is the complete child environment as k=v entries. The driver
	// passes it through verbatim; sanitization is the backend's job.
	Env []string

	// Stdin, when non-nil, is fed to the process and the stream closed
	// at EOF before the process can block waiting for more input.
	Stdin []byte

	// Dir is the working directory for the child.
	Dir string

	// Timeout arms the watchdog at spawn time. Termination on firing is
	// forceful; there is no cooperative cancellation.
	Timeout time.Duration

	// MaxOutputBytes caps stdout and stderr independently. Excess bytes
	// are dropped silently; the process is never killed for being chatty.
	MaxOutputBytes int64

	// OnTimeout, when set, is fired concurrently with signal delivery
	// when the watchdog trips. Backends use it to issue their native
	// out-of-band kill (e.g. container rm -f) so external resources do
	// not outlive the process. Best-effort; its outcome never affects
	// the result.
	OnTimeout func()
}

// Run spawns the process described by spec and blocks until it resolves.
// Every failure path resolves into the returned result; Run never panics
// and never returns an error.
func Run(ctx context.Context, spec Spec) *sandbox.ExecutionResult {
	start := time.Now()

	if len(spec.Argv) == 0 {
		return sandbox.SpawnFailure(errEmptyArgv, time.Since(start))
	}

	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env

	if spec.Stdin != nil {
		cmd.Stdin = bytes.NewReader(spec.Stdin)
	}

	stdout := newLimitedWriter(spec.MaxOutputBytes)
	stderr := newLimitedWriter(spec.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// Child runs in its own process group so the whole tree dies on kill.
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return sandbox.SpawnFailure(err, time.Since(start))
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	watchdog := time.NewTimer(spec.Timeout)
	defer watchdog.Stop()

	var timedOut, killed bool
	var waitErr error

	select {
	case waitErr = <-done:

	case <-watchdog.C:
		timedOut = true
		stdout.shutOff()
		stderr.shutOff()

		if spec.OnTimeout != nil {
			go spec.OnTimeout()
		}

		killProcessGroup(cmd)
		waitErr = <-done

	case <-ctx.Done():
		killed = true
		stdout.shutOff()
		stderr.shutOff()

		killProcessGroup(cmd)
		waitErr = <-done
	}

	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			// Wait failed for a non-exit reason (I/O plumbing). The
			// process did run; report what we know.
			log.Debugf("driver: wait failed: %v", waitErr)
			exitCode = -1
		}
	}

	return &sandbox.ExecutionResult{
		Success:  exitCode == 0 && !timedOut && !killed,
		ExitCode: exitCode,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		TimedOut: timedOut,
		Killed:   killed,
		Duration: time.Since(start),
	}
}
