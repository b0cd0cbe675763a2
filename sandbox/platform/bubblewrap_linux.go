//go:build linux

package platform

import (
	"context"
	"sync"
	"time"

	"github.com/safedep/dry/log"

	"github.com/safedep/cage/sandbox"
	"github.com/safedep/cage/sandbox/driver"
)

// bubblewrapSandbox isolates commands with Linux unprivileged namespaces
// via bwrap. All policy translation is CLI arguments; no profile file is
// generated, so one instance can serve concurrent Execute calls.
type bubblewrapSandbox struct {
	policy sandbox.Policy

	mu      sync.Mutex
	scratch *sandbox.Scratch
}

func newBubblewrapSandbox(policy sandbox.Policy) (*bubblewrapSandbox, error) {
	return &bubblewrapSandbox{policy: policy.WithDefaults()}, nil
}

func (b *bubblewrapSandbox) Name() string {
	return BackendBubblewrap
}

func (b *bubblewrapSandbox) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initializeLocked()
}

func (b *bubblewrapSandbox) initializeLocked() error {
	if b.scratch != nil {
		return nil
	}

	scratch, err := sandbox.NewScratch("cage")
	if err != nil {
		return err
	}

	b.scratch = scratch
	log.Debugf("bubblewrap sandbox %s initialized", scratch.ID())
	return nil
}

func (b *bubblewrapSandbox) Execute(ctx context.Context, req sandbox.ExecutionRequest) *sandbox.ExecutionResult {
	start := time.Now()

	b.mu.Lock()
	if err := b.initializeLocked(); err != nil {
		b.mu.Unlock()
		return sandbox.SpawnFailure(err, time.Since(start))
	}
	scratch := b.scratch
	b.mu.Unlock()

	workDir := req.WorkDir
	if workDir == "" {
		workDir = b.policy.WorkDir
	}

	argv := []string{"bwrap"}
	argv = append(argv, buildBubblewrapArgs(&b.policy, scratch, workDir)...)
	argv = append(argv, "--", req.Command)
	argv = append(argv, req.Args...)

	log.Debugf("bubblewrap sandbox executing %s with %d args", req.Command, len(argv))

	return driver.Run(ctx, driver.Spec{
		Argv:           argv,
		Env:            buildEnv(bubblewrapHome, req.Env),
		Stdin:          req.Stdin,
		Timeout:        b.policy.Timeout,
		MaxOutputBytes: b.policy.MaxOutputBytes,
	})
}

func (b *bubblewrapSandbox) Cleanup() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.scratch == nil {
		return nil
	}

	if err := b.scratch.Remove(); err != nil {
		log.Warnf("bubblewrap sandbox: failed to remove scratch directory: %v", err)
	}

	return nil
}

// bubblewrapAvailable reports whether bwrap is installed. bwrap requires
// unprivileged user namespaces, which the kernel may still refuse at run
// time; that failure surfaces in the execution result.
func bubblewrapAvailable() bool {
	return commandExists("bwrap")
}
