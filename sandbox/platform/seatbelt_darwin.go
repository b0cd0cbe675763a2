//go:build darwin

package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/safedep/dry/log"

	"github.com/safedep/cage/sandbox"
	"github.com/safedep/cage/sandbox/driver"
)

// seatbeltSandbox isolates commands with the macOS declarative sandbox
// language via sandbox-exec. The profile is deny-by-default with an
// explicit allow-list, generated once per instance at Initialize.
type seatbeltSandbox struct {
	policy sandbox.Policy

	mu          sync.Mutex
	scratch     *sandbox.Scratch
	profilePath string
}

func newSeatbeltSandbox(policy sandbox.Policy) (*seatbeltSandbox, error) {
	return &seatbeltSandbox{policy: policy.WithDefaults()}, nil
}

func (s *seatbeltSandbox) Name() string {
	return BackendSeatbelt
}

func (s *seatbeltSandbox) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializeLocked()
}

func (s *seatbeltSandbox) initializeLocked() error {
	if s.scratch != nil {
		return nil
	}

	scratch, err := sandbox.NewScratch("cage")
	if err != nil {
		return err
	}

	profile := generateSeatbeltProfile(&s.policy, scratch.Root())
	profilePath := filepath.Join(scratch.Root(), "sandbox.sb")

	if err := os.WriteFile(profilePath, []byte(profile), 0o600); err != nil {
		scratch.Remove()
		return fmt.Errorf("writing seatbelt profile: %w", err)
	}

	s.scratch = scratch
	s.profilePath = profilePath
	log.Debugf("seatbelt sandbox %s compiled profile at %s", scratch.ID(), profilePath)
	return nil
}

func (s *seatbeltSandbox) Execute(ctx context.Context, req sandbox.ExecutionRequest) *sandbox.ExecutionResult {
	start := time.Now()

	s.mu.Lock()
	if err := s.initializeLocked(); err != nil {
		s.mu.Unlock()
		return sandbox.SpawnFailure(err, time.Since(start))
	}
	scratch := s.scratch
	profilePath := s.profilePath
	s.mu.Unlock()

	argv := []string{
		"sandbox-exec",
		"-f", profilePath,
		req.Command,
	}
	argv = append(argv, req.Args...)

	workDir := req.WorkDir
	if workDir == "" || workDir == s.policy.WorkDir {
		workDir = scratch.Workspace()
	}

	log.Debugf("seatbelt sandbox executing %s", req.Command)

	return driver.Run(ctx, driver.Spec{
		Argv:           argv,
		Env:            buildEnv(scratch.Home(), req.Env),
		Stdin:          req.Stdin,
		Dir:            workDir,
		Timeout:        s.policy.Timeout,
		MaxOutputBytes: s.policy.MaxOutputBytes,
	})
}

func (s *seatbeltSandbox) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scratch == nil {
		return nil
	}

	if err := s.scratch.Remove(); err != nil {
		log.Warnf("seatbelt sandbox: failed to remove scratch directory: %v", err)
	}

	return nil
}

func seatbeltAvailable() bool {
	return commandExists("sandbox-exec")
}
