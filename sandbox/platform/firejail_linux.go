//go:build linux

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

// firejailSandbox isolates commands with the firejail profile compiler.
// Unlike bubblewrap, most of the isolation policy lives in a profile
// file compiled once per instance at Initialize and reused across calls.
// The profile is read-only after generation, so concurrent Execute calls
// on one instance are safe.
type firejailSandbox struct {
	policy sandbox.Policy

	mu          sync.Mutex
	scratch     *sandbox.Scratch
	profilePath string
	jailHome    string
}

func newFirejailSandbox(policy sandbox.Policy) (*firejailSandbox, error) {
	return &firejailSandbox{policy: policy.WithDefaults()}, nil
}

func (f *firejailSandbox) Name() string {
	return BackendFirejail
}

func (f *firejailSandbox) Initialize(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initializeLocked()
}

func (f *firejailSandbox) initializeLocked() error {
	if f.scratch != nil {
		return nil
	}

	scratch, err := sandbox.NewScratch("cage")
	if err != nil {
		return err
	}

	// The profile's `private` directive mounts the scratch home over the
	// invoking user's home, so inside the jail the writable tree lives at
	// the real home path, not at the scratch path.
	jailHome, err := os.UserHomeDir()
	if err != nil {
		scratch.Remove()
		return fmt.Errorf("resolving home directory: %w", err)
	}

	profile := generateFirejailProfile(&f.policy, scratch.Home())
	profilePath := filepath.Join(scratch.Root(), "sandbox.profile")

	if err := os.WriteFile(profilePath, []byte(profile), 0o600); err != nil {
		scratch.Remove()
		return fmt.Errorf("writing firejail profile: %w", err)
	}

	f.scratch = scratch
	f.profilePath = profilePath
	f.jailHome = jailHome
	log.Debugf("firejail sandbox %s compiled profile at %s", scratch.ID(), profilePath)
	return nil
}

func (f *firejailSandbox) Execute(ctx context.Context, req sandbox.ExecutionRequest) *sandbox.ExecutionResult {
	start := time.Now()

	f.mu.Lock()
	if err := f.initializeLocked(); err != nil {
		f.mu.Unlock()
		return sandbox.SpawnFailure(err, time.Since(start))
	}
	profilePath := f.profilePath
	jailHome := f.jailHome
	f.mu.Unlock()

	argv := []string{
		"firejail",
		"--quiet",
		"--profile=" + profilePath,
		"--",
		req.Command,
	}
	argv = append(argv, req.Args...)

	log.Debugf("firejail sandbox executing %s", req.Command)

	return driver.Run(ctx, driver.Spec{
		Argv:           argv,
		Env:            buildEnv(jailHome, req.Env),
		Stdin:          req.Stdin,
		Dir:            firejailWorkDir(req, &f.policy, jailHome),
		Timeout:        f.policy.Timeout,
		MaxOutputBytes: f.policy.MaxOutputBytes,
	})
}

func (f *firejailSandbox) Cleanup() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.scratch == nil {
		return nil
	}

	if err := f.scratch.Remove(); err != nil {
		log.Warnf("firejail sandbox: failed to remove scratch directory: %v", err)
	}

	return nil
}

// firejailWorkDir picks the working directory for one call. The private
// home and tmp mounts hide the scratch tree and most host paths inside
// the jail, so the default is the jail's home, which firejail maps onto
// this instance's scratch home. A caller-specified directory must be
// visible inside the jail, via the policy's allowed paths.
func firejailWorkDir(req sandbox.ExecutionRequest, policy *sandbox.Policy, jailHome string) string {
	if req.WorkDir != "" && req.WorkDir != policy.WorkDir {
		return req.WorkDir
	}
	return jailHome
}

func firejailAvailable() bool {
	return commandExists("firejail")
}
