// Package platform provides the concrete isolation backends and the
// probe-then-construct selection logic callers use to pick one. Each
// backend translates the abstract policy into its own tool's invocation
// arguments or a generated profile, then delegates process execution to
// the shared driver.
package platform

import (
	"fmt"
	"os/exec"
	"sort"

	"github.com/safedep/cage/sandbox"
	"github.com/safedep/cage/usefulerror"
)

// Backend names, stable across platforms for --backend selection.
const (
	BackendBubblewrap = "bubblewrap"
	BackendFirejail   = "firejail"
	BackendSeatbelt   = "seatbelt"
	BackendContainer  = "container"
)

// Descriptor describes one backend: a cheap static availability probe
// and a constructor. Probes are checked before construction so that a
// constructor can assume a supported platform.
type Descriptor struct {
	// Name is the backend name (e.g. "bubblewrap").
	Name string

	// Available reports whether the backend's tool and platform are
	// present. It never panics and spawns no sandboxed process.
	Available func() bool

	// New constructs an instance bound to the given policy.
	New func(policy sandbox.Policy) (sandbox.Sandbox, error)
}

// Status is the probe outcome for one backend, for display purposes.
type Status struct {
	Name      string
	Available bool
}

// Probe returns the availability of every backend known to this host's
// platform, in preference order.
func Probe() []Status {
	backends := Backends()

	statuses := make([]Status, 0, len(backends))
	for _, backend := range backends {
		statuses = append(statuses, Status{
			Name:      backend.Name,
			Available: backend.Available(),
		})
	}

	return statuses
}

// Select returns a sandbox instance from the first available backend in
// this platform's preference order.
func Select(policy sandbox.Policy) (sandbox.Sandbox, error) {
	return SelectNamed("", policy)
}

// SelectNamed is Select restricted to a single named backend. An empty
// name selects from all backends in preference order.
func SelectNamed(name string, policy sandbox.Policy) (sandbox.Sandbox, error) {
	return selectFrom(Backends(), name, policy)
}

func selectFrom(backends []Descriptor, name string, policy sandbox.Policy) (sandbox.Sandbox, error) {
	requested := false
	for _, backend := range backends {
		if name != "" && backend.Name != name {
			continue
		}
		requested = requested || name != ""

		if backend.Available() {
			return backend.New(policy)
		}
	}

	if requested {
		return nil, usefulerror.Useful().
			WithCode(usefulerror.ErrCodeBackendUnavailable).
			Msg(fmt.Sprintf("sandbox backend %s is unavailable", name)).
			WithHumanError(fmt.Sprintf("The %s sandbox backend is not available on this host", name)).
			WithHelp(fmt.Sprintf("Check that the %s tooling is installed and recent enough, or pick another backend from `cage backends`", name))
	}

	return nil, usefulerror.Useful().
		WithCode(usefulerror.ErrCodeBackendUnavailable).
		Msg("no sandbox backend available").
		WithHumanError("No sandbox backend is available on this host").
		WithHelp("Install one of: bubblewrap, firejail, podman or docker (Linux); sandbox-exec ships with macOS")
}

// commandExists checks if a command is available in PATH.
func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// buildEnv constructs the minimal sandbox environment with the request's
// overrides merged on top. The host environment is never inherited, so
// credentials and tokens in the caller's environment cannot leak into
// sandboxed commands.
func buildEnv(home string, extra map[string]string) []string {
	env := []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=" + home,
		"TMPDIR=/tmp",
		"LANG=en_US.UTF-8",
		"TERM=dumb",
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}

	return env
}
