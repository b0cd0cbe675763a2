//go:build linux

package platform

import (
	"github.com/safedep/cage/sandbox"
)

const (
	bubblewrapHome = "/home/sandbox"

	// Fixed unprivileged identity inside the user namespace.
	bubblewrapUID = "1000"
	bubblewrapGID = "1000"
)

// essentialRoBinds is the minimal read-only view of the host needed for
// dynamically linked commands: core library/binary directories plus DNS
// resolution and the TLS trust store.
var essentialRoBinds = []string{
	"/usr",
	"/lib",
	"/lib64",
	"/bin",
	"/sbin",
	"/etc/resolv.conf",
	"/etc/hosts",
	"/etc/nsswitch.conf",
	"/etc/ssl",
	"/etc/ca-certificates",
	"/etc/alternatives",
	"/etc/ld.so.cache",
}

// buildBubblewrapArgs translates the policy into bwrap CLI arguments.
// Pure: no filesystem access, no process spawned, fully unit-testable.
//
// Layout: unshare every namespace, then re-share the network namespace
// unless the policy wants no network at all. Network isolation is the
// only namespace decision the policy controls; everything else is always
// isolated.
func buildBubblewrapArgs(policy *sandbox.Policy, scratch *sandbox.Scratch, workDir string) []string {
	args := []string{"--unshare-all"}

	if policy.Network != sandbox.NetworkNone {
		args = append(args, "--share-net")
	}

	args = append(args,
		"--die-with-parent",
		"--new-session",
		"--uid", bubblewrapUID,
		"--gid", bubblewrapGID,
		"--proc", "/proc",
		"--dev", "/dev",
	)

	for _, path := range essentialRoBinds {
		args = append(args, "--ro-bind-try", path, path)
	}

	// Writable tmp and a fake home, both backed by the instance's own
	// scratch directory.
	args = append(args,
		"--bind", scratch.Tmp(), "/tmp",
		"--bind", scratch.Home(), bubblewrapHome,
		"--bind", scratch.Workspace(), "/workspace",
	)

	for _, path := range policy.AllowedPaths {
		if policy.ReadOnly {
			args = append(args, "--ro-bind-try", path, path)
		} else {
			args = append(args, "--bind-try", path, path)
		}
	}

	args = append(args, "--chdir", workDir)

	return args
}
