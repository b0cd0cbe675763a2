//go:build linux

package platform

import (
	"fmt"
	"math"
	"strings"

	"github.com/safedep/cage/sandbox"
)

const (
	// Fixed conservative ceilings not exposed by the policy.
	firejailMaxProcs     = 128
	firejailMaxOpenFiles = 256
)

// sensitiveHostDirs are always blacklisted, independent of policy. The
// private home below already hides the real home directory; these cover
// the rest of the host.
var sensitiveHostDirs = []string{
	"/root",
	"/boot",
	"/media",
	"/mnt",
	"/srv",
	"/var/backups",
	"/var/mail",
}

// generateFirejailProfile compiles the policy into firejail profile
// text. Pure function of its inputs, unit-testable without running
// firejail.
func generateFirejailProfile(policy *sandbox.Policy, privateHome string) string {
	var sb strings.Builder

	sb.WriteString("# generated sandbox profile, not for manual editing\n\n")

	for _, dir := range sensitiveHostDirs {
		fmt.Fprintf(&sb, "blacklist %s\n", dir)
	}
	sb.WriteString("\n")

	// Private home and tmp keep the real filesystem invisible even for
	// paths the blacklist misses.
	fmt.Fprintf(&sb, "private %s\n", privateHome)
	sb.WriteString("private-tmp\n")

	sb.WriteString("noroot\n")
	sb.WriteString("nonewprivs\n")
	sb.WriteString("caps.drop all\n")
	sb.WriteString("seccomp\n")
	sb.WriteString("nosound\n")
	sb.WriteString("novideo\n")
	sb.WriteString("no3d\n")
	sb.WriteString("dbus-user none\n")
	sb.WriteString("dbus-system none\n\n")

	// Resource ceilings. CPU is a share, not a core pin; the closest
	// firejail primitive is a CPU-time rlimit sized so a process using
	// its full share can still run for the whole wall-clock window.
	fmt.Fprintf(&sb, "rlimit-as %d\n", policy.MemoryBytes())
	fmt.Fprintf(&sb, "rlimit-cpu %d\n", cpuTimeLimitSeconds(policy))
	fmt.Fprintf(&sb, "rlimit-fsize %d\n", policy.MaxOutputBytes)
	fmt.Fprintf(&sb, "rlimit-nproc %d\n", firejailMaxProcs)
	fmt.Fprintf(&sb, "rlimit-nofile %d\n\n", firejailMaxOpenFiles)

	switch policy.Network {
	case sandbox.NetworkNone:
		sb.WriteString("net none\n")
	case sandbox.NetworkRestricted:
		// Packet filtering mode. Per-host allow-listing needs a filter
		// file this generator does not produce; this is a coarse
		// approximation, not a firewall.
		sb.WriteString("netfilter\n")
	}
	sb.WriteString("\n")

	if policy.ReadOnly {
		sb.WriteString("read-only ${HOME}\n")
		sb.WriteString("read-only /tmp\n")
	}

	for _, path := range policy.AllowedPaths {
		fmt.Fprintf(&sb, "whitelist %s\n", path)
		if policy.ReadOnly {
			fmt.Fprintf(&sb, "read-only %s\n", path)
		}
	}
	sb.WriteString("\n")

	// Second enforcement layer beyond the driver's watchdog.
	fmt.Fprintf(&sb, "timeout %s\n", firejailTimeout(policy))

	return sb.String()
}

// cpuTimeLimitSeconds converts the fractional-core ceiling into an
// approximate CPU-time limit for the execution window, at least 1s.
func cpuTimeLimitSeconds(policy *sandbox.Policy) int {
	seconds := int(math.Ceil(policy.CPU * policy.Timeout.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

// firejailTimeout renders the wall-clock ceiling in firejail's
// hh:mm:ss form, rounded up to a whole second.
func firejailTimeout(policy *sandbox.Policy) string {
	total := int(math.Ceil(policy.Timeout.Seconds()))
	if total < 1 {
		total = 1
	}

	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
