//go:build darwin

package platform

import (
	"fmt"
	"strings"

	"github.com/safedep/cage/sandbox"
)

// System directories every process needs readable for baseline operation.
var seatbeltSystemReads = []string{
	"/usr",
	"/bin",
	"/sbin",
	"/System",
	"/Library",
	"/private/etc",
	"/private/var/db",
	"/var",
}

// Device nodes required for stdio plumbing and randomness.
var seatbeltDeviceNodes = []string{
	"/dev/null",
	"/dev/zero",
	"/dev/random",
	"/dev/urandom",
	"/dev/tty",
	"/dev/dtracehelper",
}

// Minimal mach services needed for process startup and TLS.
var seatbeltMachLookups = []string{
	"com.apple.SecurityServer",
	"com.apple.system.logger",
	"com.apple.system.notification_center",
	"com.apple.system.opendirectoryd.libinfo",
	"com.apple.trustd.agent",
}

// generateSeatbeltProfile compiles the policy into sandbox profile
// language: deny by default, then an explicit allow-list. Pure function,
// unit-testable without sandbox-exec.
func generateSeatbeltProfile(policy *sandbox.Policy, scratchRoot string) string {
	var sb strings.Builder

	sb.WriteString("(version 1)\n")
	sb.WriteString(";; generated sandbox profile, not for manual editing\n\n")

	sb.WriteString("(deny default)\n\n")

	sb.WriteString(";; baseline process operation\n")
	sb.WriteString("(allow process-exec)\n")
	sb.WriteString("(allow process-fork)\n")
	sb.WriteString("(allow signal (target same-sandbox))\n")
	sb.WriteString("(allow file-read-metadata)\n")
	sb.WriteString("(allow sysctl-read)\n\n")

	sb.WriteString("(allow mach-lookup\n")
	for _, name := range seatbeltMachLookups {
		fmt.Fprintf(&sb, "  (global-name %q)\n", name)
	}
	sb.WriteString(")\n\n")

	sb.WriteString(";; read-only system view\n")
	for _, dir := range seatbeltSystemReads {
		fmt.Fprintf(&sb, "(allow file-read* (subpath %q))\n", dir)
	}
	for _, dev := range seatbeltDeviceNodes {
		fmt.Fprintf(&sb, "(allow file-read* file-write-data file-ioctl (literal %q))\n", dev)
	}
	sb.WriteString("\n")

	sb.WriteString(";; instance scratch area\n")
	fmt.Fprintf(&sb, "(allow file-read* file-write* (subpath %q))\n\n", scratchRoot)

	switch policy.Network {
	case sandbox.NetworkNone:
		sb.WriteString(";; network removed\n")
		sb.WriteString("(deny network*)\n")
	case sandbox.NetworkRestricted:
		// Coarse approximation: outbound on the standard web ports
		// only. Not a per-host filter.
		sb.WriteString(";; outbound web ports only\n")
		sb.WriteString("(allow network-outbound (remote tcp \"*:80\"))\n")
		sb.WriteString("(allow network-outbound (remote tcp \"*:443\"))\n")
		sb.WriteString("(allow system-socket)\n")
	case sandbox.NetworkBridge:
		sb.WriteString(";; network unrestricted\n")
		sb.WriteString("(allow network*)\n")
	}
	sb.WriteString("\n")

	if len(policy.AllowedPaths) > 0 {
		sb.WriteString(";; policy allowed paths\n")
		operation := "file-read*"
		if !policy.ReadOnly {
			operation = "file-read* file-write*"
		}
		for _, path := range policy.AllowedPaths {
			fmt.Fprintf(&sb, "(allow %s (subpath %q))\n", operation, path)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
