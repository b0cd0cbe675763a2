//go:build darwin

package platform

import "github.com/safedep/cage/sandbox"

// Backends returns the macOS backends in preference order. The OS-native
// declarative sandbox (sandbox-exec) is preferred; a container runtime,
// when installed, is the fallback.
func Backends() []Descriptor {
	return []Descriptor{
		{
			Name:      BackendSeatbelt,
			Available: seatbeltAvailable,
			New: func(policy sandbox.Policy) (sandbox.Sandbox, error) {
				return newSeatbeltSandbox(policy)
			},
		},
		{
			Name:      BackendContainer,
			Available: containerAvailable,
			New: func(policy sandbox.Policy) (sandbox.Sandbox, error) {
				return newContainerSandbox(policy, defaultContainerConfig())
			},
		},
	}
}
