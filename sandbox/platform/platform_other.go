//go:build !linux && !darwin

package platform

import "github.com/safedep/cage/sandbox"

// Backends returns the backends for platforms without a native isolation
// tool. Only a container runtime can provide isolation here.
func Backends() []Descriptor {
	return []Descriptor{
		{
			Name:      BackendContainer,
			Available: containerAvailable,
			New: func(policy sandbox.Policy) (sandbox.Sandbox, error) {
				return newContainerSandbox(policy, defaultContainerConfig())
			},
		},
	}
}
