//go:build linux

package platform

import "github.com/safedep/cage/sandbox"

// Backends returns the Linux backends in preference order. Namespace
// isolation (bubblewrap) is preferred because it needs no daemon and no
// image; the profile compiler (firejail) comes next; a rootless container
// runtime is the fallback.
func Backends() []Descriptor {
	return []Descriptor{
		{
			Name:      BackendBubblewrap,
			Available: bubblewrapAvailable,
			New: func(policy sandbox.Policy) (sandbox.Sandbox, error) {
				return newBubblewrapSandbox(policy)
			},
		},
		{
			Name:      BackendFirejail,
			Available: firejailAvailable,
			New: func(policy sandbox.Policy) (sandbox.Sandbox, error) {
				return newFirejailSandbox(policy)
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
