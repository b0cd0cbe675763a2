//go:build darwin

package platform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/safedep/cage/sandbox"
)

func seatbeltProfileFor(mutate func(*sandbox.Policy)) string {
	policy := sandbox.DefaultPolicy()
	if mutate != nil {
		mutate(&policy)
	}
	return generateSeatbeltProfile(&policy, "/tmp/scratch")
}

func TestGenerateSeatbeltProfileDenyByDefault(t *testing.T) {
	profile := seatbeltProfileFor(nil)

	assert.True(t, strings.HasPrefix(profile, "(version 1)"))
	assert.Contains(t, profile, "(deny default)")

	// Deny must come before any allow
	denyIdx := strings.Index(profile, "(deny default)")
	allowIdx := strings.Index(profile, "(allow ")
	assert.Less(t, denyIdx, allowIdx)
}

func TestGenerateSeatbeltProfileBaseline(t *testing.T) {
	profile := seatbeltProfileFor(nil)

	assert.Contains(t, profile, "(allow process-exec)")
	assert.Contains(t, profile, "(allow process-fork)")
	assert.Contains(t, profile, "(allow signal (target same-sandbox))")
	assert.Contains(t, profile, `(global-name "com.apple.SecurityServer")`)
	assert.Contains(t, profile, `(allow file-read* (subpath "/usr"))`)
	assert.Contains(t, profile, `(literal "/dev/null")`)
}

func TestGenerateSeatbeltProfileScratchAccess(t *testing.T) {
	profile := seatbeltProfileFor(nil)
	assert.Contains(t, profile, `(allow file-read* file-write* (subpath "/tmp/scratch"))`)
}

func TestGenerateSeatbeltProfileNetworkModes(t *testing.T) {
	t.Run("none denies all network", func(t *testing.T) {
		profile := seatbeltProfileFor(nil)
		assert.Contains(t, profile, "(deny network*)")
		assert.NotContains(t, profile, "(allow network")
	})

	t.Run("restricted allows web ports only", func(t *testing.T) {
		profile := seatbeltProfileFor(func(p *sandbox.Policy) {
			p.Network = sandbox.NetworkRestricted
		})

		assert.Contains(t, profile, `(allow network-outbound (remote tcp "*:80"))`)
		assert.Contains(t, profile, `(allow network-outbound (remote tcp "*:443"))`)
		assert.NotContains(t, profile, "(allow network*)")
	})

	t.Run("bridge allows all network", func(t *testing.T) {
		profile := seatbeltProfileFor(func(p *sandbox.Policy) {
			p.Network = sandbox.NetworkBridge
		})

		assert.Contains(t, profile, "(allow network*)")
		assert.NotContains(t, profile, "(deny network*)")
	})
}

func TestGenerateSeatbeltProfileAllowedPaths(t *testing.T) {
	t.Run("read-only policy grants read only", func(t *testing.T) {
		profile := seatbeltProfileFor(func(p *sandbox.Policy) {
			p.AllowedPaths = []string{"/opt/tools"}
		})

		assert.Contains(t, profile, `(allow file-read* (subpath "/opt/tools"))`)
		assert.NotContains(t, profile, `(allow file-read* file-write* (subpath "/opt/tools"))`)
	})

	t.Run("writable policy grants read-write", func(t *testing.T) {
		profile := seatbeltProfileFor(func(p *sandbox.Policy) {
			p.ReadOnly = false
			p.AllowedPaths = []string{"/opt/tools"}
		})

		assert.Contains(t, profile, `(allow file-read* file-write* (subpath "/opt/tools"))`)
	})
}
