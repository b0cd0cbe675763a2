//go:build linux

package platform

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/safedep/cage/sandbox"
)

func firejailProfileFor(mutate func(*sandbox.Policy)) string {
	policy := sandbox.DefaultPolicy()
	if mutate != nil {
		mutate(&policy)
	}
	return generateFirejailProfile(&policy, "/tmp/scratch/home")
}

func TestGenerateFirejailProfileHardening(t *testing.T) {
	profile := firejailProfileFor(nil)

	for _, directive := range []string{
		"noroot",
		"nonewprivs",
		"caps.drop all",
		"seccomp",
		"nosound",
		"novideo",
		"no3d",
		"dbus-user none",
		"dbus-system none",
		"private /tmp/scratch/home",
		"private-tmp",
	} {
		assert.Contains(t, profile, directive)
	}
}

func TestGenerateFirejailProfileSensitiveDirs(t *testing.T) {
	profile := firejailProfileFor(nil)

	assert.Contains(t, profile, "blacklist /root")
	assert.Contains(t, profile, "blacklist /boot")
	assert.Contains(t, profile, "blacklist /var/backups")
}

func TestGenerateFirejailProfileResourceLimits(t *testing.T) {
	profile := firejailProfileFor(func(p *sandbox.Policy) {
		p.Memory = "512Mi"
		p.CPU = 2.0
		p.Timeout = 60 * time.Second
		p.MaxOutputBytes = 4096
	})

	assert.Contains(t, profile, fmt.Sprintf("rlimit-as %d", int64(512<<20)))
	assert.Contains(t, profile, "rlimit-cpu 120")
	assert.Contains(t, profile, "rlimit-fsize 4096")
	assert.Contains(t, profile, "rlimit-nproc 128")
	assert.Contains(t, profile, "rlimit-nofile 256")
}

func TestGenerateFirejailProfileNetworkModes(t *testing.T) {
	t.Run("none removes the network", func(t *testing.T) {
		profile := firejailProfileFor(nil)
		assert.Contains(t, profile, "net none")
	})

	t.Run("restricted enables packet filtering", func(t *testing.T) {
		profile := firejailProfileFor(func(p *sandbox.Policy) {
			p.Network = sandbox.NetworkRestricted
		})
		assert.Contains(t, profile, "netfilter")
		assert.NotContains(t, profile, "net none")
	})

	t.Run("bridge leaves the network alone", func(t *testing.T) {
		profile := firejailProfileFor(func(p *sandbox.Policy) {
			p.Network = sandbox.NetworkBridge
		})
		assert.NotContains(t, profile, "net none")
		assert.NotContains(t, profile, "netfilter")
	})
}

func TestGenerateFirejailProfileReadOnly(t *testing.T) {
	t.Run("read-only policy locks home and tmp", func(t *testing.T) {
		profile := firejailProfileFor(nil)
		assert.Contains(t, profile, "read-only ${HOME}")
		assert.Contains(t, profile, "read-only /tmp")
	})

	t.Run("writable policy leaves home and tmp writable", func(t *testing.T) {
		profile := firejailProfileFor(func(p *sandbox.Policy) {
			p.ReadOnly = false
		})
		assert.NotContains(t, profile, "read-only ${HOME}")
	})
}

func TestGenerateFirejailProfileAllowedPaths(t *testing.T) {
	profile := firejailProfileFor(func(p *sandbox.Policy) {
		p.AllowedPaths = []string{"/opt/tools"}
	})

	assert.Contains(t, profile, "whitelist /opt/tools")
	assert.Contains(t, profile, "read-only /opt/tools")
}

func TestGenerateFirejailProfileTimeout(t *testing.T) {
	profile := firejailProfileFor(func(p *sandbox.Policy) {
		p.Timeout = 90 * time.Second
	})

	assert.Contains(t, profile, "timeout 00:01:30")
}

func TestCpuTimeLimitSeconds(t *testing.T) {
	tests := []struct {
		name     string
		cpu      float64
		timeout  time.Duration
		expected int
	}{
		{
			name:     "one core for thirty seconds",
			cpu:      1.0,
			timeout:  30 * time.Second,
			expected: 30,
		},
		{
			name:     "half core rounds up",
			cpu:      0.5,
			timeout:  45 * time.Second,
			expected: 23,
		},
		{
			name:     "floor of one second",
			cpu:      0.1,
			timeout:  time.Second,
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := sandbox.Policy{CPU: tt.cpu, Timeout: tt.timeout}
			assert.Equal(t, tt.expected, cpuTimeLimitSeconds(&policy))
		})
	}
}

func TestFirejailTimeoutFormat(t *testing.T) {
	tests := []struct {
		timeout  time.Duration
		expected string
	}{
		{30 * time.Second, "00:00:30"},
		{90 * time.Second, "00:01:30"},
		{2 * time.Hour, "02:00:00"},
		{500 * time.Millisecond, "00:00:01"},
	}

	for _, tt := range tests {
		policy := sandbox.Policy{Timeout: tt.timeout}
		assert.Equal(t, tt.expected, firejailTimeout(&policy))
	}
}
