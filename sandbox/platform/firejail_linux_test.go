//go:build linux

package platform

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safedep/cage/sandbox"
)

func TestFirejailSandboxLifecycle(t *testing.T) {
	box, err := newFirejailSandbox(sandbox.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, BackendFirejail, box.Name())

	require.NoError(t, box.Initialize(context.Background()))

	// Initialize compiles the profile into the instance scratch area
	profilePath := box.profilePath
	require.NotEmpty(t, profilePath)

	data, err := os.ReadFile(profilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "caps.drop all")
	assert.Contains(t, string(data), "net none")

	// Initialize is idempotent
	require.NoError(t, box.Initialize(context.Background()))
	assert.Equal(t, profilePath, box.profilePath)

	require.NoError(t, box.Cleanup())
	_, err = os.Stat(profilePath)
	assert.True(t, os.IsNotExist(err))

	// Cleanup is idempotent
	assert.NoError(t, box.Cleanup())
}

func TestFirejailSandboxJailHome(t *testing.T) {
	box, err := newFirejailSandbox(sandbox.DefaultPolicy())
	require.NoError(t, err)

	require.NoError(t, box.Initialize(context.Background()))
	defer box.Cleanup()

	// The private home mount masks the scratch tree inside the jail.
	// HOME must point at the real home path the mount lands on, never
	// at the scratch path.
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, box.jailHome)
	assert.Contains(t, buildEnv(box.jailHome, nil), "HOME="+home)
	assert.NotContains(t, buildEnv(box.jailHome, nil), "HOME="+box.scratch.Home())
}

func TestFirejailWorkDir(t *testing.T) {
	policy := sandbox.DefaultPolicy()

	tests := []struct {
		name     string
		workDir  string
		expected string
	}{
		{
			name:     "empty defaults to jail home",
			workDir:  "",
			expected: "/home/user",
		},
		{
			name:     "policy default maps to jail home",
			workDir:  policy.WorkDir,
			expected: "/home/user",
		},
		{
			name:     "explicit override passes through",
			workDir:  "/opt/tools",
			expected: "/opt/tools",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := sandbox.ExecutionRequest{WorkDir: tt.workDir}
			assert.Equal(t, tt.expected, firejailWorkDir(req, &policy, "/home/user"))
		})
	}
}

func TestBubblewrapSandboxLifecycle(t *testing.T) {
	box, err := newBubblewrapSandbox(sandbox.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, BackendBubblewrap, box.Name())

	require.NoError(t, box.Initialize(context.Background()))
	scratch := box.scratch
	require.NotNil(t, scratch)

	require.NoError(t, box.Initialize(context.Background()))
	assert.Same(t, scratch, box.scratch)

	require.NoError(t, box.Cleanup())
	_, err = os.Stat(scratch.Root())
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, box.Cleanup())
}
