package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/safedep/cage/sandbox"
	"github.com/safedep/cage/usefulerror"
)

func TestBuildEnv(t *testing.T) {
	t.Run("minimal environment without extras", func(t *testing.T) {
		env := buildEnv("/home/sandbox", nil)

		assert.Equal(t, []string{
			"PATH=/usr/local/bin:/usr/bin:/bin",
			"HOME=/home/sandbox",
			"TMPDIR=/tmp",
			"LANG=en_US.UTF-8",
			"TERM=dumb",
		}, env)
	})

	t.Run("extras appended in sorted order", func(t *testing.T) {
		env := buildEnv("/home/sandbox", map[string]string{
			"ZED":   "last",
			"ALPHA": "first",
		})

		assert.Equal(t, "ALPHA=first", env[len(env)-2])
		assert.Equal(t, "ZED=last", env[len(env)-1])
	})

	t.Run("host environment is not inherited", func(t *testing.T) {
		t.Setenv("SECRET_TOKEN", "hunter2")

		env := buildEnv("/home/sandbox", nil)
		for _, kv := range env {
			assert.NotContains(t, kv, "hunter2")
		}
	})
}

func TestProbeCoversAllBackends(t *testing.T) {
	statuses := Probe()
	backends := Backends()

	assert.Len(t, statuses, len(backends))
	for i, status := range statuses {
		assert.Equal(t, backends[i].Name, status.Name)
	}
}

func TestSelectNamedUnknownBackend(t *testing.T) {
	_, err := SelectNamed("nonexistent", sandbox.DefaultPolicy())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no sandbox backend available")
}

func TestSelectFromNamesUnavailableBackend(t *testing.T) {
	backends := []Descriptor{
		{
			Name:      BackendContainer,
			Available: func() bool { return false },
			New: func(policy sandbox.Policy) (sandbox.Sandbox, error) {
				t.Fatal("unavailable backend must not be constructed")
				return nil, nil
			},
		},
	}

	_, err := selectFrom(backends, BackendContainer, sandbox.DefaultPolicy())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sandbox backend container is unavailable")

	useful, ok := usefulerror.AsUsefulError(err)
	assert.True(t, ok)
	assert.Contains(t, useful.HumanError(), "container")
}

func TestCommandExists(t *testing.T) {
	assert.False(t, commandExists("definitely-not-a-real-binary-xyz"))
}
