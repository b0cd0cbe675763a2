package usefulerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsefulErrorBuilder(t *testing.T) {
	err := Useful().
		WithCode(ErrCodeBackendUnavailable).
		Msg("no sandbox backend available").
		WithHumanError("No sandbox backend is available on this host").
		WithHelp("Install bubblewrap or podman")

	assert.Equal(t, "BackendUnavailable: no sandbox backend available", err.Error())
	assert.Equal(t, "No sandbox backend is available on this host", err.HumanError())
	assert.Equal(t, "Install bubblewrap or podman", err.Help())
	assert.Equal(t, ErrCodeBackendUnavailable, err.Code())
}

func TestUsefulErrorDefaults(t *testing.T) {
	err := Useful()

	assert.Equal(t, "unknown error", err.Error())
	assert.Equal(t, ErrCodeUnknown, err.Code())
	assert.NotEmpty(t, err.HumanError())
	assert.NotEmpty(t, err.Help())
}

func TestUsefulErrorWrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := Useful().
		Wrap(inner).
		WithCode(ErrCodeLifecycle).
		WithHumanError("The sandbox could not be initialized")

	assert.Equal(t, "connection refused", err.Error())
	assert.True(t, errors.Is(err, inner))
}

func TestAsUsefulError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		_, ok := AsUsefulError(nil)
		assert.False(t, ok)
	})

	t.Run("plain error", func(t *testing.T) {
		_, ok := AsUsefulError(errors.New("plain"))
		assert.False(t, ok)
	})

	t.Run("direct useful error", func(t *testing.T) {
		useful, ok := AsUsefulError(Useful().Msg("direct"))
		assert.True(t, ok)
		assert.Equal(t, "direct", useful.Error())
	})

	t.Run("useful error behind fmt wrapping", func(t *testing.T) {
		var err error = Useful().
			WithCode(ErrCodePresetNotFound).
			Msg("preset missing")

		wrapped := fmt.Errorf("resolving policy: %w", err)

		useful, ok := AsUsefulError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrCodePresetNotFound, useful.Code())
	})
}
