package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Empty(t, cfg.Config.DefaultBackend)
	assert.Empty(t, cfg.Config.DefaultPreset)
	assert.False(t, cfg.Config.SkipEventLogging)
	assert.Equal(t, 7, cfg.Config.EventLogRetentionDays)
}

func TestGetNeverReturnsNil(t *testing.T) {
	cfg := Get()
	require.NotNil(t, cfg)

	assert.Equal(t, CONFIG_FILE_NAME, filepath.Base(cfg.ConfigFilePath()))

	if runtime.GOOS == "linux" || runtime.GOOS == "darwin" {
		assert.NotEmpty(t, cfg.EventLogDir())
	}
}

func TestConfigDirEnvOverride(t *testing.T) {
	dir := t.TempDir()

	// Reinitialize with the original environment once the override is undone
	t.Cleanup(initConfig)
	t.Setenv(CONFIG_DIR_ENV_KEY, dir)

	initConfig()

	assert.Equal(t, filepath.Join(dir, CONFIG_FILE_NAME), Get().ConfigFilePath())
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Cleanup(initConfig)
	t.Setenv(CONFIG_DIR_ENV_KEY, dir)

	content := `default_backend: bubblewrap
default_preset: restricted
skip_event_logging: true
event_log_retention_days: 30
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, CONFIG_FILE_NAME), []byte(content), 0o644))

	initConfig()

	cfg := Get()
	assert.Equal(t, "bubblewrap", cfg.Config.DefaultBackend)
	assert.Equal(t, "restricted", cfg.Config.DefaultPreset)
	assert.True(t, cfg.Config.SkipEventLogging)
	assert.Equal(t, 30, cfg.Config.EventLogRetentionDays)
}

func TestWriteTemplateConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(CONFIG_DIR_ENV_KEY, dir)

	require.NoError(t, WriteTemplateConfig())

	path := filepath.Join(dir, CONFIG_FILE_NAME)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "event_log_retention_days")

	// An existing config file is never overwritten
	require.NoError(t, os.WriteFile(path, []byte("default_preset: web\n"), 0o644))
	require.NoError(t, WriteTemplateConfig())

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "default_preset: web\n", string(data))
}
