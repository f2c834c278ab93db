package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "regions.yaml", cfg.Regions.File)
	assert.Equal(t, "data", cfg.Download.Dir)
	assert.Equal(t, 4, cfg.Download.Concurrency)
	assert.Equal(t, 4, cfg.Download.MaxAttempts)
	assert.Equal(t, 10.0, cfg.Download.RequestsPerSecond)
	assert.True(t, cfg.Geocoder.Nominatim.Enabled)
	assert.Equal(t, "tilefetch.db", cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
regions:
  file: /etc/tilefetch/regions.yaml
download:
  dir: /var/lib/tilefetch
  concurrency: 8
log:
  level: debug
  format: console
`), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "/etc/tilefetch/regions.yaml", cfg.Regions.File)
	assert.Equal(t, "/var/lib/tilefetch", cfg.Download.Dir)
	assert.Equal(t, 8, cfg.Download.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, 4, cfg.Download.MaxAttempts)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TILEFETCH_LOG_LEVEL", "warn")
	t.Setenv("TILEFETCH_DOWNLOAD_DIR", "/tmp/tiles")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/tmp/tiles", cfg.Download.Dir)
}

func TestKeyFromEnv(t *testing.T) {
	t.Setenv("TILEFETCH_GEOCODER_BUILDINGS_KEY", "env-secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Geocoder.Buildings.Key)
}

func TestKeyFromKeyFile(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "secrets.env")
	require.NoError(t, os.WriteFile(keyPath, []byte(`
# api credentials
other = ignored
subscription_key = file-secret
`), 0o600))

	t.Setenv("TILEFETCH_GEOCODER_BUILDINGS_KEY_FILE", keyPath)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "file-secret", cfg.Geocoder.Buildings.Key)
}

func TestKeyFileMissingEntry(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "secrets.env")
	require.NoError(t, os.WriteFile(keyPath, []byte("other=value\n"), 0o600))

	_, err := readKeyFile(keyPath, "subscription_key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no subscription_key entry")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
