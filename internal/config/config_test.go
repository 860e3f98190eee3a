package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chtemp runs the rest of the test from an empty directory so no stray
// config.yaml is picked up.
func chtemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data/metrics.db", cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 14, cfg.Detect.Span)
	assert.Equal(t, 28, cfg.Detect.LookbackDays)
	assert.InDelta(t, 2.0, cfg.Detect.MinZ, 0.001)
	assert.True(t, cfg.Ingest.Mock)
	assert.Equal(t, int64(42), cfg.Ingest.Seed)
}

func TestLoadEnvOverrides(t *testing.T) {
	chtemp(t)

	t.Setenv("RADAR_STORE_DRIVER", "postgres")
	t.Setenv("RADAR_STORE_DATABASE_URL", "postgres://localhost/radar")
	t.Setenv("RADAR_DETECT_MIN_Z", "3.5")
	t.Setenv("RADAR_DETECT_LOOKBACK_DAYS", "14")
	t.Setenv("RADAR_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/radar", cfg.Store.DatabaseURL)
	assert.InDelta(t, 3.5, cfg.Detect.MinZ, 0.001)
	assert.Equal(t, 14, cfg.Detect.LookbackDays)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfigFile(t *testing.T) {
	chtemp(t)

	yaml := `
store:
  driver: sqlite
  path: /tmp/custom.db
detect:
  span: 7
  min_z: 2.5
`
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(wd, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.Store.Path)
	assert.Equal(t, 7, cfg.Detect.Span)
	assert.InDelta(t, 2.5, cfg.Detect.MinZ, 0.001)
	// Untouched keys keep their defaults.
	assert.Equal(t, 28, cfg.Detect.LookbackDays)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
