package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "citekeep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9191
  mode: debug
database:
  host: db.internal
  user: svc
  db_name: citekeep_test
dedup:
  default_threshold: 0.9
  metric: trigram_jaccard
anchor:
  normalized_end_padding: 25
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 0.9, cfg.Dedup.DefaultThreshold)
	assert.Equal(t, "trigram_jaccard", cfg.Dedup.Metric)
	assert.Equal(t, 25, cfg.Anchor.NormalizedEndPadding)

	// Unset fields received defaults.
	assert.Equal(t, DefaultDBPort, cfg.Database.Port)
	assert.Equal(t, DefaultDedupLimit, cfg.Dedup.DefaultLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidConfig(t *testing.T) {
	path := writeConfigFile(t, `
dedup:
  default_threshold: 5.0
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CITEKEEP_SERVER_PORT", "7070")
	t.Setenv("CITEKEEP_DATABASE_HOST", "env-db")
	t.Setenv("CITEKEEP_LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestMustLoadPanics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yaml")) })
}
