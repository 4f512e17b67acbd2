package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
database:
  host: localhost
  user: symbols
  password: secret
  dbname: symbols
celery:
  brokerURL: redis://localhost:6379/0
  resultBackend: redis://localhost:6379/0
`

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Celery.AwaitTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.UpdateInterval)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigMissingBrokerIsFatal(t *testing.T) {
	content := `
database:
  host: localhost
  user: symbols
  password: secret
  dbname: symbols
`
	_, err := LoadConfig(writeConfig(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "celery.")
}

func TestLoadConfigMissingDatabaseIsFatal(t *testing.T) {
	content := `
database:
  host: localhost
  user: symbols
  dbname: symbols
celery:
  brokerURL: redis://localhost:6379/0
  resultBackend: redis://localhost:6379/0
`
	_, err := LoadConfig(writeConfig(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.password")
}

func TestLoadConfigCacheRequiresURL(t *testing.T) {
	content := validConfig + `
cache:
  enabled: true
`
	_, err := LoadConfig(writeConfig(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.redisURL")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
