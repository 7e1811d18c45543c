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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
server:
  host: localhost
  port: 8080
database:
  host: localhost
  port: 5432
  user: equiploan
  password: secret
  database: equiploan
  ssl_mode: disable
jwt:
  secret: "0123456789abcdef0123456789abcdef"
`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.JWT.AccessTokenExpiry)
	assert.Equal(t, 16, cfg.Events.SubscriberBufferSize)
	assert.Equal(t, "@every 5m", cfg.Scheduler.OverdueSweep)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "localhost:8080", cfg.GetServerAddress())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("EMAIL_DIRECTORY_URL", "http://members.internal")

	cfg, err := Load(writeConfigFile(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "http://members.internal", cfg.Email.DirectoryURL)
}

const shortSecretConfig = `
server:
  port: 8080
database:
  host: localhost
  user: equiploan
  database: equiploan
jwt:
  secret: short
`

func TestValidate_RejectsShortJWTSecret(t *testing.T) {
	_, err := Load(writeConfigFile(t, shortSecretConfig))
	assert.ErrorContains(t, err, "at least 32 characters")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}
