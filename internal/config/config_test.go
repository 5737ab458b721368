package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9099", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "http://localhost:9099/simple_lti/launch", cfg.LaunchURL())
	assert.Equal(t, "http://localhost:9099/chat", cfg.ChatBaseURL)
	assert.Equal(t, "http://localhost:9099/v1/chat/completions", cfg.CompletionEndpoint)
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
httpAddr: ":7000"
publicURL: "https://lamb.example.com"
dbDriver: postgres
unpublishCleanup: true
corsOrigins:
  - https://lms.example.com
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_DRIVER", "sqlite") // env wins over file

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.True(t, cfg.UnpublishCleanup)
	assert.Equal(t, []string{"https://lms.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, "https://lamb.example.com/simple_lti/launch", cfg.LaunchURL())
}

func TestLoadBadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestEnvCSV(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com ,")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}
