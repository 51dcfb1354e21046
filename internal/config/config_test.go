package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "local", cfg.StorageBackend)
	assert.Equal(t, 22, cfg.SFTPPort)
	assert.Equal(t, "/data/upload", cfg.SFTPRemotePath)
	assert.Equal(t, "", cfg.SFTPKnownHosts)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "sftp")
	t.Setenv("STORAGE_SFTP_HOST", "files.internal")
	t.Setenv("STORAGE_SFTP_PORT", "2222")
	t.Setenv("APP_ENV", "production")

	cfg := Load()

	assert.Equal(t, "sftp", cfg.StorageBackend)
	assert.Equal(t, "files.internal", cfg.SFTPHost)
	assert.Equal(t, 2222, cfg.SFTPPort)
	assert.True(t, cfg.IsProduction())
}

func TestGetEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("STORAGE_SFTP_PORT", "not-a-number")

	cfg := Load()

	assert.Equal(t, 22, cfg.SFTPPort)
}
