package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.StaleTime)
	assert.Equal(t, 10, cfg.DefaultPageSize)
	assert.Equal(t, "org-123", cfg.DevOrgID)
	assert.Equal(t, "dark", cfg.Theme)
	assert.ErrorIs(t, cfg.Validate(), ErrNoAPIBaseURL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	yamlBody := "api_base_url: https://api.example.com/api/v1/\nrequest_timeout: 10s\ntheme: light\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	t.Setenv("HEALTHDESK_THEME", "dark")
	t.Setenv("HEALTHDESK_STALE_TIME", "1m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/api/v1", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Minute, cfg.StaleTime)
	assert.Equal(t, "dark", cfg.Theme)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_base_url: [\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	path := Path(filepath.Join(t.TempDir(), "sub"))

	cfg := DefaultConfig()
	cfg.APIBaseURL = "http://localhost:8000"
	cfg.DefaultPageSize = 20
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", loaded.APIBaseURL)
	assert.Equal(t, 20, loaded.DefaultPageSize)
	assert.Equal(t, cfg.RequestTimeout, loaded.RequestTimeout)
}

func TestLoadEnv_SkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("HEALTHDESK_DEV_ORG_ID=org-from-dotenv\n"), 0o644))
	t.Setenv("HEALTHDESK_DEV_ORG_ID", "")
	os.Unsetenv("HEALTHDESK_DEV_ORG_ID")

	n, err := LoadEnv(envFile, filepath.Join(dir, ".env.local"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "org-from-dotenv", os.Getenv("HEALTHDESK_DEV_ORG_ID"))
}

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"https", "https://api.example.com/v1", false},
		{"http with port", "http://localhost:8000", false},
		{"missing scheme", "api.example.com", true},
		{"ftp", "ftp://example.com", true},
		{"no host", "http://", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBaseURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_RejectsUnknownTheme(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIBaseURL = "https://api.example.com"
	cfg.Theme = "solarized"
	assert.Error(t, cfg.Validate())
}
