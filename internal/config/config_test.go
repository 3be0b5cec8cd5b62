package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/mycar")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, int32(20), cfg.MaxConns)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, uint64(3), cfg.BidMaxRetries)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
port: 8080
database_url: postgres://file/mycar
jwt_secret: from-file
jwt_ttl: 12h
store_timeout: 3s
lock_timeout: 500ms
max_conns: 5
log_level: debug
cors_origins:
  - https://mycar.example.com
`)
	t.Setenv("PORT", "9090")
	t.Setenv("LOCK_TIMEOUT", "1s")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "postgres://file/mycar", cfg.DatabaseURL)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 12*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.Equal(t, time.Second, cfg.LockTimeout)
	assert.Equal(t, int32(5), cfg.MaxConns)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		file     string
		contains string
	}{
		{
			name:     "missing_required",
			env:      map[string]string{},
			contains: "database_url is required",
		},
		{
			name:     "bad_duration",
			env:      map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET": "s", "STORE_TIMEOUT": "soon"},
			contains: "invalid STORE_TIMEOUT",
		},
		{
			name:     "bad_port",
			env:      map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET": "s", "PORT": "70000"},
			contains: "port 70000 out of range",
		},
		{
			name:     "bad_yaml",
			env:      map[string]string{},
			file:     "port: [1, 2",
			contains: "failed to parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}
