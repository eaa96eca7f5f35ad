package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, "http://localhost:8000/api/campaigns", cfg.Remote.BaseURL)
	assert.Zero(t, cfg.Remote.Timeout, "no remote timeout unless configured")
	assert.Zero(t, cfg.Server.RequestTimeout)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Listener.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Backoff())
}

func TestLoadFileOverlayAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "application.yaml", `
server:
  addr: ":9000"
  log_level: debug
remote:
  base_url: http://store:8000/api/campaigns
  timeout: 3s
cache:
  backend: redis
  ttl: 1m
`)
	writeFile(t, dir, "prod.yaml", `
server:
  secure_cookie: true
remote:
  timeout: 5s
`)
	t.Setenv("APP_SERVER_ADDR", ":7000")
	t.Setenv("APP_REDIS_ADDR", "redis:6380")

	cfg, err := LoadFrom(dir, "prod")
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr, "env wins over files")
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.True(t, cfg.Server.SecureCookie)
	assert.Equal(t, "http://store:8000/api/campaigns", cfg.Remote.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout, "overlay wins over base file")
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown cache backend", map[string]string{"APP_CACHE_BACKEND": "memcached"}},
		{"negative remote timeout", map[string]string{"APP_REMOTE_TIMEOUT": "-1s"}},
		{"listener without postgres", map[string]string{"APP_LISTENER_ENABLED": "true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFrom(t.TempDir(), "")
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	var c Config
	c.Postgres.Host, c.Postgres.Port, c.Postgres.DBName = "db", 5432, "campaigns"
	c.Postgres.User, c.Postgres.Password, c.Postgres.SSLMode = "u", "secret", "disable"

	assert.Equal(t, "postgres://u:secret@db:5432/campaigns?sslmode=disable", c.DSN())
	assert.NotContains(t, c.DSNRedacted(), "secret")
}

func TestSetupLogging(t *testing.T) {
	prevLevel, prevLogger := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prevLevel)
		log.Logger = prevLogger
	})

	var buf bytes.Buffer
	logger := setupLogging(&buf, "warn", "json")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	logger.Info().Msg("dropped")
	logger.Warn().Str("k", "v").Msg("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"k":"v"`)
}
