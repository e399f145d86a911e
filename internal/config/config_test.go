package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Env:      "local",
		LogLevel: "info",
		HTTP:     HTTPServer{Addr: ":8080"},
		Storage:  Storage{DBPath: "expenses.db"},
		Session: Session{
			Store:           StoreSQLite,
			SecretKey:       DefaultSecretKey,
			TTL:             720 * time.Hour,
			CleanupInterval: time.Hour,
		},
		Redis: Redis{Addr: "localhost:6379"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(c *Config)
		wantErr     bool
		errorString string
	}{
		{
			name:   "valid defaults",
			modify: func(c *Config) {},
		},
		{
			name:        "unknown env",
			modify:      func(c *Config) { c.Env = "staging" },
			wantErr:     true,
			errorString: "invalid env 'staging'",
		},
		{
			name:        "empty db path",
			modify:      func(c *Config) { c.Storage.DBPath = "" },
			wantErr:     true,
			errorString: "database path cannot be empty",
		},
		{
			name:        "unknown session store",
			modify:      func(c *Config) { c.Session.Store = "memcached" },
			wantErr:     true,
			errorString: "invalid session store 'memcached'",
		},
		{
			name:        "ttl too short",
			modify:      func(c *Config) { c.Session.TTL = time.Second },
			wantErr:     true,
			errorString: "invalid session ttl",
		},
		{
			name:        "cleanup interval too short for sqlite store",
			modify:      func(c *Config) { c.Session.CleanupInterval = 0 },
			wantErr:     true,
			errorString: "invalid session cleanup interval",
		},
		{
			name: "cleanup interval ignored for redis store",
			modify: func(c *Config) {
				c.Session.Store = StoreRedis
				c.Session.CleanupInterval = 0
			},
		},
		{
			name: "redis store without address",
			modify: func(c *Config) {
				c.Session.Store = StoreRedis
				c.Redis.Addr = ""
			},
			wantErr:     true,
			errorString: "redis address is required",
		},
		{
			name:        "default secret in prod",
			modify:      func(c *Config) { c.Env = "prod" },
			wantErr:     true,
			errorString: "must be changed from the development default",
		},
		{
			name: "short secret with cookie store",
			modify: func(c *Config) {
				c.Session.Store = StoreCookie
				c.Session.SecretKey = "short"
			},
			wantErr:     true,
			errorString: "at least 16 characters",
		},
		{
			name:        "empty secret",
			modify:      func(c *Config) { c.Session.SecretKey = "" },
			wantErr:     true,
			errorString: "secret key cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorString)
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "nope"
	cfg.Storage.DBPath = ""
	cfg.Session.Store = "nope"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid env")
	assert.Contains(t, err.Error(), "database path")
	assert.Contains(t, err.Error(), "invalid session store")
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ENV", "dev")
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("DB_PATH", "/tmp/ledger.db")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("SECURE_COOKIE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, "/tmp/ledger.db", cfg.Storage.DBPath)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.True(t, cfg.Session.SecureCookie)
	assert.Equal(t, StoreSQLite, cfg.Session.Store)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
env: local
http_server:
  addr: ":7070"
storage:
  db_path: "file.db"
session:
  store: redis
  ttl: 1h
redis:
  addr: "cache:6379"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "file.db", cfg.Storage.DBPath)
	assert.Equal(t, StoreRedis, cfg.Session.Store)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("SESSION_STORE", "memcached")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session store")
}
