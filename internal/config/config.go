// Package config loads application settings from the environment, an optional
// .env file and an optional YAML file.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DefaultSecretKey is only acceptable outside production.
const DefaultSecretKey = "dev-secret-key"

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreCookie = "cookie"
)

// Config is the full application configuration.
type Config struct {
	Env      string     `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel string     `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTP     HTTPServer `yaml:"http_server"`
	Storage  Storage    `yaml:"storage"`
	Session  Session    `yaml:"session"`
	Redis    Redis      `yaml:"redis"`
}

// HTTPServer holds listener settings.
type HTTPServer struct {
	Addr         string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Storage points at the SQLite database file.
type Storage struct {
	DBPath string `yaml:"db_path" env:"DB_PATH" env-default:"expenses.db"`
}

// Session configures cookies and the session backend.
type Session struct {
	Store           string        `yaml:"store" env:"SESSION_STORE" env-default:"sqlite"`
	SecretKey       string        `yaml:"secret_key" env:"SECRET_KEY" env-default:"dev-secret-key"`
	SecureCookie    bool          `yaml:"secure_cookie" env:"SECURE_COOKIE" env-default:"false"`
	TTL             time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"720h"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"SESSION_CLEANUP_INTERVAL" env-default:"1h"`
}

// Redis is only used by the redis session store.
type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Load reads .env (if present), then CONFIG_PATH (if set) or the plain
// environment, and validates the result.
func Load() (*Config, error) {
	const op = "config.Load"

	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%s: config file %s: %w", op, path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: read %s: %w", op, path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: read env: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []string

	envs := []string{"local", "dev", "prod"}
	if !slices.Contains(envs, c.Env) {
		errs = append(errs, fmt.Sprintf("invalid env '%s': must be one of %v", c.Env, envs))
	}

	if c.HTTP.Addr == "" {
		errs = append(errs, "http address cannot be empty")
	}

	if c.Storage.DBPath == "" {
		errs = append(errs, "database path cannot be empty")
	}

	stores := []string{StoreSQLite, StoreRedis, StoreCookie}
	if !slices.Contains(stores, c.Session.Store) {
		errs = append(errs, fmt.Sprintf("invalid session store '%s': must be one of %v", c.Session.Store, stores))
	}

	if c.Session.TTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session ttl %v: must be at least 1 minute", c.Session.TTL))
	}

	if c.Session.Store == StoreSQLite && c.Session.CleanupInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid session cleanup interval %v: must be at least 1 second", c.Session.CleanupInterval))
	}

	if c.Session.Store == StoreRedis && c.Redis.Addr == "" {
		errs = append(errs, "redis address is required when using the redis session store")
	}

	if c.Session.SecretKey == "" {
		errs = append(errs, "secret key cannot be empty")
	} else if c.Env == "prod" && c.Session.SecretKey == DefaultSecretKey {
		errs = append(errs, "secret key must be changed from the development default in prod")
	}

	if c.Session.Store == StoreCookie && len(c.Session.SecretKey) < 16 {
		errs = append(errs, "secret key must be at least 16 characters when using the cookie session store")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
