package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr            string        `mapstructure:"addr"`
		LogLevel        string        `mapstructure:"log_level"`
		LogFormat       string        `mapstructure:"log_format"`
		RequestTimeout  time.Duration `mapstructure:"request_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		SecureCookie    bool          `mapstructure:"secure_cookie"`
	} `mapstructure:"server"`

	Remote struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"remote"`

	Cache struct {
		Backend   string        `mapstructure:"backend"`
		Namespace string        `mapstructure:"namespace"`
		TTL       time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		PoolSize int    `mapstructure:"pool_size"`
	} `mapstructure:"redis"`

	Postgres struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		User         string `mapstructure:"user"`
		Password     string `mapstructure:"password"`
		DBName       string `mapstructure:"db_name"`
		SSLMode      string `mapstructure:"ssl_mode"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
	} `mapstructure:"postgres"`

	Listener struct {
		Enabled          bool   `mapstructure:"enabled"`
		Channel          string `mapstructure:"channel"`
		ReconnectSeconds int    `mapstructure:"reconnect_seconds"`
		DebounceMillis   int    `mapstructure:"debounce_millis"`
	} `mapstructure:"listener"`

	Session struct {
		TTL time.Duration `mapstructure:"ttl"`
	} `mapstructure:"session"`
}

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// keys lists every setting so APP_SECTION_KEY env vars reach Unmarshal even
// when no file mentions them.
var keys = []string{
	"server.addr", "server.log_level", "server.log_format", "server.request_timeout",
	"server.shutdown_timeout", "server.secure_cookie",
	"remote.base_url", "remote.timeout",
	"cache.backend", "cache.namespace", "cache.ttl",
	"redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"postgres.host", "postgres.port", "postgres.user", "postgres.password",
	"postgres.db_name", "postgres.ssl_mode", "postgres.max_open_conns", "postgres.max_idle_conns",
	"listener.enabled", "listener.channel", "listener.reconnect_seconds", "listener.debounce_millis",
	"session.ttl",
}

// Load reads configs/application.yaml, then configs/<ENV>.yaml on top of it,
// then APP_ environment variables.
func Load() (Config, error) {
	return LoadFrom("configs", strings.ToLower(os.Getenv("ENV")))
}

// LoadFrom is Load with an explicit config directory and environment name.
// Both files are optional; env can fully configure.
func LoadFrom(dir, env string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	base := filepath.Join(dir, "application.yaml")
	if _, err := os.Stat(base); err == nil {
		v.SetConfigFile(base)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", base, err)
		}
	}
	if env != "" {
		overlay := filepath.Join(dir, env+".yaml")
		if _, err := os.Stat(overlay); err == nil {
			v.SetConfigFile(overlay)
			if err := v.MergeInConfig(); err != nil {
				return Config{}, fmt.Errorf("merge %s: %w", overlay, err)
			}
		}
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(c *Config) error {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = "console"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = "http://localhost:8000/api/campaigns"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
	if c.Cache.Namespace == "" {
		c.Cache.Namespace = "console"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Postgres.MaxOpenConns == 0 {
		c.Postgres.MaxOpenConns = 4
	}
	if c.Postgres.MaxIdleConns == 0 {
		c.Postgres.MaxIdleConns = 1
	}
	if c.Listener.Channel == "" {
		c.Listener.Channel = "campaign_changes"
	}
	if c.Listener.ReconnectSeconds <= 0 {
		c.Listener.ReconnectSeconds = 5
	}
	if c.Listener.DebounceMillis < 0 {
		c.Listener.DebounceMillis = 0
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 12 * time.Hour
	}

	switch c.Cache.Backend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q", CacheMemory, CacheRedis, c.Cache.Backend)
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote.timeout must not be negative")
	}
	if c.Listener.Enabled && (c.Postgres.Host == "" || c.Postgres.DBName == "") {
		return fmt.Errorf("listener.enabled needs postgres.host and postgres.db_name")
	}
	return nil
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.DBName,
		c.Postgres.SSLMode,
	)
}

// DSNRedacted is DSN without credentials, for logs.
func (c Config) DSNRedacted() string {
	return fmt.Sprintf("postgres://***:***@%s:%d/%s", c.Postgres.Host, c.Postgres.Port, c.Postgres.DBName)
}

func (c Config) Backoff() time.Duration { return time.Duration(c.Listener.ReconnectSeconds) * time.Second }

func (c Config) Debounce() time.Duration { return time.Duration(c.Listener.DebounceMillis) * time.Millisecond }
