// Package config loads autocrud settings from autocrud.yaml and AUTOCRUD_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AUTOCRUD_SERVER_PORT.
const EnvPrefix = "AUTOCRUD"

// Config represents the autocrud configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Schema    SchemaConfig    `mapstructure:"schema"`
	Log       LogConfig       `mapstructure:"log"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"` // 0 binds an ephemeral port
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns host:port
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	// Driver is memory, sqlite3, pgx or postgres.
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// SchemaConfig points at the resource definitions file.
type SchemaConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig represents logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CacheConfig represents response cache configuration
type CacheConfig struct {
	// Driver is none, memory or redis.
	Driver    string        `mapstructure:"driver"`
	TTL       time.Duration `mapstructure:"ttl"`
	RedisAddr string        `mapstructure:"redis_addr"`
}

// AuthConfig represents bearer token configuration
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	ProtectWrites bool   `mapstructure:"protect_writes"`
}

// RateLimitConfig limits requests per client
type RateLimitConfig struct {
	// Driver is none, memory or redis.
	Driver    string        `mapstructure:"driver"`
	Requests  int           `mapstructure:"requests"`
	Window    time.Duration `mapstructure:"window"`
	RedisAddr string        `mapstructure:"redis_addr"`
}

var (
	databaseDrivers = []string{"memory", "sqlite3", "pgx", "postgres"}
	cacheDrivers    = []string{"none", "memory", "redis"}
	logFormats      = []string{"console", "json"}
)

// Load reads the configuration. When path is empty, autocrud.yaml (or .yml)
// is searched in . and ./config, and a missing file falls back to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("autocrud")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("schema.path", "schema.yaml")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("cache.driver", "none")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.redis_addr", "localhost:6379")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.protect_writes", false)

	v.SetDefault("ratelimit.driver", "none")
	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.redis_addr", "localhost:6379")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got: %d", c.Server.Port)
	}
	if !oneOf(c.Database.Driver, databaseDrivers) {
		return fmt.Errorf("database.driver must be one of %s, got: %s", strings.Join(databaseDrivers, ", "), c.Database.Driver)
	}
	if c.Database.Driver != "memory" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver)
	}
	if c.Schema.Path == "" {
		return fmt.Errorf("schema.path is required")
	}
	if !oneOf(c.Log.Format, logFormats) {
		return fmt.Errorf("log.format must be one of %s, got: %s", strings.Join(logFormats, ", "), c.Log.Format)
	}
	if !oneOf(c.Cache.Driver, cacheDrivers) {
		return fmt.Errorf("cache.driver must be one of %s, got: %s", strings.Join(cacheDrivers, ", "), c.Cache.Driver)
	}
	if c.Cache.Driver == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required for the redis cache")
	}
	if c.Auth.ProtectWrites && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth.protect_writes is set")
	}
	if !oneOf(c.RateLimit.Driver, cacheDrivers) {
		return fmt.Errorf("ratelimit.driver must be one of %s, got: %s", strings.Join(cacheDrivers, ", "), c.RateLimit.Driver)
	}
	if c.RateLimit.Driver != "none" && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("ratelimit.requests and ratelimit.window must be positive")
	}
	return nil
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
