// Package config loads service configuration from defaults, an optional
// YAML file and GOANALYTICS_ environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. GOANALYTICS_SERVER_PORT.
const EnvPrefix = "GOANALYTICS"

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the host:port the server listens on.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// StorageConfig selects and tunes the document store.
type StorageConfig struct {
	Backend         string        `mapstructure:"backend"`
	DataDir         string        `mapstructure:"data_dir"`
	MaxMemoryMB     int           `mapstructure:"max_memory_mb"`
	BackgroundSave  time.Duration `mapstructure:"background_save"`
	TransactionSave bool          `mapstructure:"transaction_save"`
}

// RedisConfig locates the Redis server of the redis backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Backend:     BackendMemory,
			DataDir:     ".",
			MaxMemoryMB: 1024,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "goanalytics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// SetDefaults registers every key of Default on v so environment overrides
// reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.read_timeout", defaults.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", defaults.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", defaults.Server.IdleTimeout)
	v.SetDefault("server.request_timeout", defaults.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)

	v.SetDefault("storage.backend", defaults.Storage.Backend)
	v.SetDefault("storage.data_dir", defaults.Storage.DataDir)
	v.SetDefault("storage.max_memory_mb", defaults.Storage.MaxMemoryMB)
	v.SetDefault("storage.background_save", defaults.Storage.BackgroundSave)
	v.SetDefault("storage.transaction_save", defaults.Storage.TransactionSave)

	v.SetDefault("redis.addr", defaults.Redis.Addr)
	v.SetDefault("redis.password", defaults.Redis.Password)
	v.SetDefault("redis.db", defaults.Redis.DB)
	v.SetDefault("redis.prefix", defaults.Redis.Prefix)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
}

// NewViper returns a viper instance with defaults and environment binding.
// A non-empty configFile is read and must exist.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Server.Port))
	}
	for name, d := range map[string]time.Duration{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.idle_timeout":     c.Server.IdleTimeout,
		"server.request_timeout":  c.Server.RequestTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"storage.background_save": c.Storage.BackgroundSave,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must be non-negative (got: %s)", name, d))
		}
	}

	switch c.Storage.Backend {
	case BackendMemory:
		if c.Storage.DataDir == "" {
			errs = append(errs, errors.New("storage.data_dir is required for the memory backend"))
		}
		if c.Storage.MaxMemoryMB <= 0 {
			errs = append(errs, fmt.Errorf("storage.max_memory_mb must be positive (got: %d)", c.Storage.MaxMemoryMB))
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis backend"))
		}
		if c.Redis.DB < 0 {
			errs = append(errs, fmt.Errorf("redis.db must be non-negative (got: %d)", c.Redis.DB))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be one of [%s %s] (got: %s)", BackendMemory, BackendRedis, c.Storage.Backend))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "pretty":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console (got: %s)", c.Logging.Format))
	}

	return errors.Join(errs...)
}
