package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the gateway
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Cache         CacheConfig         `mapstructure:"cache"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Workers       WorkersConfig       `mapstructure:"workers"`
	Compression   CompressionConfig   `mapstructure:"compression"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// CacheConfig holds caching configuration
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddress  string        `mapstructure:"redis_address"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	MaxEntries    int           `mapstructure:"max_entries"`
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
	TTLSubjects   time.Duration `mapstructure:"ttl_subjects"`
	TTLCharts     time.Duration `mapstructure:"ttl_charts"`
	TTLTransits   time.Duration `mapstructure:"ttl_transits"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerWindow int           `mapstructure:"requests_per_window"`
	Window            time.Duration `mapstructure:"window"`
	Retention         time.Duration `mapstructure:"retention"`
}

// WorkersConfig holds computation worker pool configuration
type WorkersConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

// CompressionConfig holds response compression configuration
type CompressionConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MinimumSize int  `mapstructure:"minimum_size"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// MetricsConfig holds metrics settings
type MetricsConfig struct {
	Strategy string `mapstructure:"strategy"` // simple or prometheus
	Path     string `mapstructure:"path"`
}

// TracingConfig holds tracing settings
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not fatal; defaults and env vars
		// make the gateway fully functional with zero configuration.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.redis_address", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.default_ttl", "1h")
	v.SetDefault("cache.ttl_subjects", "2h")
	v.SetDefault("cache.ttl_charts", "4h")
	v.SetDefault("cache.ttl_transits", "30m")

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_window", 60)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.retention", "1h")

	// Worker defaults
	v.SetDefault("workers.pool_size", 4)

	// Compression defaults
	v.SetDefault("compression.enabled", true)
	v.SetDefault("compression.minimum_size", 1000)

	// Observability defaults
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.metrics.strategy", "simple")
	v.SetDefault("observability.metrics.path", "/metrics")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("rate_limit.requests_per_window must be positive, got %d", c.RateLimit.RequestsPerWindow)
	}

	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive, got %s", c.RateLimit.Window)
	}

	if c.Workers.PoolSize <= 0 {
		return fmt.Errorf("workers.pool_size must be positive, got %d", c.Workers.PoolSize)
	}

	switch c.Observability.Metrics.Strategy {
	case "simple", "prometheus":
	default:
		return fmt.Errorf("unknown metrics strategy: %q", c.Observability.Metrics.Strategy)
	}

	switch c.Observability.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging format: %q", c.Observability.Logging.Format)
	}

	return nil
}
