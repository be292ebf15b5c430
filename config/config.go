package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Ebay      EbayConfig
	Extractor ExtractorConfig
	Pipeline  PipelineConfig
	Cache     CacheConfig
	Storage   StorageConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// EbayConfig holds sold-listing discovery configuration
type EbayConfig struct {
	BaseURL   string  `mapstructure:"base_url"`
	RateLimit float64 `mapstructure:"rate_limit"` // requests per second
	Burst     int     `mapstructure:"burst"`
}

// ExtractorConfig holds feature extraction service configuration
type ExtractorConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// PipelineConfig holds valuation pipeline tuning knobs
type PipelineConfig struct {
	AcceptanceThreshold float64       `mapstructure:"acceptance_threshold"`
	ConfidenceHigh      float64       `mapstructure:"confidence_high"`
	ConfidenceMid       float64       `mapstructure:"confidence_mid"`
	ConfidenceLow       float64       `mapstructure:"confidence_low"`
	ResultCount         int           `mapstructure:"result_count"`
	CategoryID          string        `mapstructure:"category_id"`
	ScoringConcurrency  int           `mapstructure:"scoring_concurrency"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// StorageConfig holds persistence configuration. An empty DSN disables
// result persistence entirely.
type StorageConfig struct {
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/vintdex/")

	// Environment variable settings
	v.SetEnvPrefix("VINTDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Discovery defaults
	v.SetDefault("ebay.base_url", "https://www.ebay.com/sch/i.html")
	v.SetDefault("ebay.rate_limit", 1.0)
	v.SetDefault("ebay.burst", 2)

	// Extractor defaults
	v.SetDefault("extractor.base_url", "http://localhost:9090")
	v.SetDefault("extractor.model", "clip-vit-base-patch32")
	v.SetDefault("extractor.dimensions", 512)
	v.SetDefault("extractor.timeout", "30s")

	// Pipeline defaults
	v.SetDefault("pipeline.acceptance_threshold", 0.7)
	v.SetDefault("pipeline.confidence_high", 0.85)
	v.SetDefault("pipeline.confidence_mid", 0.75)
	v.SetDefault("pipeline.confidence_low", 0.65)
	v.SetDefault("pipeline.result_count", 60)
	v.SetDefault("pipeline.category_id", "11450")
	v.SetDefault("pipeline.scoring_concurrency", 8)
	v.SetDefault("pipeline.timeout", "2m")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "1h")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Extractor.Dimensions <= 0 {
		return fmt.Errorf("extractor dimensions must be positive, got: %d", config.Extractor.Dimensions)
	}

	if config.Pipeline.AcceptanceThreshold < 0 || config.Pipeline.AcceptanceThreshold > 1 {
		return fmt.Errorf("acceptance threshold must be in [0,1], got: %g", config.Pipeline.AcceptanceThreshold)
	}

	if config.Pipeline.ConfidenceHigh <= config.Pipeline.ConfidenceMid ||
		config.Pipeline.ConfidenceMid <= config.Pipeline.ConfidenceLow {
		return fmt.Errorf("confidence buckets must be strictly decreasing (high > mid > low)")
	}

	if config.Pipeline.ScoringConcurrency < 1 {
		return fmt.Errorf("scoring concurrency must be at least 1, got: %d", config.Pipeline.ScoringConcurrency)
	}

	return nil
}
