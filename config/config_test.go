package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Clean up environment before tests
	cleanupEnv := func() {
		os.Unsetenv("VINTDEX_SERVER_PORT")
		os.Unsetenv("VINTDEX_SERVER_ENVIRONMENT")
		os.Unsetenv("VINTDEX_EBAY_BASE_URL")
		os.Unsetenv("VINTDEX_EXTRACTOR_BASE_URL")
		os.Unsetenv("VINTDEX_EXTRACTOR_DIMENSIONS")
		os.Unsetenv("VINTDEX_PIPELINE_ACCEPTANCE_THRESHOLD")
		os.Unsetenv("VINTDEX_CACHE_TYPE")
		os.Unsetenv("VINTDEX_CACHE_REDIS_URL")
		os.Unsetenv("VINTDEX_CACHE_TTL")
		os.Unsetenv("VINTDEX_STORAGE_POSTGRES_DSN")
		os.Unsetenv("VINTDEX_LOG_LEVEL")
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		// Check defaults
		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		// The search client appends query params directly, so the
		// default must already point at the completed-sales search
		// page, not the marketplace root.
		if cfg.Ebay.BaseURL != "https://www.ebay.com/sch/i.html" {
			t.Errorf("Ebay.BaseURL = %s, want https://www.ebay.com/sch/i.html", cfg.Ebay.BaseURL)
		}
		if cfg.Extractor.Dimensions != 512 {
			t.Errorf("Extractor.Dimensions = %d, want 512", cfg.Extractor.Dimensions)
		}
		if cfg.Pipeline.AcceptanceThreshold != 0.7 {
			t.Errorf("Pipeline.AcceptanceThreshold = %g, want 0.7", cfg.Pipeline.AcceptanceThreshold)
		}
		if cfg.Pipeline.ResultCount != 60 {
			t.Errorf("Pipeline.ResultCount = %d, want 60", cfg.Pipeline.ResultCount)
		}
		if cfg.Pipeline.Timeout != 2*time.Minute {
			t.Errorf("Pipeline.Timeout = %v, want 2m", cfg.Pipeline.Timeout)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.Cache.TTL != time.Hour {
			t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
		}
		if cfg.Storage.PostgresDSN != "" {
			t.Errorf("Storage.PostgresDSN = %s, want empty", cfg.Storage.PostgresDSN)
		}
		if cfg.Log.Level != "info" {
			t.Errorf("Log.Level = %s, want info", cfg.Log.Level)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("VINTDEX_SERVER_PORT", "9000")
		os.Setenv("VINTDEX_CACHE_TYPE", "redis")
		os.Setenv("VINTDEX_CACHE_REDIS_URL", "redis://localhost:6379/0")
		os.Setenv("VINTDEX_LOG_LEVEL", "debug")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9000" {
			t.Errorf("Server.Port = %s, want 9000", cfg.Server.Port)
		}
		if cfg.Cache.Type != "redis" {
			t.Errorf("Cache.Type = %s, want redis", cfg.Cache.Type)
		}
		if cfg.Cache.RedisURL != "redis://localhost:6379/0" {
			t.Errorf("Cache.RedisURL = %s, want redis://localhost:6379/0", cfg.Cache.RedisURL)
		}
		if cfg.Log.Level != "debug" {
			t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
		}
	})

	t.Run("rejects redis cache without URL", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("VINTDEX_CACHE_TYPE", "redis")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want redis URL validation error")
		}
	})

	t.Run("rejects unknown cache type", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("VINTDEX_CACHE_TYPE", "memcached")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want cache type validation error")
		}
	})

	t.Run("rejects out-of-range acceptance threshold", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("VINTDEX_PIPELINE_ACCEPTANCE_THRESHOLD", "1.5")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want threshold validation error")
		}
	})
}

func TestValidateConfidenceBuckets(t *testing.T) {
	cfg := &Config{}
	cfg.Cache.Type = "memory"
	cfg.Extractor.Dimensions = 512
	cfg.Pipeline.AcceptanceThreshold = 0.7
	cfg.Pipeline.ScoringConcurrency = 4
	cfg.Pipeline.ConfidenceHigh = 0.85
	cfg.Pipeline.ConfidenceMid = 0.75
	cfg.Pipeline.ConfidenceLow = 0.65

	if err := validate(cfg); err != nil {
		t.Fatalf("validate() error = %v, want nil", err)
	}

	cfg.Pipeline.ConfidenceMid = 0.9 // above high
	if err := validate(cfg); err == nil {
		t.Error("validate() error = nil, want bucket ordering error")
	}
}
