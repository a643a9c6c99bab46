package config

import "testing"

func TestGetDefaults(t *testing.T) {
	cfg := GetDefaults()

	if cfg.Server.Port != 8787 {
		t.Errorf("Port = %d, want 8787", cfg.Server.Port)
	}
	if cfg.Pipeline.DefaultLanguage != "pl" {
		t.Errorf("DefaultLanguage = %q, want pl", cfg.Pipeline.DefaultLanguage)
	}
	if len(cfg.Pipeline.Languages) != 2 {
		t.Errorf("Languages = %v", cfg.Pipeline.Languages)
	}
	if !cfg.Pipeline.DetectLanguage {
		t.Error("DetectLanguage should default to true")
	}
	if cfg.Cache.Enabled || cfg.History.Enabled {
		t.Error("Cache and history should default to disabled")
	}
	if err := validateConfig(cfg); err != nil {
		t.Errorf("Defaults fail validation: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config { return GetDefaults() }

	t.Run("InvalidPort", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 0
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for port 0")
		}
	})

	t.Run("EmptyLanguages", func(t *testing.T) {
		cfg := valid()
		cfg.Pipeline.Languages = nil
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for empty language list")
		}
	})

	t.Run("DefaultLanguageNotListed", func(t *testing.T) {
		cfg := valid()
		cfg.Pipeline.DefaultLanguage = "de"
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for default language outside the list")
		}
	})

	t.Run("InvalidLogLevel", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Level = "verbose"
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for unknown log level")
		}
	})

	t.Run("InvalidLogFormat", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Format = "xml"
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for unknown log format")
		}
	})

	t.Run("RateLimitWithoutRate", func(t *testing.T) {
		cfg := valid()
		cfg.Server.RateLimit.Enabled = true
		cfg.Server.RateLimit.RequestsPerMin = 0
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for enabled rate limit without a rate")
		}
	})
}
