package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "LOG_LEVEL", "REDIS_URL", "CATALOG_PATH", "MAX_TURNS",
		"STARTING_POPULARITY", "DEATH_PROBABILITY", "UNREST_PROBABILITY", "DISCONTENT_PROBABILITY",
		"GEMINI_API_KEY", "GEMINI_MODEL", "GENERATION_TIMEOUT", "SESSION_TTL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Port != "8080" || cfg.Environment != "development" || cfg.LogLevel != slog.LevelInfo {
		t.Errorf("unexpected server defaults: %+v", cfg)
	}
	if cfg.MaxTurns != 15 || cfg.StartingPopularity != 50 {
		t.Errorf("Expected 15 turns from 50 popularity, got %d from %d", cfg.MaxTurns, cfg.StartingPopularity)
	}
	if cfg.DeathProbability != 0.3 || cfg.UnrestProbability != 0.3 || cfg.DiscontentProbability != 0.25 {
		t.Errorf("unexpected probabilities: %v %v %v", cfg.DeathProbability, cfg.UnrestProbability, cfg.DiscontentProbability)
	}
	if cfg.GeminiAPIKey != "" || cfg.GeminiModel != "gemini-2.0-flash" {
		t.Errorf("unexpected generator defaults: %q %q", cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if cfg.GenerationTimeout != 30*time.Second || cfg.SessionTTL != 24*time.Hour {
		t.Errorf("unexpected durations: %v %v", cfg.GenerationTimeout, cfg.SessionTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("MAX_TURNS", "20")
	t.Setenv("DEATH_PROBABILITY", "0.5")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !cfg.IsProduction() || cfg.LogLevel != slog.LevelWarn {
		t.Errorf("Expected production at warn, got %s at %v", cfg.Environment, cfg.LogLevel)
	}
	if cfg.MaxTurns != 20 || cfg.DeathProbability != 0.5 || cfg.SessionTTL != 2*time.Hour {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(*Config) bool
	}{
		{"MAX_TURNS", "many", func(c *Config) bool { return c.MaxTurns == 15 }},
		{"MAX_TURNS", "0", func(c *Config) bool { return c.MaxTurns == 15 }},
		{"STARTING_POPULARITY", "150", func(c *Config) bool { return c.StartingPopularity == 50 }},
		{"DEATH_PROBABILITY", "1.5", func(c *Config) bool { return c.DeathProbability == 0.3 }},
		{"DISCONTENT_PROBABILITY", "x", func(c *Config) bool { return c.DiscontentProbability == 0.25 }},
		{"GENERATION_TIMEOUT", "soon", func(c *Config) bool { return c.GenerationTimeout == 30*time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg, err := Load()
			if err == nil {
				t.Error("Expected an error for invalid value")
			}
			if cfg == nil || !tt.check(cfg) {
				t.Errorf("Expected default to be kept, got %+v", cfg)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
