package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level
	RedisURL    string

	// Empty means the embedded court catalog.
	CatalogPath string

	MaxTurns              int
	StartingPopularity    int
	DeathProbability      float64
	UnrestProbability     float64
	DiscontentProbability float64

	// Empty key runs the court on static content only.
	GeminiAPIKey      string
	GeminiModel       string
	GenerationTimeout time.Duration

	SessionTTL time.Duration
}

// Load reads the configuration from the environment, after loading a .env
// file if one exists. Invalid values keep their defaults and are reported
// together in the returned error; the Config is always usable.
func Load() (*Config, error) {
	_ = godotenv.Load()

	p := &parser{}
	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		Environment:           getEnv("ENVIRONMENT", "development"),
		LogLevel:              parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:              getEnv("REDIS_URL", "localhost:6379"),
		CatalogPath:           getEnv("CATALOG_PATH", ""),
		MaxTurns:              p.intVar("MAX_TURNS", 15, 1, 1000),
		StartingPopularity:    p.intVar("STARTING_POPULARITY", 50, 1, 100),
		DeathProbability:      p.probability("DEATH_PROBABILITY", 0.3),
		UnrestProbability:     p.probability("UNREST_PROBABILITY", 0.3),
		DiscontentProbability: p.probability("DISCONTENT_PROBABILITY", 0.25),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GenerationTimeout:     p.duration("GENERATION_TIMEOUT", 30*time.Second),
		SessionTTL:            p.duration("SESSION_TTL", 24*time.Hour),
	}
	return cfg, errors.Join(p.errs...)
}

type parser struct {
	errs []error
}

func (p *parser) intVar(key string, def, lo, hi int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < lo || v > hi {
		p.errs = append(p.errs, fmt.Errorf("invalid %s %q: want an integer in [%d, %d]", key, raw, lo, hi))
		return def
	}
	return v
}

func (p *parser) probability(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 || v > 1 {
		p.errs = append(p.errs, fmt.Errorf("invalid %s %q: want a probability in [0, 1]", key, raw))
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		p.errs = append(p.errs, fmt.Errorf("invalid %s %q: want a positive duration", key, raw))
		return def
	}
	return v
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
