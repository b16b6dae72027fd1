package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
	StoreMemory   = "memory"
)

// Extraction providers.
const (
	ProviderGemini = "gemini"
	ProviderStatic = "static"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	StoreBackend       string        `mapstructure:"STORE_BACKEND"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	BoltPath           string        `mapstructure:"BOLT_PATH"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	CacheTTL           time.Duration `mapstructure:"CACHE_TTL"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit          string        `mapstructure:"BODY_LIMIT"`
	ExtractionProvider string        `mapstructure:"EXTRACTION_PROVIDER"`
	ExtractionTimeout  time.Duration `mapstructure:"EXTRACTION_TIMEOUT"`
	GeminiAPIKey       string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel        string        `mapstructure:"GEMINI_MODEL"`
	GeminiBaseURL      string        `mapstructure:"GEMINI_BASE_URL"`
	DiagnosticsDir     string        `mapstructure:"DIAGNOSTICS_DIR"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "STORE_BACKEND", "DATABASE_URL", "DB_MAX_CONNS",
	"DB_MIN_CONNS", "BOLT_PATH", "REDIS_URL", "CACHE_TTL", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT",
	"EXTRACTION_PROVIDER", "EXTRACTION_TIMEOUT", "GEMINI_API_KEY", "GEMINI_MODEL",
	"GEMINI_BASE_URL", "DIAGNOSTICS_DIR",
}

// Load reads the environment and an optional .env file. It does not validate;
// call Validate before using the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_BACKEND", StoreBolt)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("BOLT_PATH", "./data/hce.db")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "120s")
	v.SetDefault("BODY_LIMIT", "25M")
	v.SetDefault("EXTRACTION_PROVIDER", ProviderGemini)
	v.SetDefault("EXTRACTION_TIMEOUT", "60s")
	v.SetDefault("GEMINI_MODEL", "gemini-flash-latest")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("DIAGNOSTICS_DIR", "./diagnostics")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.ExtractionProvider = strings.ToLower(strings.TrimSpace(cfg.ExtractionProvider))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is usable before anything is
// opened.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is %q", StorePostgres)
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	case StoreBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("BOLT_PATH is required when STORE_BACKEND is %q", StoreBolt)
		}
	case StoreMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE_BACKEND %q loses every record on restart and is not allowed in production", StoreMemory)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q, %q or %q, got %q", StorePostgres, StoreBolt, StoreMemory, c.StoreBackend)
	}

	switch c.ExtractionProvider {
	case ProviderGemini, ProviderStatic:
	default:
		return fmt.Errorf("EXTRACTION_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderStatic, c.ExtractionProvider)
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.RequestTimeout <= 0 || c.ExtractionTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT and EXTRACTION_TIMEOUT must be positive")
	}
	if c.ExtractionTimeout >= c.RequestTimeout {
		return fmt.Errorf("EXTRACTION_TIMEOUT (%s) must be shorter than REQUEST_TIMEOUT (%s)", c.ExtractionTimeout, c.RequestTimeout)
	}
	return nil
}
