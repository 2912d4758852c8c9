package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/radiusdt/mediaplan/internal/currency"
	"github.com/radiusdt/mediaplan/internal/models"
)

// Config holds all configuration for the mediaplan service.
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Plan      PlanConfig
	AppMeta   AppMetaConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
	// MaxBodyBytes caps plan documents posted to the API.
	MaxBodyBytes int64
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	Enabled   bool
	APIKey    string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
	// LookupRPS and LookupBurst limit vertical detection, which calls app stores.
	LookupRPS   float64
	LookupBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// PlanConfig holds calculation defaults.
type PlanConfig struct {
	DefaultCurrency string
	DefaultVertical models.Vertical
	VATCountry      string
	VATRate         float64
	// BenchmarkFile, when set, is a YAML benchmark set replacing the built-in tables.
	BenchmarkFile string
}

// AppMetaConfig configures app store lookups used to guess a vertical.
type AppMetaConfig struct {
	Enabled           bool
	Timeout           time.Duration
	CacheTTL          time.Duration
	ITunesBaseURL     string
	PlayBaseURL       string
	ProxyURL          string
	FallbackCountries []string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("MEDIAPLAN_HTTP_ADDR", ":8080"),
			Env:             getEnv("MEDIAPLAN_ENV", "development"),
			ShutdownTimeout: getDurationEnv("MEDIAPLAN_SHUTDOWN_TIMEOUT", 15*time.Second),
			MaxBodyBytes:    int64(getIntEnv("MEDIAPLAN_MAX_BODY_BYTES", 1<<20)),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("MEDIAPLAN_REDIS_ENABLED", false),
			Addr:     getEnv("MEDIAPLAN_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("MEDIAPLAN_REDIS_PASSWORD", ""),
			DB:       getIntEnv("MEDIAPLAN_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("MEDIAPLAN_AUTH_ENABLED", false),
			APIKey:    getEnv("MEDIAPLAN_API_KEY", ""),
			SkipPaths: getSliceEnv("MEDIAPLAN_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getBoolEnv("MEDIAPLAN_RATE_LIMIT_ENABLED", true),
			RPS:         getFloatEnv("MEDIAPLAN_RATE_LIMIT_RPS", 200),
			Burst:       getIntEnv("MEDIAPLAN_RATE_LIMIT_BURST", 50),
			LookupRPS:   getFloatEnv("MEDIAPLAN_RATE_LIMIT_LOOKUP_RPS", 5),
			LookupBurst: getIntEnv("MEDIAPLAN_RATE_LIMIT_LOOKUP_BURST", 10),
		},
		Log: LogConfig{
			Level:  getEnv("MEDIAPLAN_LOG_LEVEL", "info"),
			Format: getEnv("MEDIAPLAN_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("MEDIAPLAN_METRICS_ENABLED", true),
			Path:    getEnv("MEDIAPLAN_METRICS_PATH", "/metrics"),
		},
		Plan: PlanConfig{
			DefaultCurrency: strings.ToUpper(getEnv("MEDIAPLAN_DEFAULT_CURRENCY", currency.USD)),
			DefaultVertical: models.Vertical(getEnv("MEDIAPLAN_DEFAULT_VERTICAL", string(models.VerticalOther))),
			VATCountry:      strings.ToUpper(getEnv("MEDIAPLAN_VAT_COUNTRY", "RU")),
			VATRate:         getFloatEnv("MEDIAPLAN_VAT_RATE", 0.20),
			BenchmarkFile:   getEnv("MEDIAPLAN_BENCHMARK_FILE", ""),
		},
		AppMeta: AppMetaConfig{
			Enabled:       getBoolEnv("MEDIAPLAN_APPMETA_ENABLED", true),
			Timeout:       getDurationEnv("MEDIAPLAN_APPMETA_TIMEOUT", 8*time.Second),
			CacheTTL:      getDurationEnv("MEDIAPLAN_APPMETA_CACHE_TTL", 24*time.Hour),
			ITunesBaseURL: getEnv("MEDIAPLAN_APPMETA_ITUNES_URL", "https://itunes.apple.com"),
			PlayBaseURL:   getEnv("MEDIAPLAN_APPMETA_PLAY_URL", "https://play.google.com"),
			ProxyURL:      getEnv("MEDIAPLAN_APPMETA_PROXY_URL", "https://api.codetabs.com/v1/proxy/?quest="),
			FallbackCountries: getSliceEnv("MEDIAPLAN_APPMETA_FALLBACK_COUNTRIES",
				[]string{"mx", "br", "gb", "de", "ru", "in", "id", "tr", "sa", "ng"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("MEDIAPLAN_API_KEY is required when auth is enabled")
	}
	if !currency.DefaultTable().Supported(c.Plan.DefaultCurrency) {
		return fmt.Errorf("unsupported default currency %q", c.Plan.DefaultCurrency)
	}
	if !c.Plan.DefaultVertical.Known() {
		return fmt.Errorf("unknown default vertical %q", c.Plan.DefaultVertical)
	}
	if c.Plan.VATRate < 0 || c.Plan.VATRate >= 1 {
		return fmt.Errorf("VAT rate must be in [0,1), got %v", c.Plan.VATRate)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.LookupRPS <= 0) {
		return fmt.Errorf("rate limits must be > 0 when rate limiting is enabled")
	}
	if c.AppMeta.Enabled && c.AppMeta.Timeout <= 0 {
		return fmt.Errorf("app metadata timeout must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
