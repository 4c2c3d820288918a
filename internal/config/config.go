package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Cart snapshot backends.
const (
	CartStoreFile     = "file"
	CartStoreRedis    = "redis"
	CartStorePostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string
	Port   string

	BackendURL         string
	BackendAPIKey      string
	BackendTimeout     time.Duration
	BackendMaxAttempts int
	StoreID            string
	MenuFile           string
	MenuCacheTTL       time.Duration
	CurrencyCode       string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTRole     string

	RedisURL    string
	DatabaseURL string

	CartStore          string
	CartStoreDir       string
	CartStorageKey     string
	CartRedisTTL       time.Duration
	CartMaxSessions    int
	CheckoutLockTTL    time.Duration
	IdempotencyTTL     time.Duration
	CheckoutRate       string
	APIRate            string
	BodyLimitBytes     int64
	CORSAllowedOrigins []string

	Obs ObsConfig
}

// ObsConfig controls logging, metrics and tracing.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsEnabled   bool
	MetricsBucketsMS string
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	TracingSampling  float64
	PprofEnabled     bool
	PprofUser        string
	PprofPass        string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		BackendURL:         strings.TrimRight(strings.TrimSpace(k.String("BACKEND_URL")), "/"),
		BackendAPIKey:      strings.TrimSpace(k.String("BACKEND_API_KEY")),
		BackendTimeout:     parseDuration(k.String("BACKEND_TIMEOUT"), "10s"),
		BackendMaxAttempts: parseInt(k.String("BACKEND_MAX_ATTEMPTS"), 1),
		StoreID:            strings.TrimSpace(k.String("STORE_ID")),
		MenuFile:           strings.TrimSpace(k.String("MENU_FILE")),
		MenuCacheTTL:       parseDuration(k.String("MENU_CACHE_TTL"), "5m"),
		CurrencyCode:       valueOrDefault(k.String("CURRENCY_CODE"), "MAD"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          strings.TrimSpace(k.String("JWT_ISSUER")),
		JWTAudience:        valueOrDefault(k.String("JWT_AUDIENCE"), "authenticated"),
		JWTRole:            valueOrDefault(k.String("JWT_ROLE"), "authenticated"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		CartStore:          strings.ToLower(valueOrDefault(k.String("CART_STORE"), CartStoreFile)),
		CartStoreDir:       valueOrDefault(k.String("CART_STORE_DIR"), "./data/carts"),
		CartStorageKey:     valueOrDefault(k.String("CART_STORAGE_KEY"), "storefront.cart"),
		CartRedisTTL:       parseDuration(k.String("CART_REDIS_TTL"), "720h"),
		CartMaxSessions:    parseInt(k.String("CART_MAX_SESSIONS"), 10000),
		CheckoutLockTTL:    parseDuration(k.String("CHECKOUT_LOCK_TTL"), "30s"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CheckoutRate:       valueOrDefault(k.String("CHECKOUT_RATE_LIMIT"), "10-M"),
		APIRate:            valueOrDefault(k.String("API_RATE_LIMIT"), "300-M"),
		BodyLimitBytes:     int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "storefront"),
			MetricsEnabled:   parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsBucketsMS: k.String("OBS_METRICS_BUCKETS_MS"),
			TracingEnabled:   parseBool(k.String("OBS_ENABLE_TRACING"), false),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			TracingSampling:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
			PprofEnabled:     parseBool(k.String("OBS_ENABLE_PPROF"), false),
			PprofUser:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
			PprofPass:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
		},
	}

	if cfg.BackendMaxAttempts < 1 {
		cfg.BackendMaxAttempts = 1
	}
	if cfg.BackendURL == "" {
		return nil, errors.New("BACKEND_URL is required")
	}
	if cfg.BackendAPIKey == "" {
		return nil, errors.New("BACKEND_API_KEY is required")
	}
	switch cfg.CartStore {
	case CartStoreFile:
	case CartStoreRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required when CART_STORE=redis")
		}
	case CartStorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when CART_STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("CART_STORE must be one of file, redis, postgres (got %q)", cfg.CartStore)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// AuthEnabled reports whether bearer tokens can be verified.
func (c *Config) AuthEnabled() bool {
	return strings.TrimSpace(c.JWTSecret) != ""
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
