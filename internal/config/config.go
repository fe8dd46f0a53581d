// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, rate limiting, webhook ingestion, external integrations,
// the abandoned-cart sweep, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "sari")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects the storage engine.
type DBConfig struct {
	Driver string // sqlite|postgres|mysql
	Path   string // SQLite file path
	DSN    string // postgres/mysql DSN
}

// WebhookConfig controls inbound webhook ingestion.
type WebhookConfig struct {
	Token     string        // WEBHOOK_TOKEN; empty disables the bearer check
	DedupeTTL time.Duration // how long a delivered message id is remembered
}

// RedisConfig enables the Redis delivery guard when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig enables the Kafka event publisher when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// IntegrationsConfig holds endpoints and shared keys of external services.
// Merchant-scoped credentials (WhatsApp instance token, commerce token,
// payment secret) live in the database, not here.
type IntegrationsConfig struct {
	GreenAPIBaseURL string  // fallback when a connection has no API URL
	GreenAPISendRPS float64 // outbound pacing per instance

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	SallaAPIBase string
	TapAPIBase   string
	AppURL       string // public URL used for payment redirects

	ExternalTimeout   time.Duration
	TranscribeTimeout time.Duration
	ExtractTimeout    time.Duration
}

// CartConfig tunes the abandoned-cart sweep.
type CartConfig struct {
	AbandonAfter time.Duration
	SweepDelay   time.Duration
	SweepJitter  time.Duration
	SweepLimit   int
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DB DBConfig

	// Pipeline
	ClassifierKeywordsFile string  // optional YAML with extra keyword tables
	ProductMatcher         string  // substring|token
	Threshold              float64 // token matcher / responder confidence [0,1]

	// Rate limiting (operator API)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	Webhook      WebhookConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Integrations IntegrationsConfig
	Cart         CartConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "sari.db"),
			DSN:    getenv("DB_DSN", ""),
		},

		ClassifierKeywordsFile: getenv("CLASSIFIER_KEYWORDS_FILE", ""),
		ProductMatcher:         strings.ToLower(getenv("PRODUCT_MATCHER", "substring")),
		Threshold:              getfloat("THRESHOLD", 0.32),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		Webhook: WebhookConfig{
			Token:     getenv("WEBHOOK_TOKEN", ""),
			DedupeTTL: getdur("WEBHOOK_DEDUPE_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(getenv("KAFKA_BROKERS", "")),
			Topic:   getenv("KAFKA_TOPIC", "sari.orders"),
		},
		Integrations: IntegrationsConfig{
			GreenAPIBaseURL:   getenv("GREENAPI_BASE_URL", "https://api.green-api.com"),
			GreenAPISendRPS:   getfloat("GREENAPI_SEND_RPS", 1.0),
			OpenAIAPIKey:      getenv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIModel:       getenv("OPENAI_MODEL", "gpt-4o-mini"),
			SallaAPIBase:      getenv("SALLA_API_BASE", "https://api.salla.dev/admin/v2"),
			TapAPIBase:        getenv("TAP_API_BASE", "https://api.tap.company/v2"),
			AppURL:            strings.TrimRight(getenv("APP_URL", "http://localhost:8080"), "/"),
			ExternalTimeout:   getdur("EXTERNAL_TIMEOUT", 30*time.Second),
			TranscribeTimeout: getdur("TRANSCRIBE_TIMEOUT", 60*time.Second),
			ExtractTimeout:    getdur("EXTRACT_TIMEOUT", 30*time.Second),
		},
		Cart: CartConfig{
			AbandonAfter: getdur("CART_ABANDON_AFTER", 24*time.Hour),
			SweepDelay:   getdur("CART_SWEEP_DELAY", 2*time.Second),
			SweepJitter:  getdur("CART_SWEEP_JITTER", time.Second),
			SweepLimit:   getint("CART_SWEEP_LIMIT", 50),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "sari"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" {
		cfg.DB.Driver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres", "mysql":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DB_DSN must be set for postgres and mysql")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres, mysql")
	}
	switch cfg.ProductMatcher {
	case "substring", "token":
	default:
		return cfg, errors.New("PRODUCT_MATCHER must be one of: substring, token")
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return cfg, errors.New("THRESHOLD must be between 0 and 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.Webhook.DedupeTTL <= 0 {
		return cfg, errors.New("WEBHOOK_DEDUPE_TTL must be > 0")
	}
	if len(cfg.Kafka.Brokers) > 0 && strings.TrimSpace(cfg.Kafka.Topic) == "" {
		return cfg, errors.New("KAFKA_TOPIC must be set when KAFKA_BROKERS is")
	}
	if cfg.Integrations.GreenAPISendRPS <= 0 {
		return cfg, errors.New("GREENAPI_SEND_RPS must be > 0")
	}
	in := cfg.Integrations
	if in.ExternalTimeout <= 0 || in.TranscribeTimeout <= 0 || in.ExtractTimeout <= 0 {
		return cfg, errors.New("external call timeouts must be positive durations")
	}
	if cfg.Cart.AbandonAfter <= 0 {
		return cfg, errors.New("CART_ABANDON_AFTER must be > 0")
	}
	if cfg.Cart.SweepDelay < 0 || cfg.Cart.SweepJitter < 0 {
		return cfg, errors.New("CART_SWEEP_DELAY and CART_SWEEP_JITTER must be >= 0")
	}
	if cfg.Cart.SweepLimit < 1 {
		return cfg, errors.New("CART_SWEEP_LIMIT must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
