package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate clears the variables a developer shell commonly exports so the
// defaults under test are the built-in ones.
func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "DB_DRIVER", "DB_PATH", "DB_DSN", "REDIS_ADDR",
		"KAFKA_BROKERS", "OPENAI_API_KEY", "WEBHOOK_TOKEN", "OTEL_ENABLED",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_PipelineDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", cfg.APIBasePath)
	assert.Equal(t, DBConfig{Driver: "sqlite", Path: "sari.db"}, cfg.DB)
	assert.Equal(t, "substring", cfg.ProductMatcher)
	assert.InDelta(t, 0.32, cfg.Threshold, 1e-9)

	assert.Empty(t, cfg.Webhook.Token, "no token means the bearer check is off")
	assert.Equal(t, 24*time.Hour, cfg.Webhook.DedupeTTL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "sari.orders", cfg.Kafka.Topic)

	assert.Equal(t, CartConfig{
		AbandonAfter: 24 * time.Hour,
		SweepDelay:   2 * time.Second,
		SweepJitter:  time.Second,
		SweepLimit:   50,
	}, cfg.Cart)

	in := cfg.Integrations
	assert.Equal(t, "https://api.green-api.com", in.GreenAPIBaseURL)
	assert.Equal(t, "https://api.salla.dev/admin/v2", in.SallaAPIBase)
	assert.Equal(t, "https://api.tap.company/v2", in.TapAPIBase)
	assert.Equal(t, 60*time.Second, in.TranscribeTimeout)
	assert.False(t, cfg.OTEL.Enabled)
	assert.Equal(t, "sari", cfg.OTEL.ServiceName)
}

func TestLoad_OverridesAndNormalization(t *testing.T) {
	isolate(t)
	env := map[string]string{
		"PORT":                        "8088",
		"READ_HEADER_TIMEOUT":         "1s",
		"GIN_MODE":                    "weird",
		"LOG_LEVEL":                   "warning",
		"LOG_PRETTY":                  "yes",
		"API_BASE_PATH":               "hooks/",
		"DB_DRIVER":                   "PostgreSQL",
		"DB_DSN":                      "postgres://u:p@db/sari",
		"PRODUCT_MATCHER":             "TOKEN",
		"THRESHOLD":                   "0.5",
		"RATE_RPS":                    "x",
		"RATE_BURST":                  "nope",
		"CORS_ALLOWED_ORIGINS":        " https://a.com , , http://b ",
		"ENABLE_HSTS":                 "on",
		"HSTS_MAX_AGE":                "24h",
		"WEBHOOK_TOKEN":               "s3cret",
		"WEBHOOK_DEDUPE_TTL":          "48h",
		"REDIS_ADDR":                  "redis:6379",
		"REDIS_DB":                    "2",
		"KAFKA_BROKERS":               "k1:9092, k2:9092",
		"GREENAPI_SEND_RPS":           "2.5",
		"APP_URL":                     "https://sari.example/",
		"CART_ABANDON_AFTER":          "6h",
		"CART_SWEEP_LIMIT":            "20",
		"OTEL_ENABLED":                "1",
		"OTEL_EXPORTER_OTLP_INSECURE": "0",
		"OTEL_TRACES_SAMPLER_ARG":     "0.75",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8088", cfg.Port)
	assert.Equal(t, time.Second, cfg.ReadHeaderTimeout)
	assert.Equal(t, "release", cfg.GinMode, "unknown gin mode falls back to release")
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, "/hooks", cfg.APIBasePath)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "token", cfg.ProductMatcher)
	assert.InDelta(t, 0.5, cfg.Threshold, 1e-9)
	assert.Equal(t, 5.0, cfg.RateRPS, "unparsable values keep the default")
	assert.Equal(t, 10, cfg.RateBurst)
	assert.Equal(t, []string{"https://a.com", "http://b"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, SecurityConfig{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour}, cfg.Security)
	assert.Equal(t, WebhookConfig{Token: "s3cret", DedupeTTL: 48 * time.Hour}, cfg.Webhook)
	assert.Equal(t, RedisConfig{Addr: "redis:6379", DB: 2}, cfg.Redis)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2.5, cfg.Integrations.GreenAPISendRPS)
	assert.Equal(t, "https://sari.example", cfg.Integrations.AppURL)
	assert.Equal(t, 6*time.Hour, cfg.Cart.AbandonAfter)
	assert.Equal(t, 20, cfg.Cart.SweepLimit)
	assert.True(t, cfg.OTEL.Enabled)
	assert.False(t, cfg.OTEL.Insecure)
	assert.Equal(t, 0.75, cfg.OTEL.SampleRatio)
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"blank port", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"server timeout", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"header bytes", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"blank sqlite path", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}, "DB_DRIVER"},
		{"mysql without dsn", map[string]string{"DB_DRIVER": "mysql"}, "DB_DSN"},
		{"matcher", map[string]string{"PRODUCT_MATCHER": "embedding"}, "PRODUCT_MATCHER"},
		{"threshold", map[string]string{"THRESHOLD": "1.5"}, "THRESHOLD"},
		{"rate rps", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"dedupe ttl", map[string]string{"WEBHOOK_DEDUPE_TTL": "0s"}, "WEBHOOK_DEDUPE_TTL"},
		{"kafka topic", map[string]string{"KAFKA_BROKERS": "k1:9092", "KAFKA_TOPIC": " "}, "KAFKA_TOPIC"},
		{"send rps", map[string]string{"GREENAPI_SEND_RPS": "0"}, "GREENAPI_SEND_RPS"},
		{"transcribe timeout", map[string]string{"TRANSCRIBE_TIMEOUT": "0s"}, "external call timeouts"},
		{"abandon after", map[string]string{"CART_ABANDON_AFTER": "0s"}, "CART_ABANDON_AFTER"},
		{"sweep jitter", map[string]string{"CART_SWEEP_JITTER": "-1s"}, "CART_SWEEP_JITTER"},
		{"sweep limit", map[string]string{"CART_SWEEP_LIMIT": "0"}, "CART_SWEEP_LIMIT"},
		{"sample ratio", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestMustLoad(t *testing.T) {
	isolate(t)
	assert.NotPanics(t, func() { _ = MustLoad() })

	t.Setenv("LOG_LEVEL", "verbose")
	assert.Panics(t, func() { _ = MustLoad() })
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	t.Setenv("X_NUM", "42")
	t.Setenv("X_FLOAT", "3.14")
	t.Setenv("X_DUR", "150ms")
	t.Setenv("X_BAD", "zzz")

	assert.Equal(t, "d", getenv("X_EMPTY", "d"))
	assert.Equal(t, "42", getenv("X_NUM", "d"))
	assert.Equal(t, 42, getint("X_NUM", 0))
	assert.Equal(t, 7, getint("X_BAD", 7))
	assert.Equal(t, 3.14, getfloat("X_FLOAT", 0))
	assert.Equal(t, 1.5, getfloat("X_BAD", 1.5))
	assert.Equal(t, 150*time.Millisecond, getdur("X_DUR", time.Second))
	assert.Equal(t, 2*time.Second, getdur("X_BAD", 2*time.Second))
}

func TestGetbool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on"} {
		t.Setenv("X_BOOL", v)
		assert.True(t, getbool("X_BOOL", false), v)
	}
	for _, v := range []string{"0", "false", " no ", "N", "off"} {
		t.Setenv("X_BOOL", v)
		assert.False(t, getbool("X_BOOL", true), v)
	}
	t.Setenv("X_BOOL", "maybe")
	assert.True(t, getbool("X_BOOL", true))
}

func TestSplitCSVAndBasePath(t *testing.T) {
	assert.Nil(t, splitCSV(""))
	assert.Equal(t, []string{"a", "b", "c"}, splitCSV(" a, ,b ,  c  ,"))

	for in, want := range map[string]string{"": "/", " / ": "/", "v1": "/v1", "/v1/": "/v1"} {
		assert.Equal(t, want, normalizeBasePath(in), in)
	}
}
