package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"phone=966501234567":                      "phone=[REDACTED:phone]",
		"chat=966501234567@c.us":                  "chat=[REDACTED:phone]",
		"p=+966 50 123 4567":                      "p=[REDACTED:phone]",
		"mail=a.b@example.com":                    "mail=[REDACTED:email]",
		"id=123e4567-e89b-12d3-a456-426614174000": "id=[REDACTED:id]",
		"page=2&limit=20":                         "page=2&limit=20",
		"since=2025-06-01":                        "since=2025-06-01",
	}
	for in, want := range cases {
		assert.Equal(t, want, redact(in), in)
	}
}

func TestRedactingLogger_ScrubsAndAttachesContextLogger(t *testing.T) {
	buf := captureLogger(t)
	r := newEngine(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/orders/:id", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("from service")
		c.Status(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders/1?phone=966501234567", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-Api-Key", "k")
	req.Header.Set(requestIDHeader, "rid-7")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"message":"from service"`)
	assert.Contains(t, out, `"request_id":"rid-7"`)
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"path":"/orders/:id"`)
	assert.Contains(t, out, "[REDACTED:phone]")
	assert.NotContains(t, out, "966501234567")
	assert.NotContains(t, out, "secret")
	assert.NotContains(t, out, `"X-Api-Key":"k"`)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 0))
	assert.Equal(t, "ab…", truncate("abc", 2))
}
