package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// WebhookToken rejects requests whose Authorization header does not carry
// "Bearer <token>". Green API sends the instance's webhookUrlToken this way.
// An empty token disables the check.
func WebhookToken(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			LoggerFrom(c).Warn().Str("remote_ip", c.ClientIP()).Msg("webhook token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "invalid webhook token",
			})
			return
		}
		c.Next()
	}
}
