package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onboardhq/pulse-backend/internal/logger"
)

// TriggerMiddleware guards the internal monitoring trigger endpoints with a
// shared secret carried in X-Monitor-Token.
type TriggerMiddleware struct {
	log   *logger.Logger
	token string
}

func NewTriggerMiddleware(log *logger.Logger, token string) *TriggerMiddleware {
	return &TriggerMiddleware{log: log.With("Middleware", "TriggerMiddleware"), token: token}
}

func (tm *TriggerMiddleware) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tm.token == "" {
			tm.log.Error("Monitor trigger token is not configured, rejecting request")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		provided := c.GetHeader("X-Monitor-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(tm.token)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
