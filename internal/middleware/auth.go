package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const HeaderGatewayKey = "X-Gateway-Key"

// AuthMiddleware requires X-Gateway-Key to match key. An empty key leaves
// the gateway open, for loopback-only deployments.
func AuthMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(HeaderGatewayKey)
		if got == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing gateway key"})
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid gateway key"})
			c.Abort()
			return
		}
		c.Next()
	}
}
