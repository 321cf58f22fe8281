package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/haeminmoon/grvtgate/internal/pkg/apperrors"
)

// ReadOnlyMiddleware rejects every state-changing request while enabled.
func ReadOnlyMiddleware(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			_ = c.Error(apperrors.New(apperrors.ErrReadOnly, "read-only mode enabled", nil))
			c.Abort()
		}
	}
}
