package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/haeminmoon/grvtgate/internal/pkg/apperrors"
	"github.com/haeminmoon/grvtgate/internal/pkg/logger"
)

// ErrorHandler renders the last error attached to the context. Exchange
// errors are passed through with the exchange's status; everything else is
// rendered as an AppError.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		logFields := []any{
			"request_id", RequestIDFrom(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
		}

		var exErr *apperrors.ExchangeError
		if errors.As(err, &exErr) {
			status := exErr.Status
			if status < http.StatusBadRequest || status > 599 {
				status = http.StatusBadGateway
			}
			logger.Warn("exchange rejected request", append(logFields, "code", exErr.Code, "status", exErr.Status)...)
			c.JSON(status, exErr)
			return
		}

		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			// The cause goes to the log only.
			appErr = apperrors.New(apperrors.ErrInternal, "internal error", err)
		}
		logFields = append(logFields, "code", appErr.Type)

		if appErr.HTTPStatus >= 500 {
			logger.LogError(c.Request.Context(), appErr, "Internal Server Error", logFields...)
		} else {
			logger.Warn(appErr.Message, logFields...)
		}

		c.JSON(appErr.HTTPStatus, appErr)
	}
}
