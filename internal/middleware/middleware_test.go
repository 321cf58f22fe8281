package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/haeminmoon/grvtgate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	w := serve(r, http.MethodGet, "/x", nil)
	_, err := uuid.Parse(w.Body.String())
	require.NoError(t, err)
	assert.Equal(t, w.Body.String(), w.Header().Get(HeaderRequestID))

	given := uuid.NewString()
	w = serve(r, http.MethodGet, "/x", map[string]string{HeaderRequestID: given})
	assert.Equal(t, given, w.Body.String())

	w = serve(r, http.MethodGet, "/x", map[string]string{HeaderRequestID: "not-a-uuid"})
	assert.NotEqual(t, "not-a-uuid", w.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(AuthMiddleware("secret"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/x", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/x", map[string]string{HeaderGatewayKey: "nope"}).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/x", map[string]string{HeaderGatewayKey: "secret"}).Code)

	open := gin.New()
	open.Use(AuthMiddleware(""))
	open.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, serve(open, http.MethodGet, "/x", nil).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(rate.NewLimiter(rate.Limit(0.001), 1)))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/x", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/x", nil).Code)
}

func TestReadOnlyMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), ReadOnlyMiddleware(true))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/x", nil).Code)
	w := serve(r, http.MethodPost, "/x", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), string(apperrors.ErrReadOnly))
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/validation", func(c *gin.Context) { _ = c.Error(apperrors.NewValidation("bad size %s", "x")) })
	r.GET("/exchange", func(c *gin.Context) {
		_ = c.Error(&apperrors.ExchangeError{Code: 2001, Message: "invalid price", Status: 400})
	})
	r.GET("/generic", func(c *gin.Context) { _ = c.Error(apperrors.InternalServerError()) })
	r.GET("/plain", func(c *gin.Context) { _ = c.Error(errors.New("boom")) })

	w := serve(r, http.MethodGet, "/validation", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(apperrors.ErrValidation))

	w = serve(r, http.MethodGet, "/exchange", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code":2001,"message":"invalid price","status":400}`, w.Body.String())

	w = serve(r, http.MethodGet, "/generic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = serve(r, http.MethodGet, "/plain", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), string(apperrors.ErrInternal))
}

func TestErrorHandler_HidesUntypedCause(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(errors.New("reserve nonce: dial tcp 10.0.0.5:6379: connection refused"))
	})

	w := serve(r, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":"INTERNAL_ERROR","message":"internal error"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "6379")
}

func TestIdempotencyMiddleware_ReplaysResponse(t *testing.T) {
	var calls atomic.Int32
	r := gin.New()
	r.Use(IdempotencyMiddleware(NewInMemIdempotencyStore(0)))
	r.POST("/v1/orders", func(c *gin.Context) {
		n := calls.Add(1)
		c.JSON(http.StatusOK, gin.H{"call": n})
	})

	h := map[string]string{HeaderIdempotencyKey: "abc"}
	first := serve(r, http.MethodPost, "/v1/orders", h)
	second := serve(r, http.MethodPost, "/v1/orders", h)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first.Body.String(), second.Body.String())

	serve(r, http.MethodPost, "/v1/orders", map[string]string{HeaderIdempotencyKey: "def"})
	serve(r, http.MethodPost, "/v1/orders", nil)
	assert.Equal(t, int32(3), calls.Load())
}

func TestIdempotencyMiddleware_ServerErrorsAreNotStored(t *testing.T) {
	var calls atomic.Int32
	r := gin.New()
	r.Use(IdempotencyMiddleware(NewInMemIdempotencyStore(0)))
	r.POST("/v1/orders", func(c *gin.Context) {
		calls.Add(1)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream"})
	})

	h := map[string]string{HeaderIdempotencyKey: "abc"}
	serve(r, http.MethodPost, "/v1/orders", h)
	serve(r, http.MethodPost, "/v1/orders", h)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInMemIdempotencyStore_InProgress(t *testing.T) {
	s := NewInMemIdempotencyStore(0)
	rec, hit := s.GetOrLock("k")
	assert.Nil(t, rec)
	assert.False(t, hit)

	rec, hit = s.GetOrLock("k")
	require.True(t, hit)
	assert.True(t, rec.Processing)

	s.Unlock("k")
	_, hit = s.GetOrLock("k")
	assert.False(t, hit)
}
