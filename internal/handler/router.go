package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/haeminmoon/grvtgate/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type RouterOptions struct {
	Orders      OrderService
	Accounts    AccountService
	GatewayKey  string
	ReadOnly    bool
	Limiter     *rate.Limiter
	Idempotency middleware.IdempotencyStore
	MetricsPath string // empty disables the endpoint
}

func NewRouter(opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "grvtgate"})
	})
	if opts.MetricsPath != "" {
		r.GET(opts.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	orders := NewOrderHandler(opts.Orders)
	accounts := NewAccountHandler(opts.Accounts)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(opts.GatewayKey))
	v1.Use(middleware.ReadOnlyMiddleware(opts.ReadOnly))
	v1.Use(middleware.RateLimitMiddleware(opts.Limiter))
	v1.Use(middleware.IdempotencyMiddleware(opts.Idempotency))
	{
		v1.POST("/orders", orders.PlaceOrder)
		v1.POST("/orders/typed-data", orders.BuildTypedOrder)
		v1.POST("/transfers", accounts.Transfer)
		v1.POST("/withdrawals", accounts.Withdraw)
		v1.GET("/session", accounts.Session)
	}
	return r
}
