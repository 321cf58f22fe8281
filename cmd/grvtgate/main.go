package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/haeminmoon/grvtgate/internal/client"
	"github.com/haeminmoon/grvtgate/internal/config"
	"github.com/haeminmoon/grvtgate/internal/handler"
	"github.com/haeminmoon/grvtgate/internal/manager"
	"github.com/haeminmoon/grvtgate/internal/market"
	"github.com/haeminmoon/grvtgate/internal/middleware"
	"github.com/haeminmoon/grvtgate/internal/pkg/logger"
	"github.com/haeminmoon/grvtgate/internal/repository"
	"github.com/haeminmoon/grvtgate/internal/service"
	"github.com/haeminmoon/grvtgate/internal/session"
	"github.com/haeminmoon/grvtgate/internal/signer"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func main() {
	_ = godotenv.Load()

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.InitWithFile(cfg.Log.Level, logger.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	env, envCfg, err := cfg.EnvConfig()
	if err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}

	// 2. Signing and instruments
	engine, err := signer.NewEngineFromPrivateKey(cfg.Grvt.PrivateKey, env)
	if err != nil {
		log.Fatalf("Failed to initialize signer: %v", err)
	}
	instruments, err := market.NewInstrumentRegistryFromConfig(cfg.Instruments)
	if err != nil {
		log.Fatalf("Invalid instrument table: %v", err)
	}

	// 3. Persistence (Redis > Memory)
	var reserver manager.Reserver
	idemTTL := time.Duration(cfg.Server.IdempotencyTTLSeconds) * time.Second
	var idempotency middleware.IdempotencyStore = middleware.NewInMemIdempotencyStore(idemTTL)
	var usage service.UsageRepo = service.NewRiskUsageStore()
	var redisClient *repository.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("Connected to Redis", "addr", cfg.Redis.Addr)
			reserver = redisClient
			usage = redisClient
			idempotency = repository.NewRedisIdempotencyStore(redisClient, idemTTL)
		} else {
			logger.Error("Failed to connect to Redis, falling back to memory", "error", err)
		}
	}
	nonces := manager.NewNonceManager(time.Duration(cfg.Signing.ExpirationSeconds)*time.Second, reserver)

	// 4. Session and exchange client
	sessions := session.NewManagerFromConfig(cfg, envCfg)
	if cfg.Grvt.ApiKey == "" {
		logger.Warn("grvt.api_key is not set, authenticated calls will fail")
	} else {
		warmCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Session.LoginTimeoutMs)*time.Millisecond)
		if err := sessions.EnsureFresh(warmCtx); err != nil {
			logger.Warn("Initial login failed, will retry on first request", "error", err)
		}
		cancel()
	}
	exchange := client.New(sessions, envCfg)

	risk := service.NewRiskEngine(usage, instruments, cfg.Risk)
	gatewaySvc := service.NewGatewayService(cfg, engine, exchange, instruments, nonces, sessions, risk)

	// 5. Router
	gin.SetMode(gin.ReleaseMode)
	var limiter *rate.Limiter
	if cfg.Server.RateLimitQPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimitQPS), cfg.Server.RateLimitBurst)
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	r := handler.NewRouter(handler.RouterOptions{
		Orders:      gatewaySvc,
		Accounts:    gatewaySvc,
		GatewayKey:  cfg.Server.GatewayKey,
		ReadOnly:    cfg.Server.ReadOnly,
		Limiter:     limiter,
		Idempotency: idempotency,
		MetricsPath: metricsPath,
	})

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("grvtgate started",
			"port", cfg.Server.Port,
			"env", string(env),
			"chain_id", engine.ChainID(),
			"signer", engine.Address(),
			"instruments", instruments.Names(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("Server exiting")
}
