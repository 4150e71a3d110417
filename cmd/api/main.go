package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/safarides/safar-backend/internal/admin"
	"github.com/safarides/safar-backend/internal/assignment"
	"github.com/safarides/safar-backend/internal/auth"
	"github.com/safarides/safar-backend/internal/bookings"
	"github.com/safarides/safar-backend/internal/credits"
	"github.com/safarides/safar-backend/internal/metricsagg"
	"github.com/safarides/safar-backend/internal/notifications"
	"github.com/safarides/safar-backend/internal/providers"
	"github.com/safarides/safar-backend/internal/quotes"
	"github.com/safarides/safar-backend/internal/realtime"
	"github.com/safarides/safar-backend/internal/recovery"
	"github.com/safarides/safar-backend/internal/scoring"
	"github.com/safarides/safar-backend/pkg/cache"
	"github.com/safarides/safar-backend/pkg/config"
	"github.com/safarides/safar-backend/pkg/database"
	"github.com/safarides/safar-backend/pkg/errors"
	"github.com/safarides/safar-backend/pkg/eventbus"
	"github.com/safarides/safar-backend/pkg/logger"
	"github.com/safarides/safar-backend/pkg/middleware"
	redisclient "github.com/safarides/safar-backend/pkg/redis"
	"go.uber.org/zap"
)

const (
	serviceName = "safar-api"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting safar api",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
	)

	sentryConfig := errors.DefaultSentryConfig()
	sentryConfig.ServerName = serviceName
	sentryConfig.Release = version
	if err := errors.InitSentry(sentryConfig); err != nil {
		logger.Warn("failed to initialize sentry, continuing without error tracking", zap.Error(err))
	} else {
		defer errors.Flush(2 * time.Second)
	}

	db, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(&cfg.Database); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}
	logger.Info("database ready")

	store := buildCacheStore(cfg)

	bus := eventbus.New()

	// Repositories.
	userRepo := auth.NewRepository(db)
	providerRepo := providers.NewRepository(db)
	scoringRepo := scoring.NewRepository(db)
	bookingRepo := bookings.NewRepository(db)
	creditRepo := credits.NewRepository(db)
	metricsRepo := metricsagg.NewRepository(db)
	adminRepo := admin.NewRepository(db)

	// Services.
	smsSender := notifications.NewSMSSender(cfg.SMS)
	authService := auth.NewService(userRepo, store, smsSender, cfg)
	providerService := providers.NewService(providerRepo)
	scoringService := scoring.NewService(scoringRepo)
	quoteService := quotes.NewService(scoringService, store)
	metricsService := metricsagg.NewService(metricsRepo)
	creditService := credits.NewService(creditRepo)
	bookingService := bookings.NewService(bookingRepo, store, bus, providerService, metricsService)
	recoveryService := recovery.NewService(bookingService, scoringService, creditService, cfg.Booking.MaxRecoveryTries)
	adminService := admin.NewService(adminRepo)

	assigner := assignment.NewService(
		bookingService, providerService, scoringService, recoveryService,
		cfg.Booking.SimulationEnabled,
	)
	pool := assignment.NewPool(assigner, cfg.Booking.AssignmentWorkers)
	bookingService.SetDispatcher(pool)
	pool.Start()
	defer pool.Stop()

	sweeper := recovery.NewSweeper(recoveryService, bookingService, providerService)
	sweeper.Start()
	defer sweeper.Stop()

	// Handlers.
	authHandler := auth.NewHandler(authService, cfg.Server.FrontendURL)
	providerHandler := providers.NewHandler(providerService)
	quoteHandler := quotes.NewHandler(quoteService)
	bookingHandler := bookings.NewHandler(bookingService)
	creditHandler := credits.NewHandler(creditService)
	adminHandler := admin.NewHandler(adminService)
	realtimeHandler := realtime.NewHandler(bus)

	router := buildRouter(cfg,
		authHandler, providerHandler, quoteHandler, bookingHandler,
		creditHandler, adminHandler, realtimeHandler,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
}

// buildCacheStore connects to Redis, degrading to in-memory when allowed.
func buildCacheStore(cfg *config.Config) cache.Store {
	client, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		if !cfg.Redis.FallbackAllowed {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		logger.Warn("redis unreachable, using in-memory cache; OTPs and quote selection will not survive restarts", zap.Error(err))
		return cache.NewMemoryStore()
	}
	return cache.NewFallbackStore(cache.NewRedisStore(client))
}

func buildRouter(
	cfg *config.Config,
	authHandler *auth.Handler,
	providerHandler *providers.Handler,
	quoteHandler *quotes.Handler,
	bookingHandler *bookings.Handler,
	creditHandler *credits.Handler,
	adminHandler *admin.Handler,
	realtimeHandler *realtime.Handler,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.Server.CORSOrigin))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/send-otp", authHandler.SendOTP)
		authGroup.POST("/verify-otp", authHandler.VerifyOTP)
		authGroup.GET("/google", authHandler.GoogleLogin)
		authGroup.GET("/google/callback", authHandler.GoogleCallback)
	}

	authed := v1.Group("")
	authed.Use(middleware.Auth(cfg.JWT.Secret))
	{
		authed.POST("/quotes", quoteHandler.GetQuotes)
		authed.GET("/quotes/:sessionId", quoteHandler.GetSession)

		authed.POST("/bookings", bookingHandler.Create)
		authed.GET("/bookings", bookingHandler.List)
		authed.GET("/bookings/credits", creditHandler.List)
		authed.GET("/bookings/:id", bookingHandler.Get)
		authed.POST("/bookings/:id/cancel", bookingHandler.Cancel)
		authed.POST("/bookings/:id/start", bookingHandler.Start)
		authed.POST("/bookings/:id/complete", bookingHandler.Complete)

		authed.GET("/ws", realtimeHandler.HandleWebSocket)
	}

	adminGroup := v1.Group("/admin")
	adminGroup.Use(middleware.Auth(cfg.JWT.Secret), middleware.RequireAdmin())
	{
		adminGroup.GET("/dashboard", adminHandler.Dashboard)
		adminGroup.GET("/metrics", adminHandler.Metrics)
		adminGroup.GET("/bookings/escalated", adminHandler.EscalatedBookings)
		adminGroup.GET("/bookings/active", adminHandler.ActiveBookings)
		adminGroup.POST("/bookings/:id/confirm", bookingHandler.ManualConfirm)

		adminGroup.GET("/providers", providerHandler.List)
		adminGroup.POST("/providers", providerHandler.Register)
		adminGroup.GET("/providers/:id", providerHandler.Get)
		adminGroup.PUT("/providers/:id", providerHandler.Update)
		adminGroup.POST("/providers/:id/pause", providerHandler.Pause)
		adminGroup.POST("/providers/:id/resume", providerHandler.Resume)
		adminGroup.GET("/providers/:id/metrics", providerHandler.GetMetrics)
	}

	return router
}
