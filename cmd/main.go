package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"

	"github.com/ManikLakhanpal/Tube-Pay/internal/cache"
	"github.com/ManikLakhanpal/Tube-Pay/internal/config"
	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
	"github.com/ManikLakhanpal/Tube-Pay/internal/handler"
	"github.com/ManikLakhanpal/Tube-Pay/internal/repository"
	"github.com/ManikLakhanpal/Tube-Pay/internal/service"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/database"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/gateway"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/jwt"
	pkglog "github.com/ManikLakhanpal/Tube-Pay/pkg/log"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/middleware"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/pubsub"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/tracing"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "tube-pay",
	})
	logger := pkglog.L()

	// Initialize tracing
	shutdownTracing, err := tracing.Setup(context.Background(), cfg.Tracing, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up tracing")
	}

	// Connect to database using GORM
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if cfg.Tracing.Enabled {
		if err := db.Use(gormtracing.NewPlugin()); err != nil {
			logger.Fatal().Err(err).Msg("failed to instrument database")
		}
	}

	if err := database.AutoMigrate(db, &domain.UserModel{}, &domain.StreamModel{}, &domain.PaymentModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// Initialize repositories
	userRepo := repository.NewGormUserRepository(db)
	streamRepo := repository.NewGormStreamRepository(db)
	paymentRepo := repository.NewGormPaymentRepository(db)

	// Redis is optional at startup; every cache call degrades until it is
	// reachable.
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Address).Msg("redis unavailable, serving from database")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis cache connected")
	}

	redisCache := cache.NewRedisCache(redisClient, cache.Options{
		Prefix: cfg.Cache.Prefix,
		TTLs: cache.TTLs{
			LiveStreams:   cfg.Cache.TTL.LiveStreams,
			StreamDetail:  cfg.Cache.TTL.StreamDetails,
			UserProfile:   cfg.Cache.TTL.UserProfile,
			PaymentDetail: cfg.Cache.TTL.PaymentDetails,
			PaymentPages:  cfg.Cache.TTL.PaymentPages,
			PaymentStats:  cfg.Cache.TTL.PaymentStats,
		},
		OpTimeout: cfg.Cache.OpTimeout,
		ScanCount: cfg.Cache.ScanCount,
		Breaker: cache.BreakerSettings{
			ConsecutiveFailures: cfg.Cache.Breaker.ConsecutiveFailures,
			OpenTimeout:         cfg.Cache.Breaker.OpenTimeout,
		},
	})

	// Initialize event bus
	publisher, err := pubsub.NewPublisher(cfg.PubSub, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to create publisher")
	}

	// Initialize services
	userService := service.NewUserService(userRepo, redisCache)
	streamService := service.NewStreamService(streamRepo, redisCache)
	var verifier service.SettlementVerifier
	if v, err := gateway.NewVerifier(cfg.Gateway.KeySecret); err != nil {
		logger.Warn().Err(err).Msg("payment settlement disabled")
	} else {
		verifier = v
	}
	paymentService := service.NewPaymentService(paymentRepo, streamRepo, redisCache, publisher, verifier, service.RateLimit{
		Limit:  cfg.RateLimit.CreateOrderLimit,
		Window: cfg.RateLimit.CreateOrderWindow,
	})

	// Initialize auth
	tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create jwt manager")
	}
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	// Initialize HTTP handler
	httpHandler := handler.NewHandler(userService, streamService, paymentService, redisCache, tokens, authMiddleware)

	// Setup Gin router
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.Use(middleware.Metrics())
	r.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	if cfg.Server.Gzip {
		r.Use(gzip.Gzip(gzip.DefaultCompression))
	}

	httpHandler.RegisterRoutes(r)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", addr).Str("driver", cfg.Database.Driver).Str("pubsub", cfg.PubSub.Driver).Msg("tube-pay starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	if err := publisher.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close publisher")
	}
	if err := redisClient.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close redis client")
	}
	if err := database.Close(db); err != nil {
		logger.Warn().Err(err).Msg("failed to close database")
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to flush traces")
	}

	logger.Info().Msg("server exited")
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
