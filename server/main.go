package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venuepass/api/routes"
	"venuepass/internal/pricing"
	"venuepass/internal/reservations"
	"venuepass/internal/shared/config"
	"venuepass/internal/shared/constants"
	"venuepass/internal/shared/database"
	"venuepass/internal/shared/middleware"
	"venuepass/pkg/logger"
	"venuepass/pkg/messaging"
	"venuepass/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	policy := loadPolicy(cfg, appLogger)

	// Lua scripts are loaded on first use if preloading fails
	scheduler := reservations.NewRedisExpiryScheduler(db.Redis)
	preloadCtx, preloadCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := scheduler.PreloadScripts(preloadCtx); err != nil {
		appLogger.Error("Failed to preload hold expiry script", slog.Any("error", err))
	}

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = ratelimit.NewRateLimiter(db.Redis, &ratelimit.Config{
			Enabled:                  cfg.RateLimit.Enabled,
			KeyPrefix:                constants.KEY_RATE_LIMIT_PREFIX,
			WindowDuration:           cfg.RateLimit.WindowDuration,
			DefaultRequests:          cfg.RateLimit.DefaultRequests,
			HealthRequests:           cfg.RateLimit.HealthRequests,
			PublicRequests:           cfg.RateLimit.PublicRequests,
			ReservationRequests:      cfg.RateLimit.ReservationRequests,
			ReservationEventRequests: cfg.RateLimit.ReservationEventReqs,
			ResaleRequests:           cfg.RateLimit.ResaleRequests,
			AdminRequests:            cfg.RateLimit.AdminRequests,
			WhitelistedIPs:           cfg.RateLimit.WhitelistedIPs,
		})
		if err := rateLimiter.PreloadScripts(preloadCtx); err != nil {
			appLogger.Error("Failed to preload rate limit script", slog.Any("error", err))
		}
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}
	preloadCancel()

	// Transition events are only published when Kafka is enabled
	var publisher reservations.Publisher
	if cfg.Kafka.Enabled {
		producer, err := messaging.NewProducer(messaging.Config{
			Brokers:        cfg.Kafka.Brokers,
			ClientID:       cfg.Kafka.ClientID,
			MaxRetries:     cfg.Kafka.MaxRetries,
			RequestTimeout: cfg.Kafka.RequestTimeout,
		})
		if err != nil {
			appLogger.Error("Failed to create Kafka producer, continuing without transition events", slog.Any("error", err))
		} else {
			publisher = producer
			defer func() {
				if err := producer.Close(); err != nil {
					appLogger.Error("Error closing Kafka producer", slog.Any("error", err))
				}
			}()
			appLogger.Info("Kafka producer initialized", slog.String("topic", cfg.Kafka.ReservationsTopic))
		}
	}

	appRouter := routes.NewRouter(cfg, db, policy, publisher, scheduler)
	engine := setupEngine(cfg, appRouter, rateLimiter)

	jobs := reservations.NewJobProcessor(appRouter.ReservationService(), &reservations.JobConfig{
		ExpiryCheckInterval: cfg.Reservations.ExpirySweepInterval,
	})
	jobCtx, jobCancel := context.WithCancel(context.Background())
	jobs.Start(jobCtx)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_base", cfg.GetAPIBasePath()),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("built", BuildTime),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
			slog.Bool("kafka", publisher != nil),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	jobCancel()
	jobs.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

// loadPolicy reads the pricing rule file. Without one every venue prices at
// its base price.
func loadPolicy(cfg *config.Config, log *logger.Logger) *pricing.Policy {
	if cfg.Pricing.PolicyPath == "" {
		log.Info("No pricing policy configured, quoting base prices")
		return &pricing.Policy{}
	}
	policy, err := pricing.LoadPolicy(cfg.Pricing.PolicyPath)
	if err != nil {
		log.Error("Failed to load pricing policy", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("Pricing policy loaded",
		slog.String("path", cfg.Pricing.PolicyPath),
		slog.Int("venue_overrides", len(policy.Venues)),
	)
	return policy
}

func setupEngine(cfg *config.Config, appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	engine.Use(middleware.RequestLogger(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
	}

	appRouter.SetupRoutes(engine)
	return engine
}
