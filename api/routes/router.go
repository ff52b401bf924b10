// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"venuepass/internal/pricing"
	"venuepass/internal/resale"
	"venuepass/internal/reservations"
	"venuepass/internal/shared/config"
	"venuepass/internal/shared/database"
	"venuepass/internal/tickets"
	"venuepass/internal/venues"
	"venuepass/pkg/logger"
	"venuepass/pkg/money"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	policy    *pricing.Policy
	publisher reservations.Publisher
	scheduler reservations.ExpiryScheduler

	// Shared across modules, set while routes are wired
	venueService       venues.Service
	reservationService reservations.Service
}

// NewRouter creates a new router instance. publisher and scheduler may be nil.
func NewRouter(cfg *config.Config, db *database.DB, policy *pricing.Policy, publisher reservations.Publisher, scheduler reservations.ExpiryScheduler) *Router {
	return &Router{
		config:    cfg,
		db:        db,
		policy:    policy,
		publisher: publisher,
		scheduler: scheduler,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		// Venues first: reservations and resale both look venues up through it
		r.setupVenueRoutes(api)
		r.setupReservationRoutes(api)
		r.setupResaleRoutes(api)
		r.setupTicketRoutes(api)
	}
}

// ReservationService returns the service wired by SetupRoutes, for background jobs
func (r *Router) ReservationService() reservations.Service {
	return r.reservationService
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "venuepass-api",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "venuepass-api",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "operational",
			"api_version":   r.config.APIVersion,
			"kafka_enabled": r.publisher != nil,
			"timestamp":     time.Now(),
		})
	})
}

// setupVenueRoutes configures venue routes
func (r *Router) setupVenueRoutes(rg *gin.RouterGroup) {
	venueRepo := venues.NewRepository(r.db.PostgreSQL)
	r.venueService = venues.NewService(venueRepo, r.db.Redis, r.config.Redis.VenueCacheTTL)
	venueController := venues.NewController(r.venueService)

	venues.SetupVenueRoutes(rg, venueController)
}

// setupReservationRoutes configures the reservation protocol routes
func (r *Router) setupReservationRoutes(rg *gin.RouterGroup) {
	cfg := reservations.DefaultConfig()
	cfg.HoldTTL = r.config.Reservations.HoldTTL
	cfg.ExpiryBatchSize = r.config.Reservations.ExpiryBatchSize
	cfg.MaxPartySize = r.config.Reservations.MaxPartySize
	cfg.Topic = r.config.Kafka.ReservationsTopic
	if base, err := money.ParseAmount(r.config.Pricing.DefaultBasePrice); err == nil {
		cfg.DefaultBasePrice = base
	} else {
		logger.GetDefault().Warn("Invalid default base price, using built-in default",
			"value", r.config.Pricing.DefaultBasePrice, "error", err.Error())
	}

	reservationRepo := reservations.NewRepository(r.db.PostgreSQL)
	r.reservationService = reservations.NewService(reservationRepo, r.venueService, r.policy, r.scheduler, r.publisher, cfg)
	reservationController := reservations.NewController(r.reservationService)

	reservations.SetupReservationRoutes(rg, reservationController)
}

// setupResaleRoutes configures resale routes. Live occupancy comes from the
// reservation service.
func (r *Router) setupResaleRoutes(rg *gin.RouterGroup) {
	fallback := resale.Occupancy{
		Capacity: r.config.Pricing.DefaultResaleCapacity,
		Booked:   r.config.Pricing.DefaultResaleBooked,
	}
	guard, err := resale.NewGuard(money.RatioFromFloat(r.config.Pricing.ResaleCapMultiplier), fallback)
	if err != nil {
		logger.GetDefault().Warn("Invalid resale cap multiplier, using default guard", "error", err.Error())
		guard = resale.DefaultGuard()
	}

	resaleRepo := resale.NewRepository(r.db.PostgreSQL)
	ticketRepo := tickets.NewRepository(r.db.PostgreSQL)
	resaleService := resale.NewService(resaleRepo, ticketRepo, r.venueService, r.reservationService, r.policy, guard)
	resaleController := resale.NewController(resaleService)

	resale.SetupResaleRoutes(rg, resaleController)
}

// setupTicketRoutes configures staff-only ticket admission
func (r *Router) setupTicketRoutes(rg *gin.RouterGroup) {
	ticketRepo := tickets.NewRepository(r.db.PostgreSQL)
	ticketService := tickets.NewService(ticketRepo)
	ticketController := tickets.NewController(ticketService)

	tickets.SetupTicketRoutes(rg, ticketController)
}
