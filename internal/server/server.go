// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"recolecta/internal/cache"
	"recolecta/internal/config"
	"recolecta/internal/database"
	"recolecta/internal/enums"
	"recolecta/internal/middleware"
	"recolecta/internal/models"
	"recolecta/internal/notifications"
	"recolecta/internal/repository"
	"recolecta/internal/rules"
	"recolecta/internal/service"
	"recolecta/internal/units"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	requestRepo    repository.RequestRepository
	pickupRepo     repository.PickupRepository
	providerRepo   repository.ProviderRepository
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	ruleSet        *rules.RuleSet
	normalizer     *units.Normalizer
	enums          enums.Provider
	lifecycle      *service.LifecycleService
	reports        *service.ReportService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Used by tests and by bootstrap layers that establish DB/Redis themselves.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	rulesCfg, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	ruleSet, err := rulesCfg.Select(cfg.Ruleset)
	if err != nil {
		return nil, err
	}
	normalizer := units.NewNormalizer()

	requestRepo := repository.NewRequestRepository(db)
	pickupRepo := repository.NewPickupRepository(db)
	providerRepo := repository.NewProviderRepository(db)

	prom := middleware.InitMetrics("recolecta-api")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		requestRepo:    requestRepo,
		pickupRepo:     pickupRepo,
		providerRepo:   providerRepo,
		ruleSet:        ruleSet,
		normalizer:     normalizer,
		enums:          enums.NewProvider(ruleSet, normalizer),
	}

	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
		server.hub = notifications.NewHub()
	}

	server.lifecycle = service.NewLifecycleService(
		db, ruleSet, normalizer,
		requestRepo, pickupRepo, providerRepo,
		server.notifier, middleware.Logger,
	)
	server.reports = service.NewReportService(pickupRepo, requestRepo, normalizer)

	middleware.InitMiddleware(cfg)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// OpenTelemetry tracing
	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.HealthCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Recolecta Metrics Dashboard",
	}))

	// Enumeration tables (public, read-only)
	enumsGroup := api.Group("/enums")
	enumsGroup.Get("/categories", s.GetCategories)
	enumsGroup.Get("/units", s.GetMeasureUnits)
	enumsGroup.Get("/statuses", s.GetStatuses)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	// Request routes (owner-facing)
	requests := protected.Group("/requests")
	requests.Post("/", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_request"), s.CreateRequest)
	requests.Get("/me", s.GetMyRequests)
	requests.Get("/", middleware.AdminRequired, s.GetRequests)
	requests.Put("/:id", s.UpdateRequest)
	requests.Post("/:id/cancel", s.CancelRequest)
	requests.Put("/:id/note", middleware.AdminRequired, s.SetRequestNote)
	requests.Get("/:id", s.GetRequest)

	// Pickup routes (administrative)
	pickups := protected.Group("/pickups", middleware.AdminRequired)
	pickups.Post("/", s.ScheduleRequests)
	pickups.Get("/", s.GetPickups)
	pickups.Put("/:id", s.EditPickup)
	pickups.Post("/:id/cancel", s.CancelPickup)
	pickups.Post("/:id/complete", s.CompletePickup)
	pickups.Get("/:id", s.GetPickup)

	// Provider routes
	providers := protected.Group("/providers")
	providers.Get("/", s.GetProviders)
	providers.Post("/", middleware.AdminRequired, s.CreateProvider)
	providers.Put("/:id", middleware.AdminRequired, s.UpdateProvider)
	providers.Post("/:id/deactivate", middleware.AdminRequired, s.DeactivateProvider)
	providers.Get("/:id", s.GetProvider)

	// Aggregation reports
	reports := protected.Group("/reports")
	reports.Get("/summary", s.GetSummaryReport)

	// Lifecycle event stream
	ws := api.Group("/ws", middleware.AuthRequired)
	ws.Get("/events", s.WebSocketEventsHandler())
}

// HealthCheck is a legacy/simple alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The engine stays available without Redis; caching and the event
		// stream degrade.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Recolecta API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	// Wire the event stream hub to the Redis subscriber if available
	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				log.Printf("failed to start event stream wiring: %v", err)
			}
		}()
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			log.Printf("error shutting down event stream hub: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
