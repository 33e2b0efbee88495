// Package server contains HTTP and WebSocket handlers for the platform's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"smartcity/internal/blob"
	"smartcity/internal/cache"
	"smartcity/internal/config"
	"smartcity/internal/database"
	"smartcity/internal/featureflags"
	"smartcity/internal/middleware"
	"smartcity/internal/models"
	"smartcity/internal/notifications"
	"smartcity/internal/repository"
	"smartcity/internal/service"

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

	userRepo     repository.UserRepository
	requestRepo  repository.RequestRepository
	convRepo     repository.ConversationRepository
	notifRepo    repository.NotificationRepository
	reviewRepo   repository.ReviewRepository
	offeringRepo repository.OfferingRepository
	categoryRepo repository.CategoryRepository

	blobs        blob.Store
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	requestService      *service.RequestService
	conversationService *service.ConversationService
	notificationService *service.NotificationService
	businessService     *service.BusinessService
}

// NewServer creates a server instance, establishing its own DB and Redis
// connections from config.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	blobs, err := blob.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("blob store init failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, cache.GetClient(), blobs)
}

// NewServerWithDeps creates a Server from already-initialized dependencies.
// Used by tests and by bootstrap layers that establish DB/Redis themselves.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, blobs blob.Store) (*Server, error) {
	middleware.InitMiddleware(cfg)
	prom := fiberprometheus.New("smartcity-api")

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		blobs:          blobs,
		userRepo:       repository.NewUserRepository(db),
		requestRepo:    repository.NewRequestRepository(db),
		convRepo:       repository.NewConversationRepository(db),
		notifRepo:      repository.NewNotificationRepository(db),
		reviewRepo:     repository.NewReviewRepository(db),
		offeringRepo:   repository.NewOfferingRepository(db),
		categoryRepo:   repository.NewCategoryRepository(db),
	}

	s.requestService = service.NewRequestService(s.requestRepo, s.blobs)
	s.conversationService = service.NewConversationService(s.convRepo, s.userRepo)
	s.notificationService = service.NewNotificationService(s.notifRepo)
	s.businessService = service.NewBusinessService(s.requestRepo, s.reviewRepo, s.offeringRepo, s.categoryRepo)

	// Realtime delivery is optional; without Redis the API still works and
	// clients fall back to polling.
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
	}

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// CORS must run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:4200,http://localhost:5173"
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
		// Never rate-limit preflight requests; they are handled by CORS.
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

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Smart City Backend Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Public browse routes
	api.Get("/businesses", s.GetApprovedBusinesses)
	api.Get("/businesses/:id/reviews", s.GetBusinessReviews)
	api.Get("/businesses/:id/offerings", s.GetBusinessOfferings)
	api.Get("/categories", s.GetCategories)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	// Registration request routes
	requests := protected.Group("/requests")
	requests.Post("/", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_request"), s.CreateRequest)
	requests.Get("/me", s.GetMyRequests)
	requests.Get("/review", middleware.RequireRole(models.RoleAdmin), s.GetRequestsForReview)
	// Specific /:id/:resource routes BEFORE generic /:id routes
	requests.Post("/:id/documents", s.UploadDocuments)
	requests.Get("/:id/documents/:index", s.DownloadDocument)
	requests.Delete("/:id/documents/:index", s.RemoveDocument)
	requests.Patch("/:id/review", middleware.RequireRole(models.RoleAdmin), s.ReviewRequest)
	requests.Get("/:id", s.GetRequest)
	requests.Put("/:id", s.UpdateRequest)
	requests.Delete("/:id", s.DeleteRequest)

	// Conversation routes (one thread per owner)
	conversations := protected.Group("/conversations")
	conversations.Get("/owners", middleware.RequireRole(models.RoleAdmin), s.GetConversationOwners)
	conversations.Get("/:ownerId", s.GetConversation)
	conversations.Post("/:ownerId/messages", middleware.RateLimit(
		s.redis, 15, time.Minute, "send_message"), s.PostConversationMessage)

	// Notification routes
	notifs := protected.Group("/notifications")
	notifs.Get("/", s.GetNotifications)
	notifs.Patch("/:id/read", s.MarkNotificationRead)

	// Business content routes
	protected.Post("/businesses/:id/reviews", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_review"), s.CreateBusinessReview)
	protected.Post("/businesses/:id/offerings", s.CreateBusinessOffering)
	protected.Get("/offerings/me", s.GetMyOfferings)
	protected.Put("/offerings/:id", s.UpdateBusinessOffering)
	protected.Delete("/offerings/:id", s.DeleteBusinessOffering)
	protected.Post("/categories", middleware.RequireRole(models.RoleAdmin), s.CreateCategory)

	// Operational introspection
	protected.Get("/feature-flags", middleware.RequireRole(models.RoleAdmin), s.GetFeatureFlags)

	// Websocket endpoint
	api.Get("/ws", middleware.WebSocketAuthRequired, s.WebsocketHandler())
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
		// degraded but serving: realtime delivery is off
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
		AppName:   "Municipal Business Approval API",
		BodyLimit: 32 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.hub != nil && s.notifier != nil {
		if !s.hub.StartWiring(s.shutdownCtx, s.notifier) {
			log.Printf("realtime wiring disabled: no redis client")
		}
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
		s.hub.Shutdown()
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
