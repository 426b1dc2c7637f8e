// Package server contains the HTTP handlers for the blog's read views and
// mutation actions.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "witwaves/docs" // swagger docs
	"witwaves/internal/bootstrap"
	"witwaves/internal/config"
	"witwaves/internal/database"
	"witwaves/internal/featureflags"
	"witwaves/internal/middleware"
	"witwaves/internal/models"
	"witwaves/internal/notifications"
	"witwaves/internal/repository"
	"witwaves/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// sharedMetrics registers the HTTP collectors once per process.
func sharedMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = middleware.InitMetrics("witwaves-api")
	})
	return prom
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	runtime        *bootstrap.Runtime
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager
	postService    *service.PostService
	commentService *service.CommentService
	imageService   *service.ImageService
	profileService *service.ProfileService
	postQueries    *service.PostQueries
	commentQueries *service.CommentQueries
	reconciler     *service.Reconciler
}

// NewServer connects every dependency and creates a server.
func NewServer(ctx context.Context, cfg *config.Config, opts bootstrap.Options) (*Server, error) {
	rt, err := bootstrap.InitRuntime(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and optionally
// performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, rt *bootstrap.Runtime) *Server {
	middleware.InitMiddleware(cfg)

	posts := repository.NewPostRepository(rt.DB)
	comments := repository.NewCommentRepository(rt.DB, posts)
	images := repository.NewImageRepository(rt.DB)
	profiles := repository.NewProfileRepository(rt.DB)
	activity := rt.ActivityNotifier()
	var hub *notifications.Hub
	if activity != nil {
		hub = notifications.NewHub()
	}

	return &Server{
		config:         cfg,
		runtime:        rt,
		db:             rt.DB,
		redis:          rt.Redis,
		promMiddleware: sharedMetrics(),
		notifier:       rt.Notifier,
		hub:            hub,
		featureFlags:   rt.Flags,
		postService:    service.NewPostService(posts, comments, rt.Objects, rt.Invalidator, activity),
		commentService: service.NewCommentService(comments, posts, rt.Invalidator, activity),
		imageService:   service.NewImageService(images, rt.Objects, rt.Invalidator),
		profileService: service.NewProfileService(profiles, rt.Invalidator),
		postQueries:    service.NewPostQueries(posts, rt.Views),
		commentQueries: service.NewCommentQueries(comments, rt.Views),
		reconciler:     service.NewReconciler(posts, rt.Invalidator),
	}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

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
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
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

// SetupRoutes configures all routes for the application. Reads are public;
// every action requires a bearer token whose subject is the acting user.
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Author activity push; the token may ride in the query string.
	app.Get("/ws/notifications", middleware.WebSocketAuthRequired, s.RequireUpgrade, s.NotificationSocket())

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/features", middleware.OptionalAuth, s.GetFeatureFlags)

	// Post reads. Specific /:id/:resource routes before the generic /:id route.
	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Get("/:id/comments", s.GetCommentsForPost)
	posts.Get("/:id", s.GetPost)

	api.Get("/tags", s.GetAllTags)
	api.Get("/tags/:tag/posts", s.GetPostsByTag)
	api.Get("/archive", s.GetArchivePeriods)
	api.Get("/archive/:year/:month/posts", s.GetPostsByArchive)

	users := api.Group("/users")
	users.Get("/:uid/posts", s.GetPostsByUser)
	users.Get("/:uid/liked", s.GetLikedPostsByUser)
	users.Get("/:uid/comments", s.GetCommentsByUser)
	users.Get("/:uid/images", s.GetUserImages)
	users.Get("/:uid/profile", s.GetProfile)

	// Actions
	auth := middleware.AuthRequired
	posts.Post("/", auth, middleware.RateLimit(s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/like", auth, s.ToggleLikePost)
	posts.Post("/:id/archive", auth, s.ToggleArchivePost)
	posts.Post("/:id/comments", auth, middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.AddComment)
	posts.Put("/:id", auth, s.UpdatePost)
	posts.Delete("/:id", auth, s.DeletePost)

	api.Delete("/images/:id", auth, s.DeleteUserImage)
	api.Put("/profile", auth, s.UpdateProfile)
}

// App builds the fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "WitWaves API",
		// Tags and user ids may arrive percent-encoded.
		UnescapePath: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. The store is required;
// Redis is optional and only fails readiness when configured but unreachable.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "disabled"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
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

// Start runs the background workers and serves HTTP until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.featureFlags.Switch(featureflags.CounterReconciler, true) && s.config.ReconcileInterval > 0 {
		s.reconciler.Start(ctx, s.config.ReconcileInterval)
	}

	if s.notifier != nil {
		go func() {
			err := s.notifier.StartViewSubscriber(ctx, func(ev notifications.ViewEvent) {
				middleware.Logger.Debug("views invalidated",
					slog.String("origin", ev.Origin), slog.Any("keys", ev.Keys))
			})
			if err != nil {
				middleware.Logger.Error("failed to start view subscriber", slog.String("error", err.Error()))
			}
		}()
	}

	if s.hub != nil {
		if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start activity fan-out", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info(fmt.Sprintf("Server starting on port %s...", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop background workers
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.hub != nil {
		_ = s.hub.Shutdown(ctx)
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	s.runtime.Close()

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
