// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"time"

	_ "skillswap/docs" // swagger docs
	"skillswap/internal/auth"
	"skillswap/internal/cache"
	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/featureflags"
	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/notifications"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
	"skillswap/internal/service"

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

const metricsPath = "/api/metrics"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	store        *repository.Store
	tokens       *auth.TokenManager
	authn        *middleware.Authenticator
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	authService  *service.AuthService
	userService  *service.UserService
	swapService  *service.SwapService
	adminService *service.AdminService
}

// NewServer creates a Server from already-initialized dependencies. redisClient may be nil,
// which disables caching, token revocation, distributed rate limits and push notifications.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server: config and database are required")
	}

	profiles := cache.NewStore(redisClient, "profile")
	store := repository.NewStore(db, profiles, cfg.UserCacheTTL)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL)
	authn := middleware.NewAuthenticator(tokens, store.Repositories().Users, redisClient)
	notifier := notifications.NewNotifier(redisClient)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(observability.ServiceName),
		store:          store,
		tokens:         tokens,
		authn:          authn,
		notifier:       notifier,
		hub:            notifications.NewHub(),
		featureFlags:   flags,
		authService:    service.NewAuthService(store, tokens, authn),
		userService:    service.NewUserService(store),
		swapService:    service.NewSwapService(store, notifier, flags),
		adminService:   service.NewAdminService(store, notifier),
	}
	return s, nil
}

// ErrorHandler renders every error that escapes a handler as {"message"}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Message: fiberErr.Message})
	}
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
			"path", c.Path(), "error", err.Error())
	}
	return models.RespondWithError(c, status, err)
}

// App builds the Fiber application with middleware and routes. It is built once.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Skill Swap API",
		ErrorHandler: ErrorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware, metricsPath))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Message: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/health/live", s.LivenessCheck)
	api.Get("/health/ready", s.ReadinessCheck)
	api.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, metricsPath)
	}
	api.Get("/swagger/*", swagger.HandlerDefault)

	required := s.authn.Required()
	optional := s.authn.Optional()

	authRoutes := api.Group("/auth")
	authLimit := middleware.RateLimit(s.redis, 10, time.Minute, "auth")
	authRoutes.Post("/signup", authLimit, s.Signup)
	authRoutes.Post("/login", authLimit, s.Login)
	authRoutes.Post("/logout", required, s.Logout)
	authRoutes.Get("/verify", required, s.Verify)

	// Static segments are registered before /:id.
	users := api.Group("/users")
	users.Get("/search", optional, s.SearchUsers)
	users.Put("/profile", required, s.UpdateProfile)
	users.Post("/skills/:kind", required, s.AddSkill)
	users.Delete("/skills/:kind/:skillId", required, s.RemoveSkill)
	users.Get("/:id/skills", s.GetUserSkills)
	users.Get("/:id/stats", s.GetUserStats)
	users.Get("/:id", optional, s.GetUserProfile)

	swaps := api.Group("/swaps", required)
	swaps.Post("/", s.CreateSwap)
	swaps.Get("/", s.ListSwaps)
	swaps.Get("/:id", s.GetSwap)
	swaps.Patch("/:id/status", s.UpdateSwapStatus)
	swaps.Delete("/:id", s.DeleteSwap)
	swaps.Post("/:id/feedback", s.AddFeedback)

	api.Get("/messages", required, s.GetPlatformMessages)
	api.Get("/feature-flags", required, s.GetFeatureFlags)

	admin := api.Group("/admin", required, s.authn.AdminOnly())
	admin.Get("/users", s.AdminListUsers)
	admin.Patch("/users/:id/status", s.AdminSetUserStatus)
	admin.Get("/swaps", s.AdminListSwaps)
	admin.Get("/stats", s.AdminStats)
	admin.Post("/moderate/skill", s.AdminModerateSkill)
	admin.Get("/moderation-log", s.AdminModerationLog)
	admin.Post("/message", s.AdminSendMessage)
	admin.Get("/reports", s.AdminReport)

	api.Get("/ws", s.authn.RequiredFromQuery("token"), s.requireUpgrade, s.NotificationsWebSocket())

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Route not found")
	})
}

// LivenessCheck handles liveness checks from the orchestrator
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database and, when configured, Redis.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "Skill Swap API",
		"status":  overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start wires the notification hub and serves HTTP until the app is shut down.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.redis != nil {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start notification wiring", "error", err.Error())
		}
	}

	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err.Error())
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down notification hub", "error", err.Error())
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", "error", err.Error())
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err.Error())
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
