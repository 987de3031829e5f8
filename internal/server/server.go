// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "farmcast/docs" // swagger docs
	"farmcast/internal/auth"
	"farmcast/internal/bootstrap"
	"farmcast/internal/config"
	"farmcast/internal/database"
	"farmcast/internal/geocoding"
	"farmcast/internal/middleware"
	"farmcast/internal/models"
	"farmcast/internal/notifications"
	"farmcast/internal/push"
	"farmcast/internal/repository"
	"farmcast/internal/service"
	"farmcast/internal/storage"
	"farmcast/internal/weather"

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

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	tokens     *auth.TokenManager
	dispatcher *notifications.Dispatcher

	authService     *service.AuthService
	farmService     *service.FarmService
	weatherService  *service.WeatherService
	feedService     *service.FeedService
	profileService  *service.ProfileService
	settingsService *service.SettingsService
	alertService    *service.AlertService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedDemo: cfg.SeedDemoData})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage initialization failed: %w", err)
	}
	sender, err := push.NewSender(ctx, cfg.FirebaseCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("push initialization failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, store, sender)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.Storage, sender push.Sender) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	farmRepo := repository.NewFarmRepository(db)
	postRepo := repository.NewPostRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	weatherClient := weather.NewClient(weather.Config{
		APIKey:  cfg.OpenWeatherMapKey,
		BaseURL: cfg.OpenWeatherMapURL,
		ProURL:  cfg.OpenWeatherMapProURL,
		Timeout: cfg.UpstreamTimeout(),
	})
	geocoder := geocoding.NewClient(geocoding.Config{
		BaseURL:   cfg.NominatimURL,
		UserAgent: cfg.NominatimUserAgent,
		Timeout:   cfg.UpstreamTimeout(),
	})

	tokens := auth.NewTokenManager(cfg)
	dispatcher := notifications.NewDispatcher(settingsRepo, sender)
	weatherService := service.NewWeatherService(weatherClient, geocoder, farmRepo, cfg.WeatherCacheTTL())

	s := &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		promMiddleware:  middleware.InitMetrics("farmcast-api"),
		tokens:          tokens,
		dispatcher:      dispatcher,
		authService:     service.NewAuthService(userRepo, tokens),
		farmService:     service.NewFarmService(farmRepo),
		weatherService:  weatherService,
		feedService:     service.NewFeedService(postRepo, farmRepo, userRepo, store, cfg.PhotoMaxUploadMB, dispatcher),
		profileService:  service.NewProfileService(userRepo, farmRepo, interactionRepo, store, cfg.PhotoMaxUploadMB, dispatcher),
		settingsService: service.NewSettingsService(settingsRepo),
		alertService:    service.NewAlertService(farmRepo, weatherService, dispatcher),
	}
	return s, nil
}

// AlertService exposes the daily alert job to the scheduler.
func (s *Server) AlertService() *service.AlertService {
	return s.alertService
}

// bodyLimit leaves room for a few photos per multipart request.
func (s *Server) bodyLimit() int {
	mb := service.DefaultPhotoMaxUploadMB
	if s.config != nil && s.config.PhotoMaxUploadMB > 0 {
		mb = s.config.PhotoMaxUploadMB
	}
	return (mb*maxPhotosPerPost + 1) * 1024 * 1024
}

// NewApp builds the Fiber app with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Farmcast API",
		BodyLimit: s.bodyLimit(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, models.NewValidationError(fe.Message))
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
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
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := "*"
	if s.config != nil && s.config.AllowedOrigins != "" {
		origins = s.config.AllowedOrigins
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || strings.HasPrefix(c.Path(), "/health")
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
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Public routes
	app.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	login := app.Group("/login")
	login.Post("/", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	login.Post("/refresh", s.Refresh)

	weatherGroup := app.Group("/weather")
	weatherGroup.Get("/curr/:lat/:long", s.GetCurrentWeather)
	weatherGroup.Get("/hourly/:lat/:long", s.GetHourlyWeather)
	weatherGroup.Get("/daily/:lat/:long", s.GetDailyWeather)
	weatherGroup.Get("/search/:query", middleware.RateLimit(s.redis, 30, time.Minute, "geocode"), s.SearchLocation)

	// Protected routes
	authed := s.AuthRequired()
	app.Post("/logout", authed, s.Logout)

	farms := app.Group("/farms", authed)
	farms.Get("/", s.GetFarms)
	farms.Post("/", s.CreateFarm)
	farms.Delete("/", s.DeleteFarm)
	farms.Get("/:id/weather", s.GetFarmWeather)
	farms.Post("/:id/weather/refresh", middleware.RateLimit(s.redis, 6, time.Minute, "farm_refresh"), s.RefreshFarmWeather)

	profile := app.Group("/profile", authed)
	profile.Get("/me", s.GetMyProfile)
	profile.Put("/photo", s.UpdateProfilePhoto)
	profile.Delete("/", s.DeleteAccount)
	profile.Get("/search/:query", s.SearchProfiles)
	// Specific /:id/:resource routes before generic /:id
	profile.Get("/:id/photo", s.GetProfilePhoto)
	profile.Post("/:id/follow", s.FollowProfile)
	profile.Delete("/:id/follow", s.UnfollowProfile)
	profile.Get("/:id", s.GetProfile)

	feed := app.Group("/feed", authed)
	feed.Get("/", s.GetFeed)
	feed.Post("/new_post", middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	feed.Post("/new_post_photos", s.AddPostPhotos)
	feed.Get("/photos/:photo_id", s.GetPostPhoto)
	feed.Delete("/:post_id", s.DeletePost)
	feed.Get("/:profile_id", s.GetProfileFeed)

	settings := app.Group("/settings", authed)
	settings.Get("/notifications", s.GetNotificationSettings)
	settings.Put("/notifications", s.UpdateNotificationSettings)
	settings.Put("/fcm_token", s.UpdateFCMToken)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: without
// it caching and cross-instance locks are skipped.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil || database.Ping(ctx, s.db) != nil {
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

// AuthRequired returns the authentication middleware. It rejects missing or
// invalid bearer tokens with 401 and tokens of deleted users with 404.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c.Get("Authorization"))
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid authentication credentials"))
		}

		user, claims, err := s.authService.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			return respondServiceError(c, err)
		}

		c.Locals("userID", user.ID)
		c.Locals("user", user)
		c.Locals("claims", claims)
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	app := s.NewApp()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	// Let in-flight follower notifications finish.
	if s.dispatcher != nil {
		done := make(chan struct{})
		go func() {
			s.dispatcher.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			middleware.Logger.Warn("notification dispatch did not drain before shutdown")
		}
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
