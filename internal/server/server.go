// Package server contains the HTTP handlers for the ChirpNet API.
package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "chirpnet/docs" // swagger docs
	"chirpnet/internal/bootstrap"
	"chirpnet/internal/config"
	"chirpnet/internal/middleware"
	"chirpnet/internal/models"
	"chirpnet/internal/repository"
	"chirpnet/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
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
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	followRepo     repository.FollowRepository
	imageStore     *service.LocalImageStore
	authService    *service.AuthService
	graphService   *service.GraphService
	userService    *service.UserService
	postService    *service.PostService
	imageService   *service.ImageService
}

// NewServer initializes the runtime (database, Redis, optional demo seed)
// and wires every service.
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	store := service.NewLocalImageStore(cfg.ImageUploadDir, cfg.MediaBaseURL)
	return NewServerWithStore(cfg, db, redisClient, store, store), nil
}

// NewServerWithStore is NewServerWithDeps with a caller-chosen image store.
// local may be nil when images are not served from disk.
func NewServerWithStore(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store service.ImageStore, local *service.LocalImageStore) *Server {
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("chirpnet-api"),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		followRepo:     repository.NewFollowRepository(db),
		imageStore:     local,
	}

	s.imageService = service.NewImageService(store, cfg)
	s.authService = service.NewAuthService(s.userRepo, cfg)
	s.graphService = service.NewGraphService(s.followRepo, s.userRepo)
	s.userService = service.NewUserService(s.userRepo, s.postRepo, s.imageService)
	s.postService = service.NewPostService(s.postRepo, s.imageService)
	return s
}

// NewApp builds the Fiber app with the shared error handler and body limit.
func (s *Server) NewApp() *fiber.App {
	limitMB := s.config.ImageMaxUploadSizeMB
	if limitMB <= 0 {
		limitMB = service.DefaultImageMaxUploadSizeMB
	}
	return fiber.New(fiber.Config{
		AppName: "ChirpNet API",
		// Base64 inflates images by a third; leave room for the JSON envelope.
		BodyLimit:    limitMB*1024*1024*4/3 + 64*1024,
		ErrorHandler: ErrorHandler,
	})
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := strings.Join(s.config.Origins(), ",")
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
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
		Title: "ChirpNet Metrics Dashboard",
	}))

	api.Get("/swagger/*", swagger.HandlerDefault)

	if s.imageStore != nil {
		app.Static("/media/i", s.imageStore.Dir(), fiber.Static{
			MaxAge: 86400,
		})
	}

	auth := api.Group("/auth")
	auth.Post("/signup", s.Signup)
	auth.Post("/login", s.Login)
	auth.Post("/logout", s.Logout)
	auth.Get("/checkAuth", s.AuthRequired(), s.CheckAuth)

	posts := api.Group("/post", s.AuthRequired())
	posts.Post("/createPost", s.CreatePost)
	posts.Get("/getAllPosts", s.GetAllPosts)
	posts.Put("/likeUnlike/:postId", s.LikeUnlike)
	posts.Put("/commentPost/:postId", s.CommentPost)
	posts.Post("/savePosts/:postId", s.SavePost)

	users := api.Group("/user", s.AuthRequired())
	users.Get("/LoggedInUserDetail", s.LoggedInUserDetail)
	users.Get("/getOtherUserProfile/:id", s.GetOtherUserProfile)
	users.Put("/updateProfile", s.UpdateProfile)
	users.Put("/updateProfilePic", s.UpdateProfilePic)
	users.Get("/getPostOfUser", s.GetPostsOfUser)
	users.Delete("/deletePost/:id", s.DeletePost)
	users.Put("/followUnfollow/:id", s.FollowUnfollow)
	users.Get("/getAllSavedPostsOfUser", s.GetSavedPosts)
	users.Get("/suggestedUsers", s.SuggestedUsers)
	users.Get("/searchUser/:username", s.SearchUser)

	s.setupSPA(app)
}

// setupSPA serves the built client from STATIC_DIR with an index fallback
// for client-side routes.
func (s *Server) setupSPA(app *fiber.App) {
	dir := s.config.StaticDir
	if dir == "" {
		return
	}
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		log.Printf("STATIC_DIR %q has no index.html, not serving the client", dir)
		return
	}

	app.Static("/", dir)
	app.Get("/*", func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/") {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundMessage("Route not found"))
		}
		return c.SendFile(index)
	})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so
// its absence degrades the report without failing readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "ChirpNet",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired resolves the session from the cookie, falling back to a
// Bearer header, and stores the user id in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := s.sessionToken(c)
		session, user, err := s.authService.ResolveSession(c.UserContext(), token)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}

		c.Locals("userID", session.UserID)
		c.Locals("user", user)
		c.Locals("session", session)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), session.UserID))
		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	app := s.NewApp()
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
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
