package server

import (
	_ "taskmanager/docs"
	"taskmanager/internal/auth"
	"taskmanager/internal/config"
	"taskmanager/internal/handler"
	"taskmanager/internal/metrics"
	"taskmanager/internal/middleware"
	"taskmanager/internal/notify"
	"taskmanager/internal/ratelimit"
	"taskmanager/internal/repository"
	"taskmanager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Deps is everything the router needs from the outside world.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    redis.UniversalClient // optional
	Log      *zap.Logger
	Metrics  *metrics.Metrics
	Notifier notify.Notifier
	// LoginLimiter defaults to an in-memory limiter built from Config.RateLimit.
	LoginLimiter ratelimit.Limiter
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Version    string
}

// NewRouter wires repositories, services and handlers into a gin engine.
func NewRouter(d Deps) *gin.Engine {
	handler.RegisterValidators()

	cfg := d.Config
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	if d.LoginLimiter == nil {
		d.LoginLimiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.LoginAttempts, cfg.RateLimit.LoginWindow)
	}
	if d.Notifier == nil {
		d.Notifier = notify.New(cfg.Mail, log)
	}
	if d.BcryptCost == 0 {
		d.BcryptCost = bcrypt.DefaultCost
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(d.DB)
	tokenRepo := repository.NewTokenRepository(d.DB)
	taskRepo := repository.NewTaskRepository(d.DB)

	// Initialize services
	issuer := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
	sessions := service.NewSessions(tokenRepo, issuer)
	verifySvc := service.NewVerificationService(userRepo, sessions, d.Notifier, cfg.App.FrontendURL, log)
	authSvc := service.NewAuthService(userRepo, tokenRepo, issuer, sessions, verifySvc, log).
		WithBcryptCost(d.BcryptCost)
	taskSvc := service.NewTaskService(taskRepo, cfg.Location())
	adminSvc := service.NewAdminService(userRepo, taskRepo, taskSvc)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authSvc, verifySvc, d.Metrics, log)
	taskHandler := handler.NewTaskHandler(taskSvc, log)
	adminHandler := handler.NewAdminHandler(adminSvc, log)
	healthHandler := handler.NewHealthHandler(d.DB, d.Redis, d.Version)

	r := gin.New()
	r.Use(middleware.RequestLogger(log), middleware.Metrics(d.Metrics), middleware.Recovery(log))

	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public routes
	public := r.Group("/auth")
	{
		public.POST("/signup", authHandler.Signup)
		public.POST("/login", middleware.RateLimit(d.LoginLimiter, d.Metrics, log), authHandler.Login)
		public.GET("/verify-email", authHandler.VerifyEmail)
		public.POST("/resend-verification", authHandler.ResendVerification)
	}

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.Authenticate(authSvc, log))
	{
		authorized.GET("/auth/profile", authHandler.Profile)
		authorized.POST("/auth/logout", authHandler.Logout)

		// Task routes
		authorized.GET("/tasks", taskHandler.List)
		authorized.POST("/tasks", taskHandler.Create)
		authorized.GET("/tasks/:id", taskHandler.GetByID)
		authorized.PUT("/tasks/:id", taskHandler.Update)
		authorized.PATCH("/tasks/:id", taskHandler.Update)
		authorized.DELETE("/tasks/:id", taskHandler.Delete)

		// Admin routes
		admin := authorized.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/users", adminHandler.Users)
			admin.GET("/tasks", adminHandler.Tasks)
		}
	}
	return r
}
