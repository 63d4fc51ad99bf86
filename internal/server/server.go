package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskmanager/internal/config"
	"taskmanager/internal/database"
	"taskmanager/internal/metrics"
	"taskmanager/internal/ratelimit"
	"taskmanager/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// tokenPruneInterval is how often expired access tokens are deleted.
const tokenPruneInterval = time.Hour

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	Config *config.Config
	Log    *zap.Logger
}

// Init connects to the database (migrating it when configured), optionally
// to Redis, and builds the router.
func Init(cfg *config.Config, log *zap.Logger, version string) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.DB.AutoMigrate {
		if err := database.MigrateUp(cfg.DB, log); err != nil {
			return nil, err
		}
	}

	db, err := database.Open(cfg.DB, cfg.App.LogLevel, log)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	deps := Deps{
		Config:  cfg,
		DB:      db,
		Log:     log,
		Metrics: m,
		Version: version,
	}

	rdb := connectRedis(cfg.Redis, log)
	if rdb != nil {
		deps.Redis = rdb
		deps.LoginLimiter = ratelimit.NewRedisLimiter(rdb, "rl:login", cfg.RateLimit.LoginAttempts, cfg.RateLimit.LoginWindow)
	}

	return &Server{
		Engine: NewRouter(deps),
		DB:     db,
		Redis:  rdb,
		Config: cfg,
		Log:    log,
	}, nil
}

// connectRedis returns nil when Redis is disabled or unreachable; the
// in-memory limiter takes over in that case.
func connectRedis(cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, falling back to in-memory rate limiting", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	log.Info("connected to redis", zap.String("addr", cfg.Addr))
	return rdb
}

// Run serves until SIGINT/SIGTERM and then shuts down gracefully.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:              ":" + s.Config.App.ServerPort,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go s.pruneTokens(ctx, tokenPruneInterval)

	errCh := make(chan error, 1)
	go func() {
		s.Log.Info("server running", zap.String("port", s.Config.App.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to listen: %w", err)
		}
	case <-ctx.Done():
	}
	s.Log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.Close()
	s.Log.Info("server exited properly")
	return nil
}

// Close releases the database and Redis connections.
func (s *Server) Close() {
	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
}

// pruneTokens deletes expired access tokens until ctx is done.
func (s *Server) pruneTokens(ctx context.Context, every time.Duration) {
	tokens := repository.NewTokenRepository(s.DB)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		n, err := tokens.DeleteExpired(ctx, time.Now())
		if err != nil && ctx.Err() == nil {
			s.Log.Warn("failed to prune expired tokens", zap.Error(err))
		} else if n > 0 {
			s.Log.Info("pruned expired tokens", zap.Int64("count", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
