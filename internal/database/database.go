// Package database opens the postgres connection and applies schema migrations.
package database

import (
	"context"
	"fmt"
	"time"

	"taskmanager/internal/config"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Open connects to postgres and applies pool limits.
func Open(cfg config.DBConfig, logLevel string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(logLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("connected to database", zap.String("host", cfg.Host), zap.String("name", cfg.Name))
	return db, nil
}

// GormConfig keeps gorm quiet unless debugging and turns driver errors
// such as unique violations into gorm.ErrDuplicatedKey.
func GormConfig(logLevel string) *gorm.Config {
	mode := gormLogger.Silent
	if logLevel == "debug" {
		mode = gormLogger.Warn
	}
	return &gorm.Config{
		Logger:         gormLogger.Default.LogMode(mode),
		TranslateError: true,
	}
}

// Ping reports whether the database answers within ctx.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
