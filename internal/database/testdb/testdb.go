// Package testdb provides a throwaway sqlite database with the application schema.
package testdb

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"taskmanager/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Clock hands out strictly increasing timestamps so created_at ordering is deterministic.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// Open creates a fresh database file in t.TempDir() and migrates every model.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on&_busy_timeout=5000"
	clock := NewClock(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
		NowFunc:        clock.Now,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection keeps sqlite writes serialized.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&model.User{}, &model.Task{}, &model.Tag{}, &model.AccessToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
