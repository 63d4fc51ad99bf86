package database

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"taskmanager/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// newMigrator opens its own connection; callers must Close it.
func newMigrator(cfg config.DBConfig) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrationURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("init migrator: %w", err)
	}
	return m, nil
}

// pgx5:// selects the pgx v5 database driver.
func migrationURL(cfg config.DBConfig) string {
	return "pgx5" + strings.TrimPrefix(cfg.URL(), "postgres")
}

// MigrateUp applies every pending migration.
func MigrateUp(cfg config.DBConfig, log *zap.Logger) error {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer closeMigrator(m, log)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// MigrateDown rolls back steps migrations; steps <= 0 rolls back everything.
func MigrateDown(cfg config.DBConfig, steps int, log *zap.Logger) error {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer closeMigrator(m, log)

	if steps > 0 {
		err = m.Steps(-steps)
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	log.Info("migrations rolled back", zap.Int("steps", steps))
	return nil
}

func closeMigrator(m *migrate.Migrate, log *zap.Logger) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		log.Warn("failed to close migrator", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
	}
}
