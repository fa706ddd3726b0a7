package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

var dialects = map[string]goose.Dialect{
	"sqlite": goose.DialectSQLite3,
	"pgx":    goose.DialectPostgres,
}

func dialect(driver string) (goose.Dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	return d, nil
}

func provider(db *sql.DB, driver string) (*goose.Provider, error) {
	d, err := dialect(driver)
	if err != nil {
		return nil, err
	}
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to get migrations directory: %w", err)
	}
	p, err := goose.NewProvider(d, db, migrations)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return p, nil
}

// RunMigrations applies every pending migration for the cache and queue
// tables.
func RunMigrations(ctx context.Context, db *sql.DB, driver string) error {
	p, err := provider(db, driver)
	if err != nil {
		return err
	}

	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		slog.Info("migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// MigrationVersion reports the current schema version.
func MigrationVersion(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	p, err := provider(db, driver)
	if err != nil {
		return 0, err
	}

	version, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, nil
}

// MigrateDown rolls back the latest migration. It is a no-op on an empty
// schema.
func MigrateDown(ctx context.Context, db *sql.DB, driver string) error {
	p, err := provider(db, driver)
	if err != nil {
		return err
	}

	r, err := p.Down(ctx)
	if errors.Is(err, goose.ErrNoNextVersion) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	slog.Info("rolled back migration", "version", r.Source.Version)
	return nil
}
