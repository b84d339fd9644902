// Package db runs embedded schema migrations.
package db

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx v5 driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending migrations. Migrations are embedded at compile
// time and executed in order; golang-migrate tracks the applied version in
// its schema_migrations table.
//
// connURL must use the postgres:// or postgresql:// scheme.
func Migrate(connURL string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	dbURL, err := convertToMigrateURL(connURL)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("failed to close migration source", "error", srcErr)
		}
		if dbErr != nil {
			logger.Warn("failed to close migration database connection", "error", dbErr)
		}
	}()

	// Refuse to run on a dirty schema; a half-applied migration needs a
	// human, not a retry.
	version, dirty, verErr := m.Version()
	if verErr != nil && !errors.Is(verErr, migrate.ErrNilVersion) {
		return fmt.Errorf("checking migration version: %w", verErr)
	}
	if dirty {
		return fmt.Errorf("database in dirty migration state (version=%d), run: migrate force %d", version, version)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("no new migrations to apply")
			return nil
		}
		if postVersion, postDirty, postErr := m.Version(); postErr == nil && postDirty {
			logger.Error("migration failed, database now in dirty state",
				"version", postVersion,
				"hint", fmt.Sprintf("fix the migration and run: migrate force %d", postVersion))
		}
		return fmt.Errorf("running migrations: %w", err)
	}

	if finalVersion, finalDirty, verErr := m.Version(); verErr != nil {
		logger.Warn("migrations completed but version check failed", "error", verErr)
	} else {
		logger.Info("migrations completed", "version", finalVersion, "dirty", finalDirty)
	}

	return nil
}

// convertToMigrateURL rewrites a postgres URL to the pgx5:// scheme that the
// golang-migrate pgx v5 driver registers.
func convertToMigrateURL(connURL string) (string, error) {
	u, err := url.Parse(connURL)
	if err != nil {
		return "", fmt.Errorf("parsing database URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		u.Scheme = "pgx5"
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported database URL scheme %q (expected postgres or postgresql)", u.Scheme)
	}
}
