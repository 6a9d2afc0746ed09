package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies every pending migration for the configured driver. The folder
// under dir is chosen from driver (postgresql or mysql). No pending migrations is not an
// error.
func RunMigrations(logger *slog.Logger, dir, driver, connectionString string) error {
	sourceURL, databaseURL, err := migrationURLs(dir, driver, connectionString)
	if err != nil {
		return err
	}

	logger.Info("running database migrations",
		slog.String("driver", driver),
		slog.String("source", sourceURL),
	)

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	logger.Info("migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// migrationURLs maps the application's driver name and DSN to golang-migrate URLs. The
// mysql DSN format used by database/sql carries no scheme, so one is added.
func migrationURLs(dir, driver, connectionString string) (string, string, error) {
	switch driver {
	case "postgres":
		return "file://" + path.Join(dir, "postgresql"), connectionString, nil
	case "mysql":
		databaseURL := connectionString
		if !strings.HasPrefix(databaseURL, "mysql://") {
			databaseURL = "mysql://" + databaseURL
		}
		return "file://" + path.Join(dir, "mysql"), databaseURL, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}
