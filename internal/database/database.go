// Package database opens the instrumented connection pool and carries transactions
// through the context for the room and message repositories.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	_ "github.com/lib/pq"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config holds database configuration settings.
type Config struct {
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// Connect opens an instrumented connection pool and pings it.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	system, err := systemAttribute(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.ConnectionString
	if cfg.Driver == DriverMySQL {
		if dsn, err = normalizeMySQLDSN(dsn); err != nil {
			return nil, err
		}
	}

	attrs := otelsql.WithAttributes(system)
	db, err := otelsql.Open(cfg.Driver, dsn, attrs, otelsql.WithSpanOptions(otelsql.SpanOptions{
		OmitConnResetSession: true,
		OmitConnPrepare:      true,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	otelsql.RegisterDBStatsMetrics(db, attrs)

	return db, nil
}

// normalizeMySQLDSN forces the options the MySQL repositories depend on: DATETIME(6)
// columns scanned into time.Time, stored and read back in UTC, and RowsAffected counting
// changed rows so a no-op ON DUPLICATE KEY UPDATE reports zero.
func normalizeMySQLDSN(dsn string) (string, error) {
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql connection string: %w", err)
	}
	parsed.ParseTime = true
	parsed.Loc = time.UTC
	parsed.ClientFoundRows = false
	return parsed.FormatDSN(), nil
}

func systemAttribute(driver string) (attribute.KeyValue, error) {
	switch driver {
	case DriverPostgres:
		return semconv.DBSystemPostgreSQL, nil
	case DriverMySQL:
		return semconv.DBSystemMySQL, nil
	default:
		return attribute.KeyValue{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}
