// Package database opens the Postgres connection shared by the API and the orchestrator.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"draftkeeper/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

const (
	// DriverPGX is used by the API.
	DriverPGX = "pgx"
	// DriverPQ is used by the queue orchestrator.
	DriverPQ = "postgres"
)

// Open connects with the given driver, pings, and applies pool limits.
func Open(ctx context.Context, cfg *config.Config, driver string, logger zerolog.Logger) (*sql.DB, error) {
	dsn := NormalizeDSN(cfg.DBConnectionString, cfg.IsDevelopment(), driver)
	logger.Info().Str("driver", driver).Str("db_port", dsnPort(dsn)).Msg("Opening database connection")

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	logger.Info().Msg("Database connection successful")
	return db, nil
}

// NormalizeDSN disables SSL for local development and, outside development,
// switches pgx to the simple query protocol so transaction poolers such as
// pgbouncer work without server-side prepared statements.
func NormalizeDSN(dsn string, development bool, driver string) string {
	if development && !strings.Contains(dsn, "sslmode") {
		dsn = appendParam(dsn, "sslmode=disable")
	}
	if !development && driver == DriverPGX && !strings.Contains(dsn, "prefer_simple_protocol") {
		dsn = appendParam(dsn, "prefer_simple_protocol=true")
	}
	return dsn
}

func appendParam(dsn, param string) string {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return dsn + " " + param
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}
	return dsn + "?" + param
}

// dsnPort extracts the port for startup logs without printing credentials.
func dsnPort(dsn string) string {
	parts := strings.Split(dsn, ":")
	for i, part := range parts {
		if strings.Contains(part, "@") && len(parts) > i+1 {
			return strings.Split(parts[i+1], "/")[0]
		}
	}
	return "not_found"
}
