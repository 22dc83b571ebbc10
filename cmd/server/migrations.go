package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/quayside/taskhub-api/internal/config"
)

const (
	// migrationsDir is the path to migration files, relative to the
	// working directory the server is launched from.
	migrationsDir = "migrations"

	// migrationTableName is the table goose records applied versions in.
	migrationTableName = "schema_migrations"
)

// slogGooseLogger adapts goose's logger interface to slog. Goose calls
// Fatalf for failures it cannot recover from, but the process exit stays
// with the caller, which sees the same failure as a returned error.
type slogGooseLogger struct{}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	slog.Info(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}

func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}

// runMigrations executes a goose migration command against the configured
// database. A correlation ID ties together all log lines of one operation.
func runMigrations(cfg *config.Config, command, name string) error {
	migrationLogger := slog.Default().With(
		"correlation_id", uuid.New().String(),
		"component", "migrations",
		"command", command,
	)

	// Reject bad invocations before touching the database.
	switch command {
	case "up", "down", "reset", "status", "version":
	case "create":
		if name == "" {
			return fmt.Errorf("migration name is required for 'create' command")
		}
	default:
		return fmt.Errorf(
			"unknown migration command: %s (expected up, down, reset, status, version, or create)",
			command,
		)
	}

	startTime := time.Now()
	migrationLogger.Info("Starting migration operation")

	// Route goose's own output through the structured logger.
	goose.SetLogger(&slogGooseLogger{})

	// Open a database connection using the database URL
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			migrationLogger.Error("Error closing database connection", "error", err)
		}
	}()

	// Migrations run alone; a small pool is plenty.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	goose.SetTableName(migrationTableName)

	switch command {
	case "up":
		err = goose.Up(db, migrationsDir)
	case "down":
		err = goose.Down(db, migrationsDir)
	case "reset":
		err = goose.Reset(db, migrationsDir)
	case "status":
		err = goose.Status(db, migrationsDir)
	case "version":
		err = goose.Version(db, migrationsDir)
	case "create":
		err = goose.Create(db, migrationsDir, name, "sql")
	}
	if err != nil {
		return fmt.Errorf("migration command '%s' failed: %w", command, err)
	}

	migrationLogger.Info("Migration command executed successfully",
		"duration_ms", time.Since(startTime).Milliseconds())
	return nil
}
