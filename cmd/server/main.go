// Package main implements the entry point for the TaskHub API server,
// which exposes the task board REST API and the realtime event stream
// that keeps board collaborators in sync.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	_ "github.com/quayside/taskhub-api/docs"
	"github.com/quayside/taskhub-api/internal/config"
	"github.com/quayside/taskhub-api/internal/platform/logger"
)

// @title           TaskHub API
// @version         1.0
// @description     Collaborative task board service with realtime updates over WebSocket.
// @BasePath        /api
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

// main wires configuration, logging, the database, and the application
// together, then either runs a migration command or starts the server.
func main() {
	// A local .env file is a development convenience; in production the
	// environment is already populated and the file does not exist.
	_ = godotenv.Load()

	migrateCmd := flag.String(
		"migrate",
		"",
		"Run a migration command instead of the server (up, down, reset, status, version, create)",
	)
	migrationName := flag.String(
		"migration-name",
		"",
		"Name for the new migration when using -migrate create",
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up structured logging using the configured log level
	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	// Migration commands run and exit without starting the server.
	if *migrateCmd != "" {
		if err := runMigrations(cfg, *migrateCmd, *migrationName); err != nil {
			appLogger.Error("Migration failed", "command", *migrateCmd, "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	ctx := context.Background()

	// Establish the database connection before building the application;
	// every store depends on it.
	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		appLogger.Error("Failed to initialize application", "error", err)
		// newApplication does not take ownership of the connection until
		// it returns successfully.
		_ = db.Close()
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		appLogger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}
