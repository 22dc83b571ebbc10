package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quayside/taskhub-api/internal/config"
	"github.com/quayside/taskhub-api/internal/platform/postgres"
	"github.com/quayside/taskhub-api/internal/realtime"
	"github.com/quayside/taskhub-api/internal/service/auth"
	"github.com/quayside/taskhub-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	userStore  store.UserStore
	boardStore store.BoardStore
	listStore  store.ListStore
	taskStore  store.TaskStore

	// Service interfaces
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier

	// Realtime fan-out
	gate        *realtime.Gate
	registry    *realtime.Registry
	hub         *realtime.Hub
	redisClient *redis.Client

	// Hub lifecycle, owned by Run and consumed by cleanup.
	cancelHub context.CancelFunc
	hubDone   chan struct{}
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize JWT service
	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	// Initialize password verifier
	app.passwordVerifier = auth.NewBcryptVerifier()

	// Initialize stores
	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost)
	app.boardStore = postgres.NewPostgresBoardStore(db, logger)
	app.listStore = postgres.NewPostgresListStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	// The gate answers every board membership question for both the HTTP
	// handlers and the realtime hub, always against current store state.
	app.gate = realtime.NewGate(app.boardStore, logger)

	// Realtime hub: connection registry plus fan-out.
	app.registry = realtime.NewRegistry()
	app.hub = realtime.NewHub(app.registry, app.gate, app.jwtService, logger)

	// The Redis bridge is optional; without it events only reach
	// connections held by this process.
	if cfg.Realtime.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Realtime.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to ping Redis: %w", err)
		}

		app.redisClient = client
		app.hub.AttachBridge(realtime.NewBridge(client, cfg.Realtime.EventChannel, logger))
		logger.Info("Cross-instance event bridge enabled",
			"channel", cfg.Realtime.EventChannel)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the realtime hub and the HTTP server, handling lifecycle and
// cleanup. It returns an error if the server fails to start or encounters
// problems.
func (app *application) Run(ctx context.Context) error {
	// The hub runs for the lifetime of the server; canceling its context
	// during cleanup closes every open WebSocket connection.
	hubCtx, cancelHub := context.WithCancel(ctx)
	app.cancelHub = cancelHub
	app.hubDone = make(chan struct{})
	go func() {
		defer close(app.hubDone)
		app.hub.Run(hubCtx)
	}()

	// Set up router using the application dependencies
	router := app.setupRouter()

	// Start the HTTP server
	err := app.startHTTPServer(ctx, router)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop the hub first so connections drain before their backends close.
	if app.cancelHub != nil {
		app.cancelHub()
		select {
		case <-app.hubDone:
		case <-time.After(5 * time.Second):
			app.logger.Warn("Realtime hub did not stop in time")
		}
	}

	// Close the Redis connection used by the event bridge
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("Error closing Redis connection", "error", err)
		}
	}

	// Close database connection
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
