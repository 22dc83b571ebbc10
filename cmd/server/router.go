package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/quayside/taskhub-api/internal/api"
	apiMiddleware "github.com/quayside/taskhub-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. It accepts the application dependencies to create handlers
// and register routes. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	// Create a router
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware) // Add trace IDs for improved error handling

	// Create API handlers using the application's services
	authHandler := api.NewAuthHandler(
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		time.Duration(app.config.Auth.TokenLifetimeMinutes)*time.Minute,
		app.logger,
	)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	// The hub doubles as the event broadcaster for every mutating handler.
	boardHandler := api.NewBoardHandler(
		app.boardStore,
		app.userStore,
		app.gate,
		app.hub,
		app.logger,
	)
	listHandler := api.NewListHandler(app.listStore, app.gate, app.hub, app.db, app.logger)
	taskHandler := api.NewTaskHandler(
		app.taskStore,
		app.listStore,
		app.gate,
		app.hub,
		app.db,
		app.logger,
	)
	channelAuthHandler := api.NewChannelAuthHandler(
		app.gate,
		app.config.Realtime.ChannelKey,
		app.config.Realtime.ChannelSecret,
		app.logger,
	)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Board endpoints
			r.Get("/boards", boardHandler.ListBoards)
			r.Post("/boards", boardHandler.CreateBoard)
			r.Get("/boards/{boardID}", boardHandler.GetBoard)
			r.Put("/boards/{boardID}", boardHandler.UpdateBoard)
			r.Delete("/boards/{boardID}", boardHandler.DeleteBoard)

			// Membership endpoints
			r.Post("/boards/{boardID}/members", boardHandler.AddMember)
			r.Delete("/boards/{boardID}/members/{userID}", boardHandler.RemoveMember)

			// List endpoints
			r.Get("/boards/{boardID}/lists", listHandler.GetLists)
			r.Post("/boards/{boardID}/lists", listHandler.CreateList)
			r.Put("/boards/{boardID}/lists/reorder", listHandler.ReorderLists)
			r.Put("/lists/{listID}", listHandler.UpdateList)
			r.Delete("/lists/{listID}", listHandler.DeleteList)

			// Task endpoints
			r.Get("/lists/{listID}/tasks", taskHandler.GetTasks)
			r.Post("/lists/{listID}/tasks", taskHandler.CreateTask)
			r.Put("/lists/{listID}/tasks/reorder", taskHandler.ReorderTasks)
			r.Get("/tasks/{taskID}", taskHandler.GetTask)
			r.Put("/tasks/{taskID}", taskHandler.UpdateTask)
			r.Delete("/tasks/{taskID}", taskHandler.DeleteTask)
			r.Post("/tasks/{taskID}/move", taskHandler.MoveTask)

			// Channel authorization for the hosted realtime service
			r.Post("/realtime/auth", channelAuthHandler.Authorize)
		})
	})

	// WebSocket endpoint. The hub validates the token itself before
	// upgrading, and accepts it as a query parameter because browser
	// WebSocket clients cannot set an Authorization header.
	r.Get("/ws", app.hub.HandleWS)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	// API documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}
