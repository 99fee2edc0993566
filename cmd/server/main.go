// classpulse - live classroom polling server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/classpulse/internal/api"
	"github.com/ashureev/classpulse/internal/broadcast"
	"github.com/ashureev/classpulse/internal/config"
	"github.com/ashureev/classpulse/internal/history"
	"github.com/ashureev/classpulse/internal/middleware"
	"github.com/ashureev/classpulse/internal/poll"
	"github.com/ashureev/classpulse/internal/session"
	"github.com/ashureev/classpulse/internal/ws"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "history_backend", cfg.HistoryBackend, "dev", cfg.IsDevelopment())

	// History store: durable backend per config, wrapped with the in-memory
	// fallback. A backend that fails to initialize is not fatal; the server
	// continues with in-memory history only.
	store := history.NewFallback(openHistoryBackend(cfg))
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close history store", "error", closeErr)
		}
	}()

	registry := session.NewRegistry()
	gateway := broadcast.NewGateway()
	orch := poll.NewOrchestrator(registry, gateway, store)

	apiHandler := api.NewHandler(orch, store)
	wsHandler := ws.NewHandler(orch, gateway, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	apiHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws", wsHandler.ServeHTTP)

	// Create server.
	// Note: WebSocket connections require no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Cancel the poll timer and drain in-flight archive writes.
	orch.Shutdown()

	slog.Info("Server stopped successfully")
}

// openHistoryBackend initializes the configured durable store, or nil for
// memory-only operation.
func openHistoryBackend(cfg *config.Config) history.Store {
	switch cfg.HistoryBackend {
	case config.BackendSQLite:
		s, err := history.NewSQLite(cfg.DBPath)
		if err != nil {
			slog.Warn("Failed to open SQLite history, continuing with in-memory history only", "error", err)
			return nil
		}
		slog.Info("SQLite history connected", "path", cfg.DBPath)
		return s
	case config.BackendRedis:
		s, err := history.NewRedis(cfg.RedisURL)
		if err != nil {
			slog.Warn("Failed to connect to Redis history, continuing with in-memory history only", "error", err)
			return nil
		}
		slog.Info("Redis history connected")
		return s
	default:
		slog.Info("No durable history configured, using in-memory history only")
		return nil
	}
}
