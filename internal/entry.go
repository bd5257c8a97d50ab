// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/nbirkeland/eihwaz/internal/api"
	"github.com/nbirkeland/eihwaz/internal/mcpserver"
	"github.com/nbirkeland/eihwaz/internal/search"
	"github.com/nbirkeland/eihwaz/internal/sse"
	"github.com/nbirkeland/eihwaz/internal/storage"
	"github.com/nbirkeland/eihwaz/internal/vault"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// In stdio mode stdout carries the protocol, so logs go to stderr.
	logOut := os.Stdout
	if app.stdio {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.Bool("stdio", app.stdio),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	engine, err := search.New()
	if err != nil {
		return fmt.Errorf("init search engine: %w", err)
	}

	v := vault.New(store, engine, logger)
	defer v.Close()
	v.SetDefaultSearchLimit(cfg.Search.DefaultLimit)

	if err := v.Initialize(); err != nil {
		return fmt.Errorf("init vault: %w", err)
	}

	if app.stdio {
		return runStdio(ctx, v, store, logger)
	}
	return runHTTP(ctx, cfg, v, store, logger)
}

// runStdio serves tool calls over stdin/stdout while a watcher keeps
// the cache in sync with external edits.
func runStdio(ctx context.Context, v *vault.Vault, store storage.Provider, logger *slog.Logger) error {
	fs, ok := store.(*storage.FS)
	if !ok {
		return fmt.Errorf("stdio mode requires filesystem storage")
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := v.Watch(gCtx, fs.Root(), nil); err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		defer logger.Info("stdio server stopped")
		return mcpserver.New(v, store).ServeStdio()
	})

	return g.Wait()
}

// runHTTP serves the REST API, SSE stream, and health endpoints.
func runHTTP(ctx context.Context, cfg *Config, v *vault.Vault, store storage.Provider, logger *slog.Logger) error {
	fs, ok := store.(*storage.FS)
	if !ok {
		return fmt.Errorf("http mode requires filesystem storage")
	}

	broker := sse.NewBroker(cfg.Search.GraphThrottle())
	defer broker.Close()

	apiRouter := api.NewRouter(v, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, fs.Root())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// File watcher feeds the SSE stream.
	g.Go(func() error {
		if err := v.Watch(gCtx, fs.Root(), broker.PublishNoteEvent); err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
