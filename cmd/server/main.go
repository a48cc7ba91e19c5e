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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"melodeck/internal/app"
	"melodeck/internal/config"
	"melodeck/internal/handlers"
	"melodeck/internal/monitoring"
	"melodeck/internal/normalize"
	"melodeck/internal/render"
	"melodeck/internal/session"
)

func main() {
	// Load .env file for local development
	_ = godotenv.Load()

	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	uiCfg, err := config.LoadUIConfig(cfg.UIConfigPath)
	if err != nil {
		slog.Error("Failed to load UI configuration", "path", cfg.UIConfigPath, "error", err)
		os.Exit(1)
	}

	enabled, err := monitoring.Init(monitoring.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.Release,
	})
	if err != nil {
		slog.Error("Failed to initialize Sentry", "error", err)
		os.Exit(1)
	}
	if enabled {
		defer monitoring.Flush(2 * time.Second)
	}

	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := app.NewStack(ctx, cfg)
	if err != nil {
		slog.Error("Failed to build catalog stack", "error", err)
		os.Exit(1)
	}
	defer stack.Close(context.Background())

	renderer := render.NewRenderer(normalize.New(uiCfg.PlaceholderImage), uiCfg.ResultsPerSection, uiCfg.BrowseCategories)

	sessions := session.NewManager(stack.Catalog, renderer, session.Options{
		FeedSource:     cfg.FeedSource,
		SectionSize:    uiCfg.SectionSize,
		DebounceDelay:  uiCfg.DebounceDelay(),
		ConfirmTimeout: cfg.PlaybackConfirmTimeout,
		IdleTimeout:    cfg.SessionIdleTimeout,
		MaxSessions:    cfg.MaxSessions,
	})
	go sessions.Run(ctx)

	router := handlers.NewRouter(handlers.Handlers{
		Pages: handlers.NewPageHandler(stack.Catalog, renderer, sessions, stack.Layers),
		API:   handlers.NewAPIHandler(stack.Fetcher),
		Live:  handlers.NewLiveHandler(sessions),
		Admin: handlers.NewAdminHandler(stack.Layers, stack.Memory, stack.Mongo, sessions),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server",
			"port", cfg.Port,
			"base_url", cfg.BaseURL,
			"feed_source", cfg.FeedSource,
			"cache_layers", cfg.CacheLayers(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server")

	// Close sessions first so open event streams end
	sessions.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	slog.Info("Server stopped")
}
