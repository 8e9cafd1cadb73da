package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/toyscout/product-scraper/internal/api"
	"github.com/toyscout/product-scraper/internal/browser"
	"github.com/toyscout/product-scraper/internal/config"
	"github.com/toyscout/product-scraper/internal/executor"
	"github.com/toyscout/product-scraper/internal/jobs"
	"github.com/toyscout/product-scraper/internal/registry"
	"github.com/toyscout/product-scraper/internal/resolver"
)

func main() {
	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Browser setup
	b, err := browser.New(&browser.Options{
		Headless: cfg.Scraper.Headless,
		Timeout:  time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	// Initialize services
	reg := registry.New(b, logger)
	res := resolver.New(reg, logger)
	res.RetryValidationFailure = cfg.Scraper.RetryValidation

	exec := executor.New(res, logger)
	if cfg.Scraper.ItemDelayMillis > 0 {
		exec.SetItemDelay(time.Duration(cfg.Scraper.ItemDelayMillis) * time.Millisecond)
	}

	store := jobs.NewStore(logger)
	runner := jobs.NewRunner(store, exec, cfg.Jobs.MaxConcurrent, logger)

	// Start stale-job reaper
	jobs.StartReaper(ctx, store,
		time.Duration(cfg.Jobs.ReapIntervalSeconds)*time.Second,
		time.Duration(cfg.Jobs.RetentionSeconds)*time.Second,
		logger)

	// Initialize API handlers
	handlers := api.NewHandlers(ctx, reg, res, exec, store, runner, cfg.Scraper.MaxWorkers, logger)

	// Setup Chi router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handlers.Routes(r)

	// Start server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Server.Port, "sites", len(reg.Sites()), "brands", len(reg.Brands()))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	// Let in-flight jobs finish before the browser is torn down.
	runner.Wait()
	logger.Info("server stopped")
}
