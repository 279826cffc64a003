package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/daywise/internal/api"
	"github.com/terra-clan/daywise/internal/cleanup"
	"github.com/terra-clan/daywise/internal/config"
	"github.com/terra-clan/daywise/internal/health"
	"github.com/terra-clan/daywise/internal/logging"
	"github.com/terra-clan/daywise/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the roadmap HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireLLM(); err != nil {
		return err
	}

	_, logCloser := logging.Setup(cfg.Log)
	defer logCloser.Close()

	slog.Info("starting daywise",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Backend,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	repo, err := openRepository(initCtx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		return err
	}
	defer repo.Close()

	loader, prompts, err := loadTemplates(cfg.Templates, "")
	if err != nil {
		return err
	}

	generator, gemini, err := newAgent(initCtx, cfg, prompts)
	if err != nil {
		slog.Error("failed to create generation agent", "error", err)
		return err
	}

	roadmaps, err := store.New(initCtx, repo, generator, store.WithMaxTargetDays(cfg.Generation.MaxTargetDays))
	if err != nil {
		slog.Error("failed to create roadmap store", "error", err)
		return err
	}

	registry := health.NewRegistry(5 * time.Second)
	registry.Register("storage", health.CheckerFunc(repo.Ping))
	registry.Register("llm", gemini)

	// Create context with cancellation for background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleaner := cleanup.NewCleaner(roadmaps, cfg.Cleanup.Interval, cfg.Cleanup.StaleAfter)
	cleaner.Start(ctx)

	server := api.NewServer(cfg.Server, roadmaps, loader, registry, cfg.Auth.Clients)
	if len(cfg.Auth.Clients) == 0 {
		slog.Warn("no API_KEYS configured, API authentication is disabled")
	}

	// No write timeout: synchronous generation and the event stream are
	// long-lived; other routes are bounded by the router's timeout.
	httpServer := &http.Server{
		Addr:              cfg.Address(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal or a server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-quit:
	case runErr = <-serveErr:
		slog.Error("HTTP server error", "error", runErr)
	}

	slog.Info("shutting down gracefully...")

	cancel()
	<-cleaner.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Cancels background generations and ends event streams
	roadmaps.Close()

	slog.Info("daywise stopped")
	return runErr
}
