package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codebundle/internal/api"
	"codebundle/internal/config"
	"codebundle/internal/history"
	"codebundle/internal/logging"
	"codebundle/internal/middleware"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.ConfigPath(), "config file (JSON or YAML)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.Database.Path, 0755); err != nil {
		logger.Fatal("failed to create database directory", zap.Error(err))
	}

	// Run history
	hist, err := history.Open(history.Options{Path: cfg.Database.Path, CacheSize: 256})
	if err != nil {
		logger.Fatal("failed to open run history", zap.Error(err))
	}
	defer hist.Close()

	if cfg.Database.Keep > 0 {
		if n, err := hist.Prune(cfg.Database.Keep); err != nil {
			logger.Warn("failed to prune run history", zap.Error(err))
		} else {
			logger.Info("pruned run history", zap.Int("removed", n))
		}
	}

	// Set up router
	mux := http.NewServeMux()
	api.NewBundleHandler(cfg, afero.NewOsFs(), hist, logger).Register(mux)

	// Apply middleware
	handler := middleware.Chain(
		mux,
		middleware.Recover(logger),
		middleware.AccessLog(logger),
		middleware.RequestID,
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	// Start server
	logger.Info("starting server",
		zap.String("address", srv.Addr),
		zap.String("environment", cfg.Environment))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}
