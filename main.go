package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/SigNoz/pcparts-store/internal/bootstrap"
	"github.com/SigNoz/pcparts-store/internal/logger"
	"github.com/SigNoz/pcparts-store/pkg/config"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	zl, err := logger.Init(cfg.LogLevel, cfg.AppEnv, cfg.OTELServiceName)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	if err := cfg.Validate(); err != nil {
		zl.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx := context.Background()
	rt, err := bootstrap.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("Failed to start application", zap.Error(err))
	}
	defer rt.Shutdown(context.Background())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      rt.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		zl.Info("Server starting",
			zap.String("port", cfg.AppPort),
			zap.String("backend", cfg.StoreBackend),
			zap.Bool("metrics", cfg.MetricsEnabled),
			zap.String("otlp_endpoint", cfg.OTELExporterOTLPEndpoint))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	zl.Info("Server exited")
}
