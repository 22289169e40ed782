package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecdemo/internal/metrics"
	chiTransport "github.com/kailas-cloud/vecdemo/internal/transport/chi"
	"github.com/kailas-cloud/vecdemo/internal/version"
)

func runServe(ctx context.Context, env, configPath string) error {
	a, err := buildApp(ctx, env, configPath)
	if err != nil {
		return err
	}
	logger := a.logger
	cfg := a.cfg

	logger.Info("Starting vecdemo API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("text_index", cfg.Search.Text.Index),
		zap.Bool("image_enabled", a.image != nil),
		zap.Bool("tracing_enabled", a.tracing.Enabled()),
	)

	checkCtx, cancelCheck := context.WithTimeout(ctx, 10*time.Second)
	a.checkIndexes(checkCtx)
	cancelCheck()

	metrics.RegisterHTTPMetrics()

	serverCfg := chiTransport.Config{
		Text:          a.text,
		Registry:      a.registry,
		Health:        a.health,
		DefaultFilter: cfg.Search.Text.DefaultFilter,
		Logger:        logger,
	}
	// Pass nil interface (not typed nil pointer!) when image search is off.
	if a.image != nil {
		serverCfg.Image = a.image
	}
	server := chiTransport.NewServer(serverCfg)

	handler := server.Handler(
		chiTransport.JSONRecoverer(logger),
		chiMiddleware.RequestID,
		chiTransport.TracingMiddleware(a.tracing.Tracer()),
		chiTransport.WideEventMiddleware(logger),
		chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys),
		metrics.Middleware(),
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-serveErr:
		if err != nil {
			logger.Error("HTTP server error", zap.Error(err))
			a.close(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	logger.Info("Server stopped gracefully")
	a.close(shutdownCtx)
	return nil
}
