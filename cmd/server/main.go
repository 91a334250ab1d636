package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"drone-fleet/config"
	"drone-fleet/internal/observability"
)

func main() {
	logger := observability.NewLogger(slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inst, shutdownTelemetry, err := observability.Init(ctx, observability.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		Environment:  cfg.Telemetry.Environment,
		TraceStdout:  cfg.Telemetry.TraceStdout,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		logger.Error("failed to init telemetry", slog.String("error", err.Error()))
		os.Exit(1)
	}

	app, err := wireApp(ctx, cfg, logger, inst)
	if err != nil {
		logger.Error("failed to wire app", slog.String("error", err.Error()))
		os.Exit(1)
	}

	app.setupRoutes()

	if app.Dispatcher != nil {
		if err := app.Dispatcher.Start(); err != nil {
			logger.Error("failed to start dispatcher", slog.String("error", err.Error()))
			app.Close()
			os.Exit(1)
		}
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: app.Router,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	if err := app.Close(); err != nil {
		logger.Error("close resources", slog.String("error", err.Error()))
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown", slog.String("error", err.Error()))
	}

	logger.Info("shutdown complete")
}
