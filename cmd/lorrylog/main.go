package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"lorrylog/internal/amqp"
	"lorrylog/internal/backend"
	"lorrylog/internal/cli"
	apphttp "lorrylog/internal/http"
	applog "lorrylog/internal/log"
	"lorrylog/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	logger.Info("Starting lorrylog")

	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend", "error", err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	logger.Info("Storage backend initialized", "backend", backendCfg.Type.String())

	// AMQP keeps the sheet sync worker fed; without it the periodic sweep
	// is the only sync path.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, sync relies on the pending sweep", "error", err)
		} else {
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - months sync only via the worker's pending sweep")
	}

	logService := services.NewLogService(result.Backend, publisher)
	manifestService := services.NewManifestService(logService)

	srv := apphttp.NewServer(":"+cfg.Port, logService, manifestService)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	logger.Info("Server listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
