package main

import (
	"time"

	"lorrylog/internal/amqp"
	"lorrylog/internal/cli"
	applog "lorrylog/internal/log"
	"lorrylog/internal/services"
)

// rollover-worker creates each new month's log when the calendar turns,
// carrying the closing odometer reading and fuel balance forward.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentRollover)

	logger.Info("Starting rollover-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without publishing", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	logService := services.NewLogService(repo, publisher)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	run := func() {
		month, created, err := logService.Rollover(ctx, time.Now())
		switch {
		case err != nil:
			logger.Error("Rollover failed", "error", err, "month", month)
		case created:
			logger.Info("New month log created", "month", month)
		default:
			logger.Debug("Month log already exists", "month", month)
		}
	}

	// Run once at startup, then on the configured interval. The check is
	// idempotent so a short interval only costs a read.
	run()
	ticker := time.NewTicker(cfg.RolloverInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("Rollover worker shutdown complete")
			return
		case <-ticker.C:
			run()
		}
	}
}
