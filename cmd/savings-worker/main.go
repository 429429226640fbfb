package main

import (
	"os"

	"savings/internal/cli"
	"savings/internal/log"
	"savings/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)

	if !cfg.WorkerEnabled() {
		logger.Error("AMQP_URL is required to run the projection worker",
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := worker.Serve(ctx, cfg, logger); err != nil {
		logger.Error("Projection worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
