// Package cli provides common CLI initialization utilities shared by
// cmd/savings and cmd/savings-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"savings/internal/config"
	"savings/internal/log"
)

// LoadEnvFile loads the .env file for local development. A missing file is
// fine; a file that exists but cannot be parsed is reported.
func LoadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// SetupLogger initializes structured logging at the given level and sets
// it as the default logger. Unknown levels fall back to info.
func SetupLogger(component, level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Component = component
	cfg.Level, _ = log.ParseLevel(level)

	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// Bootstrap loads .env, reads and validates configuration, and returns the
// configured logger. It exits the process when configuration is invalid.
func Bootstrap(component string) (*config.Config, *log.Logger) {
	envErr := LoadEnvFile()

	cfg := config.Load()
	logger := SetupLogger(component, cfg.LogLevel)

	if envErr != nil {
		logger.Warn("Failed to load .env file", log.FieldError, envErr)
	}
	if err := cfg.Validate(); err != nil {
		logger.WithComponent(log.ComponentConfig).Error("Configuration validation failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg, logger
}

// ErrShutdownSignal is the cancellation cause of a SignalContext stopped by
// SIGINT or SIGTERM.
var ErrShutdownSignal = errors.New("shutdown signal received")

// SignalContext returns a context cancelled on SIGINT or SIGTERM. Calling
// the returned stop function cancels it quietly.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go watchSignals(ctx, cancel, sigs, logger)

	return ctx, func() {
		signal.Stop(sigs)
		cancel(context.Canceled)
	}
}

func watchSignals(ctx context.Context, cancel context.CancelCauseFunc, sigs <-chan os.Signal, logger *log.Logger) {
	select {
	case sig := <-sigs:
		logger.Info("Shutdown started", "signal", sig.String())
		cancel(fmt.Errorf("%w: %s", ErrShutdownSignal, sig))
	case <-ctx.Done():
	}
}
