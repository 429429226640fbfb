package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"savings/internal/api"
	"savings/internal/cli"
	apphttp "savings/internal/http"
	"savings/internal/log"
	"savings/internal/middleware/ratelimit"
	"savings/internal/services"
	"savings/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	opts := apphttp.DefaultOptions()
	opts.Addr = cfg.Addr()
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	opts.IdleTimeout = cfg.IdleTimeout
	opts.MaxBodyBytes = cfg.MaxBodyBytes
	opts.TrustedProxies = cfg.TrustedProxies
	opts.Logger = logger
	opts.RateLimit = ratelimit.Config{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}

	srv := apphttp.NewServer(opts, api.NewService(), services.NewPerformanceReporter())
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting savings server", "addr", opts.Addr, "worker_enabled", cfg.WorkerEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.WorkerEnabled() {
		g.Go(func() error {
			return worker.Serve(gctx, cfg, logger.WithComponent(log.ComponentWorker))
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Savings server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
