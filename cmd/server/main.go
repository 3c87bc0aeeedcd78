package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beneficiary/internal/platform/config"
	"beneficiary/internal/platform/httpserver"
	"beneficiary/internal/platform/logger"
	"beneficiary/internal/profile/bootstrap"
)

const shutdownTimeout = 10 * time.Second

// main wires dependencies, serves the admin API and runs the batch
// scheduler until SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.New("info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	log.Info("initializing beneficiary profile service",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"income_policy", cfg.Profile.IncomePolicy,
		"batch_size", cfg.Profile.BatchSize,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := httpserver.New(cfg.Addr, app.Router())

	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	background := make(chan error, 1)
	go func() { background <- app.RunBackground(ctx) }()

	<-ctx.Done()
	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if err := <-background; err != nil && !errors.Is(err, context.Canceled) {
		log.Error("background workers stopped with error", "error", err)
	}

	log.Info("server stopped")
}
