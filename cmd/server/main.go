package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/lukasbauer/hypoteka/internal/app"
)

const sentryFlushTimeout = 2 * time.Second

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	// Production sets the environment directly; .env is for local runs.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("failed to load .env: %v", err)
	}

	cfg := app.LoadConfigFromEnv()
	reporting := setupSentry(cfg, logger)
	if reporting {
		defer sentry.Flush(sentryFlushTimeout)
	}

	if err := run(cfg, logger); err != nil {
		if reporting {
			sentry.CaptureException(err)
			sentry.Flush(sentryFlushTimeout)
		}
		logger.Fatalf("server: %v", err)
	}
}

// setupSentry reports whether error reporting is active.
func setupSentry(cfg app.Config, logger *log.Logger) bool {
	if cfg.SentryDSN == "" {
		return false
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		logger.Printf("sentry init failed: %v", err)
		return false
	}
	logger.Printf("sentry initialized (%s)", cfg.Environment)
	return true
}

func run(cfg app.Config, logger *log.Logger) error {
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Start()

	serveErr := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Println("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Readiness fails first; in-flight turns then save before the listener closes.
	if err := a.Drain(shutdownCtx); err != nil {
		logger.Printf("drain incomplete: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
	logger.Println("shutdown complete")
	return nil
}
