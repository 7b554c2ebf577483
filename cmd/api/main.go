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

	"go.uber.org/zap"

	"pocket-calculator/internal/calculator"
	"pocket-calculator/internal/config"
	"pocket-calculator/internal/observability"
	"pocket-calculator/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {

	ctx := context.Background()

	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	// Logger
	if err := observability.InitLogger(cfg.Log); err != nil {
		return err
	}
	defer observability.SyncLogger()

	shutdown, err := initTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer shutdown(ctx)

	// Router
	calc, err := calculator.NewHandler(cfg.Calc)
	if err != nil {
		return err
	}
	router := server.NewRouter(calc)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		observability.Logger.Info("server started",
			zap.String("addr", cfg.HTTPAddr),
			zap.Bool("functions", cfg.Calc.Functions),
			zap.Bool("strict_non_finite", cfg.Calc.StrictNonFinite),
			zap.Int("max_sessions", cfg.Calc.MaxSessions),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return waitForShutdown(srv, cfg.ShutdownTimeout, errCh)
}

func waitForShutdown(srv *http.Server, timeout time.Duration, errCh <-chan error) error {

	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-stop:
		observability.Logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return srv.Shutdown(ctx)
}
