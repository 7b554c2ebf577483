package main

import (
	"context"
	"errors"

	"pocket-calculator/internal/calculator"
	"pocket-calculator/internal/config"
	"pocket-calculator/internal/observability"
)

// initTelemetry initialises tracing, metric providers, the calculator's metric
// instruments and optional OTLP log export. The returned function shuts all
// of them down.
func initTelemetry(ctx context.Context, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	var shutdowns []func(context.Context) error
	shutdownAll := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	for _, start := range []func(context.Context, config.TelemetryConfig) (func(context.Context) error, error){
		observability.InitTracing,
		observability.InitMetrics,
		observability.InitLogging,
	} {
		shutdown, err := start(ctx, cfg)
		if err != nil {
			_ = shutdownAll(ctx)
			return nil, err
		}
		shutdowns = append(shutdowns, shutdown)
	}

	if err := calculator.InitMetrics(); err != nil {
		_ = shutdownAll(ctx)
		return nil, err
	}

	return shutdownAll, nil
}
