package calculator

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"pocket-calculator/internal/engine"
)

// Metric instruments, initialized once via InitMetrics().
var (
	keystrokeCounter metric.Int64Counter
	evalCounter      metric.Int64Counter
	evalHistogram    metric.Float64Histogram
	errorCounter     metric.Int64Counter
	resultGauge      metric.Float64Gauge
	sessionsGauge    metric.Int64UpDownCounter
)

// InitMetrics registers custom OTel metric instruments for the calculator domain.
// Call this once at startup (after observability.InitMetrics).
func InitMetrics() error {
	meter := otel.Meter("calculator")

	var err error

	keystrokeCounter, err = meter.Int64Counter("calculator.keystrokes.total",
		metric.WithDescription("Total number of keypad events applied to sessions"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return fmt.Errorf("creating keystroke counter: %w", err)
	}

	evalCounter, err = meter.Int64Counter("calculator.evaluations.total",
		metric.WithDescription("Total number of evaluations by terminal state"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return fmt.Errorf("creating evaluation counter: %w", err)
	}

	evalHistogram, err = meter.Float64Histogram("calculator.evaluation.duration",
		metric.WithDescription("Duration of expression evaluations in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return fmt.Errorf("creating evaluation histogram: %w", err)
	}

	errorCounter, err = meter.Int64Counter("calculator.errors.total",
		metric.WithDescription("Total number of rejected calculator requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating error counter: %w", err)
	}

	resultGauge, err = meter.Float64Gauge("calculator.last_result",
		metric.WithDescription("The last finite evaluation result"),
	)
	if err != nil {
		return fmt.Errorf("creating result gauge: %w", err)
	}

	sessionsGauge, err = meter.Int64UpDownCounter("calculator.sessions.active",
		metric.WithDescription("Number of calculator sessions held in memory"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return fmt.Errorf("creating sessions gauge: %w", err)
	}

	return nil
}

func recordKeystroke(ctx context.Context, kind engine.EventKind) {
	keystrokeCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind.String())))
}

func recordEvaluation(ctx context.Context, opName string, res engine.Result, elapsedMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("operation", opName),
		attribute.String("state", string(res.State)),
	)
	evalCounter.Add(ctx, 1, attrs)
	evalHistogram.Record(ctx, elapsedMs, attrs)
	if res.State == engine.StateOK {
		resultGauge.Record(ctx, res.Rounded, metric.WithAttributes(attribute.String("operation", opName)))
	}
}
