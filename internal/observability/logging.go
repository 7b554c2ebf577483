package observability

import (
	"context"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pocket-calculator/internal/config"
)

// InitLogging tees Logger into an OTLP log exporter when enabled. Call it
// after InitLogger.
func InitLogging(ctx context.Context, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	if !cfg.OTLPLogs {
		return noopShutdown, nil
	}

	exporter, err := otlploghttp.New(ctx)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(
			sdklog.NewBatchProcessor(exporter),
		),
	)

	otelCore := otelzap.NewCore(cfg.ServiceName, otelzap.WithLoggerProvider(provider))

	// Logs go to both stdout and the OTLP endpoint.
	Logger = zap.New(zapcore.NewTee(Logger.Core(), otelCore))

	return provider.Shutdown, nil
}
