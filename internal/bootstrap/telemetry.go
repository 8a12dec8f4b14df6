package bootstrap

import (
	"ai-test-agent/internal/config"
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	traceOutputNone   = "none"
	traceOutputStdout = "stdout"
)

// registerTracing installs the global tracer provider. TRACE_OUTPUT selects
// where spans go: nowhere, stdout, or a file path.
func registerTracing(lc fx.Lifecycle, config *config.Config, logger *zap.Logger) error {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName("ai-test-agent"),
		),
	)
	if err != nil {
		return fmt.Errorf("create trace resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	var sink io.Closer

	switch output := config.AppConfig.TraceOutput; output {
	case "", traceOutputNone:
	default:
		var w io.Writer = os.Stdout

		if output != traceOutputStdout {
			f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open trace output %s: %w", output, err)
			}

			w, sink = f, f
		}

		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(w),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}

		opts = append(opts, sdktrace.WithBatcher(exporter))

		logger.Debug("Trace export enabled", zap.String("output", output))
	}

	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			err := tp.Shutdown(ctx)

			if sink != nil {
				if closeErr := sink.Close(); closeErr != nil && err == nil {
					err = closeErr
				}
			}

			return err
		},
	})

	return nil
}
