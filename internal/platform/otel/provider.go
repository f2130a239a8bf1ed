package otel

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// Setup initialises OpenTelemetry tracing for the given service.
//
// Tracing is opt-in. AR_OTEL_ENDPOINT selects an OTLP/HTTP collector and
// AR_OTEL_EXPORTER=stdout prints spans instead. With neither set, or with
// AR_OTEL_ENABLED=false, Setup registers nothing and returns a no-op shutdown.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if strings.EqualFold(os.Getenv("AR_OTEL_ENABLED"), "false") {
		return noop, nil
	}

	var exporter sdktrace.SpanExporter
	switch {
	case os.Getenv("AR_OTEL_ENDPOINT") != "":
		exporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(os.Getenv("AR_OTEL_ENDPOINT")),
		)
	case strings.EqualFold(os.Getenv("AR_OTEL_EXPORTER"), "stdout"):
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return noop, nil
	}
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
