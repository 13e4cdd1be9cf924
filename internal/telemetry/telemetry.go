// Package telemetry provides structured logging and tracing helpers shared
// by the orchestrator, gate evaluator, and external-call coordinator.
//
// Tracing failures must never break the pipeline: SafeSetAttributes recovers
// from panics and swallows conversion errors, mirroring the defensive
// attribute-setting helper the pipeline this design is based on always used
// around its OpenTelemetry calls.
package telemetry

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const tracerName = "researchctl"

// InitTracing wires the global tracer provider to an OTLP/gRPC exporter
// when OTEL_EXPORTER_OTLP_ENDPOINT is set. With no endpoint configured the
// global provider is left at its default no-op implementation, so StartSpan
// is always safe to call whether or not an exporter is present. The
// returned shutdown func flushes and closes the exporter; it is a no-op
// when tracing was never enabled.
func InitTracing(ctx context.Context) (func(context.Context) error, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", tracerName)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// StartSpan starts a span named name under the global tracer provider. If no
// exporter was configured, the global provider is a no-op and this is cheap.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name)
}

// SafeSetAttributes sets key/value attributes on span, recovering from any
// panic in attribute conversion and never returning an error to the caller.
func SafeSetAttributes(span trace.Span, kv ...attribute.KeyValue) {
	defer func() {
		_ = recover()
	}()
	if span == nil || !span.IsRecording() {
		return
	}
	span.SetAttributes(kv...)
}

// NewLogger builds the process logger: a JSON core writing to logPath and a
// human-readable console core writing to stdout, combined with zapcore.Tee.
func NewLogger(logPath string) (*zap.SugaredLogger, func(), error) {
	file, closeFile, err := zap.Open(logPath)
	if err != nil {
		return nil, func() {}, err
	}
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	logger := zap.New(zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), file, level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(os.Stdout), level),
	))
	return logger.Sugar(), func() { _ = logger.Sync(); closeFile() }, nil
}
