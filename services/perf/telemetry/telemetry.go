// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry sets up OpenTelemetry tracing and metrics for a
// sortperf run.
//
// A run is a short-lived batch, so nothing is scraped or pushed while it
// executes. Spans and metrics are flushed when the shutdown function
// returned by Init is called:
//
//   - trace exporter "stdout" prints finished spans as JSON;
//   - trace exporter "otlp" sends spans over gRPC to a collector or Jaeger;
//   - metric exporter "stdout" prints the final metric snapshot as JSON;
//   - metric exporter "prometheus" writes the snapshot in the Prometheus
//     text format to a file, for node_exporter's textfile collector.
//
// # Usage
//
//	shutdown, err := telemetry.Init(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(ctx)
//
//	metrics, err := telemetry.NewMetrics(otel.Meter(telemetry.ScopeName))
//
// # Thread Safety
//
// Init installs global providers and must be called once, before any
// goroutine starts spans. Metrics and the span helpers are safe for
// concurrent use.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ScopeName is the instrumentation scope of sortperf tracers and meters.
const ScopeName = "github.com/AleutianAI/sortperf"

// Exporter names accepted in Config.
const (
	ExporterNone       = "none"
	ExporterStdout     = "stdout"
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
)

var (
	// ErrNilContext is returned by Init when ctx is nil.
	ErrNilContext = errors.New("telemetry: nil context")

	// ErrUnknownExporter is returned for an unsupported exporter name.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter")

	// ErrMissingTextfile is returned when the prometheus exporter is
	// selected without a textfile path.
	ErrMissingTextfile = errors.New("telemetry: prometheus exporter needs a textfile path")
)

// Config selects exporters.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// TraceExporter is "none", "stdout" or "otlp".
	TraceExporter string

	// OTLPEndpoint is the host:port of the OTLP gRPC receiver.
	OTLPEndpoint string

	// OTLPInsecure disables TLS for the OTLP connection.
	OTLPInsecure bool

	// MetricExporter is "none", "stdout" or "prometheus".
	MetricExporter string

	// PrometheusTextfile is the output path for the prometheus exporter.
	PrometheusTextfile string

	// Writer receives stdout exporter output. Nil means os.Stderr, which
	// keeps stdout free for the report.
	Writer io.Writer
}

// DefaultConfig disables both exporters. Exporters can be enabled with
// the standard OTEL_TRACES_EXPORTER and OTEL_METRICS_EXPORTER variables.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "sortperf",
		ServiceVersion: "1.0.0",
		TraceExporter:  getEnvOr("OTEL_TRACES_EXPORTER", ExporterNone),
		MetricExporter: getEnvOr("OTEL_METRICS_EXPORTER", ExporterNone),
		OTLPEndpoint:   getEnvOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure:   true,
	}
}

// Init installs the global tracer and meter providers.
//
// # Outputs
//
//   - shutdown: Flushes exporters, writes the Prometheus textfile when
//     configured, and releases providers. Always non-nil on success.
//   - err: ErrNilContext, ErrUnknownExporter or ErrMissingTextfile
//     (wrapped), or an exporter construction error. On error every
//     provider already started is shut down and the global tracer
//     provider is reset to a no-op.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	var shutdownFuncs []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdownFuncs {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	if cfg.TraceExporter != "" && cfg.TraceExporter != ExporterNone {
		tp, err := initTracer(ctx, cfg, res, w)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		otel.SetTracerProvider(tp)
		shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	}

	if cfg.MetricExporter != "" && cfg.MetricExporter != ExporterNone {
		fns, err := initMeter(cfg, res, w)
		if err != nil {
			if len(shutdownFuncs) > 0 {
				otel.SetTracerProvider(tracenoop.NewTracerProvider())
			}
			return nil, errors.Join(fmt.Errorf("init meter: %w", err), shutdown(ctx))
		}
		shutdownFuncs = append(shutdownFuncs, fns...)
	}

	return shutdown, nil
}

func initTracer(ctx context.Context, cfg Config, res *resource.Resource, w io.Writer) (*trace.TracerProvider, error) {
	var (
		exporter trace.SpanExporter
		err      error
	)
	switch cfg.TraceExporter {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)

	case ExporterStdout:
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}

	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.AlwaysSample()),
	), nil
}

// initMeter installs the meter provider and returns its shutdown steps in
// order.
func initMeter(cfg Config, res *resource.Resource, w io.Writer) ([]func(context.Context) error, error) {
	switch cfg.MetricExporter {
	case ExporterStdout:
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		mp := metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(exporter)),
		)
		otel.SetMeterProvider(mp)
		return []func(context.Context) error{mp.Shutdown}, nil

	case ExporterPrometheus:
		if cfg.PrometheusTextfile == "" {
			return nil, ErrMissingTextfile
		}
		registry := prometheus.NewRegistry()
		exporter, err := promexporter.New(
			promexporter.WithRegisterer(registry),
			promexporter.WithoutUnits(),
		)
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		mp := metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(exporter),
		)
		otel.SetMeterProvider(mp)
		writeTextfile := func(context.Context) error {
			if err := prometheus.WriteToTextfile(cfg.PrometheusTextfile, registry); err != nil {
				return fmt.Errorf("write prometheus textfile: %w", err)
			}
			return nil
		}
		return []func(context.Context) error{writeTextfile, mp.Shutdown}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.MetricExporter)
	}
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
