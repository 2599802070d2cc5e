// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_METRICS_EXPORTER", "")

	cfg := DefaultConfig()
	assert.Equal(t, "sortperf", cfg.ServiceName)
	assert.Equal(t, ExporterNone, cfg.TraceExporter)
	assert.Equal(t, ExporterNone, cfg.MetricExporter)
	assert.True(t, cfg.OTLPInsecure)
}

func TestDefaultConfig_EnvOverride(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "stdout")
	assert.Equal(t, ExporterStdout, DefaultConfig().TraceExporter)
}

func TestInit_NilContext(t *testing.T) {
	_, err := Init(nil, Config{})
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestInit_NoopExporters(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{TraceExporter: ExporterNone, MetricExporter: ExporterNone})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), Config{TraceExporter: "jaeger"})
	assert.True(t, errors.Is(err, ErrUnknownExporter))

	_, err = Init(context.Background(), Config{MetricExporter: "otlp"})
	assert.True(t, errors.Is(err, ErrUnknownExporter))
}

func TestInit_PrometheusNeedsTextfile(t *testing.T) {
	_, err := Init(context.Background(), Config{MetricExporter: ExporterPrometheus})
	assert.True(t, errors.Is(err, ErrMissingTextfile))
}

func TestInit_StdoutTraceExporter(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{
		ServiceName:   "sortperf-test",
		TraceExporter: ExporterStdout,
		Writer:        &buf,
	})
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "pipeline.Run")
	assert.NotEmpty(t, TraceID(ctx))
	SetSpanOK(span)
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "pipeline.Run")
}

func TestInit_MeterFailureReleasesTracer(t *testing.T) {
	var buf bytes.Buffer
	_, err := Init(context.Background(), Config{
		TraceExporter:  ExporterStdout,
		MetricExporter: "statsd",
		Writer:         &buf,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownExporter))

	_, span := StartSpan(context.Background(), "after.failure")
	assert.False(t, span.IsRecording())
	span.End()
	assert.Empty(t, buf.String())
}

func TestInit_OTLPTraceExporter(t *testing.T) {
	// The gRPC connection is lazy, so Init succeeds without a collector.
	shutdown, err := Init(context.Background(), Config{
		ServiceName:   "sortperf-test",
		TraceExporter: ExporterOTLP,
		OTLPEndpoint:  "127.0.0.1:4317",
		OTLPInsecure:  true,
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

func TestInit_PrometheusTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sortperf.prom")
	shutdown, err := Init(context.Background(), Config{
		ServiceName:        "sortperf-test",
		MetricExporter:     ExporterPrometheus,
		PrometheusTextfile: path,
	})
	require.NoError(t, err)

	m, err := DefaultMetrics()
	require.NoError(t, err)
	m.RecordFit(context.Background(), "nlogn", OutcomeOK, 3*time.Millisecond)
	m.RecordLoad(context.Background(), 42)

	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sortperf_fits")
	assert.Contains(t, string(data), "sortperf_records_loaded")
}

func TestInit_StdoutMetricExporter(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{MetricExporter: ExporterStdout, Writer: &buf})
	require.NoError(t, err)

	m, err := DefaultMetrics()
	require.NoError(t, err)
	m.RecordArtifact(context.Background(), "chart")

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "sortperf_artifacts_written_total")
}

// =============================================================================
// Metrics
// =============================================================================

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMetrics_RecordFit(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordFit(ctx, "nlogn", OutcomeOK, time.Millisecond)
	m.RecordFit(ctx, "nlogn", OutcomeOK, time.Millisecond)
	m.RecordFit(ctx, "n2", OutcomeNoConvergence, time.Millisecond)
	m.RecordSkipped(ctx, "improvement", 0)
	m.RecordSkipped(ctx, "speedup", 3)

	data := collect(t, reader)

	fits, ok := data["sortperf_fits_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	counts := make(map[string]int64)
	for _, dp := range fits.DataPoints {
		model, _ := dp.Attributes.Value(attribute.Key("model"))
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		counts[model.AsString()+"/"+outcome.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"nlogn/ok": 2, "n2/no_convergence": 1}, counts)

	skipped, ok := data["sortperf_skipped_groups_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, skipped.DataPoints, 1)
	assert.Equal(t, int64(3), skipped.DataPoints[0].Value)
}

// =============================================================================
// Span helpers
// =============================================================================

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer("test").Start(context.Background(), "fit")
	RecordError(span, errors.New("no convergence"), attribute.String("model", "n2"))
	AddSpanEvent(span, "fit.skipped")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "no convergence", spans[0].Status().Description)
	assert.Len(t, spans[0].Events(), 2)

	RecordError(nil, errors.New("ignored"))
	RecordError(span, nil)
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
