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
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Fit outcomes recorded by RecordFit.
const (
	OutcomeOK               = "ok"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeNoConvergence    = "no_convergence"
	OutcomeError            = "error"
)

// Metrics holds the instruments of a run.
type Metrics struct {
	// RecordsLoaded counts input rows accepted by the loader.
	RecordsLoaded metric.Int64Counter

	// FitsTotal counts fit attempts by model and outcome.
	FitsTotal metric.Int64Counter

	// FitDuration is the wall time of a single fit.
	FitDuration metric.Float64Histogram

	// SkippedGroupsTotal counts comparison groups that produced no row,
	// by comparison ("improvement", "speedup").
	SkippedGroupsTotal metric.Int64Counter

	// ArtifactsWritten counts files written, by kind ("chart", "workbook",
	// "report").
	ArtifactsWritten metric.Int64Counter

	// RunDuration is the wall time of a whole pipeline run, by result.
	RunDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.RecordsLoaded, err = meter.Int64Counter(
		"sortperf_records_loaded_total",
		metric.WithDescription("Benchmark rows loaded"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create records_loaded_total: %w", err)
	}

	m.FitsTotal, err = meter.Int64Counter(
		"sortperf_fits_total",
		metric.WithDescription("Growth model fits by model and outcome"),
		metric.WithUnit("{fit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create fits_total: %w", err)
	}

	m.FitDuration, err = meter.Float64Histogram(
		"sortperf_fit_duration_seconds",
		metric.WithDescription("Duration of a single growth model fit"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("create fit_duration: %w", err)
	}

	m.SkippedGroupsTotal, err = meter.Int64Counter(
		"sortperf_skipped_groups_total",
		metric.WithDescription("Comparison groups skipped for missing counterparts"),
		metric.WithUnit("{group}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create skipped_groups_total: %w", err)
	}

	m.ArtifactsWritten, err = meter.Int64Counter(
		"sortperf_artifacts_written_total",
		metric.WithDescription("Output files written"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create artifacts_written_total: %w", err)
	}

	m.RunDuration, err = meter.Float64Histogram(
		"sortperf_run_duration_seconds",
		metric.WithDescription("Duration of a full analysis run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, fmt.Errorf("create run_duration: %w", err)
	}

	return m, nil
}

// DefaultMetrics creates instruments on the global meter provider. Before
// Init installs a provider the instruments are no-ops.
func DefaultMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(ScopeName))
}

// RecordLoad counts loaded rows.
func (m *Metrics) RecordLoad(ctx context.Context, records int) {
	m.RecordsLoaded.Add(ctx, int64(records))
}

// RecordFit counts one fit attempt and its duration.
func (m *Metrics) RecordFit(ctx context.Context, model, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	)
	m.FitsTotal.Add(ctx, 1, attrs)
	m.FitDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("model", model)))
}

// RecordSkipped counts skipped comparison groups.
func (m *Metrics) RecordSkipped(ctx context.Context, comparison string, n int) {
	if n == 0 {
		return
	}
	m.SkippedGroupsTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("comparison", comparison)))
}

// RecordArtifact counts one written file.
func (m *Metrics) RecordArtifact(ctx context.Context, kind string) {
	m.ArtifactsWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordRun records a finished run. result is "ok" or "failed".
func (m *Metrics) RecordRun(ctx context.Context, result string, d time.Duration) {
	m.RunDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("result", result)))
}
