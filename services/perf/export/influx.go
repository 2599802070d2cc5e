// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package export pushes analysis results to InfluxDB so runs can be
// compared over time.
//
// One run becomes three measurements, all stamped with the run time and
// tagged with the run ID:
//
//	sortperf_summary  one point per (algorithm, optimization, size)
//	sortperf_fit      one point per (algorithm, model)
//	sortperf_speedup  one point per matched speedup group
package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/AleutianAI/sortperf/pkg/logging"
	"github.com/AleutianAI/sortperf/services/perf/aggregate"
	"github.com/AleutianAI/sortperf/services/perf/fit"
)

// Measurement names.
const (
	MeasurementSummary = "sortperf_summary"
	MeasurementFit     = "sortperf_fit"
	MeasurementSpeedup = "sortperf_speedup"
)

// ErrIncompleteConfig is returned when a required connection setting is
// empty.
var ErrIncompleteConfig = errors.New("export: incomplete InfluxDB configuration")

// Config holds InfluxDB connection settings.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Validate reports the first missing setting.
func (c Config) Validate() error {
	switch {
	case c.URL == "":
		return fmt.Errorf("%w: url", ErrIncompleteConfig)
	case c.Org == "":
		return fmt.Errorf("%w: org", ErrIncompleteConfig)
	case c.Bucket == "":
		return fmt.Errorf("%w: bucket", ErrIncompleteConfig)
	}
	return nil
}

// Results is the data exported for one run.
type Results struct {
	RunID   string
	At      time.Time
	Summary []aggregate.Summary
	Fits    []fit.Outcome
	Speedup *aggregate.SpeedupResult
}

// Sink writes results through a blocking write API.
//
// # Thread Safety
//
// Safe for concurrent use when the underlying write API is.
type Sink struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
	logger *logging.Logger
}

// NewSink connects to InfluxDB. The client is lazy: no request is made
// until Export.
func NewSink(cfg Config, logger *logging.Logger) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	s := NewSinkWithWriter(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), logger)
	s.client = client
	return s, nil
}

// NewSinkWithWriter wraps an existing write API. Close does not close it.
func NewSinkWithWriter(writer api.WriteAPIBlocking, logger *logging.Logger) *Sink {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Sink{writer: writer, logger: logger}
}

// Close releases the client created by NewSink.
func (s *Sink) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// Export writes every result as one batch and returns the point count.
func (s *Sink) Export(ctx context.Context, r Results) (int, error) {
	at := r.At
	if at.IsZero() {
		at = time.Now()
	}
	points := Points(r, at)
	if len(points) == 0 {
		return 0, nil
	}
	if err := s.writer.WritePoint(ctx, points...); err != nil {
		return 0, fmt.Errorf("write %d points to InfluxDB: %w", len(points), err)
	}
	s.logger.Info("Exported results to InfluxDB", "run_id", r.RunID, "points", len(points))
	return len(points), nil
}

// Points converts results to line-protocol points stamped at at.
func Points(r Results, at time.Time) []*write.Point {
	var points []*write.Point
	for _, s := range r.Summary {
		points = append(points, influxdb2.NewPoint(
			MeasurementSummary,
			map[string]string{
				"run_id":       r.RunID,
				"algorithm":    s.Algorithm,
				"optimization": string(s.Optimization),
				"data_size":    strconv.FormatInt(s.DataSize, 10),
			},
			map[string]interface{}{
				"trials":           s.Count,
				"time_mean":        s.TimeMean,
				"time_std":         s.TimeStd,
				"time_min":         s.TimeMin,
				"time_max":         s.TimeMax,
				"comparisons_mean": s.ComparisonsMean,
				"swaps_mean":       s.SwapsMean,
				"memory_mean":      s.MemoryMean,
			},
			at,
		))
	}

	for _, o := range r.Fits {
		fields := map[string]interface{}{
			"converged": o.OK(),
			"points":    len(o.Sizes),
		}
		if o.OK() {
			fields["a"] = o.Result.A
			fields["b"] = o.Result.B
			fields["iterations"] = o.Result.Iterations
			if r2, ok := o.Result.R2.Value(); ok {
				fields["r2"] = r2
			}
		} else {
			fields["reason"] = o.Reason()
		}
		points = append(points, influxdb2.NewPoint(
			MeasurementFit,
			map[string]string{
				"run_id":       r.RunID,
				"algorithm":    o.Algorithm,
				"optimization": string(o.Level),
				"model":        o.Model.Name(),
			},
			fields,
			at,
		))
	}

	if r.Speedup != nil {
		for _, row := range r.Speedup.Rows {
			tags := map[string]string{
				"run_id":    r.RunID,
				"data_size": strconv.FormatInt(row.ID.DataSize, 10),
			}
			if row.ID.Optimization != "" {
				tags["optimization"] = string(row.ID.Optimization)
			}
			points = append(points, influxdb2.NewPoint(
				MeasurementSpeedup,
				tags,
				map[string]interface{}{
					"threads":         r.Speedup.Threads,
					"sequential_time": row.SequentialTime,
					"parallel_time":   row.ParallelTime,
					"speedup":         row.Speedup,
					"efficiency":      row.Efficiency,
				},
				at,
			))
		}
	}
	return points
}
