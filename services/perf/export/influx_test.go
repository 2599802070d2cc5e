// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package export

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/sortperf/services/perf/aggregate"
	"github.com/AleutianAI/sortperf/services/perf/dataset"
	"github.com/AleutianAI/sortperf/services/perf/fit"
)

// --- Mock InfluxDB WriteAPIBlocking ---

type MockWriteAPI struct {
	WritePointFunc func(ctx context.Context, point ...*write.Point) error
	WrittenPoints  []*write.Point
}

func (m *MockWriteAPI) WritePoint(ctx context.Context, point ...*write.Point) error {
	m.WrittenPoints = append(m.WrittenPoints, point...)
	if m.WritePointFunc != nil {
		return m.WritePointFunc(ctx, point...)
	}
	return nil
}

func (m *MockWriteAPI) WriteRecord(ctx context.Context, line ...string) error { return nil }
func (m *MockWriteAPI) EnableBatching()                                        {}
func (m *MockWriteAPI) Flush(ctx context.Context) error                        { return nil }

// --- Fixtures ---

func sampleResults() Results {
	fitter := fit.NewFitter(fit.MethodNewton, 0)
	return Results{
		RunID: "run-1",
		At:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Summary: []aggregate.Summary{{
			Algorithm: dataset.QuickSortRecursive, Optimization: dataset.LevelO2, DataSize: 1000,
			Count: 3, TimeMean: 0.001,
		}},
		Fits: []fit.Outcome{
			fitter.FitSeries(dataset.QuickSortRecursive, dataset.LevelO2,
				[]float64{1000, 10000, 100000}, []float64{0.001, 0.015, 0.18}, fit.NLogN),
			fitter.FitSeries(dataset.QuickSortRecursive, dataset.LevelO2,
				[]float64{1000}, []float64{0.001}, fit.NSquared),
		},
		Speedup: &aggregate.SpeedupResult{
			Threads: 4,
			Rows: []aggregate.Speedup{{
				ID:             aggregate.GroupID{DataSize: 1000},
				SequentialTime: 0.004, ParallelTime: 0.002, Speedup: 2, Efficiency: 0.5,
			}},
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	full := Config{URL: "http://localhost:8086", Org: "perf", Bucket: "sorting"}
	assert.NoError(t, full.Validate())

	for _, cfg := range []Config{
		{Org: "perf", Bucket: "sorting"},
		{URL: "http://localhost:8086", Bucket: "sorting"},
		{URL: "http://localhost:8086", Org: "perf"},
	} {
		assert.True(t, errors.Is(cfg.Validate(), ErrIncompleteConfig))
	}

	_, err := NewSink(Config{}, nil)
	assert.True(t, errors.Is(err, ErrIncompleteConfig))
}

func TestPoints(t *testing.T) {
	r := sampleResults()
	points := Points(r, r.At)
	require.Len(t, points, 4)

	assert.Equal(t, MeasurementSummary, points[0].Name())
	assert.Equal(t, MeasurementFit, points[1].Name())
	assert.Equal(t, MeasurementFit, points[2].Name())
	assert.Equal(t, MeasurementSpeedup, points[3].Name())

	fields := func(p *write.Point) map[string]interface{} {
		out := make(map[string]interface{})
		for _, f := range p.FieldList() {
			out[f.Key] = f.Value
		}
		return out
	}
	assert.Equal(t, true, fields(points[1])["converged"])
	assert.Contains(t, fields(points[1]), "r2")
	assert.Equal(t, false, fields(points[2])["converged"])
	assert.Equal(t, "insufficient data", fields(points[2])["reason"])
	for _, p := range points {
		assert.Equal(t, r.At, p.Time())
	}
}

func TestExport_MockWriter(t *testing.T) {
	mock := &MockWriteAPI{}
	sink := NewSinkWithWriter(mock, nil)
	defer sink.Close()

	n, err := sink.Export(context.Background(), sampleResults())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, mock.WrittenPoints, 4)
}

func TestExport_WriteError(t *testing.T) {
	mock := &MockWriteAPI{WritePointFunc: func(ctx context.Context, point ...*write.Point) error {
		return errors.New("connection refused")
	}}
	_, err := NewSinkWithWriter(mock, nil).Export(context.Background(), sampleResults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestExport_NothingToWrite(t *testing.T) {
	mock := &MockWriteAPI{}
	n, err := NewSinkWithWriter(mock, nil).Export(context.Background(), Results{RunID: "empty"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, mock.WrittenPoints)
}

func TestExport_HTTP(t *testing.T) {
	var (
		mu    sync.Mutex
		body  string
		query map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/write" {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = string(data)
		query = map[string]string{
			"org":    r.URL.Query().Get("org"),
			"bucket": r.URL.Query().Get("bucket"),
		}
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink, err := NewSink(Config{URL: srv.URL, Token: "secret", Org: "perf", Bucket: "sorting"}, nil)
	require.NoError(t, err)
	defer sink.Close()

	n, err := sink.Export(context.Background(), sampleResults())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]string{"org": "perf", "bucket": "sorting"}, query)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0],
		"sortperf_summary,algorithm=QuickSort_Recursive,data_size=1000,optimization=O2,run_id=run-1 "), lines[0])
	assert.True(t, strings.HasPrefix(lines[1],
		"sortperf_fit,algorithm=QuickSort_Recursive,model=nlogn,optimization=O2,run_id=run-1 "), lines[1])
	assert.True(t, strings.HasPrefix(lines[3], "sortperf_speedup,data_size=1000,run_id=run-1 "), lines[3])
}

func TestExport_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid","message":"bucket not found"}`))
	}))
	defer srv.Close()

	sink, err := NewSink(Config{URL: srv.URL, Org: "perf", Bucket: "missing"}, nil)
	require.NoError(t, err)
	defer sink.Close()

	_, err = sink.Export(context.Background(), sampleResults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket not found")
}
