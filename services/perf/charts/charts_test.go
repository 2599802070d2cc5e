// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package charts

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/sortperf/pkg/logging"
	"github.com/AleutianAI/sortperf/services/perf/aggregate"
	"github.com/AleutianAI/sortperf/services/perf/dataset"
	"github.com/AleutianAI/sortperf/services/perf/fit"
)

var testSizes = []int64{1000, 5000, 10000, 50000, 100000}

// benchTable builds records for every algorithm, level and size with
// n·log n shaped times.
func benchTable(levels ...dataset.Level) *dataset.Table {
	algorithms := []string{
		dataset.QuickSortRecursive,
		dataset.QuickSortNonRecursive,
		dataset.MergeSortSequential,
		dataset.MergeSortParallel,
	}
	var records []dataset.Record
	for li, level := range levels {
		for ai, alg := range algorithms {
			for _, n := range testSizes {
				cost := 1e-8 * float64(ai+1) / float64(li+1)
				f := float64(n)
				records = append(records, dataset.Record{
					Row:          len(records),
					Algorithm:    alg,
					Optimization: level,
					DataSize:     n,
					TimeSeconds:  cost*f*math.Log(f) + 1e-4,
					Comparisons:  int64(f * math.Log2(f)),
					Swaps:        int64(f * math.Log2(f) / 2),
					MemoryBytes:  n * 8,
				})
			}
		}
	}
	return dataset.NewTable(records)
}

func newTestRenderer(t *testing.T, formats ...string) (*Renderer, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "charts")
	r, err := NewRenderer(Config{Dir: dir, Formats: formats, WidthIn: 4, HeightIn: 3}, logging.Nop())
	require.NoError(t, err)
	return r, dir
}

func requireFiles(t *testing.T, paths []string, want int) {
	t.Helper()
	require.Len(t, paths, want)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Greater(t, info.Size(), int64(0), p)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"png": FormatPNG, " SVG ": FormatSVG, "Pdf": FormatPDF} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("gif")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestNewRenderer_Defaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r, err := NewRenderer(Config{Dir: dir, Formats: []string{"png", "PNG", "svg"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatPNG, FormatSVG}, r.Formats())
	assert.DirExists(t, dir)

	_, err = NewRenderer(Config{}, nil)
	assert.Error(t, err)
	_, err = NewRenderer(Config{Dir: dir, Formats: []string{"bmp"}}, nil)
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestRenderer_AllViews(t *testing.T) {
	r, dir := newTestRenderer(t, "png", "svg")
	tbl := benchTable(dataset.LevelO0, dataset.LevelO2, dataset.LevelO3)
	ctx := context.Background()

	paths, err := r.TimeVsSize(ctx, tbl, dataset.LevelO2)
	require.NoError(t, err)
	requireFiles(t, paths, 2)
	assert.FileExists(t, filepath.Join(dir, ViewTimeVsSize+".png"))
	assert.FileExists(t, filepath.Join(dir, ViewTimeVsSize+".svg"))

	paths, err = r.OptimizationImpact(ctx, tbl)
	require.NoError(t, err)
	requireFiles(t, paths, 2)

	paths, err = r.AlgorithmComparison(ctx, tbl, dataset.LevelO2)
	require.NoError(t, err)
	requireFiles(t, paths, 2)

	fitter := fit.NewFitter(fit.MethodNewton, 0)
	var outcomes []fit.Outcome
	atO2 := tbl.WhereLevel(dataset.LevelO2)
	for _, alg := range atO2.Algorithms() {
		xs, ys := aggregate.SizeSeries(atO2.WhereAlgorithm(alg), dataset.MetricTime)
		for _, m := range fit.Models() {
			outcomes = append(outcomes, fitter.FitSeries(alg, dataset.LevelO2, xs, ys, m))
		}
	}
	paths, err = r.Complexity(ctx, tbl, dataset.LevelO2, outcomes)
	require.NoError(t, err)
	requireFiles(t, paths, 2)

	seq := tbl.WhereAlgorithm(dataset.MergeSortSequential).WhereLevel(dataset.LevelO2)
	par := tbl.WhereAlgorithm(dataset.MergeSortParallel).WhereLevel(dataset.LevelO2)
	speedup, err := aggregate.ComputeSpeedup(seq, par, []aggregate.Field{aggregate.FieldDataSize}, 4)
	require.NoError(t, err)
	paths, err = r.ParallelEfficiency(ctx, speedup, dataset.LevelO2)
	require.NoError(t, err)
	requireFiles(t, paths, 2)
}

func TestRenderer_PDF(t *testing.T) {
	r, dir := newTestRenderer(t, "pdf")
	paths, err := r.TimeVsSize(context.Background(), benchTable(dataset.LevelO2), dataset.LevelO2)
	require.NoError(t, err)
	requireFiles(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, ViewTimeVsSize+".pdf"), paths[0])
}

func TestOptimizationImpact_SingleLevelDegrades(t *testing.T) {
	buf := logging.NewBufferedExporter()
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Quiet: true, Exporter: buf})
	dir := filepath.Join(t.TempDir(), "charts")
	r, err := NewRenderer(Config{Dir: dir, Formats: []string{"png"}, WidthIn: 4, HeightIn: 3}, logger)
	require.NoError(t, err)

	paths, err := r.OptimizationImpact(context.Background(), benchTable(dataset.LevelO0))
	require.NoError(t, err)
	requireFiles(t, paths, 1)
	assert.Len(t, buf.EntriesAt(logging.LevelWarn), 1)
}

func TestComplexity_FailedFitKeepsRawPoints(t *testing.T) {
	r, _ := newTestRenderer(t, "png")
	records := []dataset.Record{
		{Row: 0, Algorithm: dataset.QuickSortRecursive, Optimization: dataset.LevelO2, DataSize: 1000, TimeSeconds: 0.001},
		{Row: 1, Algorithm: dataset.QuickSortRecursive, Optimization: dataset.LevelO2, DataSize: 2000, TimeSeconds: 0.002},
	}
	tbl := dataset.NewTable(records)
	out := fit.NewFitter(fit.MethodNewton, 0).FitSeries(dataset.QuickSortRecursive, dataset.LevelO2,
		[]float64{1000, 2000}, []float64{0.001, 0.002}, fit.NLogN)
	require.False(t, out.OK())

	paths, err := r.Complexity(context.Background(), tbl, dataset.LevelO2, []fit.Outcome{out})
	require.NoError(t, err)
	requireFiles(t, paths, 1)
}

func TestParallelEfficiency_NoRows(t *testing.T) {
	r, _ := newTestRenderer(t, "svg")
	paths, err := r.ParallelEfficiency(context.Background(), aggregate.SpeedupResult{Threads: 4}, dataset.LevelO2)
	require.NoError(t, err)
	requireFiles(t, paths, 1)
}

func TestEfficiencyPanels_LabelledWithLevel(t *testing.T) {
	tbl := benchTable(dataset.LevelO0, dataset.LevelO2)
	seq := tbl.WhereAlgorithm(dataset.MergeSortSequential).WhereLevel(dataset.LevelO2)
	par := tbl.WhereAlgorithm(dataset.MergeSortParallel).WhereLevel(dataset.LevelO2)
	speedup, err := aggregate.ComputeSpeedup(seq, par, []aggregate.Field{aggregate.FieldDataSize}, 4)
	require.NoError(t, err)
	require.NotEmpty(t, speedup.Rows)

	panels, err := efficiencyPanels(speedup, dataset.LevelO2)
	require.NoError(t, err)
	require.Len(t, panels, 2)
	assert.Equal(t, "Parallel speedup (O2)", panels[0].Title.Text)
	assert.Equal(t, "Parallel efficiency (O2, 4 threads)", panels[1].Title.Text)
	for _, pn := range panels {
		assert.NotContains(t, pn.Title.Text, "all levels")
		assert.Equal(t, 1, pn.series)
	}
}

func TestSave_CanceledContext(t *testing.T) {
	r, _ := newTestRenderer(t, "png")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.TimeVsSize(ctx, benchTable(dataset.LevelO2), dataset.LevelO2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogFriendly(t *testing.T) {
	assert.True(t, logFriendly([]float64{1, 10}))
	assert.False(t, logFriendly([]float64{1}))
	assert.False(t, logFriendly([]float64{0, 10}))
	assert.False(t, logFriendly([]float64{5, 5}))
	assert.False(t, logFriendly([]float64{-1, 10}))
}

func TestLogSpace(t *testing.T) {
	xs := logSpace(10, 1000, 3)
	require.Len(t, xs, 3)
	assert.InDelta(t, 10, xs[0], 1e-9)
	assert.InDelta(t, 100, xs[1], 1e-9)
	assert.Equal(t, 1000.0, xs[2])
	assert.Equal(t, []float64{7}, logSpace(7, 7, 10))
}

func TestGridSize(t *testing.T) {
	tests := []struct{ n, rows, cols int }{
		{0, 1, 1}, {1, 1, 1}, {2, 1, 2}, {3, 2, 2}, {4, 2, 2}, {5, 3, 2},
	}
	for _, tt := range tests {
		rows, cols := gridSize(tt.n, 2)
		assert.Equal(t, tt.rows, rows, "n=%d", tt.n)
		assert.Equal(t, tt.cols, cols, "n=%d", tt.n)
	}
}
