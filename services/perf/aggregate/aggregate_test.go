// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package aggregate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/sortperf/services/perf/dataset"
	"github.com/AleutianAI/sortperf/services/perf/perferr"
)

// rec is a compact record constructor for fixtures.
func rec(row int, alg string, level dataset.Level, size int64, seconds float64) dataset.Record {
	return dataset.Record{
		Row:          row,
		Algorithm:    alg,
		Optimization: level,
		DataSize:     size,
		TimeSeconds:  seconds,
		Comparisons:  size * 10,
		Swaps:        size * 5,
		MemoryBytes:  size * 8,
	}
}

const (
	qs = dataset.QuickSortRecursive
	ms = dataset.MergeSortSequential
	mp = dataset.MergeSortParallel
)

// =============================================================================
// GroupBy / MeanBy
// =============================================================================

func TestGroupBy_FirstAppearanceOrder(t *testing.T) {
	table := dataset.NewTable([]dataset.Record{
		rec(0, ms, dataset.LevelO0, 100, 1),
		rec(1, qs, dataset.LevelO0, 100, 2),
		rec(2, ms, dataset.LevelO2, 100, 3),
	})

	groups := GroupBy(table, []Field{FieldAlgorithm})
	require.Len(t, groups, 2)
	assert.Equal(t, ms, groups[0].ID.Algorithm)
	assert.Len(t, groups[0].Records, 2)
	assert.Equal(t, "MergeSort_Sequential", groups[0].ID.String())

	all := GroupBy(table, nil)
	require.Len(t, all, 1)
	assert.Equal(t, "all", all[0].ID.String())
}

func TestMeanBy_AveragesDuplicates(t *testing.T) {
	table := dataset.NewTable([]dataset.Record{
		rec(0, qs, dataset.LevelO2, 1000, 0.010),
		rec(1, qs, dataset.LevelO2, 1000, 0.020),
		rec(2, qs, dataset.LevelO2, 2000, 0.050),
	})

	means := MeanBy(table, []Field{FieldDataSize}, dataset.MetricTime)
	require.Len(t, means, 2)
	assert.InDelta(t, 0.015, means[0].Mean, 1e-15)
	assert.Equal(t, 2, means[0].Count)

	sizes, times := SizeSeries(table, dataset.MetricTime)
	assert.Equal(t, []float64{1000, 2000}, sizes)
	assert.InDelta(t, 0.050, times[1], 1e-15)
}

// =============================================================================
// BestByGroup
// =============================================================================

func TestBestByGroup_WinnerIsMinimum(t *testing.T) {
	records := []dataset.Record{
		rec(0, qs, dataset.LevelO0, 1000, 0.004),
		rec(1, qs, dataset.LevelO2, 1000, 0.001),
		rec(2, qs, dataset.LevelO3, 1000, 0.002),
		rec(3, ms, dataset.LevelO0, 1000, 0.006),
		rec(4, ms, dataset.LevelO2, 1000, 0.003),
		rec(5, qs, dataset.LevelO0, 10000, 0.05),
		rec(6, qs, dataset.LevelOfast, 10000, 0.02),
	}
	table := dataset.NewTable(records)
	fields := []Field{FieldDataSize, FieldAlgorithm}

	best := BestByGroup(table, fields, dataset.MetricTime, Minimize)
	require.Equal(t, 3, best.Len())

	for _, winner := range best.Records() {
		for _, r := range records {
			if KeyOf(r, fields) == KeyOf(winner, fields) {
				assert.LessOrEqual(t, winner.TimeSeconds, r.TimeSeconds,
					"winner row %d beaten by row %d", winner.Row, r.Row)
			}
		}
	}
	assert.Equal(t, []int{1, 4, 6}, rows(best))
}

func TestBestByGroup_TiesGoToLowestRow(t *testing.T) {
	// Rows deliberately out of input order.
	table := dataset.NewTable([]dataset.Record{
		rec(7, qs, dataset.LevelO3, 1000, 0.001),
		rec(2, qs, dataset.LevelO2, 1000, 0.001),
		rec(5, qs, dataset.LevelO1, 1000, 0.001),
		rec(1, qs, dataset.LevelO0, 1000, 0.009),
	})

	best := BestByGroup(table, []Field{FieldAlgorithm}, dataset.MetricTime, Minimize)
	require.Equal(t, 1, best.Len())
	assert.Equal(t, 2, best.At(0).Row)
	assert.Equal(t, dataset.LevelO2, best.At(0).Optimization)
}

func TestBestByGroup_Maximize(t *testing.T) {
	table := dataset.NewTable([]dataset.Record{
		rec(0, qs, dataset.LevelO0, 1000, 0.004),
		rec(1, qs, dataset.LevelO2, 1000, 0.009),
		rec(2, qs, dataset.LevelO3, 1000, 0.009),
	})
	best := BestByGroup(table, []Field{FieldAlgorithm}, dataset.MetricTime, Maximize)
	assert.Equal(t, []int{1}, rows(best))
}

func TestBestByGroup_Empty(t *testing.T) {
	best := BestByGroup(dataset.NewTable(nil), []Field{FieldAlgorithm}, dataset.MetricTime, Minimize)
	assert.Zero(t, best.Len())
}

func rows(t *dataset.Table) []int {
	var out []int
	for _, r := range t.Records() {
		out = append(out, r.Row)
	}
	return out
}

// =============================================================================
// RelativeImprovement
// =============================================================================

func TestRelativeImprovement_Percentages(t *testing.T) {
	table := dataset.NewTable([]dataset.Record{
		rec(0, qs, dataset.LevelO0, 1000, 0.004),
		rec(1, qs, dataset.LevelO0, 1000, 0.006),
		rec(2, qs, dataset.LevelO2, 1000, 0.002),
		rec(3, qs, dataset.LevelO3, 1000, 0.0075),
	})

	res := RelativeImprovement(dataset.LevelO0, table)
	require.Len(t, res.Rows, 2)
	assert.Empty(t, res.Skipped)

	o2 := res.Rows[0]
	assert.Equal(t, dataset.LevelO2, o2.Level)
	assert.InDelta(t, 0.005, o2.BaselineMean, 1e-15)
	assert.InDelta(t, 60.0, o2.Percent, 1e-9)

	o3 := res.Rows[1]
	assert.Equal(t, dataset.LevelO3, o3.Level)
	assert.InDelta(t, -50.0, o3.Percent, 1e-9)
}

func TestRelativeImprovement_IdenticalLevelIsExactlyZero(t *testing.T) {
	times := []float64{0.0123, 0.0456, 0.0789}
	var records []dataset.Record
	for i, s := range times {
		records = append(records,
			rec(2*i, qs, dataset.LevelO0, 1000, s),
			rec(2*i+1, qs, dataset.LevelO1, 1000, s))
	}

	res := RelativeImprovement(dataset.LevelO0, dataset.NewTable(records))
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 0.0, res.Rows[0].Percent)
}

func TestRelativeImprovement_NoBaselineProducesNoRow(t *testing.T) {
	table := dataset.NewTable([]dataset.Record{
		rec(0, qs, dataset.LevelO0, 1000, 0.004),
		rec(1, qs, dataset.LevelO2, 1000, 0.002),
		rec(2, ms, dataset.LevelO2, 1000, 0.003),
		rec(3, ms, dataset.LevelO3, 1000, 0.003),
	})

	res := RelativeImprovement(dataset.LevelO0, table)
	assert.Empty(t, res.ForAlgorithm(ms))
	assert.Len(t, res.ForAlgorithm(qs), 1)

	require.Len(t, res.Skipped, 1)
	skipped := res.Skipped[0]
	assert.Equal(t, GroupID{Algorithm: ms, DataSize: 1000}, skipped.ID)
	assert.True(t, errors.Is(skipped.Reason, perferr.ErrMissingGroup))
	assert.Contains(t, skipped.Reason.Error(), ms)
	assert.Contains(t, skipped.Reason.Error(), "size 1000")
}

func TestRelativeImprovement_ZeroBaselineSkipped(t *testing.T) {
	table := dataset.NewTable([]dataset.Record{
		rec(0, qs, dataset.LevelO0, 10, 0),
		rec(1, qs, dataset.LevelO2, 10, 0.001),
	})
	res := RelativeImprovement(dataset.LevelO0, table)
	assert.Empty(t, res.Rows)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Reason.Error(), "zero mean")
}

func TestRelativeImprovement_OnlyBaseline(t *testing.T) {
	table := dataset.NewTable([]dataset.Record{rec(0, qs, dataset.LevelO0, 10, 0.1)})
	res := RelativeImprovement(dataset.LevelO0, table)
	assert.Empty(t, res.Rows)
	assert.Empty(t, res.Skipped)
}

// =============================================================================
// ComputeSpeedup
// =============================================================================

func TestComputeSpeedup_MatchedGroupsOnly(t *testing.T) {
	seq := dataset.NewTable([]dataset.Record{
		rec(0, ms, dataset.LevelO2, 1000, 0.008),
		rec(1, ms, dataset.LevelO2, 10000, 0.080),
		rec(2, ms, dataset.LevelO2, 100000, 0.9),
	})
	par := dataset.NewTable([]dataset.Record{
		rec(3, mp, dataset.LevelO2, 1000, 0.004),
		rec(4, mp, dataset.LevelO2, 1000, 0.004),
		rec(5, mp, dataset.LevelO2, 10000, 0.025),
		rec(6, mp, dataset.LevelO2, 500, 0.001),
	})

	res, err := ComputeSpeedup(seq, par, []Field{FieldAlgorithm, FieldDataSize}, DefaultThreads)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	assert.Equal(t, int64(1000), res.Rows[0].ID.DataSize)
	assert.InDelta(t, 2.0, res.Rows[0].Speedup, 1e-12)
	assert.InDelta(t, 0.5, res.Rows[0].Efficiency, 1e-12)
	assert.InDelta(t, 3.2, res.Rows[1].Speedup, 1e-12)
	assert.InDelta(t, 0.8, res.Rows[1].Efficiency, 1e-12)

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, int64(100000), res.Skipped[0].ID.DataSize)
	assert.Equal(t, int64(500), res.Skipped[1].ID.DataSize)
}

func TestComputeSpeedup_ZeroParallelTimeSkipped(t *testing.T) {
	seq := dataset.NewTable([]dataset.Record{rec(0, ms, dataset.LevelO2, 100, 0.01)})
	par := dataset.NewTable([]dataset.Record{rec(1, mp, dataset.LevelO2, 100, 0)})

	res, err := ComputeSpeedup(seq, par, []Field{FieldDataSize}, 8)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	require.Len(t, res.Skipped, 1)
	assert.True(t, errors.Is(res.Skipped[0].Reason, perferr.ErrMissingGroup))
}

func TestComputeSpeedup_ThreadsOverride(t *testing.T) {
	seq := dataset.NewTable([]dataset.Record{rec(0, ms, dataset.LevelO2, 100, 0.06)})
	par := dataset.NewTable([]dataset.Record{rec(1, mp, dataset.LevelO2, 100, 0.01)})

	res, err := ComputeSpeedup(seq, par, []Field{FieldDataSize}, 8)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 8, res.Threads)
	assert.InDelta(t, 0.75, res.Rows[0].Efficiency, 1e-12)

	_, err = ComputeSpeedup(seq, par, []Field{FieldDataSize}, 0)
	assert.Error(t, err)
}

// =============================================================================
// Summaries
// =============================================================================

func TestSummarize(t *testing.T) {
	table := dataset.NewTable([]dataset.Record{
		rec(0, qs, dataset.LevelO2, 1000, 0.001),
		rec(1, qs, dataset.LevelO2, 1000, 0.003),
		rec(2, qs, dataset.LevelO0, 1000, 0.0021234567),
		rec(3, ms, dataset.LevelO0, 1000, 0.004),
	})

	sums := Summarize(table)
	require.Len(t, sums, 3)

	assert.Equal(t, ms, sums[0].Algorithm)
	assert.Equal(t, qs, sums[1].Algorithm)
	assert.Equal(t, dataset.LevelO0, sums[1].Optimization)
	assert.Equal(t, 0.002123, sums[1].TimeMean)
	assert.Equal(t, 0.0, sums[1].TimeStd, "single trial has zero std")

	o2 := sums[2]
	assert.Equal(t, 2, o2.Count)
	assert.Equal(t, 0.002, o2.TimeMean)
	assert.Equal(t, 0.001414, o2.TimeStd)
	assert.Equal(t, 0.001, o2.TimeMin)
	assert.Equal(t, 0.003, o2.TimeMax)
	assert.Equal(t, 10000.0, o2.ComparisonsMean)
	assert.Equal(t, 8000.0, o2.MemoryMean)
}

func TestPerSize(t *testing.T) {
	table := dataset.NewTable([]dataset.Record{
		rec(0, qs, dataset.LevelO2, 10000, 0.02),
		rec(1, ms, dataset.LevelO2, 1000, 0.004),
		rec(2, qs, dataset.LevelO2, 1000, 0.001),
		rec(3, qs, dataset.LevelO2, 1000, 0.003),
		rec(4, qs, dataset.LevelO0, 1000, 0.5),
	})

	lines := PerSize(table, dataset.LevelO2)
	require.Len(t, lines, 3)
	assert.Equal(t, SizeLine{DataSize: 1000, Algorithm: qs, MeanTime: 0.002, Trials: 2}, lines[0])
	assert.Equal(t, ms, lines[1].Algorithm)
	assert.Equal(t, int64(10000), lines[2].DataSize)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.23, Round(1.2349, 2))
	assert.Equal(t, -0.5, Round(-0.45, 1))
	assert.Equal(t, 2.0, Round(1.99999999, 6))
}
