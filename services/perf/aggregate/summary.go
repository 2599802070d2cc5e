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
	"math"
	"slices"
	"strings"

	"github.com/aclements/go-moremath/stats"

	"github.com/AleutianAI/sortperf/services/perf/dataset"
)

// SummaryPrecision is the number of decimals kept in Summary values.
const SummaryPrecision = 6

// Summary is the descriptive statistics of one (algorithm, level, size)
// group.
type Summary struct {
	Algorithm    string
	Optimization dataset.Level
	DataSize     int64
	Count        int

	TimeMean float64
	// TimeStd is the sample standard deviation; 0 for a single trial.
	TimeStd float64
	TimeMin float64
	TimeMax float64

	ComparisonsMean float64
	SwapsMean       float64
	MemoryMean      float64
}

// Summarize computes one Summary per (algorithm, level, size) group.
//
// Results are sorted by algorithm name, then level order, then size, and
// every statistic is rounded to SummaryPrecision decimals.
func Summarize(t *dataset.Table) []Summary {
	groups := GroupBy(t, []Field{FieldAlgorithm, FieldOptimization, FieldDataSize})
	out := make([]Summary, 0, len(groups))
	for _, g := range groups {
		times := stats.Sample{Xs: values(g.Records, dataset.MetricTime)}
		lo, hi := times.Bounds()
		out = append(out, Summary{
			Algorithm:       g.ID.Algorithm,
			Optimization:    g.ID.Optimization,
			DataSize:        g.ID.DataSize,
			Count:           len(g.Records),
			TimeMean:        Round(times.Mean(), SummaryPrecision),
			TimeStd:         Round(times.StdDev(), SummaryPrecision),
			TimeMin:         Round(lo, SummaryPrecision),
			TimeMax:         Round(hi, SummaryPrecision),
			ComparisonsMean: Round(stats.Mean(values(g.Records, dataset.MetricComparisons)), SummaryPrecision),
			SwapsMean:       Round(stats.Mean(values(g.Records, dataset.MetricSwaps)), SummaryPrecision),
			MemoryMean:      Round(stats.Mean(values(g.Records, dataset.MetricMemory)), SummaryPrecision),
		})
	}
	slices.SortStableFunc(out, func(a, b Summary) int {
		if c := strings.Compare(a.Algorithm, b.Algorithm); c != 0 {
			return c
		}
		if c := dataset.CompareLevels(a.Optimization, b.Optimization); c != 0 {
			return c
		}
		switch {
		case a.DataSize < b.DataSize:
			return -1
		case a.DataSize > b.DataSize:
			return 1
		}
		return 0
	})
	return out
}

func values(records []dataset.Record, metric dataset.Metric) []float64 {
	xs := make([]float64, len(records))
	for i, r := range records {
		xs[i] = metric.Value(r)
	}
	return xs
}

// Round rounds x half away from zero to the given number of decimals.
// NaN and infinities pass through.
func Round(x float64, decimals int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

// =============================================================================
// Per-size performance
// =============================================================================

// SizeLine is the representative time of one algorithm at one size.
type SizeLine struct {
	DataSize  int64
	Algorithm string
	MeanTime  float64
	Trials    int
}

// PerSize lists the mean time of every algorithm at every size for one
// optimization level, ordered by size then algorithm appearance.
func PerSize(t *dataset.Table, level dataset.Level) []SizeLine {
	atLevel := t.WhereLevel(level)
	means := make(map[GroupID]GroupMean)
	for _, gm := range MeanBy(atLevel, []Field{FieldAlgorithm, FieldDataSize}, dataset.MetricTime) {
		means[gm.ID] = gm
	}
	var out []SizeLine
	for _, size := range atLevel.Sizes() {
		for _, alg := range atLevel.Algorithms() {
			gm, ok := means[GroupID{Algorithm: alg, DataSize: size}]
			if !ok {
				continue
			}
			out = append(out, SizeLine{DataSize: size, Algorithm: alg, MeanTime: gm.Mean, Trials: gm.Count})
		}
	}
	return out
}
