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
	"fmt"

	"github.com/AleutianAI/sortperf/services/perf/aggregate"
	"github.com/AleutianAI/sortperf/services/perf/dataset"
	"github.com/AleutianAI/sortperf/services/perf/fit"
)

const sizeLabel = "Data size (elements)"

// curveSamples is the number of points drawn for a fitted curve.
const curveSamples = 64

// TimeVsSize draws the mean time of every algorithm against data size at
// one optimization level, log-log.
func (r *Renderer) TimeVsSize(ctx context.Context, t *dataset.Table, level dataset.Level) ([]string, error) {
	atLevel := t.WhereLevel(level)
	pn := newPanel(fmt.Sprintf("Execution time vs data size (%s)", level), sizeLabel, dataset.MetricTime.Label())
	for _, alg := range atLevel.Algorithms() {
		xs, ys := aggregate.SizeSeries(atLevel.WhereAlgorithm(alg), dataset.MetricTime)
		if err := pn.addSeries(alg, xs, ys); err != nil {
			return nil, fmt.Errorf("%s: %w", ViewTimeVsSize, err)
		}
	}
	if atLevel.Len() == 0 {
		pn.note(fmt.Sprintf("no records at %s", level))
	}
	pn.logLog()
	return r.save(ctx, ViewTimeVsSize, 1, []*panel{pn})
}

// OptimizationImpact draws one panel per algorithm with one series per
// optimization level.
//
// # Description
//
// With a single level in the data the view degrades to one series per
// panel and says so in the panel titles. That is not an error.
func (r *Renderer) OptimizationImpact(ctx context.Context, t *dataset.Table) ([]string, error) {
	levels := t.Levels()
	single := len(levels) == 1
	if single {
		r.logger.Warn("Only one optimization level present, optimization impact shows a single series",
			"level", string(levels[0]))
	}

	var panels []*panel
	for _, alg := range t.Algorithms() {
		title := alg
		if single {
			title = fmt.Sprintf("%s (single level: %s)", alg, levels[0])
		}
		pn := newPanel(title, sizeLabel, dataset.MetricTime.Label())
		byAlg := t.WhereAlgorithm(alg)
		for _, level := range levels {
			xs, ys := aggregate.SizeSeries(byAlg.WhereLevel(level), dataset.MetricTime)
			if err := pn.addSeries(string(level), xs, ys); err != nil {
				return nil, fmt.Errorf("%s: %s: %w", ViewOptimizationImpact, alg, err)
			}
		}
		pn.logLog()
		panels = append(panels, pn)
	}
	return r.save(ctx, ViewOptimizationImpact, 2, panels)
}

// comparisonMetrics are the panels of the algorithm comparison view.
var comparisonMetrics = []dataset.Metric{
	dataset.MetricTime,
	dataset.MetricComparisons,
	dataset.MetricSwaps,
	dataset.MetricMemory,
}

// AlgorithmComparison draws time, comparisons, swaps and memory of every
// algorithm at one optimization level in a 2x2 grid.
func (r *Renderer) AlgorithmComparison(ctx context.Context, t *dataset.Table, level dataset.Level) ([]string, error) {
	atLevel := t.WhereLevel(level)
	panels := make([]*panel, 0, len(comparisonMetrics))
	for _, metric := range comparisonMetrics {
		pn := newPanel(fmt.Sprintf("%s (%s)", metric.Label(), level), sizeLabel, metric.Label())
		for _, alg := range atLevel.Algorithms() {
			xs, ys := aggregate.SizeSeries(atLevel.WhereAlgorithm(alg), metric)
			if err := pn.addSeries(alg, xs, ys); err != nil {
				return nil, fmt.Errorf("%s: %s: %w", ViewAlgorithmComparison, metric, err)
			}
		}
		pn.logLog()
		panels = append(panels, pn)
	}
	return r.save(ctx, ViewAlgorithmComparison, 2, panels)
}

// Complexity draws, per algorithm, the measured mean times at one level
// and every converged fitted curve labelled with its R². Failed fits are
// listed in the legend and the panel keeps the raw points.
func (r *Renderer) Complexity(ctx context.Context, t *dataset.Table, level dataset.Level, outcomes []fit.Outcome) ([]string, error) {
	atLevel := t.WhereLevel(level)
	byAlg := make(map[string][]fit.Outcome)
	for _, o := range outcomes {
		byAlg[o.Algorithm] = append(byAlg[o.Algorithm], o)
	}

	var panels []*panel
	for _, alg := range atLevel.Algorithms() {
		title := fmt.Sprintf("%s, theoretical %s", alg, dataset.TheoreticalComplexity(alg))
		pn := newPanel(title, sizeLabel, dataset.MetricTime.Label())

		xs, ys := aggregate.SizeSeries(atLevel.WhereAlgorithm(alg), dataset.MetricTime)
		if err := pn.addPoints("measured", xs, ys); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", ViewComplexity, alg, err)
		}

		for _, o := range byAlg[alg] {
			if !o.OK() {
				pn.note(o.Label())
				continue
			}
			lo, hi := bounds(o.Sizes)
			cx := logSpace(lo, hi, curveSamples)
			cy := make([]float64, len(cx))
			for i, n := range cx {
				cy[i] = o.Result.Eval(n)
			}
			if err := pn.addCurve(o.Label(), cx, cy); err != nil {
				return nil, fmt.Errorf("%s: %s: %w", ViewComplexity, alg, err)
			}
		}
		pn.logLog()
		panels = append(panels, pn)
	}
	return r.save(ctx, ViewComplexity, 2, panels)
}

// ParallelEfficiency draws speedup and efficiency of the parallel variant
// against data size, with y=1 reference lines for no speedup and ideal
// efficiency. level is the optimization level s was computed at; rows
// without a level of their own are labelled with it.
func (r *Renderer) ParallelEfficiency(ctx context.Context, s aggregate.SpeedupResult, level dataset.Level) ([]string, error) {
	panels, err := efficiencyPanels(s, level)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ViewParallelEfficiency, err)
	}
	return r.save(ctx, ViewParallelEfficiency, 2, panels)
}

func efficiencyPanels(s aggregate.SpeedupResult, level dataset.Level) ([]*panel, error) {
	speedup := newPanel(fmt.Sprintf("Parallel speedup (%s)", level), sizeLabel, "Speedup (sequential / parallel)")
	efficiency := newPanel(fmt.Sprintf("Parallel efficiency (%s, %d threads)", level, s.Threads),
		sizeLabel, "Efficiency (speedup / threads)")

	type line struct{ xs, sp, ef []float64 }
	var order []string
	lines := make(map[string]*line)
	for _, row := range s.Rows {
		key := string(row.ID.Optimization)
		if key == "" {
			key = string(level)
		}
		l, ok := lines[key]
		if !ok {
			l = &line{}
			lines[key] = l
			order = append(order, key)
		}
		l.xs = append(l.xs, float64(row.ID.DataSize))
		l.sp = append(l.sp, row.Speedup)
		l.ef = append(l.ef, row.Efficiency)
	}
	for _, key := range order {
		l := lines[key]
		if err := speedup.addSeries(key, l.xs, l.sp); err != nil {
			return nil, err
		}
		if err := efficiency.addSeries(key, l.xs, l.ef); err != nil {
			return nil, err
		}
	}
	if len(s.Rows) == 0 {
		speedup.note("no matched sequential/parallel groups")
		efficiency.note("no matched sequential/parallel groups")
	}
	if err := speedup.addReference("no speedup", 1); err != nil {
		return nil, err
	}
	if err := efficiency.addReference("ideal", 1); err != nil {
		return nil, err
	}
	speedup.logX()
	efficiency.logX()
	return []*panel{speedup, efficiency}, nil
}
