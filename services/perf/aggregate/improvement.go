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
	"github.com/AleutianAI/sortperf/services/perf/dataset"
)

// Improvement is the relative speedup of one optimization level over the
// baseline for one (algorithm, size) group.
type Improvement struct {
	Algorithm string
	DataSize  int64
	Level     dataset.Level

	BaselineMean float64
	LevelMean    float64

	// Percent is (baseline - level) / baseline * 100. Positive means the
	// level is faster than the baseline.
	Percent float64
}

// ImprovementResult holds the improvement rows and the groups that could
// not be compared.
type ImprovementResult struct {
	Baseline dataset.Level
	Rows     []Improvement
	Skipped  []Skipped
}

// ForAlgorithm returns the rows of one algorithm in result order.
func (r ImprovementResult) ForAlgorithm(algorithm string) []Improvement {
	var out []Improvement
	for _, row := range r.Rows {
		if row.Algorithm == algorithm {
			out = append(out, row)
		}
	}
	return out
}

// RelativeImprovement compares mean time of every non-baseline level to
// the baseline level, per (algorithm, data size).
//
// # Description
//
// Duplicates are averaged before comparing. Rows are ordered by algorithm
// (first appearance), then ascending size, then level order.
//
// A group with no baseline rows yields no rows and one Skipped entry. A
// group whose baseline mean is zero is skipped the same way, since the
// percentage is undefined. A group with only baseline rows yields nothing.
//
// # Inputs
//
//   - baseline: Reference level, usually O0.
//   - t: Records to compare. Not modified.
//
// # Outputs
//
//   - ImprovementResult: Rows and skipped groups. Never an error.
func RelativeImprovement(baseline dataset.Level, t *dataset.Table) ImprovementResult {
	result := ImprovementResult{Baseline: baseline}

	levelMeans := make(map[GroupID]float64)
	for _, gm := range MeanBy(t, []Field{FieldAlgorithm, FieldDataSize, FieldOptimization}, dataset.MetricTime) {
		levelMeans[gm.ID] = gm.Mean
	}
	levels := t.Levels()

	for _, algorithm := range t.Algorithms() {
		algTable := t.WhereAlgorithm(algorithm)
		for _, size := range algTable.Sizes() {
			group := GroupID{Algorithm: algorithm, DataSize: size}

			baseID := group
			baseID.Optimization = baseline
			baseMean, ok := levelMeans[baseID]
			if !ok {
				result.Skipped = append(result.Skipped,
					missingGroup(group, "no rows for baseline level %s", baseline))
				continue
			}
			if baseMean == 0 {
				result.Skipped = append(result.Skipped,
					missingGroup(group, "baseline level %s has zero mean time", baseline))
				continue
			}

			for _, level := range levels {
				if level == baseline {
					continue
				}
				id := group
				id.Optimization = level
				mean, ok := levelMeans[id]
				if !ok {
					continue
				}
				result.Rows = append(result.Rows, Improvement{
					Algorithm:    algorithm,
					DataSize:     size,
					Level:        level,
					BaselineMean: baseMean,
					LevelMean:    mean,
					Percent:      (baseMean - mean) / baseMean * 100,
				})
			}
		}
	}
	return result
}
