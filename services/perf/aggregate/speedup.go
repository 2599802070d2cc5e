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
	"fmt"
	"slices"

	"github.com/AleutianAI/sortperf/services/perf/dataset"
)

// DefaultThreads is the worker count assumed for the parallel variant when
// configuration does not say otherwise.
const DefaultThreads = 4

// Speedup compares the sequential and parallel variants for one group.
type Speedup struct {
	ID GroupID

	SequentialTime float64
	ParallelTime   float64

	// Speedup is SequentialTime / ParallelTime.
	Speedup float64

	// Efficiency is Speedup / Threads. 1.0 is ideal scaling.
	Efficiency float64
}

// SpeedupResult holds matched rows and unmatched groups.
type SpeedupResult struct {
	Threads int
	Rows    []Speedup
	Skipped []Skipped
}

// ComputeSpeedup matches sequential and parallel groups and computes
// speedup and parallel efficiency.
//
// # Description
//
// Both tables are grouped by fields and averaged. FieldAlgorithm is
// ignored when matching since the two tables hold different algorithms by
// construction. Only groups present on both sides produce a row; groups
// present on one side only, and groups whose parallel mean time is zero,
// are returned as Skipped. Rows are ordered by the sequential table's
// group order, skipped parallel-only groups follow.
//
// # Inputs
//
//   - sequential: Records of the sequential variant.
//   - parallel: Records of the parallel variant.
//   - fields: Group key, typically {FieldDataSize} or
//     {FieldOptimization, FieldDataSize}.
//   - threads: Worker count of the parallel variant. Must be >= 1.
//
// # Outputs
//
//   - SpeedupResult: Rows and skipped groups.
//   - error: Non-nil only when threads < 1.
func ComputeSpeedup(sequential, parallel *dataset.Table, fields []Field, threads int) (SpeedupResult, error) {
	if threads < 1 {
		return SpeedupResult{}, fmt.Errorf("threads must be >= 1, got %d", threads)
	}
	result := SpeedupResult{Threads: threads}

	fields = slices.DeleteFunc(slices.Clone(fields), func(f Field) bool { return f == FieldAlgorithm })

	parMeans := MeanBy(parallel, fields, dataset.MetricTime)
	parByID := make(map[GroupID]float64, len(parMeans))
	for _, gm := range parMeans {
		parByID[gm.ID] = gm.Mean
	}

	matched := make(map[GroupID]bool)
	for _, seq := range MeanBy(sequential, fields, dataset.MetricTime) {
		par, ok := parByID[seq.ID]
		if !ok {
			result.Skipped = append(result.Skipped, missingGroup(seq.ID, "no parallel rows"))
			continue
		}
		matched[seq.ID] = true
		if par == 0 {
			result.Skipped = append(result.Skipped, missingGroup(seq.ID, "parallel mean time is zero"))
			continue
		}
		s := seq.Mean / par
		result.Rows = append(result.Rows, Speedup{
			ID:             seq.ID,
			SequentialTime: seq.Mean,
			ParallelTime:   par,
			Speedup:        s,
			Efficiency:     s / float64(threads),
		})
	}

	for _, gm := range parMeans {
		if !matched[gm.ID] {
			result.Skipped = append(result.Skipped, missingGroup(gm.ID, "no sequential rows"))
		}
	}
	return result, nil
}
