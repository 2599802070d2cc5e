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

	"github.com/AleutianAI/sortperf/services/perf/dataset"
)

// Direction says whether lower or higher metric values win.
type Direction int

const (
	Minimize Direction = iota
	Maximize
)

// String returns "min", "max", or "unknown".
func (d Direction) String() string {
	switch d {
	case Minimize:
		return "min"
	case Maximize:
		return "max"
	default:
		return "unknown"
	}
}

func (d Direction) better(candidate, incumbent float64) bool {
	if math.IsNaN(candidate) {
		return false
	}
	if math.IsNaN(incumbent) {
		return true
	}
	if d == Maximize {
		return candidate > incumbent
	}
	return candidate < incumbent
}

// BestByGroup picks one record per group: the one with the lowest (or
// highest) metric value.
//
// # Description
//
// Groups are formed over fields and returned in order of first
// appearance. On ties the record with the lowest Row wins, whatever order
// the table holds them in. NaN values never win.
//
// # Inputs
//
//   - t: Records to select from. Not modified.
//   - fields: Group key. An empty key treats the whole table as one group.
//   - metric: Value to compare.
//   - dir: Minimize or Maximize.
//
// # Outputs
//
//   - *dataset.Table: One record per group with its original Row.
//
// # Example
//
//	best := aggregate.BestByGroup(table,
//	    []aggregate.Field{aggregate.FieldDataSize, aggregate.FieldAlgorithm},
//	    dataset.MetricTime, aggregate.Minimize)
func BestByGroup(t *dataset.Table, fields []Field, metric dataset.Metric, dir Direction) *dataset.Table {
	groups := GroupBy(t, fields)
	winners := make([]dataset.Record, 0, len(groups))
	for _, g := range groups {
		best := g.Records[0]
		for _, r := range g.Records[1:] {
			if dir.better(metric.Value(r), metric.Value(best)) ||
				(metric.Value(r) == metric.Value(best) && r.Row < best.Row) {
				best = r
			}
		}
		winners = append(winners, best)
	}
	return dataset.NewTable(winners)
}
