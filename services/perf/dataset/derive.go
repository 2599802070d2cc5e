// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"slices"

	"github.com/AleutianAI/sortperf/services/perf/perferr"
)

// Derived is a record extended with per-element ratios.
type Derived struct {
	Record

	TimePerElement        float64
	ComparisonsPerElement float64
	SwapsPerElement       float64
	MemoryPerElement      float64
}

// DerivedTable holds one Derived row per input record, in input order.
type DerivedTable struct {
	rows []Derived
}

// Len returns the number of rows.
func (d *DerivedTable) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// Rows returns a copy of the rows.
func (d *DerivedTable) Rows() []Derived {
	return slices.Clone(d.rows)
}

// Table returns the underlying records as a Table.
func (d *DerivedTable) Table() *Table {
	records := make([]Record, len(d.rows))
	for i, row := range d.rows {
		records[i] = row.Record
	}
	return &Table{records: records}
}

// DeriveMetrics computes the per-element ratios for every record.
//
// # Description
//
// Each ratio is the raw counter divided by DataSize. The input table is
// not modified and the output has exactly one row per input record.
//
// # Outputs
//
//   - *DerivedTable: the derived rows.
//   - error: MalformedInput naming the first row whose DataSize is not
//     positive. No partial table is returned.
func DeriveMetrics(t *Table) (*DerivedTable, error) {
	rows := make([]Derived, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := t.At(i)
		if r.DataSize <= 0 {
			return nil, perferr.Newf(perferr.KindMalformedInput, "DataSize must be positive, got %d", r.DataSize).
				WithRow(r.Row).
				WithAlgorithm(r.Algorithm).
				WithOptimization(string(r.Optimization))
		}
		n := float64(r.DataSize)
		rows = append(rows, Derived{
			Record:                r,
			TimePerElement:        r.TimeSeconds / n,
			ComparisonsPerElement: float64(r.Comparisons) / n,
			SwapsPerElement:       float64(r.Swaps) / n,
			MemoryPerElement:      float64(r.MemoryBytes) / n,
		})
	}
	return &DerivedTable{rows: rows}, nil
}
