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
)

// Table is an ordered, read-only collection of records.
//
// # Description
//
// Records keep their input order. Operations that narrow or transform a
// table return a new Table; none mutate the receiver, so a Table can be
// shared across goroutines.
type Table struct {
	records []Record
}

// NewTable builds a table from records. The slice is copied.
func NewTable(records []Record) *Table {
	return &Table{records: slices.Clone(records)}
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// At returns the i-th record.
func (t *Table) At(i int) Record {
	return t.records[i]
}

// Records returns a copy of the records.
func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	return slices.Clone(t.records)
}

// Filter returns the records for which keep returns true.
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := make([]Record, 0, t.Len())
	for _, r := range t.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return &Table{records: out}
}

// WhereAlgorithm narrows to one algorithm.
func (t *Table) WhereAlgorithm(algorithm string) *Table {
	return t.Filter(func(r Record) bool { return r.Algorithm == algorithm })
}

// WhereLevel narrows to one optimization level.
func (t *Table) WhereLevel(level Level) *Table {
	return t.Filter(func(r Record) bool { return r.Optimization == level })
}

// Algorithms returns the distinct algorithm names in order of first
// appearance.
func (t *Table) Algorithms() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.records {
		if !seen[r.Algorithm] {
			seen[r.Algorithm] = true
			out = append(out, r.Algorithm)
		}
	}
	return out
}

// Levels returns the distinct optimization levels in canonical order.
func (t *Table) Levels() []Level {
	seen := make(map[Level]bool)
	var out []Level
	for _, r := range t.records {
		if !seen[r.Optimization] {
			seen[r.Optimization] = true
			out = append(out, r.Optimization)
		}
	}
	slices.SortFunc(out, CompareLevels)
	return out
}

// Sizes returns the distinct data sizes in ascending order.
func (t *Table) Sizes() []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, r := range t.records {
		if !seen[r.DataSize] {
			seen[r.DataSize] = true
			out = append(out, r.DataSize)
		}
	}
	slices.Sort(out)
	return out
}

// HasLevel reports whether any record carries the level.
func (t *Table) HasLevel(level Level) bool {
	for _, r := range t.records {
		if r.Optimization == level {
			return true
		}
	}
	return false
}

// =============================================================================
// Overview
// =============================================================================

// Overview describes what a loaded table contains.
type Overview struct {
	Records    int
	Levels     []Level
	Algorithms []string
	MinSize    int64
	MaxSize    int64
}

// Overview summarizes the table. Sizes are zero for an empty table.
func (t *Table) Overview() Overview {
	o := Overview{
		Records:    t.Len(),
		Levels:     t.Levels(),
		Algorithms: t.Algorithms(),
	}
	if sizes := t.Sizes(); len(sizes) > 0 {
		o.MinSize = sizes[0]
		o.MaxSize = sizes[len(sizes)-1]
	}
	return o
}
