// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package aggregate groups benchmark records and computes comparisons
// across groups: best-of selection, relative improvement against a
// baseline optimization level, parallel speedup and summary statistics.
//
// # Duplicate trials
//
// Several records may share one (algorithm, level, size) triple.
// Representative values (improvement, speedup, series for charts and fits)
// use the mean of the duplicates. Best-of selection picks one concrete
// record, ties broken by the lowest input row.
//
// # Skipped outcomes
//
// Comparisons that cannot be formed (no baseline rows, no parallel
// counterpart, a zero denominator) are not errors for the caller to
// handle; they are returned alongside the rows as Skipped entries wrapping
// perferr.ErrMissingGroup so the report can name them.
package aggregate

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/sortperf/services/perf/dataset"
	"github.com/AleutianAI/sortperf/services/perf/perferr"
)

// =============================================================================
// Group keys
// =============================================================================

// Field is one component of a group key.
type Field int

const (
	FieldAlgorithm Field = iota
	FieldOptimization
	FieldDataSize
)

// String returns the field's column name, or "unknown".
func (f Field) String() string {
	switch f {
	case FieldAlgorithm:
		return dataset.ColumnAlgorithm
	case FieldOptimization:
		return dataset.ColumnOptimization
	case FieldDataSize:
		return dataset.ColumnDataSize
	default:
		return "unknown"
	}
}

// GroupID identifies a group. Fields not part of the grouping key are left
// at their zero value, so two records with equal GroupIDs belong to the
// same group.
type GroupID struct {
	Algorithm    string
	Optimization dataset.Level
	DataSize     int64
}

// KeyOf projects a record onto the given key fields.
func KeyOf(r dataset.Record, fields []Field) GroupID {
	var id GroupID
	for _, f := range fields {
		switch f {
		case FieldAlgorithm:
			id.Algorithm = r.Algorithm
		case FieldOptimization:
			id.Optimization = r.Optimization
		case FieldDataSize:
			id.DataSize = r.DataSize
		}
	}
	return id
}

// String renders the set fields, e.g. "QuickSort_Recursive/O2/n=1000".
func (g GroupID) String() string {
	var parts []string
	if g.Algorithm != "" {
		parts = append(parts, g.Algorithm)
	}
	if g.Optimization != "" {
		parts = append(parts, string(g.Optimization))
	}
	if g.DataSize != 0 {
		parts = append(parts, fmt.Sprintf("n=%d", g.DataSize))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, "/")
}

// Group is the set of records sharing a GroupID, in input order.
type Group struct {
	ID      GroupID
	Records []dataset.Record
}

// GroupBy partitions the table by fields. Groups are returned in order of
// first appearance and records keep input order within a group.
func GroupBy(t *dataset.Table, fields []Field) []Group {
	index := make(map[GroupID]int)
	var groups []Group
	for _, r := range t.Records() {
		id := KeyOf(r, fields)
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, Group{ID: id})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// Mean returns the arithmetic mean of metric over the group's records.
func (g Group) Mean(metric dataset.Metric) float64 {
	if len(g.Records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range g.Records {
		sum += metric.Value(r)
	}
	return sum / float64(len(g.Records))
}

// GroupMean is the representative value of one group.
type GroupMean struct {
	ID    GroupID
	Mean  float64
	Count int
}

// MeanBy groups the table by fields and averages metric within each
// group. Order follows GroupBy.
func MeanBy(t *dataset.Table, fields []Field, metric dataset.Metric) []GroupMean {
	groups := GroupBy(t, fields)
	out := make([]GroupMean, len(groups))
	for i, g := range groups {
		out[i] = GroupMean{ID: g.ID, Mean: g.Mean(metric), Count: len(g.Records)}
	}
	return out
}

// SizeSeries returns (size, mean metric) pairs for the table, sorted by
// ascending size. Used for chart series and fit inputs where the table is
// already narrowed to one algorithm and level.
func SizeSeries(t *dataset.Table, metric dataset.Metric) (sizes, values []float64) {
	byID := make(map[int64]float64)
	for _, gm := range MeanBy(t, []Field{FieldDataSize}, metric) {
		byID[gm.ID.DataSize] = gm.Mean
	}
	for _, n := range t.Sizes() {
		sizes = append(sizes, float64(n))
		values = append(values, byID[n])
	}
	return sizes, values
}

// =============================================================================
// Skipped outcomes
// =============================================================================

// Skipped records a comparison that produced no row.
type Skipped struct {
	ID     GroupID
	Reason error
}

func missingGroup(id GroupID, format string, args ...any) Skipped {
	err := perferr.Newf(perferr.KindMissingGroup, format, args...).
		WithAlgorithm(id.Algorithm).
		WithOptimization(string(id.Optimization)).
		WithDataSize(id.DataSize)
	return Skipped{ID: id, Reason: err}
}
