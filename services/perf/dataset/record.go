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
	"math"
	"strings"
)

// =============================================================================
// Optimization levels
// =============================================================================

// Level is a compiler optimization level label such as "O2".
//
// The known labels are ordered O0 < O1 < O2 < O3 < Ofast. Unknown labels
// are accepted and sort after Ofast, alphabetically among themselves.
type Level string

const (
	LevelO0    Level = "O0"
	LevelO1    Level = "O1"
	LevelO2    Level = "O2"
	LevelO3    Level = "O3"
	LevelOfast Level = "Ofast"
)

// KnownLevels returns the known levels in canonical order.
func KnownLevels() []Level {
	return []Level{LevelO0, LevelO1, LevelO2, LevelO3, LevelOfast}
}

// Rank returns the level's position in canonical order. Unknown levels
// share the rank len(KnownLevels()).
func (l Level) Rank() int {
	for i, known := range KnownLevels() {
		if l == known {
			return i
		}
	}
	return len(KnownLevels())
}

// Known reports whether l is one of the canonical levels.
func (l Level) Known() bool {
	return l.Rank() < len(KnownLevels())
}

// CompareLevels orders levels by rank, then by label.
func CompareLevels(a, b Level) int {
	ra, rb := a.Rank(), b.Rank()
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	}
	return strings.Compare(string(a), string(b))
}

// =============================================================================
// Record
// =============================================================================

// Record is one benchmark measurement: a single row of the input table.
type Record struct {
	// Row is the zero-based data row index in the input (header excluded).
	// Ties in best-of selections go to the lowest Row.
	Row int

	Algorithm    string
	Optimization Level
	DataSize     int64

	// TimeSeconds is the wall time of one sort in seconds.
	TimeSeconds float64

	Comparisons int64
	Swaps       int64
	MemoryBytes int64
}

// Family returns the algorithm family of the record.
func (r Record) Family() Family {
	return FamilyOf(r.Algorithm)
}

// MemoryMB returns the memory usage in megabytes (2^20 bytes).
func (r Record) MemoryMB() float64 {
	return float64(r.MemoryBytes) / (1024 * 1024)
}

// =============================================================================
// Families and complexity labels
// =============================================================================

// Family groups algorithm variants.
type Family string

const (
	FamilyQuickSort Family = "quicksort"
	FamilyMergeSort Family = "mergesort"
)

// FamilyOf classifies an algorithm name. Names containing "Quick" are
// quicksort variants; everything else is treated as mergesort.
func FamilyOf(algorithm string) Family {
	if strings.Contains(algorithm, "Quick") {
		return FamilyQuickSort
	}
	return FamilyMergeSort
}

// Well-known algorithm names produced by the benchmark harness.
const (
	QuickSortRecursive    = "QuickSort_Recursive"
	QuickSortNonRecursive = "QuickSort_NonRecursive"
	MergeSortSequential   = "MergeSort_Sequential"
	MergeSortParallel     = "MergeSort_Parallel"
)

var theoreticalComplexity = map[string]string{
	QuickSortRecursive:    "O(n log n)",
	QuickSortNonRecursive: "O(n log n)",
	MergeSortSequential:   "O(n log n)",
	MergeSortParallel:     "O(n log n)",
}

// TheoreticalComplexity returns the textbook average-case complexity of a
// known algorithm, or "unknown".
func TheoreticalComplexity(algorithm string) string {
	if c, ok := theoreticalComplexity[algorithm]; ok {
		return c
	}
	return "unknown"
}

// =============================================================================
// Metrics
// =============================================================================

// Metric selects one numeric column of a Record, raw or per element.
type Metric int

const (
	MetricTime Metric = iota
	MetricComparisons
	MetricSwaps
	MetricMemory
	MetricTimePerElement
	MetricComparisonsPerElement
	MetricSwapsPerElement
	MetricMemoryPerElement
)

// String returns the metric's short name, or "unknown".
func (m Metric) String() string {
	switch m {
	case MetricTime:
		return "time"
	case MetricComparisons:
		return "comparisons"
	case MetricSwaps:
		return "swaps"
	case MetricMemory:
		return "memory"
	case MetricTimePerElement:
		return "time_per_element"
	case MetricComparisonsPerElement:
		return "comparisons_per_element"
	case MetricSwapsPerElement:
		return "swaps_per_element"
	case MetricMemoryPerElement:
		return "memory_per_element"
	default:
		return "unknown"
	}
}

// Label returns an axis label for the metric.
func (m Metric) Label() string {
	switch m {
	case MetricTime:
		return "Time (seconds)"
	case MetricComparisons:
		return "Comparisons"
	case MetricSwaps:
		return "Swaps"
	case MetricMemory:
		return "Memory (bytes)"
	case MetricTimePerElement:
		return "Time per element (seconds)"
	case MetricComparisonsPerElement:
		return "Comparisons per element"
	case MetricSwapsPerElement:
		return "Swaps per element"
	case MetricMemoryPerElement:
		return "Memory per element (bytes)"
	default:
		return "unknown"
	}
}

// Value extracts the metric from r. Per-element metrics are NaN when
// DataSize is not positive.
func (m Metric) Value(r Record) float64 {
	switch m {
	case MetricTime:
		return r.TimeSeconds
	case MetricComparisons:
		return float64(r.Comparisons)
	case MetricSwaps:
		return float64(r.Swaps)
	case MetricMemory:
		return float64(r.MemoryBytes)
	}
	if r.DataSize <= 0 {
		return math.NaN()
	}
	n := float64(r.DataSize)
	switch m {
	case MetricTimePerElement:
		return r.TimeSeconds / n
	case MetricComparisonsPerElement:
		return float64(r.Comparisons) / n
	case MetricSwapsPerElement:
		return float64(r.Swaps) / n
	case MetricMemoryPerElement:
		return float64(r.MemoryBytes) / n
	default:
		return math.NaN()
	}
}
