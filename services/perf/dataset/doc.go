// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataset loads sort-benchmark measurements and derives
// per-element metrics from them.
//
// The input is the CSV written by the benchmark harness, one row per
// (algorithm, optimization level, data size) trial:
//
//	Optimization,DataSize,Algorithm,Time,Comparisons,Swaps,MemoryUsage
//	O2,1000,QuickSort_Recursive,0.001,11000,5200,4096
//
// Any number of rows may share the same (algorithm, level, size) triple.
// Downstream aggregation decides how duplicates are combined; this package
// keeps every row and its original position.
package dataset
