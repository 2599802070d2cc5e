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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/AleutianAI/sortperf/services/perf/perferr"
)

// Column names of the benchmark CSV. Matching is case-insensitive and
// ignores surrounding whitespace.
const (
	ColumnAlgorithm    = "Algorithm"
	ColumnOptimization = "Optimization"
	ColumnDataSize     = "DataSize"
	ColumnTime         = "Time"
	ColumnComparisons  = "Comparisons"
	ColumnSwaps        = "Swaps"
	ColumnMemoryUsage  = "MemoryUsage"
)

// RequiredColumns lists the columns Load needs, in the order the harness
// writes them.
func RequiredColumns() []string {
	return []string{
		ColumnOptimization, ColumnDataSize, ColumnAlgorithm, ColumnTime,
		ColumnComparisons, ColumnSwaps, ColumnMemoryUsage,
	}
}

// Load reads a benchmark CSV file.
//
// # Description
//
// The first row is a header naming the columns; column order does not
// matter and extra columns are ignored.
//
// # Outputs
//
//   - *Table: records in file order, Row set to the data row index.
//   - error: a *perferr.Error of kind DataUnavailable when the file is
//     missing, unreadable, or has no data rows; MalformedInput when a
//     required column is missing or a field does not parse or is
//     negative. The message names the offending row and column.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perferr.Wrap(perferr.KindDataUnavailable, err, "open input")
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.IsDir() {
		return nil, perferr.Newf(perferr.KindDataUnavailable, "input %s is a directory", path)
	}

	return Read(f)
}

// Read parses benchmark CSV from r. See Load for the format and errors.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, perferr.New(perferr.KindDataUnavailable, "input is empty")
	}
	if err != nil {
		return nil, readError(err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var records []Record
	for row := 0; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(err).WithRow(row)
		}
		rec, err := cols.parse(fields, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, perferr.New(perferr.KindDataUnavailable, "input has a header but no data rows")
	}
	return &Table{records: records}, nil
}

func readError(err error) *perferr.Error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return perferr.Wrap(perferr.KindMalformedInput, err, "invalid CSV")
	}
	return perferr.Wrap(perferr.KindDataUnavailable, err, "read input")
}

// columnIndex maps required columns to field positions.
type columnIndex struct {
	algorithm, optimization, dataSize, time, comparisons, swaps, memory int
}

func resolveColumns(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := pos[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	cols := columnIndex{
		algorithm:    lookup(ColumnAlgorithm),
		optimization: lookup(ColumnOptimization),
		dataSize:     lookup(ColumnDataSize),
		time:         lookup(ColumnTime),
		comparisons:  lookup(ColumnComparisons),
		swaps:        lookup(ColumnSwaps),
		memory:       lookup(ColumnMemoryUsage),
	}
	if len(missing) > 0 {
		return cols, perferr.Newf(perferr.KindMalformedInput,
			"missing required column(s): %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c columnIndex) parse(fields []string, row int) (Record, error) {
	rec := Record{Row: row}

	field := func(i int) string { return strings.TrimSpace(fields[i]) }
	malformed := func(column, format string, args ...any) error {
		return perferr.Newf(perferr.KindMalformedInput, "column %s: "+format, append([]any{column}, args...)...).
			WithRow(row).
			WithAlgorithm(rec.Algorithm).
			WithOptimization(string(rec.Optimization))
	}

	rec.Algorithm = field(c.algorithm)
	rec.Optimization = Level(field(c.optimization))
	if rec.Algorithm == "" {
		return rec, malformed(ColumnAlgorithm, "empty value")
	}
	if rec.Optimization == "" {
		return rec, malformed(ColumnOptimization, "empty value")
	}

	var err error
	if rec.DataSize, err = parseCount(field(c.dataSize)); err != nil {
		return rec, malformed(ColumnDataSize, "%v", err)
	}

	raw := field(c.time)
	rec.TimeSeconds, err = strconv.ParseFloat(raw, 64)
	switch {
	case err != nil:
		return rec, malformed(ColumnTime, "cannot parse %q", raw)
	case math.IsNaN(rec.TimeSeconds) || math.IsInf(rec.TimeSeconds, 0):
		return rec, malformed(ColumnTime, "non-finite value %q", raw)
	case rec.TimeSeconds < 0:
		return rec, malformed(ColumnTime, "negative value %q", raw)
	}

	if rec.Comparisons, err = parseCount(field(c.comparisons)); err != nil {
		return rec, malformed(ColumnComparisons, "%v", err)
	}
	if rec.Swaps, err = parseCount(field(c.swaps)); err != nil {
		return rec, malformed(ColumnSwaps, "%v", err)
	}
	if rec.MemoryBytes, err = parseCount(field(c.memory)); err != nil {
		return rec, malformed(ColumnMemoryUsage, "%v", err)
	}
	return rec, nil
}

// parseCount parses a non-negative integer. Integral floats such as
// "1e+06" or "512.0" are accepted.
func parseCount(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative value %q", s)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
		return 0, fmt.Errorf("cannot parse %q as an integer", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative value %q", s)
	}
	return int64(f), nil
}
