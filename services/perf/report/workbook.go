// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/AleutianAI/sortperf/services/perf/aggregate"
	"github.com/AleutianAI/sortperf/services/perf/dataset"
)

// Sheet names of the workbook.
const (
	SheetRawData = "Raw Data"
	SheetSummary = "Summary"
	SheetBest    = "Best Performance"
)

// Workbook is the content of the Excel export.
type Workbook struct {
	// Raw is every input record with its per-element ratios.
	Raw *dataset.DerivedTable

	// Summary is one row per (algorithm, level, size).
	Summary []aggregate.Summary

	// Best is the fastest record per (size, algorithm).
	Best *dataset.Table
}

var (
	rawHeader = []any{
		"Algorithm", "Optimization", "DataSize", "Time", "Comparisons", "Swaps", "MemoryUsage",
		"Family", "TimePerElement", "ComparisonsPerElement", "SwapsPerElement", "MemoryPerElement",
	}
	summaryHeader = []any{
		"Algorithm", "Optimization", "DataSize", "Trials", "Time Mean", "Time Std", "Time Min", "Time Max",
		"Comparisons Mean", "Swaps Mean", "Memory Mean",
	}
	bestHeader = []any{
		"DataSize", "Algorithm", "Optimization", "Time", "Comparisons", "Swaps", "Memory (MB)",
	}
)

// WriteWorkbook writes the three sheets to path, replacing any existing
// file.
//
// # Description
//
// Each sheet has a bold frozen header row with an auto filter. Numbers
// are stored as numbers. Memory in the best sheet is in megabytes rounded
// to two decimals.
func WriteWorkbook(path string, wb Workbook) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9F2F1"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetRawData); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	for _, name := range []string{SheetSummary, SheetBest} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	if err := writeSheet(f, SheetRawData, rawHeader, rawRows(wb.Raw), headerStyle); err != nil {
		return err
	}
	if err := writeSheet(f, SheetSummary, summaryHeader, summaryRows(wb.Summary), headerStyle); err != nil {
		return err
	}
	if err := writeSheet(f, SheetBest, bestHeader, bestRows(wb.Best), headerStyle); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s: write header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return fmt.Errorf("%s: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("%s: style header: %w", sheet, err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%s: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("%s: write row %d: %w", sheet, i+2, err)
		}
	}
	if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
		return fmt.Errorf("%s: auto filter: %w", sheet, err)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("%s: freeze header: %w", sheet, err)
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return fmt.Errorf("%s: %w", sheet, err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
		return fmt.Errorf("%s: column width: %w", sheet, err)
	}
	return nil
}

func rawRows(d *dataset.DerivedTable) [][]any {
	if d.Len() == 0 {
		return nil
	}
	out := make([][]any, 0, d.Len())
	for _, r := range d.Rows() {
		out = append(out, []any{
			r.Algorithm, string(r.Optimization), r.DataSize, r.TimeSeconds,
			r.Comparisons, r.Swaps, r.MemoryBytes, string(r.Family()),
			r.TimePerElement, r.ComparisonsPerElement, r.SwapsPerElement, r.MemoryPerElement,
		})
	}
	return out
}

func summaryRows(summaries []aggregate.Summary) [][]any {
	out := make([][]any, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, []any{
			s.Algorithm, string(s.Optimization), s.DataSize, s.Count,
			s.TimeMean, s.TimeStd, s.TimeMin, s.TimeMax,
			s.ComparisonsMean, s.SwapsMean, s.MemoryMean,
		})
	}
	return out
}

func bestRows(best *dataset.Table) [][]any {
	if best.Len() == 0 {
		return nil
	}
	out := make([][]any, 0, best.Len())
	for _, r := range best.Records() {
		out = append(out, []any{
			r.DataSize, r.Algorithm, string(r.Optimization), r.TimeSeconds,
			r.Comparisons, r.Swaps, aggregate.Round(r.MemoryMB(), 2),
		})
	}
	return out
}
