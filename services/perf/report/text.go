// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders analysis results for people: a console or text
// report through pkg/ux, and an Excel workbook.
package report

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AleutianAI/sortperf/pkg/ux"
	"github.com/AleutianAI/sortperf/services/perf/aggregate"
	"github.com/AleutianAI/sortperf/services/perf/dataset"
	"github.com/AleutianAI/sortperf/services/perf/fit"
)

// Content is everything the text report shows. Nil or empty sections are
// left out.
type Content struct {
	RunID  string
	Source string

	Overview        dataset.Overview
	Baseline        dataset.Level
	ComparisonLevel dataset.Level

	// Best holds the fastest record per (size, algorithm).
	Best *dataset.Table

	PerSize      []aggregate.SizeLine
	Improvements aggregate.ImprovementResult
	Fits         []fit.Outcome

	// Speedup is shown when it has rows or skipped groups.
	Speedup *aggregate.SpeedupResult

	// Artifacts lists files written by the run.
	Artifacts []string
}

// Render writes the report to c.
func Render(c *ux.Console, content Content) error {
	c.Title("Sorting Algorithm Performance Report")
	renderOverview(c, content)
	renderBest(c, content.Best)
	renderPerSize(c, content.ComparisonLevel, content.PerSize)
	renderImprovements(c, content.Overview.Algorithms, content.Improvements)
	renderFits(c, content.ComparisonLevel, content.Fits)
	renderSpeedup(c, content.Speedup)
	renderArtifacts(c, content.Artifacts)
	return c.Err()
}

// RenderFits writes only the complexity fit section.
func RenderFits(c *ux.Console, level dataset.Level, outcomes []fit.Outcome) error {
	renderFits(c, level, outcomes)
	return c.Err()
}

// WriteFile writes the plain-text report to path.
func WriteFile(path string, content Content) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	if err := Render(ux.NewConsole(f, ux.ModePlain), content); err != nil {
		f.Close()
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return f.Close()
}

// =============================================================================
// Sections
// =============================================================================

func renderOverview(c *ux.Console, content Content) {
	o := content.Overview
	c.Section("Dataset overview")
	if content.RunID != "" {
		c.KeyValue("Run", content.RunID)
	}
	if content.Source != "" {
		c.KeyValue("Source", content.Source)
	}
	c.KeyValue("Records", strconv.Itoa(o.Records))
	c.KeyValue("Algorithms", strings.Join(o.Algorithms, ", "))
	c.KeyValue("Optimization levels", joinLevels(o.Levels))
	c.KeyValue("Data sizes", fmt.Sprintf("%d to %d", o.MinSize, o.MaxSize))
	if content.Baseline != "" {
		c.KeyValue("Baseline level", string(content.Baseline))
	}
	if content.ComparisonLevel != "" {
		c.KeyValue("Comparison level", string(content.ComparisonLevel))
	}
}

func renderBest(c *ux.Console, best *dataset.Table) {
	if best.Len() == 0 {
		return
	}
	c.Section("Best performance by data size and algorithm")
	rows := make([][]string, 0, best.Len())
	for _, r := range best.Records() {
		rows = append(rows, []string{
			strconv.FormatInt(r.DataSize, 10),
			r.Algorithm,
			string(r.Optimization),
			formatSeconds(r.TimeSeconds),
			strconv.FormatInt(r.Comparisons, 10),
			strconv.FormatInt(r.Swaps, 10),
			fmt.Sprintf("%.2f", r.MemoryMB()),
		})
	}
	c.Table([]string{"Size", "Algorithm", "Level", "Time (s)", "Comparisons", "Swaps", "Memory (MB)"}, rows)
}

func renderPerSize(c *ux.Console, level dataset.Level, lines []aggregate.SizeLine) {
	if len(lines) == 0 {
		return
	}
	c.Section(fmt.Sprintf("Performance by data size (%s)", level))
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{
			strconv.FormatInt(l.DataSize, 10),
			l.Algorithm,
			formatSeconds(l.MeanTime),
			strconv.Itoa(l.Trials),
		})
	}
	c.Table([]string{"Size", "Algorithm", "Mean time (s)", "Trials"}, rows)
}

func renderImprovements(c *ux.Console, algorithms []string, res aggregate.ImprovementResult) {
	if len(res.Rows) == 0 && len(res.Skipped) == 0 {
		return
	}
	c.Section(fmt.Sprintf("Relative improvement over %s", res.Baseline))
	for _, alg := range algorithms {
		rows := res.ForAlgorithm(alg)
		if len(rows) == 0 {
			continue
		}
		c.Line("%s", alg)
		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			table = append(table, []string{
				strconv.FormatInt(r.DataSize, 10),
				string(r.Level),
				formatSeconds(r.BaselineMean),
				formatSeconds(r.LevelMean),
				fmt.Sprintf("%+.2f%%", r.Percent),
			})
		}
		c.Table([]string{"Size", "Level", "Baseline (s)", "Level (s)", "Improvement"}, table)
	}
	for _, s := range res.Skipped {
		c.Warning(fmt.Sprintf("skipped %s: %v", s.ID, s.Reason))
	}
}

func renderFits(c *ux.Console, level dataset.Level, outcomes []fit.Outcome) {
	if len(outcomes) == 0 {
		return
	}
	c.Section(fmt.Sprintf("Complexity fits (%s)", level))
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		equation, r2, status := "-", "-", o.Reason()
		if o.OK() {
			equation = o.Result.Equation()
			r2 = o.Result.R2.String()
			status = "converged"
		}
		rows = append(rows, []string{
			o.Algorithm,
			dataset.TheoreticalComplexity(o.Algorithm),
			o.Model.Label(),
			equation,
			r2,
			status,
		})
	}
	c.Table([]string{"Algorithm", "Theoretical", "Model", "Fit", "R²", "Status"}, rows)
	for _, o := range outcomes {
		if !o.OK() {
			c.Warning(fmt.Sprintf("%s %s: %v", o.Algorithm, o.Model.Name(), o.Err))
		}
	}
}

func renderSpeedup(c *ux.Console, res *aggregate.SpeedupResult) {
	if res == nil || (len(res.Rows) == 0 && len(res.Skipped) == 0) {
		return
	}
	c.Section(fmt.Sprintf("Parallel speedup (%d threads)", res.Threads))
	if len(res.Rows) > 0 {
		rows := make([][]string, 0, len(res.Rows))
		for _, r := range res.Rows {
			rows = append(rows, []string{
				strconv.FormatInt(r.ID.DataSize, 10),
				formatSeconds(r.SequentialTime),
				formatSeconds(r.ParallelTime),
				fmt.Sprintf("%.2fx", r.Speedup),
				fmt.Sprintf("%.1f%%", r.Efficiency*100),
			})
		}
		c.Table([]string{"Size", "Sequential (s)", "Parallel (s)", "Speedup", "Efficiency"}, rows)
	}
	for _, s := range res.Skipped {
		c.Warning(fmt.Sprintf("skipped %s: %v", s.ID, s.Reason))
	}
}

func renderArtifacts(c *ux.Console, paths []string) {
	if len(paths) == 0 {
		return
	}
	c.Section("Artifacts")
	for _, p := range paths {
		c.Bullet(p)
	}
}

// =============================================================================
// Formatting
// =============================================================================

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 6, 64)
}

func joinLevels(levels []dataset.Level) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = string(l)
	}
	return strings.Join(parts, ", ")
}
