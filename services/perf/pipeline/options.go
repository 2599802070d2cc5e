// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/sortperf/services/perf/aggregate"
	"github.com/AleutianAI/sortperf/services/perf/dataset"
	"github.com/AleutianAI/sortperf/services/perf/export"
	"github.com/AleutianAI/sortperf/services/perf/fit"
)

// Default artifact file names.
const (
	DefaultWorkbookName = "sorting_results.xlsx"
	DefaultReportName   = "report.txt"
)

// Options configures a pipeline run.
type Options struct {
	// Input is the benchmark CSV path.
	Input string

	// OutputDir receives every artifact. Charts go to OutputDir directly.
	OutputDir string

	// Levels restricts the analysis to these optimization levels. Empty
	// means every level in the input.
	Levels []dataset.Level

	// Baseline is the level improvements are measured against.
	Baseline dataset.Level

	// ComparisonLevel is the level used for fits, speedup, per-size lines
	// and single-level charts. When absent from the data, the highest
	// level present is used instead.
	ComparisonLevel dataset.Level

	SequentialAlgorithm string
	ParallelAlgorithm   string

	// Threads is the worker count of the parallel algorithm.
	Threads int

	Models        []fit.Model
	Method        fit.Method
	MaxIterations int

	Charts   ChartOptions
	Workbook FileOptions
	Report   FileOptions

	// Influx enables result export when non-nil.
	Influx *export.Config
}

// ChartOptions controls chart output.
type ChartOptions struct {
	Enabled  bool
	Formats  []string
	WidthIn  float64
	HeightIn float64
}

// FileOptions controls a single-file artifact.
type FileOptions struct {
	Enabled  bool
	FileName string
}

// DefaultOptions returns options with every artifact enabled.
func DefaultOptions() Options {
	return Options{
		Input:               "sorting_results.csv",
		OutputDir:           "output",
		Baseline:            dataset.LevelO0,
		ComparisonLevel:     dataset.LevelO2,
		SequentialAlgorithm: dataset.MergeSortSequential,
		ParallelAlgorithm:   dataset.MergeSortParallel,
		Threads:             aggregate.DefaultThreads,
		Models:              fit.Models(),
		Method:              fit.MethodNewton,
		MaxIterations:       fit.DefaultMaxIterations,
		Charts:              ChartOptions{Enabled: true, Formats: []string{"png", "svg"}, WidthIn: 8, HeightIn: 5},
		Workbook:            FileOptions{Enabled: true, FileName: DefaultWorkbookName},
		Report:              FileOptions{Enabled: true, FileName: DefaultReportName},
	}
}

// Validate checks the options a run cannot start without.
func (o Options) Validate() error {
	var errs []error
	if o.Input == "" {
		errs = append(errs, errors.New("input path is empty"))
	}
	if o.Threads < 1 {
		errs = append(errs, fmt.Errorf("threads must be >= 1, got %d", o.Threads))
	}
	if len(o.Models) == 0 {
		errs = append(errs, errors.New("no growth models selected"))
	}
	if o.Baseline == "" {
		errs = append(errs, errors.New("baseline level is empty"))
	}
	if o.ComparisonLevel == "" {
		errs = append(errs, errors.New("comparison level is empty"))
	}
	if o.writesFiles() && o.OutputDir == "" {
		errs = append(errs, errors.New("output directory is empty"))
	}
	if o.Influx != nil {
		if err := o.Influx.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

func (o Options) writesFiles() bool {
	return o.Charts.Enabled || o.Workbook.Enabled || o.Report.Enabled
}
