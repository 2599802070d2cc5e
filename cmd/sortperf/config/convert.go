// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"github.com/AleutianAI/sortperf/pkg/logging"
	"github.com/AleutianAI/sortperf/services/perf/dataset"
	"github.com/AleutianAI/sortperf/services/perf/export"
	"github.com/AleutianAI/sortperf/services/perf/fit"
	"github.com/AleutianAI/sortperf/services/perf/pipeline"
	"github.com/AleutianAI/sortperf/services/perf/telemetry"
)

// PipelineOptions converts the configuration to pipeline options.
func (c SortperfConfig) PipelineOptions() (pipeline.Options, error) {
	models, err := fit.LookupAll(c.Fit.Models)
	if err != nil {
		return pipeline.Options{}, err
	}
	method, err := fit.ParseMethod(c.Fit.Method)
	if err != nil {
		return pipeline.Options{}, err
	}

	levels := make([]dataset.Level, 0, len(c.Analysis.Levels))
	for _, l := range c.Analysis.Levels {
		levels = append(levels, dataset.Level(l))
	}

	opts := pipeline.Options{
		Input:               c.Input,
		OutputDir:           c.OutputDir,
		Levels:              levels,
		Baseline:            dataset.Level(c.Analysis.BaselineLevel),
		ComparisonLevel:     dataset.Level(c.Analysis.ComparisonLevel),
		SequentialAlgorithm: c.Analysis.SequentialAlgorithm,
		ParallelAlgorithm:   c.Analysis.ParallelAlgorithm,
		Threads:             c.Analysis.Threads,
		Models:              models,
		Method:              method,
		MaxIterations:       c.Fit.MaxIterations,
		Charts: pipeline.ChartOptions{
			Enabled:  c.Charts.Enabled,
			Formats:  c.Charts.Formats,
			WidthIn:  c.Charts.WidthIn,
			HeightIn: c.Charts.HeightIn,
		},
		Workbook: pipeline.FileOptions{Enabled: c.Excel.Enabled, FileName: c.Excel.FileName},
		Report:   pipeline.FileOptions{Enabled: c.Report.Enabled, FileName: c.Report.FileName},
	}
	if in := c.Export.Influx; in.Enabled {
		opts.Influx = &export.Config{URL: in.URL, Token: in.Token, Org: in.Org, Bucket: in.Bucket}
	}
	return opts, opts.Validate()
}

// LoggerConfig converts the logging section.
func (c SortperfConfig) LoggerConfig() (logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.Config{}, err
	}
	return logging.Config{
		Level:   level,
		LogDir:  c.Logging.LogDir,
		Service: "sortperf",
		JSON:    c.Logging.JSON,
	}, nil
}

// TelemetryConfig converts the telemetry section. An exporter set to
// "none" leaves the OTEL_*_EXPORTER environment default in place.
func (c SortperfConfig) TelemetryConfig() telemetry.Config {
	cfg := telemetry.DefaultConfig()
	if c.Telemetry.TraceExporter != telemetry.ExporterNone {
		cfg.TraceExporter = c.Telemetry.TraceExporter
	}
	if c.Telemetry.MetricExporter != telemetry.ExporterNone {
		cfg.MetricExporter = c.Telemetry.MetricExporter
	}
	if c.Telemetry.OTLPEndpoint != "" {
		cfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	}
	cfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	cfg.PrometheusTextfile = c.Telemetry.PrometheusTextfile
	return cfg
}
