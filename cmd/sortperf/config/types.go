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

// DefaultPath is the configuration file read when --config is not given.
const DefaultPath = "sortperf.yaml"

// SortperfConfig is the root of sortperf.yaml.
type SortperfConfig struct {
	Input     string          `yaml:"input" validate:"required"`
	OutputDir string          `yaml:"output_dir" validate:"required"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Fit       FitConfig       `yaml:"fit"`
	Charts    ChartsConfig    `yaml:"charts"`
	Excel     FileConfig      `yaml:"excel"`
	Report    ReportConfig    `yaml:"report"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Export    ExportConfig    `yaml:"export"`
}

// AnalysisConfig selects what is compared.
type AnalysisConfig struct {
	BaselineLevel       string   `yaml:"baseline_level" validate:"required"`
	ComparisonLevel     string   `yaml:"comparison_level" validate:"required"`
	Threads             int      `yaml:"threads" validate:"gte=1,lte=4096"`
	SequentialAlgorithm string   `yaml:"sequential_algorithm" validate:"required"`
	ParallelAlgorithm   string   `yaml:"parallel_algorithm" validate:"required"`
	Levels              []string `yaml:"levels,omitempty" validate:"dive,required"`
}

// FitConfig controls complexity fitting.
type FitConfig struct {
	Models        []string `yaml:"models" validate:"required,min=1,dive,required"`
	Method        string   `yaml:"method" validate:"oneof=newton bfgs nelder-mead"`
	MaxIterations int      `yaml:"max_iterations" validate:"gt=0"`
}

// ChartsConfig controls chart output.
type ChartsConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Formats  []string `yaml:"formats" validate:"required_if=Enabled true,dive,oneof=png svg pdf"`
	WidthIn  float64  `yaml:"width_in" validate:"gt=0"`
	HeightIn float64  `yaml:"height_in" validate:"gt=0"`
}

// FileConfig controls a single output file.
type FileConfig struct {
	Enabled  bool   `yaml:"enabled"`
	FileName string `yaml:"file_name" validate:"required_if=Enabled true"`
}

// ReportConfig controls the text report.
type ReportConfig struct {
	Enabled  bool   `yaml:"enabled"`
	FileName string `yaml:"file_name" validate:"required_if=Enabled true"`

	// Styled applies to the console report only. The file is always plain.
	Styled string `yaml:"styled" validate:"oneof=auto always never"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	JSON   bool   `yaml:"json"`
	LogDir string `yaml:"log_dir,omitempty"`
}

type TelemetryConfig struct {
	TraceExporter      string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	OTLPEndpoint       string `yaml:"otlp_endpoint,omitempty" validate:"omitempty,hostname_port"`
	OTLPInsecure       bool   `yaml:"otlp_insecure"`
	MetricExporter     string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
	PrometheusTextfile string `yaml:"prometheus_textfile,omitempty" validate:"required_if=MetricExporter prometheus"`
}

type ExportConfig struct {
	Influx InfluxConfig `yaml:"influx"`
}

// InfluxConfig enables result export to InfluxDB 2.x.
type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"required_if=Enabled true,omitempty,url"`
	Token   string `yaml:"token,omitempty"`
	Org     string `yaml:"org" validate:"required_if=Enabled true"`
	Bucket  string `yaml:"bucket" validate:"required_if=Enabled true"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() SortperfConfig {
	return SortperfConfig{
		Input:     "sorting_results.csv",
		OutputDir: "output",
		Analysis: AnalysisConfig{
			BaselineLevel:       "O0",
			ComparisonLevel:     "O2",
			Threads:             4,
			SequentialAlgorithm: "MergeSort_Sequential",
			ParallelAlgorithm:   "MergeSort_Parallel",
		},
		Fit: FitConfig{
			Models:        []string{"nlogn", "n2"},
			Method:        "newton",
			MaxIterations: 200,
		},
		Charts: ChartsConfig{
			Enabled:  true,
			Formats:  []string{"png", "svg"},
			WidthIn:  8,
			HeightIn: 5,
		},
		Excel: FileConfig{
			Enabled:  true,
			FileName: "sorting_results.xlsx",
		},
		Report: ReportConfig{
			Enabled:  true,
			FileName: "report.txt",
			Styled:   "auto",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			OTLPInsecure:   true,
			MetricExporter: "none",
		},
		Export: ExportConfig{
			Influx: InfluxConfig{
				URL:    "http://localhost:8086",
				Org:    "aleutian",
				Bucket: "sortperf",
			},
		},
	}
}
