// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/sortperf/cmd/sortperf/config"
	"github.com/AleutianAI/sortperf/pkg/logging"
	"github.com/AleutianAI/sortperf/pkg/ux"
	"github.com/AleutianAI/sortperf/services/perf/dataset"
	"github.com/AleutianAI/sortperf/services/perf/fit"
	"github.com/AleutianAI/sortperf/services/perf/perferr"
	"github.com/AleutianAI/sortperf/services/perf/pipeline"
	"github.com/AleutianAI/sortperf/services/perf/report"
	"github.com/AleutianAI/sortperf/services/perf/telemetry"
)

// flags holds persistent flag values. Only flags the user changed
// override the configuration.
type flags struct {
	configPath string
	input      string
	output     string
	threads    int
	logLevel   string
	jsonLogs   bool
}

// app is the per-invocation state built by the root PersistentPreRunE.
type app struct {
	flags flags

	cfg               config.SortperfConfig
	logger            *logging.Logger
	shutdownTelemetry func(context.Context) error
}

// newRootCmd builds the command tree. The returned cleanup flushes
// telemetry and closes the logger; call it after Execute whether or not
// the command failed.
func newRootCmd() (*cobra.Command, func() error) {
	a := &app{}

	root := &cobra.Command{
		Use:   "sortperf",
		Short: "Analyze sorting algorithm benchmark results",
		Long: `sortperf reads benchmark CSV output (time, comparisons, swaps and memory
per algorithm, optimization level and input size), compares optimization
levels, fits growth models and writes charts, an Excel workbook and a
text report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", config.DefaultPath, "configuration file")
	pf.StringVar(&a.flags.input, "input", "", "benchmark CSV (overrides input)")
	pf.StringVarP(&a.flags.output, "output", "o", "", "output directory (overrides output_dir)")
	pf.IntVar(&a.flags.threads, "threads", 0, "worker count of the parallel algorithm (overrides analysis.threads)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "debug, info, warn or error (overrides logging.level)")
	pf.BoolVar(&a.flags.jsonLogs, "json-logs", false, "log as JSON on stderr")

	root.AddCommand(
		a.analyzeCmd(),
		a.summaryCmd(),
		a.fitCmd(),
		configCmd(),
	)
	return root, a.teardown
}

// setup loads configuration, applies changed flags, then starts logging
// and telemetry. The config subcommands skip it.
func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Annotations["skipSetup"] == "true" {
		return nil
	}

	cfg, found, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("input") {
		cfg.Input = a.flags.input
	}
	if f.Changed("output") {
		cfg.OutputDir = a.flags.output
	}
	if f.Changed("threads") {
		cfg.Analysis.Threads = a.flags.threads
	}
	if f.Changed("log-level") {
		cfg.Logging.Level = a.flags.logLevel
	}
	if f.Changed("json-logs") {
		cfg.Logging.JSON = a.flags.jsonLogs
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	lc, err := cfg.LoggerConfig()
	if err != nil {
		return err
	}
	lc.Output = cmd.ErrOrStderr()
	a.logger = logging.New(lc)

	tc := cfg.TelemetryConfig()
	tc.Writer = cmd.ErrOrStderr()
	shutdown, err := telemetry.Init(cmd.Context(), tc)
	if err != nil {
		return err
	}
	a.shutdownTelemetry = shutdown

	if !found {
		a.logger.Debug("No config file, using defaults", "path", a.flags.configPath)
	}
	return nil
}

func (a *app) teardown() error {
	var errs []error
	if a.shutdownTelemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, a.shutdownTelemetry(ctx))
	}
	if a.logger != nil {
		errs = append(errs, a.logger.Close())
	}
	return errors.Join(errs...)
}

func (a *app) console(w io.Writer) *ux.Console {
	return ux.NewConsole(w, ux.ResolveMode(a.cfg.Report.Styled, w))
}

// =============================================================================
// analyze
// =============================================================================

func (a *app) analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Run the full analysis and write every enabled artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cfg.PipelineOptions()
			if err != nil {
				return err
			}
			p, err := pipeline.New(opts, a.logger, nil)
			if err != nil {
				return err
			}
			analysis, manifest, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			return report.Render(a.console(cmd.OutOrStdout()), analysis.ReportContent(manifest.Paths()))
		},
	}
}

// =============================================================================
// summary
// =============================================================================

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the report to the console without writing files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cfg.PipelineOptions()
			if err != nil {
				return err
			}
			opts.Charts.Enabled = false
			opts.Workbook.Enabled = false
			opts.Report.Enabled = false
			opts.Influx = nil

			p, err := pipeline.New(opts, a.logger, nil)
			if err != nil {
				return err
			}
			analysis, err := p.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			return report.Render(a.console(cmd.OutOrStdout()), analysis.ReportContent(nil))
		},
	}
}

// =============================================================================
// fit
// =============================================================================

func (a *app) fitCmd() *cobra.Command {
	var (
		algorithm string
		level     string
		models    []string
	)
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit growth models to one algorithm's timings",
		Example: `  sortperf fit --algorithm QuickSort_Recursive
  sortperf fit --algorithm HeapSort --level O3 --model n2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cfg.PipelineOptions()
			if err != nil {
				return err
			}
			if len(models) > 0 {
				if opts.Models, err = fit.LookupAll(models); err != nil {
					return err
				}
			}
			lvl := opts.ComparisonLevel
			if level != "" {
				lvl = dataset.Level(level)
			}

			p, err := pipeline.New(opts, a.logger, nil)
			if err != nil {
				return err
			}
			table, err := dataset.Load(opts.Input)
			if err != nil {
				return fmt.Errorf("load %s: %w", opts.Input, err)
			}
			series := table.WhereAlgorithm(algorithm).WhereLevel(lvl)
			if series.Len() == 0 {
				return perferr.Newf(perferr.KindDataUnavailable, "no records for %s at %s", algorithm, lvl).
					WithAlgorithm(algorithm).
					WithOptimization(string(lvl))
			}

			outcomes, err := p.Fit(cmd.Context(), series, lvl)
			if err != nil {
				return err
			}
			return report.RenderFits(a.console(cmd.OutOrStdout()), lvl, outcomes)
		},
	}
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "algorithm name as it appears in the CSV")
	cmd.Flags().StringVarP(&level, "level", "l", "", "optimization level (default analysis.comparison_level)")
	cmd.Flags().StringSliceVarP(&models, "model", "m", nil, "growth models to fit (default fit.models)")
	_ = cmd.MarkFlagRequired("algorithm")
	return cmd
}

// =============================================================================
// config
// =============================================================================

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Manage the sortperf configuration file",
		Annotations: map[string]string{"skipSetup": "true"},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write the default configuration",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipSetup": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultPath
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			c := ux.NewConsole(cmd.OutOrStdout(), ux.ResolveMode(ux.StyleAuto, cmd.OutOrStdout()))
			c.Success("Wrote " + path)
			return c.Err()
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
