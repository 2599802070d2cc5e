// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline runs a full benchmark analysis: load, derive,
// aggregate, fit, then write artifacts.
//
// # Stages
//
// Analyze does all computation and returns fatal errors (DataUnavailable,
// MalformedInput) before anything touches the output directory. Local
// failures (a fit that does not converge, a group without a baseline) are
// logged at Warn and kept in the Analysis. Write renders charts, the
// workbook and the text report concurrently, then exports to InfluxDB
// when configured. An export failure is logged and does not fail the run.
//
// # Thread Safety
//
// A Pipeline holds configuration only and may run several analyses
// concurrently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/sortperf/pkg/logging"
	"github.com/AleutianAI/sortperf/services/perf/aggregate"
	"github.com/AleutianAI/sortperf/services/perf/dataset"
	"github.com/AleutianAI/sortperf/services/perf/fit"
	"github.com/AleutianAI/sortperf/services/perf/perferr"
	"github.com/AleutianAI/sortperf/services/perf/report"
	"github.com/AleutianAI/sortperf/services/perf/telemetry"
)

// Analysis is the computed result of one run.
type Analysis struct {
	RunID  string
	Source string

	Table    *dataset.Table
	Derived  *dataset.DerivedTable
	Overview dataset.Overview

	Baseline dataset.Level

	// ComparisonLevel is the level actually used, which differs from the
	// configured one when that level is absent from the data.
	ComparisonLevel dataset.Level

	Best         *dataset.Table
	Summary      []aggregate.Summary
	PerSize      []aggregate.SizeLine
	Improvements aggregate.ImprovementResult
	Speedup      aggregate.SpeedupResult
	Fits         []fit.Outcome
}

// ReportContent converts the analysis to report input.
func (a *Analysis) ReportContent(artifacts []string) report.Content {
	speedup := a.Speedup
	return report.Content{
		RunID:           a.RunID,
		Source:          a.Source,
		Overview:        a.Overview,
		Baseline:        a.Baseline,
		ComparisonLevel: a.ComparisonLevel,
		Best:            a.Best,
		PerSize:         a.PerSize,
		Improvements:    a.Improvements,
		Fits:            a.Fits,
		Speedup:         &speedup,
		Artifacts:       artifacts,
	}
}

// FailedFits returns the outcomes that did not converge.
func (a *Analysis) FailedFits() []fit.Outcome {
	var out []fit.Outcome
	for _, o := range a.Fits {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Pipeline runs analyses with fixed options.
type Pipeline struct {
	opts    Options
	fitter  *fit.Fitter
	logger  *logging.Logger
	metrics *telemetry.Metrics
}

// New validates opts. A nil logger discards output; nil metrics record on
// the global meter provider.
func New(opts Options, logger *logging.Logger, metrics *telemetry.Metrics) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if metrics == nil {
		m, err := telemetry.DefaultMetrics()
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		metrics = m
	}
	return &Pipeline{
		opts:    opts,
		fitter:  fit.NewFitter(opts.Method, opts.MaxIterations),
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Options returns the pipeline's options.
func (p *Pipeline) Options() Options { return p.opts }

// Run analyzes the input and writes every enabled artifact.
//
// # Outputs
//
//   - *Analysis: Nil when a fatal error stopped the run before analysis
//     completed.
//   - Manifest: Files written. Empty when Analyze failed.
//   - error: Fatal errors only. Classify with perferr.KindOf.
func (p *Pipeline) Run(ctx context.Context) (*Analysis, Manifest, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.Run")
	defer span.End()

	analysis, err := p.Analyze(ctx)
	if err != nil {
		p.metrics.RecordRun(ctx, "failed", time.Since(start))
		telemetry.RecordError(span, err)
		return nil, Manifest{}, err
	}
	span.SetAttributes(attribute.String("run_id", analysis.RunID))

	manifest, err := p.Write(ctx, analysis)
	if err != nil {
		p.metrics.RecordRun(ctx, "failed", time.Since(start))
		telemetry.RecordError(span, err)
		return analysis, manifest, err
	}

	p.metrics.RecordRun(ctx, "ok", time.Since(start))
	telemetry.SetSpanOK(span)
	p.logger.Info("Run complete",
		"run_id", analysis.RunID,
		"artifacts", len(manifest.Files),
		"duration", time.Since(start).String())
	return analysis, manifest, nil
}

// Analyze loads the input and computes every derived result. It writes
// nothing.
func (p *Pipeline) Analyze(ctx context.Context) (*Analysis, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	ctx, span := telemetry.StartSpan(ctx, "pipeline.Analyze",
		trace.WithAttributes(attribute.String("run_id", runID), attribute.String("input", p.opts.Input)))
	defer span.End()

	table, err := p.load(ctx, logger)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	derived, err := dataset.DeriveMetrics(table)
	if err != nil {
		logger.Error("Derived metrics failed", "error", err)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("derive metrics: %w", err)
	}

	a := &Analysis{
		RunID:           runID,
		Source:          p.opts.Input,
		Table:           table,
		Derived:         derived,
		Overview:        table.Overview(),
		Baseline:        p.opts.Baseline,
		ComparisonLevel: p.resolveLevel(table, logger),
	}

	a.Best = aggregate.BestByGroup(table,
		[]aggregate.Field{aggregate.FieldDataSize, aggregate.FieldAlgorithm},
		dataset.MetricTime, aggregate.Minimize)
	a.Summary = aggregate.Summarize(table)
	a.PerSize = aggregate.PerSize(table, a.ComparisonLevel)

	a.Improvements = aggregate.RelativeImprovement(p.opts.Baseline, table)
	p.reportSkipped(ctx, logger, "improvement", a.Improvements.Skipped)

	speedup, err := p.speedup(table, a.ComparisonLevel)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	a.Speedup = speedup
	p.reportSkipped(ctx, logger, "speedup", speedup.Skipped)

	fits, err := p.Fit(ctx, table, a.ComparisonLevel)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	a.Fits = fits

	logger.Info("Analysis complete",
		"records", a.Overview.Records,
		"improvements", len(a.Improvements.Rows),
		"speedup_rows", len(a.Speedup.Rows),
		"fits", len(a.Fits),
		"failed_fits", len(a.FailedFits()))
	telemetry.SetSpanOK(span)
	return a, nil
}

func (p *Pipeline) load(ctx context.Context, logger *logging.Logger) (*dataset.Table, error) {
	_, span := telemetry.StartSpan(ctx, "pipeline.Load")
	defer span.End()

	table, err := dataset.Load(p.opts.Input)
	if err != nil {
		logger.Error("Load failed", "input", p.opts.Input, "error", err)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("load %s: %w", p.opts.Input, err)
	}
	p.metrics.RecordLoad(ctx, table.Len())

	if len(p.opts.Levels) > 0 {
		keep := make(map[dataset.Level]bool, len(p.opts.Levels))
		for _, l := range p.opts.Levels {
			keep[l] = true
		}
		table = table.Filter(func(r dataset.Record) bool { return keep[r.Optimization] })
		if table.Len() == 0 {
			err := perferr.Newf(perferr.KindDataUnavailable, "no records at levels %v", levelNames(p.opts.Levels))
			logger.Error("Load failed", "input", p.opts.Input, "error", err)
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	o := table.Overview()
	logger.Info("Dataset loaded",
		"input", p.opts.Input,
		"records", o.Records,
		"algorithms", o.Algorithms,
		"levels", levelNames(o.Levels),
		"min_size", o.MinSize,
		"max_size", o.MaxSize)
	span.SetAttributes(attribute.Int("records", o.Records))
	return table, nil
}

// resolveLevel returns the configured comparison level, or the highest
// level in the table when the configured one is absent.
func (p *Pipeline) resolveLevel(t *dataset.Table, logger *logging.Logger) dataset.Level {
	want := p.opts.ComparisonLevel
	if t.HasLevel(want) {
		return want
	}
	levels := t.Levels()
	got := levels[len(levels)-1]
	logger.Warn("Comparison level not in data, using highest level present",
		"configured", string(want),
		"using", string(got))
	return got
}

func (p *Pipeline) speedup(t *dataset.Table, level dataset.Level) (aggregate.SpeedupResult, error) {
	atLevel := t.WhereLevel(level)
	seq := atLevel.WhereAlgorithm(p.opts.SequentialAlgorithm)
	par := atLevel.WhereAlgorithm(p.opts.ParallelAlgorithm)
	res, err := aggregate.ComputeSpeedup(seq, par, []aggregate.Field{aggregate.FieldDataSize}, p.opts.Threads)
	if err != nil {
		return res, fmt.Errorf("compute speedup: %w", err)
	}
	return res, nil
}

func (p *Pipeline) reportSkipped(ctx context.Context, logger *logging.Logger, comparison string, skipped []aggregate.Skipped) {
	p.metrics.RecordSkipped(ctx, comparison, len(skipped))
	for _, s := range skipped {
		logger.Warn("Comparison group skipped",
			"comparison", comparison,
			"group", s.ID.String(),
			"reason", s.Reason.Error())
	}
}

// =============================================================================
// Fitting
// =============================================================================

// Fit fits every configured model to every algorithm's mean-time series
// at one level. Fits run concurrently; the result order is algorithm
// appearance, then model order.
//
// # Outputs
//
//   - []fit.Outcome: One per (algorithm, model). Failed fits carry Err.
//   - error: Only when ctx is canceled.
func (p *Pipeline) Fit(ctx context.Context, t *dataset.Table, level dataset.Level) ([]fit.Outcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.Fit",
		trace.WithAttributes(attribute.String("optimization", string(level))))
	defer span.End()

	atLevel := t.WhereLevel(level)
	algorithms := atLevel.Algorithms()
	models := p.opts.Models
	outcomes := make([]fit.Outcome, len(algorithms)*len(models))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, alg := range algorithms {
		sizes, times := aggregate.SizeSeries(atLevel.WhereAlgorithm(alg), dataset.MetricTime)
		for j, model := range models {
			slot := i*len(models) + j
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				start := time.Now()
				out := p.fitter.FitSeries(alg, level, sizes, times, model)
				p.metrics.RecordFit(gctx, model.Name(), outcomeLabel(out.Err), time.Since(start))
				outcomes[slot] = out
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("fit: %w", err)
	}

	for _, o := range outcomes {
		if o.OK() {
			r2, _ := o.Result.R2.Value()
			p.logger.Debug("Fit converged",
				"algorithm", o.Algorithm,
				"model", o.Model.Name(),
				"a", o.Result.A,
				"b", o.Result.B,
				"r2", r2,
				"r2_defined", o.Result.R2.Defined())
			continue
		}
		msg := "Fit skipped"
		if errors.Is(o.Err, perferr.ErrNoConvergence) {
			msg = "Fit did not converge, showing raw points"
		}
		p.logger.Warn(msg,
			"algorithm", o.Algorithm,
			"optimization", string(o.Level),
			"model", o.Model.Name(),
			"error", o.Err.Error())
		telemetry.AddSpanEvent(span, "fit.failed",
			attribute.String("algorithm", o.Algorithm),
			attribute.String("model", o.Model.Name()),
			attribute.String("reason", o.Reason()))
	}
	telemetry.SetSpanOK(span)
	return outcomes, nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return telemetry.OutcomeOK
	}
	kind, ok := perferr.KindOf(err)
	if !ok {
		return telemetry.OutcomeError
	}
	switch kind {
	case perferr.KindInsufficientData:
		return telemetry.OutcomeInsufficientData
	case perferr.KindNoConvergence:
		return telemetry.OutcomeNoConvergence
	default:
		return telemetry.OutcomeError
	}
}

func levelNames(levels []dataset.Level) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}
