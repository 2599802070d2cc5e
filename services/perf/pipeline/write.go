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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/sortperf/services/perf/charts"
	"github.com/AleutianAI/sortperf/services/perf/export"
	"github.com/AleutianAI/sortperf/services/perf/report"
	"github.com/AleutianAI/sortperf/services/perf/telemetry"
)

// Artifact kinds.
const (
	KindChart    = "chart"
	KindWorkbook = "workbook"
	KindReport   = "report"
)

// Artifact is one written file.
type Artifact struct {
	Kind string
	Path string
}

// Manifest lists the files written by a run, sorted by path.
type Manifest struct {
	RunID string
	Files []Artifact
}

// Paths returns the file paths in manifest order.
func (m Manifest) Paths() []string {
	out := make([]string, len(m.Files))
	for i, f := range m.Files {
		out[i] = f.Path
	}
	return out
}

// Count returns the number of files of one kind.
func (m Manifest) Count(kind string) int {
	n := 0
	for _, f := range m.Files {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// collector gathers artifacts from concurrent writers.
type collector struct {
	mu    sync.Mutex
	files []Artifact
}

func (c *collector) add(kind string, paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		c.files = append(c.files, Artifact{Kind: kind, Path: p})
	}
}

func (c *collector) manifest(runID string) Manifest {
	c.mu.Lock()
	defer c.mu.Unlock()
	files := slices.Clone(c.files)
	slices.SortFunc(files, func(a, b Artifact) int { return strings.Compare(a.Path, b.Path) })
	return Manifest{RunID: runID, Files: files}
}

// Write renders every enabled artifact for a and exports results when
// InfluxDB is configured.
//
// # Description
//
// Charts (one task per view), the workbook and the text report are
// written concurrently. The first write error cancels the remaining
// tasks and is returned with the files written so far. InfluxDB export
// runs after the files and only logs on failure.
func (p *Pipeline) Write(ctx context.Context, a *Analysis) (Manifest, error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.Write")
	defer span.End()
	logger := p.logger.With("run_id", a.RunID)

	var out collector
	if p.opts.writesFiles() {
		if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
			err = fmt.Errorf("create output directory %s: %w", p.opts.OutputDir, err)
			telemetry.RecordError(span, err)
			return out.manifest(a.RunID), err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if p.opts.Charts.Enabled {
		if err := p.goCharts(gctx, g, a, &out); err != nil {
			telemetry.RecordError(span, err)
			return out.manifest(a.RunID), err
		}
	}
	if p.opts.Workbook.Enabled {
		path := filepath.Join(p.opts.OutputDir, fileName(p.opts.Workbook.FileName, DefaultWorkbookName))
		g.Go(func() error {
			err := report.WriteWorkbook(path, report.Workbook{
				Raw:     a.Derived,
				Summary: a.Summary,
				Best:    a.Best,
			})
			if err != nil {
				return err
			}
			p.metrics.RecordArtifact(gctx, KindWorkbook)
			out.add(KindWorkbook, path)
			return nil
		})
	}
	if p.opts.Report.Enabled {
		path := filepath.Join(p.opts.OutputDir, fileName(p.opts.Report.FileName, DefaultReportName))
		g.Go(func() error {
			if err := report.WriteFile(path, a.ReportContent(nil)); err != nil {
				return err
			}
			p.metrics.RecordArtifact(gctx, KindReport)
			out.add(KindReport, path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Writing artifacts failed", "error", err)
		telemetry.RecordError(span, err)
		return out.manifest(a.RunID), fmt.Errorf("write artifacts: %w", err)
	}

	manifest := out.manifest(a.RunID)
	for _, f := range manifest.Files {
		logger.Info("Artifact written", "kind", f.Kind, "path", f.Path)
	}
	span.SetAttributes(attribute.Int("artifacts", len(manifest.Files)))

	if p.opts.Influx != nil {
		p.export(ctx, a)
	}
	telemetry.SetSpanOK(span)
	return manifest, nil
}

func (p *Pipeline) goCharts(ctx context.Context, g *errgroup.Group, a *Analysis, out *collector) error {
	r, err := charts.NewRenderer(charts.Config{
		Dir:      p.opts.OutputDir,
		Formats:  p.opts.Charts.Formats,
		WidthIn:  p.opts.Charts.WidthIn,
		HeightIn: p.opts.Charts.HeightIn,
	}, p.logger.With("run_id", a.RunID))
	if err != nil {
		return fmt.Errorf("charts: %w", err)
	}

	views := []func() ([]string, error){
		func() ([]string, error) { return r.TimeVsSize(ctx, a.Table, a.ComparisonLevel) },
		func() ([]string, error) { return r.OptimizationImpact(ctx, a.Table) },
		func() ([]string, error) { return r.AlgorithmComparison(ctx, a.Table, a.ComparisonLevel) },
		func() ([]string, error) { return r.Complexity(ctx, a.Table, a.ComparisonLevel, a.Fits) },
		func() ([]string, error) { return r.ParallelEfficiency(ctx, a.Speedup, a.ComparisonLevel) },
	}
	for _, view := range views {
		g.Go(func() error {
			paths, err := view()
			out.add(KindChart, paths...)
			for range paths {
				p.metrics.RecordArtifact(ctx, KindChart)
			}
			return err
		})
	}
	return nil
}

func (p *Pipeline) export(ctx context.Context, a *Analysis) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.Export")
	defer span.End()
	logger := p.logger.With("run_id", a.RunID)

	sink, err := export.NewSink(*p.opts.Influx, logger)
	if err != nil {
		logger.Warn("InfluxDB export disabled", "error", err)
		telemetry.RecordError(span, err)
		return
	}
	defer sink.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	speedup := a.Speedup
	n, err := sink.Export(ctx, export.Results{
		RunID:   a.RunID,
		At:      time.Now(),
		Summary: a.Summary,
		Fits:    a.Fits,
		Speedup: &speedup,
	})
	if err != nil {
		logger.Warn("InfluxDB export failed", "error", err)
		telemetry.RecordError(span, err)
		return
	}
	span.SetAttributes(attribute.Int("points", n))
	telemetry.SetSpanOK(span)
}

func fileName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
