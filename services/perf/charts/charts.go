// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package charts renders benchmark views as image files with gonum/plot.
//
// Every view is written once per configured format (png, svg, pdf) under
// the output directory as "<view>.<format>". Multi-panel views tile one
// plot per algorithm or metric on a single canvas.
//
// Axes switch to a log scale only when every value on the axis is positive
// and the values are not all equal. Otherwise the axis stays linear, so a
// sparse or degenerate dataset still renders.
package charts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/AleutianAI/sortperf/pkg/logging"
)

// Format is an output image format.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
	FormatPDF Format = "pdf"
)

// ErrUnknownFormat is returned for an unsupported image format.
var ErrUnknownFormat = errors.New("charts: unknown format")

// ParseFormat accepts "png", "svg" and "pdf" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPNG, FormatSVG, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// View names, used as output file stems.
const (
	ViewTimeVsSize          = "time_vs_size"
	ViewOptimizationImpact  = "optimization_impact"
	ViewAlgorithmComparison = "algorithm_comparison"
	ViewComplexity          = "complexity_analysis"
	ViewParallelEfficiency  = "parallel_efficiency"
)

// Config controls chart output.
type Config struct {
	// Dir is created if missing.
	Dir string

	// Formats defaults to png and svg.
	Formats []string

	// WidthIn and HeightIn are the size of one panel in inches. Defaults
	// are 8 by 5.
	WidthIn  float64
	HeightIn float64
}

// Renderer writes chart views to files.
//
// # Thread Safety
//
// Views build their own plots, so different views may render
// concurrently from one Renderer.
type Renderer struct {
	dir     string
	formats []Format
	width   vg.Length
	height  vg.Length
	logger  *logging.Logger
}

// NewRenderer validates cfg and creates the output directory.
func NewRenderer(cfg Config, logger *logging.Logger) (*Renderer, error) {
	if cfg.Dir == "" {
		return nil, errors.New("charts: output directory is empty")
	}
	names := cfg.Formats
	if len(names) == 0 {
		names = []string{string(FormatPNG), string(FormatSVG)}
	}
	seen := make(map[Format]bool)
	var formats []Format
	for _, name := range names {
		f, err := ParseFormat(name)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	width, height := cfg.WidthIn, cfg.HeightIn
	if width <= 0 {
		width = 8
	}
	if height <= 0 {
		height = 5
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart directory %s: %w", cfg.Dir, err)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Renderer{
		dir:     cfg.Dir,
		formats: formats,
		width:   vg.Length(width) * vg.Inch,
		height:  vg.Length(height) * vg.Inch,
		logger:  logger,
	}, nil
}

// Formats returns the formats each view is written in.
func (r *Renderer) Formats() []Format {
	return append([]Format(nil), r.formats...)
}

// =============================================================================
// Panels
// =============================================================================

// panel is one plot plus the data it shows, used to pick axis scales.
type panel struct {
	*plot.Plot
	xs, ys []float64
	series int
}

func newPanel(title, xLabel, yLabel string) *panel {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())
	return &panel{Plot: p}
}

func toXYs(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

// addSeries adds a line with point markers in the next palette color.
func (pn *panel) addSeries(name string, xs, ys []float64) error {
	if len(xs) == 0 {
		return nil
	}
	line, points, err := plotter.NewLinePoints(toXYs(xs, ys))
	if err != nil {
		return fmt.Errorf("series %s: %w", name, err)
	}
	c := plotutil.Color(pn.series)
	line.Color = c
	line.Width = vg.Points(1.5)
	points.Color = c
	points.Shape = plotutil.Shape(pn.series)
	pn.Add(line, points)
	pn.Legend.Add(name, line, points)
	pn.track(xs, ys)
	pn.series++
	return nil
}

// addPoints adds markers without a connecting line.
func (pn *panel) addPoints(name string, xs, ys []float64) error {
	if len(xs) == 0 {
		return nil
	}
	points, err := plotter.NewScatter(toXYs(xs, ys))
	if err != nil {
		return fmt.Errorf("points %s: %w", name, err)
	}
	points.Color = plotutil.Color(pn.series)
	points.Shape = plotutil.Shape(pn.series)
	points.Radius = vg.Points(3)
	pn.Add(points)
	pn.Legend.Add(name, points)
	pn.track(xs, ys)
	pn.series++
	return nil
}

// addCurve adds a dashed line without markers.
func (pn *panel) addCurve(name string, xs, ys []float64) error {
	if len(xs) == 0 {
		return nil
	}
	line, err := plotter.NewLine(toXYs(xs, ys))
	if err != nil {
		return fmt.Errorf("curve %s: %w", name, err)
	}
	line.Color = plotutil.Color(pn.series)
	line.Width = vg.Points(1.5)
	line.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
	pn.Add(line)
	pn.Legend.Add(name, line)
	pn.track(xs, ys)
	pn.series++
	return nil
}

// addReference adds a horizontal line at y across the panel's x range.
func (pn *panel) addReference(name string, y float64) error {
	if len(pn.xs) == 0 {
		return nil
	}
	lo, hi := bounds(pn.xs)
	line, err := plotter.NewLine(plotter.XYs{{X: lo, Y: y}, {X: hi, Y: y}})
	if err != nil {
		return fmt.Errorf("reference %s: %w", name, err)
	}
	line.Color = plotutil.DarkColors[len(plotutil.DarkColors)-1]
	line.Width = vg.Points(1)
	line.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	pn.Add(line)
	pn.Legend.Add(name, line)
	pn.ys = append(pn.ys, y)
	return nil
}

// note adds a legend entry with no marker.
func (pn *panel) note(text string) {
	pn.Legend.Add(text)
}

func (pn *panel) track(xs, ys []float64) {
	pn.xs = append(pn.xs, xs...)
	pn.ys = append(pn.ys, ys...)
}

// logLog switches each axis to a log scale when its values allow it.
func (pn *panel) logLog() {
	if logFriendly(pn.xs) {
		pn.X.Scale = plot.LogScale{}
		pn.X.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	if logFriendly(pn.ys) {
		pn.Y.Scale = plot.LogScale{}
		pn.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
}

// logX switches only the x axis.
func (pn *panel) logX() {
	if logFriendly(pn.xs) {
		pn.X.Scale = plot.LogScale{}
		pn.X.Tick.Marker = plot.LogTicks{Prec: -1}
	}
}

func logFriendly(vs []float64) bool {
	if len(vs) < 2 {
		return false
	}
	for _, v := range vs {
		if !(v > 0) || math.IsInf(v, 0) {
			return false
		}
	}
	lo, hi := bounds(vs)
	return lo < hi
}

func bounds(vs []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// logSpace returns n points from lo to hi evenly spaced on a log scale.
func logSpace(lo, hi float64, n int) []float64 {
	if n < 2 || lo == hi {
		return []float64{lo}
	}
	out := make([]float64, n)
	ratio := math.Log(hi / lo)
	for i := range out {
		out[i] = lo * math.Exp(ratio*float64(i)/float64(n-1))
	}
	out[n-1] = hi
	return out
}

// =============================================================================
// Output
// =============================================================================

// gridSize returns rows and columns for n panels, at most cols wide.
func gridSize(n, maxCols int) (rows, cols int) {
	if n <= 0 {
		return 1, 1
	}
	cols = min(n, maxCols)
	rows = (n + cols - 1) / cols
	return rows, cols
}

// save tiles panels row by row and writes one file per format.
func (r *Renderer) save(ctx context.Context, name string, maxCols int, panels []*panel) ([]string, error) {
	rows, cols := gridSize(len(panels), maxCols)
	grid := make([][]*plot.Plot, rows)
	for j := range grid {
		grid[j] = make([]*plot.Plot, cols)
		for i := range grid[j] {
			if k := j*cols + i; k < len(panels) {
				grid[j][i] = panels[k].Plot
			}
		}
	}
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 6,
		PadY:      vg.Millimeter * 6,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 4,
	}
	width := r.width * vg.Length(cols)
	height := r.height * vg.Length(rows)

	var paths []string
	for _, format := range r.formats {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		c, err := draw.NewFormattedCanvas(width, height, string(format))
		if err != nil {
			return paths, fmt.Errorf("create %s canvas for %s: %w", format, name, err)
		}
		canvases := plot.Align(grid, tiles, draw.New(c))
		for j := range grid {
			for i, p := range grid[j] {
				if p != nil {
					p.Draw(canvases[j][i])
				}
			}
		}
		path := filepath.Join(r.dir, name+"."+string(format))
		if err := writeCanvas(path, c); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	r.logger.Debug("Chart written", "view", name, "files", len(paths))
	return paths, nil
}

func writeCanvas(path string, c vg.CanvasWriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
