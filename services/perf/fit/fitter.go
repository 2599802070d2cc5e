// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fit

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/AleutianAI/sortperf/services/perf/perferr"
)

// MinDistinctSizes is the fewest distinct input sizes a fit accepts.
const MinDistinctSizes = 3

// DefaultMaxIterations bounds the optimizer's major iterations.
const DefaultMaxIterations = 200

const (
	// gradientThreshold ends Newton and BFGS runs. Parameters and times
	// are scaled to order one, so this sits well above rounding noise.
	gradientThreshold = 1e-9

	// stationaryTolerance is the largest gradient component at which a
	// failed run is still accepted as a minimum.
	stationaryTolerance = 1e-7

	// statusStationary marks a result accepted by the stationary check
	// after the optimizer itself reported failure.
	statusStationary = "Stationary"
)

// =============================================================================
// Method
// =============================================================================

// Method selects the optimizer.
type Method string

const (
	// MethodNewton uses the exact Gauss-Newton Hessian of the squared
	// residuals.
	MethodNewton Method = "newton"

	// MethodBFGS uses the gradient only.
	MethodBFGS Method = "bfgs"

	// MethodNelderMead is derivative-free.
	MethodNelderMead Method = "nelder-mead"
)

// ParseMethod converts a configuration string to a Method. Empty means
// MethodNewton.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MethodNewton, nil
	case MethodNewton, MethodBFGS, MethodNelderMead:
		return m, nil
	default:
		return "", fmt.Errorf("unknown fit method %q (want newton, bfgs or nelder-mead)", s)
	}
}

func (m Method) optimizer() optimize.Method {
	switch m {
	case MethodBFGS:
		return &optimize.BFGS{}
	case MethodNelderMead:
		return &optimize.NelderMead{}
	default:
		return &optimize.Newton{}
	}
}

func (m Method) usesGradient() bool {
	return m != MethodNelderMead
}

// =============================================================================
// Results
// =============================================================================

// RSquared is a coefficient of determination that may be undefined.
type RSquared struct {
	value   float64
	defined bool
}

// DefinedR2 wraps a computed R².
func DefinedR2(v float64) RSquared { return RSquared{value: v, defined: true} }

// UndefinedR2 is the R² of data with zero total variance.
func UndefinedR2() RSquared { return RSquared{} }

// Value returns R² and whether it is defined.
func (r RSquared) Value() (float64, bool) { return r.value, r.defined }

// Defined reports whether R² is defined.
func (r RSquared) Defined() bool { return r.defined }

// String formats R² with four decimals, or "undefined".
func (r RSquared) String() string {
	if !r.defined {
		return "undefined"
	}
	return fmt.Sprintf("%.4f", r.value)
}

// Result is a converged fit.
type Result struct {
	Model Model

	// A and B are the coefficients of f(n) = A·g(n) + B in seconds.
	A float64
	B float64

	R2 RSquared

	// Points is the number of (size, time) pairs fitted.
	Points int

	// Iterations is the optimizer's major iteration count.
	Iterations int

	// Status is the optimizer's termination status.
	Status string
}

// Eval returns the fitted time at size n.
func (r *Result) Eval(n float64) float64 {
	return r.A*r.Model.Basis(n) + r.B
}

// Equation renders the fitted curve, e.g. "1.5615e-07·n·ln(n) +2.5640e-04".
func (r *Result) Equation() string {
	basis := "n·ln(n)"
	if r.Model.Name() == NSquared.Name() {
		basis = "n²"
	}
	return fmt.Sprintf("%.4e·%s %+.4e", r.A, basis, r.B)
}

// =============================================================================
// Fitter
// =============================================================================

// Fitter runs least-squares fits. The zero value uses MethodNewton and
// DefaultMaxIterations.
//
// # Thread Safety
//
// Fitter holds configuration only; one Fitter may run fits from many
// goroutines.
type Fitter struct {
	Method        Method
	MaxIterations int
}

// NewFitter returns a Fitter with the given method and iteration bound.
// A non-positive bound means DefaultMaxIterations.
func NewFitter(method Method, maxIterations int) *Fitter {
	return &Fitter{Method: method, MaxIterations: maxIterations}
}

// FitGrowthModel fits model with the default Fitter.
func FitGrowthModel(sizes, times []float64, model Model) (*Result, error) {
	return (&Fitter{}).Fit(sizes, times, model)
}

// Fit finds a and b minimizing Σ (a·g(nᵢ) + b − tᵢ)².
//
// # Description
//
// The problem is solved in scaled units, x = g(n)/max g and y = t/max|t|,
// so both parameters are of order one whatever the input magnitudes. The
// seed is (model.SeedA(), 0) converted to the same units. Coefficients
// are mapped back before R² is computed on the original data.
//
// # Inputs
//
//   - sizes: Input sizes, all positive. Duplicates are allowed.
//   - times: Measured times, non-negative, same length as sizes.
//   - model: Growth model to fit.
//
// # Outputs
//
//   - *Result: The fit. R² is undefined when all times are equal.
//   - error: *perferr.Error of kind MalformedInput for mismatched or
//     invalid input, InsufficientData for fewer than MinDistinctSizes
//     distinct sizes, NoConvergence when the optimizer fails away from a
//     minimum or stops on a limit. The error names the model.
//
// # Limitations
//
// The objective is quadratic, so Newton lands on the minimum in one step
// and a later line search may fail to improve on it. An optimizer error
// is therefore accepted when the returned point is finite and its
// gradient is below stationaryTolerance.
func (f *Fitter) Fit(sizes, times []float64, model Model) (*Result, error) {
	if model == nil {
		return nil, perferr.New(perferr.KindMalformedInput, "nil growth model")
	}
	fail := func(kind perferr.Kind, format string, args ...any) error {
		return perferr.Newf(kind, format, args...).WithModel(model.Name())
	}

	if len(sizes) != len(times) {
		return nil, fail(perferr.KindMalformedInput, "%d sizes but %d times", len(sizes), len(times))
	}
	distinct := make(map[float64]bool)
	for i := range sizes {
		n, t := sizes[i], times[i]
		if !(n > 0) || math.IsInf(n, 0) {
			return nil, fail(perferr.KindMalformedInput, "size %v at index %d is not positive", n, i)
		}
		if !(t >= 0) || math.IsInf(t, 0) {
			return nil, fail(perferr.KindMalformedInput, "time %v at index %d is not a non-negative number", t, i)
		}
		distinct[n] = true
	}
	if len(distinct) < MinDistinctSizes {
		return nil, fail(perferr.KindInsufficientData,
			"need at least %d distinct sizes, got %d", MinDistinctSizes, len(distinct))
	}

	m := len(sizes)
	xs := make([]float64, m)
	ys := make([]float64, m)
	var gmax, ymax float64
	for i := range sizes {
		xs[i] = model.Basis(sizes[i])
		gmax = math.Max(gmax, math.Abs(xs[i]))
		ymax = math.Max(ymax, times[i])
	}
	if gmax == 0 {
		return nil, fail(perferr.KindInsufficientData, "basis is zero at every size")
	}
	if ymax == 0 {
		ymax = 1
	}
	for i := range xs {
		xs[i] /= gmax
		ys[i] = times[i] / ymax
	}

	problem := leastSquares(xs, ys)
	seed := []float64{model.SeedA() * gmax / ymax, 0}

	maxIter := f.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	settings := &optimize.Settings{MajorIterations: maxIter}
	if f.Method.usesGradient() {
		settings.GradientThreshold = gradientThreshold
		settings.Converger = &optimize.FunctionConverge{
			Absolute:   1e-15,
			Relative:   1e-12,
			Iterations: 10,
		}
	}

	res, err := optimize.Minimize(problem, seed, settings, f.Method.optimizer())
	var status string
	switch {
	case err != nil:
		if !stationary(problem, res) {
			return nil, perferr.Wrap(perferr.KindNoConvergence, err, "optimizer failed").WithModel(model.Name())
		}
		status = statusStationary
	case !converged(res.Status):
		return nil, fail(perferr.KindNoConvergence,
			"optimizer stopped with status %s after %d iterations", res.Status, res.Stats.MajorIterations)
	default:
		status = res.Status.String()
	}

	a := res.X[0] * ymax / gmax
	b := res.X[1] * ymax
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return nil, fail(perferr.KindNoConvergence, "optimizer returned non-finite coefficients")
	}

	result := &Result{
		Model:      model,
		A:          a,
		B:          b,
		Points:     m,
		Iterations: res.Stats.MajorIterations,
		Status:     status,
	}
	result.R2 = RSquaredOf(sizes, times, result.Eval)
	return result, nil
}

// converged lists the statuses that mean the optimizer reached a minimum.
// Limits (iterations, evaluations, runtime) and failures do not count.
func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionThreshold,
		optimize.FunctionConvergence,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	default:
		return false
	}
}

// stationary reports whether res holds a finite point where every
// gradient component of problem is within stationaryTolerance.
func stationary(problem optimize.Problem, res *optimize.Result) bool {
	if res == nil || len(res.X) != 2 {
		return false
	}
	for _, v := range res.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	grad := make([]float64, len(res.X))
	problem.Grad(grad, res.X)
	norm := floats.Norm(grad, math.Inf(1))
	return norm <= stationaryTolerance
}

// leastSquares builds the objective F(α, β) = Σ (α·xᵢ + β − yᵢ)² with its
// gradient and exact Hessian.
func leastSquares(xs, ys []float64) optimize.Problem {
	var sxx, sx float64
	for _, x := range xs {
		sxx += x * x
		sx += x
	}
	m := float64(len(xs))

	return optimize.Problem{
		Func: func(p []float64) float64 {
			var sum float64
			for i, x := range xs {
				r := p[0]*x + p[1] - ys[i]
				sum += r * r
			}
			return sum
		},
		Grad: func(grad, p []float64) {
			var ga, gb float64
			for i, x := range xs {
				r := p[0]*x + p[1] - ys[i]
				ga += r * x
				gb += r
			}
			grad[0] = 2 * ga
			grad[1] = 2 * gb
		},
		Hess: func(hess *mat.SymDense, p []float64) {
			hess.SetSym(0, 0, 2*sxx)
			hess.SetSym(0, 1, 2*sx)
			hess.SetSym(1, 1, 2*m)
		},
	}
}

// RSquaredOf computes 1 − SS_res/SS_tot of predict against times. It is
// undefined when SS_tot is zero and may be negative for a poor fit.
func RSquaredOf(sizes, times []float64, predict func(n float64) float64) RSquared {
	if len(times) == 0 {
		return UndefinedR2()
	}
	var mean float64
	for _, t := range times {
		mean += t
	}
	mean /= float64(len(times))

	var ssRes, ssTot float64
	for i, t := range times {
		d := t - predict(sizes[i])
		ssRes += d * d
		ssTot += (t - mean) * (t - mean)
	}
	if ssTot == 0 {
		return UndefinedR2()
	}
	return DefinedR2(1 - ssRes/ssTot)
}
