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
	"errors"
	"fmt"

	"github.com/AleutianAI/sortperf/services/perf/dataset"
	"github.com/AleutianAI/sortperf/services/perf/perferr"
)

// Outcome is the result of fitting one model to one algorithm's series.
// Exactly one of Result and Err is set.
type Outcome struct {
	Algorithm string
	Level     dataset.Level
	Model     Model

	// Sizes and Times are the fitted series, one mean time per size.
	Sizes []float64
	Times []float64

	Result *Result
	Err    error
}

// OK reports whether the fit converged.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Result != nil
}

// Label is the chart legend text, e.g. "O(n log n), R²=0.9999" or
// "O(n²): no convergence".
func (o Outcome) Label() string {
	if o.OK() {
		return fmt.Sprintf("%s, R²=%s", o.Model.Label(), o.Result.R2)
	}
	return fmt.Sprintf("%s: %s", o.Model.Label(), o.Reason())
}

// Reason names why the fit failed, "" when it converged.
func (o Outcome) Reason() string {
	if o.OK() {
		return ""
	}
	if kind, ok := perferr.KindOf(o.Err); ok {
		return kind.Sentinel().Error()
	}
	return "error"
}

// FitSeries fits model to an algorithm's (size, mean time) series and
// attaches the algorithm and level to any failure.
func (f *Fitter) FitSeries(algorithm string, level dataset.Level, sizes, times []float64, model Model) Outcome {
	out := Outcome{
		Algorithm: algorithm,
		Level:     level,
		Model:     model,
		Sizes:     sizes,
		Times:     times,
	}
	res, err := f.Fit(sizes, times, model)
	if err != nil {
		var pe *perferr.Error
		if errors.As(err, &pe) {
			err = pe.WithAlgorithm(algorithm).WithOptimization(string(level))
		}
		out.Err = err
		return out
	}
	out.Result = res
	return out
}
