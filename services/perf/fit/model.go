// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fit fits growth-rate models to (input size, time) measurements
// by nonlinear least squares.
//
// A model has the shape
//
//	f(n) = a·g(n) + b
//
// where g is the model's basis: n·ln(n) for NLogN, n² for NSquared. The
// coefficients are found with gonum's optimize package, seeded from the
// model's typical per-operation cost, and scored with R² on the original
// scale of the data.
package fit

import (
	"fmt"
	"math"
	"strings"
)

// Model is a growth-rate model f(n) = a·g(n) + b.
type Model interface {
	// Name is the configuration identifier, e.g. "nlogn".
	Name() string

	// Label is the display form, e.g. "O(n log n)".
	Label() string

	// Basis evaluates g(n).
	Basis(n float64) float64

	// SeedA is the starting value of a, in seconds per basis unit.
	SeedA() float64
}

// NLogN is the linearithmic model a·n·ln(n) + b.
var NLogN Model = nLogN{}

type nLogN struct{}

func (nLogN) Name() string            { return "nlogn" }
func (nLogN) Label() string           { return "O(n log n)" }
func (nLogN) Basis(n float64) float64 { return n * math.Log(n) }
func (nLogN) SeedA() float64          { return 1e-7 }

// NSquared is the quadratic model a·n² + b.
var NSquared Model = nSquared{}

type nSquared struct{}

func (nSquared) Name() string            { return "n2" }
func (nSquared) Label() string           { return "O(n²)" }
func (nSquared) Basis(n float64) float64 { return n * n }
func (nSquared) SeedA() float64          { return 1e-9 }

// Models returns every known model in display order.
func Models() []Model {
	return []Model{NLogN, NSquared}
}

// Lookup returns the model with the given name. "n^2" and "nsquared" are
// accepted for NSquared, "nlog(n)" and "linearithmic" for NLogN.
func Lookup(name string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "nlogn", "nlog(n)", "n_log_n", "linearithmic":
		return NLogN, nil
	case "n2", "n^2", "nsquared", "quadratic":
		return NSquared, nil
	default:
		return nil, fmt.Errorf("unknown growth model %q (want nlogn or n2)", name)
	}
}

// LookupAll resolves a list of model names, keeping order and dropping
// duplicates.
func LookupAll(names []string) ([]Model, error) {
	seen := make(map[string]bool)
	var out []Model
	for _, name := range names {
		m, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		if seen[m.Name()] {
			continue
		}
		seen[m.Name()] = true
		out = append(out, m)
	}
	return out, nil
}
