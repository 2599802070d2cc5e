// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package perferr defines the error taxonomy shared by the sortperf
// analysis packages.
//
// Every failure belongs to one Kind. Fatal kinds (DataUnavailable,
// MalformedInput) abort a run before any artifact is written; local kinds
// (InsufficientData, NoConvergence, MissingGroup) skip one fit or one
// comparison row and the run continues.
//
// Callers test the kind with errors.Is against the sentinels:
//
//	if errors.Is(err, perferr.ErrNoConvergence) {
//	    // fall back to raw points
//	}
//
// and pull the context (algorithm, level, size, row) with errors.As.
package perferr

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Sentinels
// =============================================================================

var (
	// ErrDataUnavailable means the input file is missing, unreadable, or
	// holds no data rows.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrMalformedInput means a required column is missing or a field
	// cannot be parsed or is out of range.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInsufficientData means a fit has fewer than three distinct sizes.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNoConvergence means the optimizer stopped without converging.
	ErrNoConvergence = errors.New("no convergence")

	// ErrMissingGroup means a comparison group has no counterpart.
	ErrMissingGroup = errors.New("missing group")
)

// =============================================================================
// Kind
// =============================================================================

// Kind classifies an Error.
type Kind int

const (
	KindDataUnavailable Kind = iota
	KindMalformedInput
	KindInsufficientData
	KindNoConvergence
	KindMissingGroup
)

// String returns the kind's name, or "unknown".
func (k Kind) String() string {
	switch k {
	case KindDataUnavailable:
		return "DataUnavailable"
	case KindMalformedInput:
		return "MalformedInput"
	case KindInsufficientData:
		return "InsufficientData"
	case KindNoConvergence:
		return "NoConvergence"
	case KindMissingGroup:
		return "MissingGroup"
	default:
		return "unknown"
	}
}

// Sentinel returns the package sentinel for the kind, or nil for an
// unknown kind.
func (k Kind) Sentinel() error {
	switch k {
	case KindDataUnavailable:
		return ErrDataUnavailable
	case KindMalformedInput:
		return ErrMalformedInput
	case KindInsufficientData:
		return ErrInsufficientData
	case KindNoConvergence:
		return ErrNoConvergence
	case KindMissingGroup:
		return ErrMissingGroup
	default:
		return nil
	}
}

// Fatal reports whether the kind aborts a run.
func (k Kind) Fatal() bool {
	return k == KindDataUnavailable || k == KindMalformedInput
}

// =============================================================================
// Error
// =============================================================================

// Error is a classified analysis failure with the context needed to
// locate it in the input.
//
// # Description
//
// Zero-valued context fields are omitted from the message. Row is the
// zero-based data row index, or -1 when the error is not tied to a row.
//
// # Thread Safety
//
// Error is immutable after creation and safe for concurrent reads.
//
// # Example
//
//	err := perferr.New(perferr.KindMalformedInput, "DataSize must be positive").
//	    WithRow(4).WithAlgorithm("QuickSort_Recursive")
//	// malformed input: row 4: algorithm QuickSort_Recursive: DataSize must be positive
type Error struct {
	Kind         Kind
	Algorithm    string
	Optimization string
	DataSize     int64
	Row          int
	Model        string
	Detail       string
	Cause        error
}

// New creates an Error of the given kind with a detail message.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Row: -1}
}

// Newf is New with a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap creates an Error of the given kind around cause. Returns nil if
// cause is nil.
func Wrap(kind Kind, cause error, detail string) *Error {
	if cause == nil {
		return nil
	}
	e := New(kind, detail)
	e.Cause = cause
	return e
}

// WithAlgorithm returns a copy with the algorithm set.
func (e *Error) WithAlgorithm(algorithm string) *Error {
	c := *e
	c.Algorithm = algorithm
	return &c
}

// WithOptimization returns a copy with the optimization level set.
func (e *Error) WithOptimization(level string) *Error {
	c := *e
	c.Optimization = level
	return &c
}

// WithDataSize returns a copy with the data size set.
func (e *Error) WithDataSize(n int64) *Error {
	c := *e
	c.DataSize = n
	return &c
}

// WithRow returns a copy with the row index set.
func (e *Error) WithRow(row int) *Error {
	c := *e
	c.Row = row
	return &c
}

// WithModel returns a copy with the growth model name set.
func (e *Error) WithModel(model string) *Error {
	c := *e
	c.Model = model
	return &c
}

// Error formats the kind, then every non-empty context field, then the
// detail and cause.
func (e *Error) Error() string {
	var b strings.Builder
	if s := e.Kind.Sentinel(); s != nil {
		b.WriteString(s.Error())
	} else {
		b.WriteString("error")
	}
	if e.Row >= 0 {
		fmt.Fprintf(&b, ": row %d", e.Row)
	}
	if e.Algorithm != "" {
		fmt.Fprintf(&b, ": algorithm %s", e.Algorithm)
	}
	if e.Optimization != "" {
		fmt.Fprintf(&b, ": optimization %s", e.Optimization)
	}
	if e.DataSize != 0 {
		fmt.Fprintf(&b, ": size %d", e.DataSize)
	}
	if e.Model != "" {
		fmt.Fprintf(&b, ": model %s", e.Model)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.Sentinel()
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

var _ error = (*Error)(nil)

// =============================================================================
// Classification helpers
// =============================================================================

// KindOf returns the kind of the first *Error in err's chain, or false if
// there is none.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	switch {
	case errors.Is(err, ErrDataUnavailable):
		return KindDataUnavailable, true
	case errors.Is(err, ErrMalformedInput):
		return KindMalformedInput, true
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData, true
	case errors.Is(err, ErrNoConvergence):
		return KindNoConvergence, true
	case errors.Is(err, ErrMissingGroup):
		return KindMissingGroup, true
	}
	return 0, false
}

// IsFatal reports whether err must abort the run. Unclassified errors
// (I/O failures while writing artifacts, for example) are fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	kind, ok := KindOf(err)
	if !ok {
		return true
	}
	return kind.Fatal()
}
