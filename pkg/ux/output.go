// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders terminal output for the sortperf CLI.
//
// Output goes through a Console bound to one writer. A Console is either
// styled (colors, unicode icons, rounded table borders) or plain (ASCII
// only, stable for files and pipes). ResolveMode picks one from the
// "auto|always|never" setting and whether the writer is a terminal.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

// Palette, deep ocean teals.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// =============================================================================
// Mode
// =============================================================================

// Mode selects styled or plain rendering.
type Mode int

const (
	ModePlain Mode = iota
	ModeStyled
)

// String returns "plain", "styled" or "unknown".
func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModeStyled:
		return "styled"
	default:
		return "unknown"
	}
}

// Style settings accepted by ResolveMode.
const (
	StyleAuto   = "auto"
	StyleAlways = "always"
	StyleNever  = "never"
)

// ResolveMode maps a style setting to a Mode. "auto" (or "") is styled
// only when w is a terminal; unknown settings fall back to "auto".
func ResolveMode(setting string, w io.Writer) Mode {
	switch strings.ToLower(setting) {
	case StyleAlways:
		return ModeStyled
	case StyleNever:
		return ModePlain
	}
	if f, ok := w.(*os.File); ok && IsTerminal(f) {
		return ModeStyled
	}
	return ModePlain
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// =============================================================================
// Icons
// =============================================================================

// Icon is a status marker with a plain ASCII fallback.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconBullet  Icon = "•"
)

// Plain returns the ASCII form of the icon.
func (i Icon) Plain() string {
	switch i {
	case IconSuccess:
		return "[ok]"
	case IconWarning:
		return "[warn]"
	case IconError:
		return "[error]"
	case IconBullet:
		return "-"
	default:
		return string(i)
	}
}

// =============================================================================
// Console
// =============================================================================

type styleSet struct {
	title   lipgloss.Style
	section lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	errorS  lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	border  lipgloss.Style
}

// Console writes styled or plain text to one writer.
//
// # Thread Safety
//
// Not safe for concurrent use; one goroutine owns a Console.
type Console struct {
	w      io.Writer
	mode   Mode
	styles styleSet
	err    error
}

// NewConsole returns a Console writing to w in the given mode.
func NewConsole(w io.Writer, mode Mode) *Console {
	r := lipgloss.NewRenderer(w)
	c := &Console{w: w, mode: mode}
	if mode == ModeStyled {
		c.styles = styleSet{
			title:   r.NewStyle().Bold(true).Foreground(ColorTealBright),
			section: r.NewStyle().Bold(true).Foreground(ColorTealPrimary),
			muted:   r.NewStyle().Foreground(ColorSlate),
			success: r.NewStyle().Foreground(ColorSuccess),
			warning: r.NewStyle().Foreground(ColorWarning),
			errorS:  r.NewStyle().Foreground(ColorError),
			header:  r.NewStyle().Bold(true).Foreground(ColorTealPrimary).Padding(0, 1),
			cell:    r.NewStyle().Padding(0, 1),
			border:  r.NewStyle().Foreground(ColorTealDeep),
		}
	} else {
		plain := r.NewStyle()
		c.styles = styleSet{
			title: plain, section: plain, muted: plain,
			success: plain, warning: plain, errorS: plain,
			header: plain.Padding(0, 1), cell: plain.Padding(0, 1), border: plain,
		}
	}
	return c
}

// Mode returns the console's mode.
func (c *Console) Mode() Mode { return c.mode }

// Err returns the first write error, if any.
func (c *Console) Err() error { return c.err }

func (c *Console) println(s string) {
	if c.err != nil {
		return
	}
	_, c.err = fmt.Fprintln(c.w, s)
}

// Title prints a top-level heading. Plain mode underlines it with '='.
func (c *Console) Title(text string) {
	if c.mode == ModePlain {
		c.println(text)
		c.println(strings.Repeat("=", len([]rune(text))))
		return
	}
	c.println(c.styles.title.Render(text))
}

// Section prints a second-level heading preceded by a blank line.
func (c *Console) Section(text string) {
	c.println("")
	if c.mode == ModePlain {
		c.println(text)
		c.println(strings.Repeat("-", len([]rune(text))))
		return
	}
	c.println(c.styles.section.Render(text))
}

// Line prints formatted text.
func (c *Console) Line(format string, args ...any) {
	c.println(fmt.Sprintf(format, args...))
}

// KeyValue prints "key: value" with the key muted in styled mode.
func (c *Console) KeyValue(key, value string) {
	c.println(c.styles.muted.Render(key+":") + " " + value)
}

// Bullet prints a list item.
func (c *Console) Bullet(text string) {
	c.println(c.icon(IconBullet, c.styles.muted) + " " + text)
}

// Success prints text with a success marker.
func (c *Console) Success(text string) {
	c.println(c.icon(IconSuccess, c.styles.success) + " " + text)
}

// Warning prints text with a warning marker.
func (c *Console) Warning(text string) {
	c.println(c.icon(IconWarning, c.styles.warning) + " " + c.styles.warning.Render(text))
}

// Error prints text with an error marker.
func (c *Console) Error(text string) {
	c.println(c.icon(IconError, c.styles.errorS) + " " + c.styles.errorS.Render(text))
}

// Muted prints secondary text.
func (c *Console) Muted(text string) {
	c.println(c.styles.muted.Render(text))
}

func (c *Console) icon(i Icon, style lipgloss.Style) string {
	if c.mode == ModePlain {
		return i.Plain()
	}
	return style.Render(string(i))
}

// Table prints rows under headers. Styled mode uses rounded borders,
// plain mode ASCII borders. Rows shorter than headers are padded.
func (c *Console) Table(headers []string, rows [][]string) {
	border := lipgloss.ASCIIBorder()
	if c.mode == ModeStyled {
		border = lipgloss.RoundedBorder()
	}
	padded := make([][]string, len(rows))
	for i, row := range rows {
		p := make([]string, len(headers))
		copy(p, row)
		padded[i] = p
	}
	t := table.New().
		Border(border).
		BorderStyle(c.styles.border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return c.styles.header
			}
			return c.styles.cell
		}).
		Headers(headers...).
		Rows(padded...)
	c.println(t.String())
}
