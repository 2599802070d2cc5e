// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMode(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		setting string
		want    Mode
	}{
		{"always", ModeStyled},
		{"ALWAYS", ModeStyled},
		{"never", ModePlain},
		{"auto", ModePlain},
		{"", ModePlain},
		{"sometimes", ModePlain},
	}
	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveMode(tt.setting, &buf))
		})
	}
}

func TestResolveMode_RegularFileIsPlain(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, ModePlain, ResolveMode(StyleAuto, f))
	assert.False(t, IsTerminal(f))
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "plain", ModePlain.String())
	assert.Equal(t, "styled", ModeStyled.String())
	assert.Equal(t, "unknown", Mode(9).String())
}

func TestIcon_Plain(t *testing.T) {
	assert.Equal(t, "[ok]", IconSuccess.Plain())
	assert.Equal(t, "[warn]", IconWarning.Plain())
	assert.Equal(t, "[error]", IconError.Plain())
	assert.Equal(t, "-", IconBullet.Plain())
	assert.Equal(t, "*", Icon("*").Plain())
}

func TestConsole_PlainHeadings(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, ModePlain)

	c.Title("Sorting Report")
	c.Section("Overview")
	c.KeyValue("Records", "12")
	require.NoError(t, c.Err())

	want := "Sorting Report\n==============\n\nOverview\n--------\nRecords: 12\n"
	assert.Equal(t, want, buf.String())
}

func TestConsole_PlainMarkers(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, ModePlain)

	c.Success("wrote chart")
	c.Warning("skipped group")
	c.Error("fit failed")
	c.Bullet("item")
	c.Line("%d of %d", 1, 2)

	out := buf.String()
	assert.Contains(t, out, "[ok] wrote chart\n")
	assert.Contains(t, out, "[warn] skipped group\n")
	assert.Contains(t, out, "[error] fit failed\n")
	assert.Contains(t, out, "- item\n")
	assert.Contains(t, out, "1 of 2\n")
	assert.NotContains(t, out, "\x1b[")
}

func TestConsole_PlainTable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, ModePlain)

	c.Table([]string{"Algorithm", "Time"}, [][]string{
		{"QuickSort Recursive", "0.1800"},
		{"MergeSort Sequential"},
	})
	require.NoError(t, c.Err())

	out := buf.String()
	assert.Contains(t, out, "Algorithm")
	assert.Contains(t, out, "QuickSort Recursive")
	assert.Contains(t, out, "0.1800")
	assert.Contains(t, out, "MergeSort Sequential")
	assert.Contains(t, out, "+")
	assert.Contains(t, out, "|")
	for _, r := range out {
		assert.Less(t, r, rune(128), "plain tables are ASCII only")
	}
}

func TestConsole_StyledUsesUnicodeIcons(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, ModeStyled)

	c.Success("done")
	assert.True(t, strings.Contains(buf.String(), string(IconSuccess)))
	assert.Equal(t, ModeStyled, c.Mode())
}

type failingWriter struct{ calls int }

func (f *failingWriter) Write(p []byte) (int, error) {
	f.calls++
	return 0, errors.New("disk full")
}

func TestConsole_StopsAfterWriteError(t *testing.T) {
	w := &failingWriter{}
	c := NewConsole(w, ModePlain)

	c.Line("first")
	c.Line("second")

	assert.EqualError(t, c.Err(), "disk full")
	assert.Equal(t, 1, w.calls)
}
