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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIcon_RenderContainsGlyph(t *testing.T) {
	for _, i := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconArrow, IconBullet} {
		assert.Contains(t, i.Render(), string(i))
	}
	assert.Equal(t, "→", IconArrow.Render())
}

func TestIsTerminal_NonFileWriters(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, IsTerminal(&buf))
	assert.False(t, ColorEnabled(&buf))
}

func TestIsTerminal_RegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, IsTerminal(f))
}

func TestColorEnabled_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, ColorEnabled(os.Stdout))
}

func TestPrinter_Plain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	assert.False(t, p.Styled())
	assert.Same(t, &buf, p.Writer())

	p.Title("Backends")
	p.Success("done")
	p.Warning("careful")
	p.Error("broken")
	p.Bullet("pcg32")
	p.KeyValue("workers", 4, 10)
	p.Box("Run", "body")

	assert.Equal(t,
		"Backends\n"+
			"OK: done\n"+
			"WARN: careful\n"+
			"ERROR: broken\n"+
			"  - pcg32\n"+
			"workers:   4\n"+
			"Run\n===\nbody\n",
		buf.String())
}

func TestPrinter_PlainConstructor(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)
	p.Success("x")
	assert.Equal(t, "OK: x\n", buf.String())
}
