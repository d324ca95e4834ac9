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
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNewSpinner_Defaults(t *testing.T) {
	spin := NewSpinner(&bytes.Buffer{}, "Loading...")
	require.NotNil(t, spin)
	assert.Equal(t, "Loading...", spin.Message())
	assert.Equal(t, SpinnerDots, spin.spinType)
	assert.False(t, spin.animate)
}

func TestSpinner_WithType(t *testing.T) {
	spin := NewSpinner(&bytes.Buffer{}, "x").WithType(SpinnerCompass)
	assert.Equal(t, SpinnerCompass, spin.spinType)
}

func TestSpinner_PlainWriterPrintsMessages(t *testing.T) {
	var buf syncBuffer
	spin := NewSpinner(&buf, "pcg32: idle")
	spin.Start()
	spin.UpdateMessage("pcg32: running_integer_phase")
	spin.UpdateMessage("pcg32: running_integer_phase")
	spin.Stop()
	spin.UpdateMessage("after stop")

	assert.Equal(t,
		"PROGRESS: pcg32: idle\n"+
			"PROGRESS: pcg32: running_integer_phase\n",
		buf.String())
}

func TestSpinner_StartStopIdempotent(t *testing.T) {
	var buf syncBuffer
	spin := NewSpinner(&buf, "x")
	spin.Start()
	spin.Start()
	spin.Stop()
	spin.Stop()
	assert.Equal(t, "PROGRESS: x\n", buf.String())
}

func TestSpinner_StopWithoutStart(t *testing.T) {
	spin := NewSpinner(&bytes.Buffer{}, "x")
	spin.Stop()
}

func TestSpinner_AnimatedClearsLine(t *testing.T) {
	var buf syncBuffer
	spin := NewSpinner(&buf, "working")
	spin.animate = true
	spin.Start()
	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "working")
	}, 2*time.Second, 2*spinnerInterval)
	spin.Stop()
	assert.True(t, strings.HasSuffix(buf.String(), "\r\033[K"))
}
