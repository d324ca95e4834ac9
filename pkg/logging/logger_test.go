// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"Error", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestNew_TextToWriter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Service: "rngbench", Writer: &buf})
	defer l.Close()

	l.Slog().Info("hidden")
	l.Slog().Warn("shown", "backend", "pcg32")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "backend=pcg32")
	assert.Contains(t, out, "service=rngbench")
}

func TestNew_JSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{JSON: true, Writer: &buf})
	l.Slog().Info("hello", "workers", 4)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, float64(4), rec["workers"])
}

func TestNew_FileLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer
	l := New(Config{LogDir: dir, Service: "bench", Writer: &console})

	l.Slog().With("run_id", "abc").Info("written")
	path := l.FilePath()
	require.NotEmpty(t, path)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "bench_"))
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written"`)
	assert.Contains(t, string(data), `"run_id":"abc"`)
	assert.Contains(t, console.String(), "msg=written")
}

func TestNew_QuietWithoutFileStillLogs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Quiet: true, Writer: &buf})
	l.Slog().Info("fallback")
	assert.Contains(t, buf.String(), "fallback")
}

func TestNew_BadLogDirWarns(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	var buf bytes.Buffer
	l := New(Config{LogDir: filepath.Join(blocker, "sub"), Writer: &buf})
	assert.Empty(t, l.FilePath())
	assert.Contains(t, buf.String(), "file logging disabled")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".rngbench"), expandPath("~/.rngbench"))
	assert.Equal(t, "/var/log", expandPath("/var/log"))
}
