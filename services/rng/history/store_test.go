// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/rngbench/services/rng/bench"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func runAt(at time.Time, names ...string) *Run {
	r := NewRun(*bench.DefaultConfig(), names)
	r.StartedAt = at
	results := make([]bench.Result, 0, len(names))
	for _, n := range names {
		results = append(results, bench.Result{Backend: n, Mean: 0.5, Workers: 2})
	}
	r.Complete(bench.Outcome{Results: results}, at.Add(time.Second))
	return r
}

func TestNewRun(t *testing.T) {
	names := []string{"pcg32"}
	r := NewRun(*bench.DefaultConfig(), names)
	names[0] = "mutated"

	_, err := uuid.Parse(r.ID)
	require.NoError(t, err)
	assert.False(t, r.StartedAt.IsZero())
	assert.Equal(t, []string{"pcg32"}, r.Backends)
}

func TestStore_SaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	run := runAt(base, "pcg32", "ranlux48")
	run.Failures = []bench.Failure{{Backend: "csimd_universal", Error: "load failed"}}
	require.NoError(t, s.Save(ctx, run))

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, run.Config, got.Config)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "ranlux48", got.Results[1].Backend)
	assert.Equal(t, run.Failures, got.Failures)
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Save(ctx, nil), ErrInvalidRun)

	bad := runAt(time.Now())
	bad.ID = "not-a-uuid"
	assert.ErrorIs(t, s.Save(ctx, bad), ErrInvalidRun)

	noTime := runAt(time.Now())
	noTime.StartedAt = time.Time{}
	assert.ErrorIs(t, s.Save(ctx, noTime), ErrInvalidRun)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 5; i++ {
		r := runAt(base.Add(time.Duration(i)*time.Hour), "pcg32")
		require.NoError(t, s.Save(ctx, r))
		ids = append(ids, r.ID)
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, r := range all {
		assert.Equal(t, ids[4-i], r.ID, "position %d", i)
	}

	top, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, ids[4], top[0].ID)
	assert.Equal(t, ids[3], top[1].ID)
}

func TestStore_ListEmpty(t *testing.T) {
	s := openTestStore(t)
	runs, err := s.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStore_ResaveMovesIndex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	older := runAt(base, "a")
	newer := runAt(base.Add(time.Hour), "b")
	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))

	older.StartedAt = base.Add(2 * time.Hour)
	require.NoError(t, s.Save(ctx, older))

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, older.ID, runs[0].ID)
	assert.Equal(t, newer.ID, runs[1].ID)
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := runAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), "pcg32")
	require.NoError(t, s.Save(ctx, r))
	require.NoError(t, s.Delete(ctx, r.ID))

	_, err := s.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	assert.ErrorIs(t, s.Delete(ctx, r.ID), ErrNotFound)
}

func TestStore_CancelledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Save(ctx, runAt(time.Now(), "x")), context.Canceled)
	_, err := s.List(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cfg := DefaultConfig(dir)
	s, err := Open(cfg)
	require.NoError(t, err)
	r := runAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), "pcg32")
	require.NoError(t, s.Save(ctx, r))
	require.NoError(t, s.Close())

	s, err = Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestTSKey_SortsNumerically(t *testing.T) {
	a := tsKey(time.Unix(9, 0), "x")
	b := tsKey(time.Unix(10, 0), "x")
	assert.Less(t, string(a), string(b))
	assert.Equal(t, "x", idFromTSKey(a))
}
