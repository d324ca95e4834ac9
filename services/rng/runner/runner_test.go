// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/rngbench/services/rng/backend"
	"github.com/AleutianAI/rngbench/services/rng/bench"
	"github.com/AleutianAI/rngbench/services/rng/history"
)

// gateBackend blocks in Open until release is closed.
type gateBackend struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateBackend) Name() string { return "gate" }

func (g *gateBackend) Open(ctx context.Context) (backend.Source, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	inner, _ := backend.NewBuiltinRegistry().Get(backend.TagSplitMix64)
	return inner.Open(ctx)
}

type memStore struct {
	mu   sync.Mutex
	runs []*history.Run
	err  error
}

func (m *memStore) Save(_ context.Context, run *history.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, run)
	return nil
}

func smallConfig() bench.Config {
	return bench.Config{Total: 4000, Workers: 2, Seed: bench.DefaultSeed}
}

func TestNew_RequiresRegistry(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestExecute_RunsSelectionAndSaves(t *testing.T) {
	store := &memStore{}
	r, err := New(Config{Registry: backend.NewBuiltinRegistry(), Store: store})
	require.NoError(t, err)

	run, err := r.Execute(context.Background(), smallConfig(), []string{"pcg32", "std_minstd", "pcg32"})
	require.NoError(t, err)

	assert.Equal(t, []string{"pcg32", "minstd_rand"}, run.Backends)
	require.Len(t, run.Results, 2)
	assert.Equal(t, "pcg32", run.Results[0].Backend)
	assert.Equal(t, "minstd_rand", run.Results[1].Backend)
	assert.Equal(t, uint64(4000), run.Results[0].U64.Samples)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))

	require.Len(t, store.runs, 1)
	assert.Same(t, run, store.runs[0])
}

func TestExecute_CoercesWorkers(t *testing.T) {
	r, err := New(Config{Registry: backend.NewBuiltinRegistry()})
	require.NoError(t, err)

	cfg := smallConfig()
	cfg.Workers = 0
	run, err := r.Execute(context.Background(), cfg, []string{"splitmix64"})
	require.NoError(t, err)
	assert.Equal(t, 1, run.Config.Workers)
	assert.Equal(t, 1, run.Results[0].Workers)
}

func TestExecute_InvalidSelection(t *testing.T) {
	store := &memStore{}
	r, err := New(Config{Registry: backend.NewBuiltinRegistry(), Store: store})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), smallConfig(), []string{"nope"})
	assert.ErrorIs(t, err, bench.ErrConfigInvalid)
	assert.ErrorIs(t, err, backend.ErrUnknownBackend)

	cfg := smallConfig()
	cfg.Total = 0
	_, err = r.Execute(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, bench.ErrConfigInvalid)
	assert.Empty(t, store.runs)
}

func TestExecute_PluginWithoutPathSkipped(t *testing.T) {
	r, err := New(Config{Registry: backend.NewBuiltinRegistry()})
	require.NoError(t, err)

	run, err := r.Execute(context.Background(), smallConfig(), []string{"csimd", "lehmer64"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lehmer64"}, run.Backends)
}

func TestExecute_BusyWhileRunning(t *testing.T) {
	gate := &gateBackend{entered: make(chan struct{}), release: make(chan struct{})}
	reg := backend.NewRegistry()
	require.NoError(t, reg.Register("gate", gate))

	r, err := New(Config{Registry: reg})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := r.Execute(context.Background(), smallConfig(), []string{"gate"})
		done <- err
	}()

	<-gate.entered
	_, err = r.Execute(context.Background(), smallConfig(), []string{"gate"})
	assert.ErrorIs(t, err, ErrBusy)

	close(gate.release)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("first run did not finish")
	}

	_, err = r.Execute(context.Background(), smallConfig(), []string{"gate"})
	assert.NoError(t, err)
}

func TestExecute_SavesPartialRunOnCancel(t *testing.T) {
	gate := &gateBackend{entered: make(chan struct{}), release: make(chan struct{})}
	reg := backend.NewRegistry()
	require.NoError(t, reg.Register("gate", gate))

	store := &memStore{}
	r, err := New(Config{Registry: reg, Store: store})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-gate.entered
		cancel()
	}()

	run, err := r.Execute(ctx, smallConfig(), []string{"gate"})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, run)
	require.Len(t, store.runs, 1)
	assert.Empty(t, run.Results)
}

func TestExecute_StoreFailure(t *testing.T) {
	boom := errors.New("disk full")
	r, err := New(Config{Registry: backend.NewBuiltinRegistry(), Store: &memStore{err: boom}})
	require.NoError(t, err)

	run, err := r.Execute(context.Background(), smallConfig(), []string{"pcg32"})
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, run)
	assert.Len(t, run.Results, 1)
}
