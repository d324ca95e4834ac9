// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package runner executes one benchmark invocation end to end: backend
// selection, the driver, and persistence of the run summary.
//
// The CLI and the HTTP API share a Runner so that both honour the same
// one-run-at-a-time rule; concurrent runs would compete for cores and skew
// every throughput figure.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/rngbench/services/rng/backend"
	"github.com/AleutianAI/rngbench/services/rng/bench"
	"github.com/AleutianAI/rngbench/services/rng/history"
)

// ErrBusy is returned when a run is already in progress.
var ErrBusy = errors.New("a benchmark run is already in progress")

// RunStore persists completed runs.
type RunStore interface {
	Save(ctx context.Context, run *history.Run) error
}

// Config configures a Runner.
type Config struct {
	// Registry resolves selection tags. Required.
	Registry *backend.Registry

	// Plugin configures the csimd backend.
	Plugin bench.PluginConfig

	// Store receives each completed run. Optional.
	Store RunStore

	// Recorder receives results as each backend finishes. Optional.
	Recorder bench.Recorder

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider

	// StateHook observes driver transitions. Optional.
	StateHook bench.StateHook
}

// Runner executes benchmark invocations one at a time.
//
// Thread Safety: Safe for concurrent use; overlapping Execute calls fail
// fast with ErrBusy.
type Runner struct {
	cfg  Config
	busy sync.Mutex
}

// New creates a Runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Registry == nil {
		return nil, errors.New("runner: registry is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{cfg: cfg}, nil
}

// Plugin returns the csimd plugin configuration.
func (r *Runner) Plugin() bench.PluginConfig { return r.cfg.Plugin }

// Registry returns the backend registry.
func (r *Runner) Registry() *backend.Registry { return r.cfg.Registry }

// Execute benchmarks the tags selected (or the defaults when tags is empty)
// under cfg.
//
// Description:
//
//	Backend failures do not fail the run; they appear in Run.Failures. The
//	run is saved to the store when one is configured, including after a
//	cancellation, so that partial results are kept.
//
// Outputs:
//   - *history.Run: The completed run. Non-nil whenever the driver ran.
//   - error: ErrBusy, a wrapped bench.ErrConfigInvalid, ctx.Err(), or a
//     store failure.
func (r *Runner) Execute(ctx context.Context, cfg bench.Config, tags []string) (*history.Run, error) {
	if !r.busy.TryLock() {
		return nil, ErrBusy
	}
	defer r.busy.Unlock()

	cfg.Workers = bench.CoerceWorkers(cfg.Workers)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backends, err := bench.SelectBackends(r.cfg.Registry, tags, r.cfg.Plugin, r.cfg.Logger)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = b.Name()
	}
	run := history.NewRun(cfg, names)
	logger := r.cfg.Logger.With(slog.String("run_id", run.ID))

	opts := []bench.Option{
		bench.WithLogger(logger),
		bench.WithRecorder(r.cfg.Recorder),
		bench.WithTracerProvider(r.cfg.TracerProvider),
		bench.WithStateHook(r.cfg.StateHook),
	}
	driver, err := bench.NewDriver(cfg, opts...)
	if err != nil {
		return nil, err
	}

	logger.Info("benchmark run started",
		slog.Int("backends", len(backends)),
		slog.Int("workers", cfg.Workers),
		slog.Uint64("total", cfg.Total))

	outcome, runErr := driver.RunAll(ctx, backends)
	run.Complete(outcome, time.Now())

	if r.cfg.Store != nil {
		// Partial runs are kept after cancellation.
		saveCtx := context.WithoutCancel(ctx)
		if err := r.cfg.Store.Save(saveCtx, run); err != nil {
			return run, errors.Join(runErr, fmt.Errorf("save run: %w", err))
		}
	}

	logger.Info("benchmark run finished",
		slog.Int("results", len(outcome.Results)),
		slog.Int("failures", len(outcome.Failures)))
	return run, runErr
}
