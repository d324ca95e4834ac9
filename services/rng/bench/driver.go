// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/rngbench/services/rng/backend"
	"github.com/AleutianAI/rngbench/services/rng/stats"
)

const tracerName = "rngbench.bench"

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRecorder sets where results and failures are reported.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithStateHook registers an observer for state transitions.
func WithStateHook(h StateHook) Option {
	return func(d *Driver) {
		if h != nil {
			d.hooks = append(d.hooks, h)
		}
	}
}

// WithTracerProvider sets the tracer provider. Default: the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Driver) {
		if tp != nil {
			d.tracer = tp.Tracer(tracerName)
		}
	}
}

// Driver benchmarks backends one at a time.
//
// Description:
//
//	Run executes both phases for one backend; RunAll runs a selection and
//	isolates failures. The Driver owns every Aggregate it creates, one per
//	phase, so nothing is shared between phases or runs.
//
// Thread Safety: A Driver may be shared, but concurrent Run calls compete
// for CPU and skew throughput; callers serialise runs.
type Driver struct {
	cfg      Config
	logger   *slog.Logger
	recorder Recorder
	hooks    []StateHook
	tracer   trace.Tracer
}

// NewDriver creates a Driver after validating cfg.
//
// Outputs:
//   - *Driver: The driver.
//   - error: Wraps ErrConfigInvalid.
func NewDriver(cfg Config, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{
		cfg:      cfg,
		logger:   slog.Default(),
		recorder: noopRecorder{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the driver configuration.
func (d *Driver) Config() Config { return d.cfg }

func (d *Driver) transition(name string, from, to State) {
	for _, h := range d.hooks {
		h(name, from, to)
	}
}

// RunAll benchmarks each backend in order.
//
// Description:
//
//	A backend error is logged at warn level, passed to the Recorder and
//	listed in Outcome.Failures; the next backend still runs. The context
//	is checked between backends.
//
// Outputs:
//   - Outcome: Results in selection order, plus failures.
//   - error: ctx.Err() if the run was cancelled before finishing.
func (d *Driver) RunAll(ctx context.Context, backends []backend.Backend) (Outcome, error) {
	ctx, span := d.tracer.Start(ctx, "bench.RunAll",
		trace.WithAttributes(
			attribute.Int("bench.backends", len(backends)),
			attribute.Int("bench.workers", d.cfg.Workers),
			attribute.Int64("bench.total", int64(d.cfg.Total)),
		),
	)
	defer span.End()

	out := Outcome{Results: make([]Result, 0, len(backends))}
	for _, b := range backends {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "context canceled")
			return out, err
		}

		res, err := d.Run(ctx, b)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				span.RecordError(err)
				span.SetStatus(codes.Error, "context canceled")
				return out, err
			}
			d.logger.Warn("backend failed",
				slog.String("backend", b.Name()),
				slog.String("error", err.Error()),
			)
			if rerr := d.recorder.RecordError(ctx, b.Name(), err); rerr != nil {
				d.logger.Debug("record error failed", slog.String("error", rerr.Error()))
			}
			out.Failures = append(out.Failures, Failure{Backend: b.Name(), Error: err.Error()})
			continue
		}

		if rerr := d.recorder.RecordBenchmark(ctx, res); rerr != nil {
			d.logger.Debug("record benchmark failed",
				slog.String("backend", res.Backend),
				slog.String("error", rerr.Error()),
			)
		}
		out.Results = append(out.Results, res)
	}

	span.SetAttributes(
		attribute.Int("bench.results", len(out.Results)),
		attribute.Int("bench.failures", len(out.Failures)),
	)
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// Run benchmarks one backend.
//
// Description:
//
//	Opens the backend, runs the integer phase then the double phase, and
//	closes the Source once both have joined. Every generator is closed by
//	the worker that created it before the phase returns.
//
// Outputs:
//   - Result: The measurements.
//   - error: Backend errors (load, symbol, init) or ctx.Err().
func (d *Driver) Run(ctx context.Context, b backend.Backend) (res Result, err error) {
	name := b.Name()
	ctx, span := d.tracer.Start(ctx, "bench.Backend",
		trace.WithAttributes(attribute.String("backend", name)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	state := StateIdle
	move := func(to State) {
		d.transition(name, state, to)
		state = to
	}
	defer func() {
		if state != StateDone {
			move(StateDone)
		}
	}()

	src, err := b.Open(ctx)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			d.logger.Warn("backend close failed",
				slog.String("backend", name),
				slog.String("error", cerr.Error()),
			)
			if err == nil {
				err = fmt.Errorf("close %s: %w", name, cerr)
			}
		}
	}()

	per := d.cfg.PerWorker()
	samples := per * uint64(d.cfg.Workers)

	move(StateRunningIntegerPhase)
	intAgg := stats.NewAggregate()
	intElapsed, err := d.runPhase(ctx, src, PhaseInteger, per, intAgg)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	move(StateRunningDoublePhase)
	dblAgg := stats.NewAggregate()
	dblElapsed, err := d.runPhase(ctx, src, PhaseDouble, per, dblAgg)
	if err != nil {
		return Result{}, err
	}

	move(StateReporting)
	hist := intAgg.Histogram()
	moments := dblAgg.Moments()
	res = Result{
		Backend: name,
		U64: PhaseResult{
			Samples:      samples,
			Elapsed:      intElapsed,
			OpsPerSecond: Throughput(samples, intElapsed, d.cfg.Workers),
		},
		F64: PhaseResult{
			Samples:      samples,
			Elapsed:      dblElapsed,
			OpsPerSecond: Throughput(samples, dblElapsed, d.cfg.Workers),
		},
		Mean:      moments.Mean(),
		Variance:  moments.Variance(),
		ChiSquare: hist.ChiSquare(),
		Workers:   d.cfg.Workers,
	}

	d.logger.Info("backend benchmarked",
		slog.String("backend", name),
		slog.Int("workers", d.cfg.Workers),
		slog.Float64("u64_ops_per_s", res.U64.OpsPerSecond),
		slog.Float64("f64_ops_per_s", res.F64.OpsPerSecond),
	)
	return res, nil
}

// runPhase runs one phase across all workers and returns the summed
// worker time.
func (d *Driver) runPhase(ctx context.Context, src backend.Source, phase Phase, per uint64, agg *stats.Aggregate) (time.Duration, error) {
	_, span := d.tracer.Start(ctx, "bench.Phase",
		trace.WithAttributes(
			attribute.String("phase", string(phase)),
			attribute.Int64("per_worker", int64(per)),
		),
	)
	defer span.End()

	elapsed := make([]time.Duration, d.cfg.Workers)
	base := d.cfg.Seed

	var worker func(w int) error
	switch phase {
	case PhaseInteger:
		worker = func(w int) error {
			g, err := src.New(IntegerSeed(base, w))
			if err != nil {
				return err
			}
			defer g.Close()

			var h stats.Histogram
			start := time.Now()
			for i := uint64(0); i < per; i++ {
				h.PushU64(g.NextU64())
			}
			elapsed[w] = time.Since(start)
			agg.FoldHistogram(&h)
			return nil
		}
	case PhaseDouble:
		worker = func(w int) error {
			g, err := src.New(DoubleSeed(base, w))
			if err != nil {
				return err
			}
			defer g.Close()

			var m stats.Moments
			start := time.Now()
			for i := uint64(0); i < per; i++ {
				m.Push(g.NextF64())
			}
			elapsed[w] = time.Since(start)
			agg.FoldMoments(m)
			return nil
		}
	default:
		return 0, fmt.Errorf("unknown phase %q", phase)
	}

	if err := RunPartitioned(d.cfg.Workers, d.cfg.Pin, d.logger, worker); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	var total time.Duration
	for _, e := range elapsed {
		total += e
	}
	span.SetAttributes(attribute.Int64("elapsed_ns", int64(total)))
	return total, nil
}
