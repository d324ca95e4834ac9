// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry exports benchmark results to metrics and time-series
// backends.
//
// Every exporter implements Sink, which extends bench.Recorder with Flush
// and Close so that a Sink can be handed straight to bench.WithRecorder.
package telemetry

import (
	"context"
	"errors"
	"sync"

	"github.com/AleutianAI/rngbench/services/rng/bench"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrSinkClosed is returned when attempting to use a closed sink.
	ErrSinkClosed = errors.New("sink has been closed")

	// ErrNoSinks is returned when creating a composite sink with no children.
	ErrNoSinks = errors.New("at least one sink is required")

	// ErrInvalidConfig is returned when a sink configuration is invalid.
	ErrInvalidConfig = errors.New("invalid telemetry configuration")

	// ErrRegistrationFailed is returned when metric registration fails.
	ErrRegistrationFailed = errors.New("metric registration failed")

	// ErrOTelInitFailed is returned when OpenTelemetry instruments cannot be created.
	ErrOTelInitFailed = errors.New("opentelemetry initialization failed")
)

// -----------------------------------------------------------------------------
// Interface
// -----------------------------------------------------------------------------

// Sink receives benchmark results and failures.
//
// Description:
//
//	Sink is bench.Recorder plus lifecycle. Implementations handle one export
//	format each; CompositeSink fans out to several.
//
// Thread Safety: All implementations must be safe for concurrent use.
//
// Example:
//
//	sink, err := telemetry.NewPrometheusSink(telemetry.DefaultPrometheusConfig())
//	if err != nil {
//	    return err
//	}
//	defer sink.Close()
//
//	driver, err := bench.NewDriver(cfg, bench.WithRecorder(sink))
type Sink interface {
	bench.Recorder

	// Flush ensures all buffered data is exported.
	//
	// Outputs:
	//   - error: Non-nil if flush fails or the sink is closed.
	Flush(ctx context.Context) error

	// Close releases resources. After Close every recording method returns
	// ErrSinkClosed.
	//
	// Thread Safety: Idempotent.
	Close() error
}

// closeGuard tracks the closed state shared by every sink.
type closeGuard struct {
	mu     sync.RWMutex
	closed bool
}

func (g *closeGuard) isClosed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closed
}

// markClosed reports whether this call performed the transition.
func (g *closeGuard) markClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.closed = true
	return true
}

// -----------------------------------------------------------------------------
// Composite Sink
// -----------------------------------------------------------------------------

// CompositeSink multiplexes results to multiple sinks.
//
// Description:
//
//	One child's failure does not prevent the others from receiving the
//	data; child errors are combined with errors.Join.
//
// Thread Safety: Safe for concurrent use.
type CompositeSink struct {
	closeGuard
	sinks []Sink
}

// NewCompositeSink creates a composite over the non-nil sinks given.
//
// Outputs:
//   - *CompositeSink: Never nil on success.
//   - error: ErrNoSinks if no non-nil sink was given.
func NewCompositeSink(sinks ...Sink) (*CompositeSink, error) {
	valid := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoSinks
	}
	return &CompositeSink{sinks: valid}, nil
}

// RecordBenchmark forwards r to every child.
func (c *CompositeSink) RecordBenchmark(ctx context.Context, r bench.Result) error {
	if c.isClosed() {
		return ErrSinkClosed
	}
	var errs []error
	for _, s := range c.sinks {
		if err := s.RecordBenchmark(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordError forwards the failure to every child.
func (c *CompositeSink) RecordError(ctx context.Context, backend string, cause error) error {
	if c.isClosed() {
		return ErrSinkClosed
	}
	var errs []error
	for _, s := range c.sinks {
		if err := s.RecordError(ctx, backend, cause); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush flushes every child concurrently and waits for all of them.
func (c *CompositeSink) Flush(ctx context.Context) error {
	if c.isClosed() {
		return ErrSinkClosed
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(c.sinks))
	for _, s := range c.sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			if err := s.Flush(ctx); err != nil {
				errChan <- err
			}
		}(s)
	}
	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close closes every child. Idempotent.
func (c *CompositeSink) Close() error {
	if !c.markClosed() {
		return nil
	}
	var errs []error
	for _, s := range c.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// -----------------------------------------------------------------------------
// No-Op Sink
// -----------------------------------------------------------------------------

// NoOpSink discards all data.
type NoOpSink struct{}

// NewNoOpSink creates a new no-op sink.
func NewNoOpSink() *NoOpSink {
	return &NoOpSink{}
}

func (NoOpSink) RecordBenchmark(context.Context, bench.Result) error { return nil }
func (NoOpSink) RecordError(context.Context, string, error) error    { return nil }
func (NoOpSink) Flush(context.Context) error                         { return nil }
func (NoOpSink) Close() error                                        { return nil }

// Verify interface compliance at compile time.
var (
	_ Sink = (*CompositeSink)(nil)
	_ Sink = (*NoOpSink)(nil)
)
