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
	"runtime"
	"time"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrConfigInvalid indicates a configuration that cannot be run.
	ErrConfigInvalid = errors.New("invalid benchmark configuration")
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

const (
	// DefaultTotal is the default number of samples per phase.
	DefaultTotal uint64 = 100_000_000

	// DefaultSeed is the default base seed.
	DefaultSeed uint64 = 0xC0FFEED5EED
)

// Config holds the global benchmark parameters.
//
// Thread Safety: Safe for concurrent read access after initialization.
type Config struct {
	// Total is the number of samples per phase before partitioning.
	// Default: 100000000
	Total uint64 `json:"total" yaml:"total"`

	// Workers is the number of parallel workers per phase.
	// Default: runtime.NumCPU()
	Workers int `json:"workers" yaml:"workers"`

	// Seed is the base seed from which per-worker seeds are derived.
	// Default: 0xC0FFEED5EED
	Seed uint64 `json:"seed" yaml:"seed"`

	// Pin binds worker i to CPU i mod NumCPU where supported.
	// Default: false
	Pin bool `json:"pin" yaml:"pin"`
}

// DefaultConfig returns a configuration with default values.
//
// Outputs:
//   - *Config: Configuration with default values. Never nil.
func DefaultConfig() *Config {
	return &Config{
		Total:   DefaultTotal,
		Workers: CoerceWorkers(runtime.NumCPU()),
		Seed:    DefaultSeed,
	}
}

// CoerceWorkers maps a requested worker count to at least 1.
func CoerceWorkers(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Validate checks that the configuration can be run.
//
// Outputs:
//   - error: Wraps ErrConfigInvalid naming the offending field.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrConfigInvalid, c.Workers)
	}
	if c.Total == 0 {
		return fmt.Errorf("%w: total samples must be positive", ErrConfigInvalid)
	}
	return nil
}

// PerWorker returns the per-worker share of a phase.
func (c *Config) PerWorker() uint64 {
	return PerWorker(c.Total, c.Workers)
}

// -----------------------------------------------------------------------------
// State machine
// -----------------------------------------------------------------------------

// State is a Driver state for one backend.
type State int

const (
	StateIdle State = iota
	StateRunningIntegerPhase
	StateRunningDoublePhase
	StateReporting
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunningIntegerPhase:
		return "running_integer_phase"
	case StateRunningDoublePhase:
		return "running_double_phase"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateHook observes Driver transitions. It runs on the Driver goroutine.
type StateHook func(backend string, from, to State)

// Phase names a benchmark phase.
type Phase string

const (
	PhaseInteger Phase = "u64"
	PhaseDouble  Phase = "f64"
)

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// PhaseResult is the timing of one phase.
type PhaseResult struct {
	// Samples is PerWorker(Total, Workers) * Workers.
	Samples uint64 `json:"samples"`

	// Elapsed is the sum of every worker's own loop time.
	Elapsed time.Duration `json:"elapsed_ns"`

	// OpsPerSecond is Samples / (Elapsed seconds / Workers).
	OpsPerSecond float64 `json:"ops_per_second"`
}

// Result is the outcome for one backend. It is immutable once returned.
type Result struct {
	Backend   string      `json:"backend"`
	U64       PhaseResult `json:"u64"`
	F64       PhaseResult `json:"f64"`
	Mean      float64     `json:"mean_f64"`
	Variance  float64     `json:"var_f64"`
	ChiSquare float64     `json:"chi2_bytes"`
	Workers   int         `json:"workers"`
}

// Failure records a backend left out of the results.
type Failure struct {
	Backend string `json:"backend"`
	Error   string `json:"error"`
}

// Outcome is the result of running a backend selection.
type Outcome struct {
	Results  []Result  `json:"results"`
	Failures []Failure `json:"failures,omitempty"`
}

// Throughput returns samples / (elapsed seconds / workers), or 0 when
// elapsed is zero.
func Throughput(samples uint64, elapsed time.Duration, workers int) float64 {
	secs := elapsed.Seconds()
	if secs <= 0 || workers < 1 {
		return 0
	}
	return float64(samples) / (secs / float64(workers))
}

// -----------------------------------------------------------------------------
// Recorder
// -----------------------------------------------------------------------------

// Recorder receives results and failures as backends finish.
type Recorder interface {
	RecordBenchmark(ctx context.Context, r Result) error
	RecordError(ctx context.Context, backend string, err error) error
}

type noopRecorder struct{}

func (noopRecorder) RecordBenchmark(context.Context, Result) error    { return nil }
func (noopRecorder) RecordError(context.Context, string, error) error { return nil }
