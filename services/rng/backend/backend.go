// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package backend defines the capability contract every benchmarked PRNG
// satisfies, whether it runs in-process or behind a native plugin.
//
// # Description
//
// The contract has three layers:
//
//	Backend    a named factory, held in a Registry
//	   │ Open(ctx)
//	   ▼
//	Source     scopes shared resources (e.g. a loaded shared library)
//	   │ New(seed)
//	   ▼
//	Generator  one live generator, owned by exactly one worker
//
// The benchmark driver opens a Source per backend, creates one Generator per
// worker per phase, closes every Generator when its worker returns, and
// closes the Source only after both phases have joined.
//
// # Thread Safety
//
// Backend and Source implementations must be safe for concurrent use.
// Generators are not; each is confined to one goroutine.
package backend

import (
	"context"
	"errors"

	"github.com/AleutianAI/rngbench/services/rng/prng"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrLoadFailed is returned when a native library cannot be opened.
	ErrLoadFailed = errors.New("backend library load failed")

	// ErrSymbolMissing is returned when a native library lacks a required symbol.
	ErrSymbolMissing = errors.New("backend symbol missing")

	// ErrInitFailed is returned when a generator cannot be constructed.
	ErrInitFailed = errors.New("backend generator init failed")

	// ErrUnknownBackend is returned when a selection tag is not registered.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrAlreadyRegistered is returned when a tag is registered twice.
	ErrAlreadyRegistered = errors.New("backend already registered")

	// ErrNilBackend is returned when registering a nil backend.
	ErrNilBackend = errors.New("backend must not be nil")
)

// -----------------------------------------------------------------------------
// Interfaces
// -----------------------------------------------------------------------------

// Generator is one live generator instance.
//
// Description:
//
//	NextU64 and NextF64 advance the generator and must not allocate.
//	NextF64 returns a value in [0,1).
//
// Thread Safety: Not safe for concurrent use. A Generator belongs to the
// goroutine that created it for its whole lifetime.
type Generator interface {
	// NextU64 advances the state and returns 64 bits.
	NextU64() uint64

	// NextF64 advances the state and returns a value in [0,1).
	NextF64() float64

	// Close releases the generator. Calls after the first are no-ops.
	Close() error
}

// Source creates generators for one opened backend.
//
// Description:
//
//	A Source holds whatever the backend shares across generators. It must
//	outlive every Generator it created; the driver guarantees this by
//	closing generators before the Source.
//
// Thread Safety: New must be safe for concurrent use.
type Source interface {
	// New creates a generator deterministically from seed.
	//
	// Outputs:
	//   - Generator: Fully initialised generator on success.
	//   - error: Wraps ErrInitFailed if construction failed.
	New(seed uint64) (Generator, error)

	// Close releases the shared resources.
	Close() error
}

// Backend is a named PRNG family that can be opened for benchmarking.
type Backend interface {
	// Name is the name reported in results.
	Name() string

	// Open acquires the backend's shared resources.
	//
	// Outputs:
	//   - Source: The opened source. Caller must Close it.
	//   - error: Wraps ErrLoadFailed or ErrSymbolMissing for native backends.
	Open(ctx context.Context) (Source, error)
}

// ToFloat64 maps the top 53 bits of a 64-bit draw onto [0,1) by scaling
// with 2⁻⁵³.
func ToFloat64(x uint64) float64 {
	return prng.ToFloat64(x)
}
