// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backend

import (
	"context"

	"github.com/AleutianAI/rngbench/services/rng/prng"
)

// -----------------------------------------------------------------------------
// In-process adapter
// -----------------------------------------------------------------------------

// Engine is the method set of an in-process generator.
type Engine interface {
	NextU64() uint64
	NextF64() float64
}

// EngineFunc constructs an Engine from a seed.
type EngineFunc func(seed uint64) Engine

// Builtin adapts an in-process algorithm to Backend.
//
// Description:
//
//	Builtin is its own Source: opening it acquires nothing and closing it
//	releases nothing. Generators it creates never fail to initialise.
//
// Thread Safety: Safe for concurrent use.
type Builtin struct {
	name      string
	newEngine EngineFunc
}

// NewBuiltin creates a Backend named name around fn.
//
// Example:
//
//	b := backend.NewBuiltin("pcg32", func(s uint64) backend.Engine {
//	    return prng.NewPCG32(s)
//	})
func NewBuiltin(name string, fn EngineFunc) *Builtin {
	return &Builtin{name: name, newEngine: fn}
}

// Name returns the reported name.
func (b *Builtin) Name() string { return b.name }

// Open returns b itself.
func (b *Builtin) Open(ctx context.Context) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

// New creates a generator seeded with seed.
func (b *Builtin) New(seed uint64) (Generator, error) {
	return &engineGenerator{Engine: b.newEngine(seed)}, nil
}

// Close is a no-op.
func (b *Builtin) Close() error { return nil }

type engineGenerator struct {
	Engine
}

func (g *engineGenerator) Close() error { return nil }

// -----------------------------------------------------------------------------
// Selection tags
// -----------------------------------------------------------------------------

// Tags accepted by the built-in registry. A tag selects a backend; the
// reported name can differ (TagMinStd reports "minstd_rand").
const (
	TagMT19937      = "std_mt19937"
	TagMT19937_64   = "std_mt19937_64"
	TagMinStd       = "std_minstd"
	TagRanlux48     = "ranlux48"
	TagXoroshiro128 = "xoroshiro128pp"
	TagXoshiro256   = "xoshiro256ss"
	TagPCG32        = "pcg32"
	TagCSIMD        = "csimd"
	TagSplitMix64   = "splitmix64"
	TagLehmer64     = "lehmer64"
	TagGoPCG        = "go_pcg"
	TagGoChaCha8    = "go_chacha8"
	TagChaCha20     = "chacha20"
	TagExpPCG       = "exp_pcg"
	TagFastrand     = "fastrand"
)

// DefaultTags is the selection used when none is configured, in run order.
var DefaultTags = []string{
	TagMT19937,
	TagMT19937_64,
	TagMinStd,
	TagRanlux48,
	TagXoroshiro128,
	TagPCG32,
	TagCSIMD,
}

// DefaultSelection returns a copy of DefaultTags.
func DefaultSelection() []string {
	out := make([]string, len(DefaultTags))
	copy(out, DefaultTags)
	return out
}

// RegisterBuiltins registers every in-process backend on r.
//
// Description:
//
//	The native plugin backend (TagCSIMD) is not registered here because it
//	needs a library path; callers register it separately.
//
// Outputs:
//   - error: Non-nil if any tag is already registered on r.
func RegisterBuiltins(r *Registry) error {
	builtins := []struct {
		tag     string
		backend Backend
	}{
		{TagMT19937, NewBuiltin("std_mt19937", func(s uint64) Engine { return prng.NewMT19937(s) })},
		{TagMT19937_64, NewBuiltin("std_mt19937_64", func(s uint64) Engine { return prng.NewMT19937_64(s) })},
		{TagMinStd, NewBuiltin("minstd_rand", func(s uint64) Engine { return prng.NewMinStdRand(s) })},
		{TagRanlux48, NewBuiltin("ranlux48", func(s uint64) Engine { return prng.NewRanlux48(s) })},
		{TagXoroshiro128, NewBuiltin("xoroshiro128pp", func(s uint64) Engine { return prng.NewXoroshiro128pp(s) })},
		{TagXoshiro256, NewBuiltin("xoshiro256ss", func(s uint64) Engine { return prng.NewXoshiro256ss(s) })},
		{TagPCG32, NewBuiltin("pcg32", func(s uint64) Engine { return prng.NewPCG32(s) })},
		{TagSplitMix64, NewBuiltin("splitmix64", func(s uint64) Engine { return prng.NewSplitMix64(s) })},
		{TagLehmer64, NewBuiltin("lehmer64", func(s uint64) Engine { return prng.NewLehmer64(s) })},
		{TagGoPCG, NewBuiltin("go_pcg", newGoPCG)},
		{TagGoChaCha8, NewBuiltin("go_chacha8", newGoChaCha8)},
		{TagChaCha20, NewBuiltin("chacha20", newChaCha20)},
		{TagExpPCG, NewBuiltin("exp_pcg", newExpPCG)},
		{TagFastrand, NewBuiltin("fastrand", newFastrand)},
	}

	for _, b := range builtins {
		if err := r.Register(b.tag, b.backend); err != nil {
			return err
		}
	}
	return nil
}

// NewBuiltinRegistry returns a registry holding every in-process backend.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		// Tags are constants; a duplicate is a programming error.
		panic(err)
	}
	return r
}
