// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dynload binds the universal_rng plugin ABI from a shared library
// at runtime, without cgo.
//
// # Description
//
// A plugin exports four C symbols:
//
//	void*    universal_rng_new(uint64_t seed, int32_t algo, int32_t bitwidth);
//	uint64_t universal_rng_next_u64(void* h);
//	double   universal_rng_next_double(void* h);
//	void     universal_rng_free(void* h);
//
// Load resolves all four or none. Every Generator holds a reference to its
// Library and the Library refuses to close while any Generator is live.
//
// # Thread Safety
//
// Library is safe for concurrent use. Function pointers are immutable after
// Load. Each Generator is confined to one goroutine.
package dynload

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AleutianAI/rngbench/services/rng/backend"
)

// Symbol names exported by a plugin.
const (
	SymNew        = "universal_rng_new"
	SymNextU64    = "universal_rng_next_u64"
	SymNextDouble = "universal_rng_next_double"
	SymFree       = "universal_rng_free"
)

var (
	// ErrHandlesOutstanding is returned by Close while generators are live.
	ErrHandlesOutstanding = errors.New("library has live generator handles")

	// ErrLibraryClosed is returned when using a closed library.
	ErrLibraryClosed = errors.New("library is closed")
)

// symbols holds the bound plugin entry points.
type symbols struct {
	newFn   func(seed uint64, algo int32, bitwidth int32) uintptr
	nextU64 func(h uintptr) uint64
	nextF64 func(h uintptr) float64
	free    func(h uintptr)
}

// Library is one loaded plugin.
type Library struct {
	path   string
	dl     opener
	handle uintptr
	sym    symbols

	mu     sync.Mutex
	live   int
	closed bool
}

// Load opens the shared library at path and resolves every symbol.
//
// Outputs:
//   - *Library: The loaded library. Caller must Close it.
//   - error: Wraps backend.ErrLoadFailed or backend.ErrSymbolMissing.
//     On ErrSymbolMissing the library has already been unloaded.
func Load(path string) (*Library, error) {
	return load(path, platformOpener{})
}

func load(path string, dl opener) (*Library, error) {
	handle, err := dl.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", backend.ErrLoadFailed, path, err)
	}

	lib := &Library{path: path, dl: dl, handle: handle}
	bindings := []struct {
		name string
		fptr any
	}{
		{SymNew, &lib.sym.newFn},
		{SymNextU64, &lib.sym.nextU64},
		{SymNextDouble, &lib.sym.nextF64},
		{SymFree, &lib.sym.free},
	}
	for _, b := range bindings {
		addr, err := dl.Sym(handle, b.name)
		if err != nil || addr == 0 {
			_ = dl.Close(handle)
			return nil, fmt.Errorf("%w: %s in %s", backend.ErrSymbolMissing, b.name, path)
		}
		dl.Bind(b.fptr, addr)
	}
	return lib, nil
}

// Path returns the path the library was loaded from.
func (l *Library) Path() string { return l.path }

// Live returns the number of generators not yet closed.
func (l *Library) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.live
}

// NewGenerator creates a plugin generator.
//
// Outputs:
//   - *Generator: The new generator. Caller must Close it.
//   - error: ErrLibraryClosed, or wraps backend.ErrInitFailed when the
//     plugin returns a null handle.
func (l *Library) NewGenerator(seed uint64, algo, bitwidth int32) (*Generator, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrLibraryClosed
	}
	h := l.sym.newFn(seed, algo, bitwidth)
	if h == 0 {
		return nil, fmt.Errorf("%w: %s returned null (algo=%d bitwidth=%d)",
			backend.ErrInitFailed, SymNew, algo, bitwidth)
	}
	l.live++
	return &Generator{lib: l, h: h, nextU64: l.sym.nextU64, nextF64: l.sym.nextF64}, nil
}

func (l *Library) release(h uintptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sym.free(h)
	l.live--
}

// Close unloads the library.
//
// Outputs:
//   - error: ErrHandlesOutstanding if generators remain. A second Close
//     returns nil.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	if l.live > 0 {
		return fmt.Errorf("%w: %d", ErrHandlesOutstanding, l.live)
	}
	l.closed = true
	return l.dl.Close(l.handle)
}

// Generator is a plugin generator handle.
type Generator struct {
	lib     *Library
	h       uintptr
	nextU64 func(uintptr) uint64
	nextF64 func(uintptr) float64
	closed  bool
}

// NextU64 returns the plugin's next 64-bit draw.
func (g *Generator) NextU64() uint64 {
	return g.nextU64(g.h)
}

// NextF64 returns the plugin's next double, falling back to a converted
// 64-bit draw when the plugin yields a value outside [0,1).
func (g *Generator) NextF64() float64 {
	v := g.nextF64(g.h)
	if v >= 0 && v < 1 {
		return v
	}
	return backend.ToFloat64(g.nextU64(g.h))
}

// Close frees the plugin handle. Calls after the first are no-ops.
func (g *Generator) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	g.lib.release(g.h)
	return nil
}
