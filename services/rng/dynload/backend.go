// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dynload

import (
	"context"

	"github.com/AleutianAI/rngbench/services/rng/backend"
)

// BackendName is the name reported for plugin results.
const BackendName = "csimd_universal"

// Backend is a plugin family exposed through the backend contract.
//
// Description:
//
//	Open loads the library; the algorithm id and bit-width are fixed for
//	the life of that load. Closing the returned Source unloads it.
type Backend struct {
	path      string
	algorithm int32
	bitwidth  int32
	dl        opener
}

// NewBackend creates a plugin backend for the library at path.
func NewBackend(path string, algorithm, bitwidth int32) *Backend {
	return &Backend{path: path, algorithm: algorithm, bitwidth: bitwidth, dl: platformOpener{}}
}

// Name returns BackendName.
func (b *Backend) Name() string { return BackendName }

// Path returns the configured library path.
func (b *Backend) Path() string { return b.path }

// Open loads the library.
func (b *Backend) Open(ctx context.Context) (backend.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lib, err := load(b.path, b.dl)
	if err != nil {
		return nil, err
	}
	return &source{lib: lib, algorithm: b.algorithm, bitwidth: b.bitwidth}, nil
}

type source struct {
	lib       *Library
	algorithm int32
	bitwidth  int32
}

func (s *source) New(seed uint64) (backend.Generator, error) {
	g, err := s.lib.NewGenerator(seed, s.algorithm, s.bitwidth)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *source) Close() error {
	return s.lib.Close()
}
