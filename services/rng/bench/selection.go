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
	"fmt"
	"log/slog"
	"slices"

	"github.com/AleutianAI/rngbench/services/rng/backend"
	"github.com/AleutianAI/rngbench/services/rng/dynload"
)

// PluginConfig configures the native csimd backend.
type PluginConfig struct {
	// Path is the shared library path. Empty skips csimd.
	Path string `json:"path" yaml:"path"`

	// Algorithm is passed to universal_rng_new.
	Algorithm int32 `json:"algorithm" yaml:"algorithm"`

	// BitWidth is passed to universal_rng_new.
	BitWidth int32 `json:"bitwidth" yaml:"bitwidth"`
}

// DefaultPluginConfig returns algorithm 0 and bit-width selector 1.
func DefaultPluginConfig() PluginConfig {
	return PluginConfig{Algorithm: 0, BitWidth: 1}
}

// SelectBackends turns selection tags into backends.
//
// Description:
//
//	An empty selection means backend.DefaultTags. Duplicates are dropped
//	and order is kept. The csimd tag resolves to a dynload.Backend for
//	plugin.Path unless reg already holds one; with no path it is skipped
//	with a warning.
//
// Outputs:
//   - []backend.Backend: Backends in selection order.
//   - error: Wraps ErrConfigInvalid and backend.ErrUnknownBackend for any
//     unregistered tag.
func SelectBackends(reg *backend.Registry, tags []string, plugin PluginConfig, logger *slog.Logger) ([]backend.Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(tags) == 0 {
		tags = backend.DefaultSelection()
	}

	// csimd is only resolved here when the registry lacks it; everything
	// else goes through the registry in selection order.
	seen := make(map[string]struct{}, len(tags))
	registered := make([]string, 0, len(tags))
	csimdAt := -1
	for _, tag := range tags {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		if tag == backend.TagCSIMD && !reg.Has(tag) {
			csimdAt = len(registered)
			continue
		}
		registered = append(registered, tag)
	}

	out, err := reg.Resolve(registered)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	if csimdAt >= 0 {
		if plugin.Path == "" {
			logger.Warn("--csimd-lib not provided; skipping 'csimd'")
		} else {
			out = slices.Insert(out, csimdAt, backend.Backend(dynload.NewBackend(plugin.Path, plugin.Algorithm, plugin.BitWidth)))
		}
	}
	return out, nil
}
