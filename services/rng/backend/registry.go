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
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry maps selection tags to backends.
//
// Description:
//
//	Tags are what users type on the command line (e.g. "std_minstd");
//	the Backend's Name is what appears in reports (e.g. "minstd_rand").
//	Registration order is remembered so listings are stable.
//
// Thread Safety: Safe for concurrent use via read-write mutex.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
	order    []string
}

// NewRegistry creates a new empty registry.
//
// Outputs:
//   - *Registry: The new registry. Never nil.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]Backend),
	}
}

// Register adds b under tag.
//
// Outputs:
//   - error: nil on success, ErrNilBackend if b is nil,
//     ErrAlreadyRegistered if tag is already taken.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) Register(tag string, b Backend) error {
	if b == nil {
		return ErrNilBackend
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[tag]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, tag)
	}
	r.backends[tag] = b
	r.order = append(r.order, tag)
	return nil
}

// MustRegister registers b and panics on error.
func (r *Registry) MustRegister(tag string, b Backend) {
	if err := r.Register(tag, b); err != nil {
		panic(fmt.Sprintf("backend: failed to register %s: %v", tag, err))
	}
}

// Get returns the backend registered under tag.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) Get(tag string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[tag]
	return b, ok
}

// Has reports whether tag is registered.
func (r *Registry) Has(tag string) bool {
	_, ok := r.Get(tag)
	return ok
}

// Tags returns registered tags in registration order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// SortedTags returns registered tags in lexical order.
func (r *Registry) SortedTags() []string {
	tags := r.Tags()
	sort.Strings(tags)
	return tags
}

// Count returns the number of registered backends.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.backends)
}

// Resolve maps tags to backends, preserving order and dropping duplicates.
//
// Outputs:
//   - []Backend: Backends for every known tag, in first-seen order.
//   - error: Joined ErrUnknownBackend errors for unregistered tags, or nil.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) Resolve(tags []string) ([]Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(tags))
	out := make([]Backend, 0, len(tags))
	var errs []error
	for _, tag := range tags {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}

		b, ok := r.backends[tag]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownBackend, tag))
			continue
		}
		out = append(out, b)
	}
	return out, errors.Join(errs...)
}
