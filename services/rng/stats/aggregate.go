// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stats

import "sync"

// Aggregate collects per-worker accumulators for one phase.
//
// Thread Safety: Safe for concurrent use. Each worker folds once.
type Aggregate struct {
	mu      sync.Mutex
	moments Moments
	hist    Histogram
}

// NewAggregate returns an empty aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{}
}

// FoldMoments merges a worker's moments.
func (a *Aggregate) FoldMoments(m Moments) {
	a.mu.Lock()
	a.moments.Merge(m)
	a.mu.Unlock()
}

// FoldHistogram merges a worker's histogram.
func (a *Aggregate) FoldHistogram(h *Histogram) {
	a.mu.Lock()
	a.hist.Merge(h)
	a.mu.Unlock()
}

// Moments returns a snapshot of the merged moments.
func (a *Aggregate) Moments() Moments {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moments
}

// Histogram returns a snapshot of the merged histogram.
func (a *Aggregate) Histogram() Histogram {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hist
}
