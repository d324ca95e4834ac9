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

// Buckets is the number of histogram bins, one per byte value.
const Buckets = 256

// Histogram counts byte values across 64-bit draws.
type Histogram struct {
	counts [Buckets]uint64
}

// PushU64 counts all eight bytes of x, least significant first.
func (h *Histogram) PushU64(x uint64) {
	for i := 0; i < 8; i++ {
		h.counts[byte(x)]++
		x >>= 8
	}
}

// Merge adds other's counts into h.
func (h *Histogram) Merge(other *Histogram) {
	for i := range h.counts {
		h.counts[i] += other.counts[i]
	}
}

// Count returns the count for byte value b.
func (h *Histogram) Count(b byte) uint64 { return h.counts[b] }

// Counts returns a copy of every bucket.
func (h *Histogram) Counts() [Buckets]uint64 { return h.counts }

// Total returns the number of bytes counted.
func (h *Histogram) Total() uint64 {
	var t uint64
	for _, c := range h.counts {
		t += c
	}
	return t
}

// ChiSquare returns Σ (observed-expected)²/expected against a uniform
// expectation of Total/256 per bucket, or 0 when nothing was counted.
func (h *Histogram) ChiSquare() float64 {
	total := h.Total()
	if total == 0 {
		return 0
	}
	exp := float64(total) / Buckets
	var chi float64
	for _, c := range h.counts {
		d := float64(c) - exp
		chi += d * d / exp
	}
	return chi
}
