// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stats holds the streaming statistics computed during a benchmark:
// Welford moments for doubles and a byte histogram for 64-bit draws.
//
// Accumulators are not safe for concurrent use. Workers keep private
// accumulators and fold them into an Aggregate once at the end of a phase.
package stats

import "math"

// Moments is a streaming mean/variance accumulator. The squared-deviation
// sum carries a Neumaier compensation term so long runs of small updates
// are not absorbed by a large running total.
type Moments struct {
	n    uint64
	mean float64
	m2   float64
	m2c  float64
}

// Push adds one observation.
func (m *Moments) Push(x float64) {
	m.n++
	d := x - m.mean
	m.mean += d / float64(m.n)
	d2 := x - m.mean
	addCompensated(&m.m2, &m.m2c, d*d2)
}

// Merge folds other into m. Merging an empty accumulator is a no-op.
func (m *Moments) Merge(other Moments) {
	if other.n == 0 {
		return
	}
	if m.n == 0 {
		*m = other
		return
	}
	na := float64(m.n)
	nb := float64(other.n)
	n := na + nb
	delta := other.mean - m.mean

	m.mean += delta * nb / n
	addCompensated(&m.m2, &m.m2c, other.m2)
	addCompensated(&m.m2, &m.m2c, other.m2c)
	addCompensated(&m.m2, &m.m2c, delta*delta*na*nb/n)
	m.n += other.n
}

// Count returns the number of observations.
func (m Moments) Count() uint64 { return m.n }

// Mean returns the running mean, or 0 when empty.
func (m Moments) Mean() float64 { return m.mean }

// Variance returns the sample variance, or 0 when fewer than two
// observations were pushed.
func (m Moments) Variance() float64 {
	if m.n < 2 {
		return 0
	}
	return (m.m2 + m.m2c) / float64(m.n-1)
}

// addCompensated adds x to *sum, accumulating the rounding error in *c.
func addCompensated(sum, c *float64, x float64) {
	t := *sum + x
	if math.Abs(*sum) >= math.Abs(x) {
		*c += (*sum - t) + x
	} else {
		*c += (x - t) + *sum
	}
	*sum = t
}
