// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prng

// GoldenGamma is the splitmix64 increment, 2^64 divided by the golden ratio.
const GoldenGamma uint64 = 0x9E3779B97F4A7C15

// float53 is 2^-53.
const float53 = 1.0 / (1 << 53)

// ToFloat64 maps the top 53 bits of x onto [0,1).
//
// Description:
//
//	The mapping is exact: every result is k·2⁻⁵³ for some k in [0, 2⁵³),
//	so 1.0 is never produced.
//
// Inputs:
//   - x: A 64-bit draw from any generator.
//
// Outputs:
//   - float64: A value in [0,1).
func ToFloat64(x uint64) float64 {
	return float64(x>>11) * float53
}

// SplitMix64 is Vigna's splitmix64 generator.
type SplitMix64 struct {
	state uint64
}

// NewSplitMix64 creates a splitmix64 generator whose first output mixes
// seed+GoldenGamma.
func NewSplitMix64(seed uint64) *SplitMix64 {
	return &SplitMix64{state: seed}
}

// NextU64 advances the state by GoldenGamma and returns the mixed value.
func (s *SplitMix64) NextU64() uint64 {
	s.state += GoldenGamma
	return mix64(s.state)
}

// NextF64 returns a value in [0,1).
func (s *SplitMix64) NextF64() float64 {
	return ToFloat64(s.NextU64())
}

// Mix returns the first splitmix64 output for seed.
//
// Description:
//
//	Mix is the avalanche step used to derive independent per-worker seeds
//	from one base seed. Mix(s) == NewSplitMix64(s).NextU64().
func Mix(seed uint64) uint64 {
	return mix64(seed + GoldenGamma)
}

func mix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}
