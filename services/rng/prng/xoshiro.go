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

import "math/bits"

// Xoroshiro128pp is xoroshiro128++ 1.0.
type Xoroshiro128pp struct {
	s0, s1 uint64
}

// NewXoroshiro128pp seeds both state words from a splitmix64 chain.
func NewXoroshiro128pp(seed uint64) *Xoroshiro128pp {
	sm := SplitMix64{state: seed}
	return &Xoroshiro128pp{s0: sm.NextU64(), s1: sm.NextU64()}
}

// NextU64 returns the next output.
func (x *Xoroshiro128pp) NextU64() uint64 {
	s0, s1 := x.s0, x.s1
	r := bits.RotateLeft64(s0+s1, 17) + s0
	s1 ^= s0
	x.s0 = bits.RotateLeft64(s0, 49) ^ s1 ^ (s1 << 21)
	x.s1 = bits.RotateLeft64(s1, 28)
	return r
}

// NextF64 returns a value in [0,1).
func (x *Xoroshiro128pp) NextF64() float64 {
	return ToFloat64(x.NextU64())
}

// Xoshiro256ss is xoshiro256** 1.0.
type Xoshiro256ss struct {
	s [4]uint64
}

// NewXoshiro256ss seeds the four state words from a splitmix64 chain.
func NewXoshiro256ss(seed uint64) *Xoshiro256ss {
	sm := SplitMix64{state: seed}
	x := &Xoshiro256ss{}
	for i := range x.s {
		x.s[i] = sm.NextU64()
	}
	return x
}

// NextU64 returns the next output.
func (x *Xoshiro256ss) NextU64() uint64 {
	s := &x.s
	result := bits.RotateLeft64(s[1]*5, 7) * 9
	t := s[1] << 17

	s[2] ^= s[0]
	s[3] ^= s[1]
	s[1] ^= s[2]
	s[0] ^= s[3]

	s[2] ^= t
	s[3] = bits.RotateLeft64(s[3], 45)

	return result
}

// NextF64 returns a value in [0,1).
func (x *Xoshiro256ss) NextF64() float64 {
	return ToFloat64(x.NextU64())
}

// Lehmer64 is Lemire's 128-bit multiplicative congruential generator.
type Lehmer64 struct {
	hi, lo uint64
}

const lehmerMultiplier = 0xda942042e4dd58b5

// NewLehmer64 fills the 128-bit state from two splitmix64 outputs.
func NewLehmer64(seed uint64) *Lehmer64 {
	sm := SplitMix64{state: seed}
	return &Lehmer64{hi: sm.NextU64(), lo: sm.NextU64() | 1}
}

// NextU64 multiplies the state by the constant and returns the high word.
func (l *Lehmer64) NextU64() uint64 {
	hl := l.hi * lehmerMultiplier
	l.hi, l.lo = bits.Mul64(l.lo, lehmerMultiplier)
	l.hi += hl
	return l.hi
}

// NextF64 returns a value in [0,1).
func (l *Lehmer64) NextF64() float64 {
	return ToFloat64(l.NextU64())
}
