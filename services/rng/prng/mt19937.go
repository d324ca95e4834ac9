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

// -----------------------------------------------------------------------------
// MT19937 (32-bit)
// -----------------------------------------------------------------------------

const (
	mt32N         = 624
	mt32M         = 397
	mt32MatrixA   = 0x9908B0DF
	mt32UpperMask = 0x80000000
	mt32LowerMask = 0x7FFFFFFF

	// MT19937DefaultSeed is the seed of a default-constructed std::mt19937.
	MT19937DefaultSeed = 5489
)

// MT19937 is the 32-bit Mersenne Twister.
type MT19937 struct {
	mt  [mt32N]uint32
	idx int
}

// NewMT19937 seeds the generator with the low 32 bits of seed.
func NewMT19937(seed uint64) *MT19937 {
	m := &MT19937{}
	m.mt[0] = uint32(seed)
	for i := 1; i < mt32N; i++ {
		prev := m.mt[i-1]
		m.mt[i] = 1812433253*(prev^(prev>>30)) + uint32(i)
	}
	m.idx = mt32N
	return m
}

func (m *MT19937) twist() {
	for i := 0; i < mt32N; i++ {
		y := (m.mt[i] & mt32UpperMask) | (m.mt[(i+1)%mt32N] & mt32LowerMask)
		v := m.mt[(i+mt32M)%mt32N] ^ (y >> 1)
		if y&1 != 0 {
			v ^= mt32MatrixA
		}
		m.mt[i] = v
	}
	m.idx = 0
}

// NextU32 returns the next tempered 32-bit output.
func (m *MT19937) NextU32() uint32 {
	if m.idx >= mt32N {
		m.twist()
	}
	y := m.mt[m.idx]
	m.idx++

	y ^= y >> 11
	y ^= (y << 7) & 0x9D2C5680
	y ^= (y << 15) & 0xEFC60000
	y ^= y >> 18
	return y
}

// NextU64 returns (a<<32)|b from two consecutive outputs.
func (m *MT19937) NextU64() uint64 {
	a := uint64(m.NextU32())
	b := uint64(m.NextU32())
	return a<<32 | b
}

// NextF64 returns a value in [0,1).
func (m *MT19937) NextF64() float64 {
	return ToFloat64(m.NextU64())
}

// -----------------------------------------------------------------------------
// MT19937-64
// -----------------------------------------------------------------------------

const (
	mt64N         = 312
	mt64M         = 156
	mt64MatrixA   = 0xB5026F5AA96619E9
	mt64UpperMask = 0xFFFFFFFF80000000
	mt64LowerMask = 0x7FFFFFFF
)

// MT19937_64 is the 64-bit Mersenne Twister.
type MT19937_64 struct {
	mt  [mt64N]uint64
	idx int
}

// NewMT19937_64 seeds the generator with the full 64-bit seed.
func NewMT19937_64(seed uint64) *MT19937_64 {
	m := &MT19937_64{}
	m.mt[0] = seed
	for i := 1; i < mt64N; i++ {
		prev := m.mt[i-1]
		m.mt[i] = 6364136223846793005*(prev^(prev>>62)) + uint64(i)
	}
	m.idx = mt64N
	return m
}

func (m *MT19937_64) twist() {
	for i := 0; i < mt64N; i++ {
		x := (m.mt[i] & mt64UpperMask) | (m.mt[(i+1)%mt64N] & mt64LowerMask)
		v := m.mt[(i+mt64M)%mt64N] ^ (x >> 1)
		if x&1 != 0 {
			v ^= mt64MatrixA
		}
		m.mt[i] = v
	}
	m.idx = 0
}

// NextU64 returns the next tempered output.
func (m *MT19937_64) NextU64() uint64 {
	if m.idx >= mt64N {
		m.twist()
	}
	x := m.mt[m.idx]
	m.idx++

	x ^= (x >> 29) & 0x5555555555555555
	x ^= (x << 17) & 0x71D67FFFEDA60000
	x ^= (x << 37) & 0xFFF7EEE000000000
	x ^= x >> 43
	return x
}

// NextF64 returns a value in [0,1).
func (m *MT19937_64) NextF64() float64 {
	return ToFloat64(m.NextU64())
}
