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
// minstd_rand
// -----------------------------------------------------------------------------

const (
	minstdMultiplier = 48271
	minstdModulus    = 2147483647
)

// MinStdRand is the Park–Miller generator with multiplier 48271.
type MinStdRand struct {
	x uint64
}

// NewMinStdRand seeds with the low 32 bits of seed, reduced mod 2^31-1.
// A zero residue is replaced by 1.
func NewMinStdRand(seed uint64) *MinStdRand {
	x := uint64(uint32(seed)) % minstdModulus
	if x == 0 {
		x = 1
	}
	return &MinStdRand{x: x}
}

// NextU32 returns the next value in [1, 2^31-2].
func (m *MinStdRand) NextU32() uint32 {
	m.x = (m.x * minstdMultiplier) % minstdModulus
	return uint32(m.x)
}

// NextU64 returns (a<<32)|b from two consecutive outputs.
func (m *MinStdRand) NextU64() uint64 {
	a := uint64(m.NextU32())
	b := uint64(m.NextU32())
	return a<<32 | b
}

// NextF64 returns a value in [0,1).
func (m *MinStdRand) NextF64() float64 {
	return ToFloat64(m.NextU64())
}

// -----------------------------------------------------------------------------
// ranlux48
// -----------------------------------------------------------------------------

const (
	ranluxWordBits  = 48
	ranluxShortLag  = 5
	ranluxLongLag   = 12
	ranluxBlockSize = 389
	ranluxUsedBlock = 11
	ranluxModulus   = uint64(1) << ranluxWordBits

	// Ranlux48DefaultSeed is the seed used when zero is given.
	Ranlux48DefaultSeed = 19780503

	seedLCGMultiplier = 40014
	seedLCGModulus    = 2147483563
)

// Ranlux48Base is the subtract-with-carry engine underlying ranlux48
// (word size 48, short lag 5, long lag 12).
type Ranlux48Base struct {
	x     [ranluxLongLag]uint64
	carry uint64
	p     int
}

// NewRanlux48Base seeds the engine.
//
// Description:
//
//	The twelve state words are filled from a linear congruential engine
//	(multiplier 40014, modulus 2147483563) seeded with seed, two 32-bit
//	draws per word. A zero seed selects Ranlux48DefaultSeed.
func NewRanlux48Base(seed uint64) *Ranlux48Base {
	if seed == 0 {
		seed = Ranlux48DefaultSeed
	}
	lcg := seed % seedLCGModulus
	if lcg == 0 {
		lcg = 1
	}
	next := func() uint64 {
		lcg = (lcg * seedLCGMultiplier) % seedLCGModulus
		return lcg
	}

	r := &Ranlux48Base{}
	for i := range r.x {
		lo := next() & 0xFFFFFFFF
		hi := next() & 0xFFFFFFFF
		r.x[i] = (lo + hi<<32) & (ranluxModulus - 1)
	}
	if r.x[ranluxLongLag-1] == 0 {
		r.carry = 1
	}
	return r
}

// Next returns the next 48-bit output.
func (r *Ranlux48Base) Next() uint64 {
	ps := r.p - ranluxShortLag
	if ps < 0 {
		ps += ranluxLongLag
	}

	var xi uint64
	if r.x[ps] >= r.x[r.p]+r.carry {
		xi = r.x[ps] - r.x[r.p] - r.carry
		r.carry = 0
	} else {
		xi = ranluxModulus - r.x[r.p] - r.carry + r.x[ps]
		r.carry = 1
	}
	r.x[r.p] = xi

	r.p++
	if r.p >= ranluxLongLag {
		r.p = 0
	}
	return xi
}

// Ranlux48 is ranlux48: Ranlux48Base with 389-word blocks of which the
// first 11 are used.
type Ranlux48 struct {
	base *Ranlux48Base
	n    int
}

// NewRanlux48 seeds the underlying engine with seed.
func NewRanlux48(seed uint64) *Ranlux48 {
	return &Ranlux48{base: NewRanlux48Base(seed)}
}

// Next returns the next 48-bit output.
func (r *Ranlux48) Next() uint64 {
	if r.n >= ranluxUsedBlock {
		for i := ranluxUsedBlock; i < ranluxBlockSize; i++ {
			r.base.Next()
		}
		r.n = 0
	}
	r.n++
	return r.base.Next()
}

// NextU64 returns (a<<32)|b from two consecutive 48-bit outputs. The high
// 16 bits of a are shifted out and overlap b, as in the reference harness.
func (r *Ranlux48) NextU64() uint64 {
	a := r.Next()
	b := r.Next()
	return a<<32 | b
}

// NextF64 returns a value in [0,1).
func (r *Ranlux48) NextF64() float64 {
	return ToFloat64(r.NextU64())
}
