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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// engine is the method set shared by every generator in this package.
type engine interface {
	NextU64() uint64
	NextF64() float64
}

// -----------------------------------------------------------------------------
// Reference Vectors
// -----------------------------------------------------------------------------

func TestSplitMix64_ReferenceVector(t *testing.T) {
	s := NewSplitMix64(0)
	assert.Equal(t, uint64(0xE220A8397B1DCDAF), s.NextU64())
	assert.Equal(t, uint64(0x6E789E6AA1B965F4), s.NextU64())
	assert.Equal(t, uint64(0x06C45D188009454F), s.NextU64())
}

func TestMix_MatchesFirstOutput(t *testing.T) {
	for _, seed := range []uint64{0, 1, 42, 0xC0FFEED5EED, ^uint64(0)} {
		assert.Equal(t, NewSplitMix64(seed).NextU64(), Mix(seed), "seed %#x", seed)
	}
}

func TestPCG32_ReferenceVector(t *testing.T) {
	// pcg32-demo output for pcg32_srandom_r(&rng, 42, 54).
	p := NewPCG32(42)
	want := []uint32{0xa15c02b7, 0x7b47f409, 0xba1d3330, 0x83d2f293, 0xbfa4784b, 0xcbed606e}
	for i, w := range want {
		assert.Equal(t, w, p.NextU32(), "draw %d", i)
	}
}

func TestPCG32_NextU64Composition(t *testing.T) {
	a := NewPCG32(7)
	b := NewPCG32(7)
	hi := uint64(b.NextU32())
	lo := uint64(b.NextU32())
	assert.Equal(t, hi<<32|lo, a.NextU64())
}

func TestMT19937_ReferenceVector(t *testing.T) {
	m := NewMT19937(MT19937DefaultSeed)
	assert.Equal(t, uint32(3499211612), m.NextU32())

	m = NewMT19937(MT19937DefaultSeed)
	var v uint32
	for i := 0; i < 10000; i++ {
		v = m.NextU32()
	}
	assert.Equal(t, uint32(4123659995), v)
}

func TestMT19937_UsesLow32BitsOfSeed(t *testing.T) {
	a := NewMT19937(0x1_0000_1234)
	b := NewMT19937(0x1234)
	assert.Equal(t, b.NextU64(), a.NextU64())
}

func TestMT19937_64_ReferenceVector(t *testing.T) {
	m := NewMT19937_64(MT19937DefaultSeed)
	assert.Equal(t, uint64(14514284786278117030), m.NextU64())

	m = NewMT19937_64(MT19937DefaultSeed)
	var v uint64
	for i := 0; i < 10000; i++ {
		v = m.NextU64()
	}
	assert.Equal(t, uint64(9981545732273789042), v)
}

func TestMinStdRand_ReferenceVector(t *testing.T) {
	m := NewMinStdRand(1)
	assert.Equal(t, uint32(48271), m.NextU32())

	m = NewMinStdRand(1)
	var v uint32
	for i := 0; i < 10000; i++ {
		v = m.NextU32()
	}
	assert.Equal(t, uint32(399268537), v)
}

func TestMinStdRand_ZeroSeed(t *testing.T) {
	a := NewMinStdRand(0)
	b := NewMinStdRand(1)
	assert.Equal(t, b.NextU32(), a.NextU32())
}

func TestRanlux48Base_ReferenceVector(t *testing.T) {
	r := NewRanlux48Base(Ranlux48DefaultSeed)
	var v uint64
	for i := 0; i < 10000; i++ {
		v = r.Next()
	}
	assert.Equal(t, uint64(61839128582725), v)
}

func TestRanlux48_ReferenceVector(t *testing.T) {
	r := NewRanlux48(0)
	var v uint64
	for i := 0; i < 10000; i++ {
		v = r.Next()
	}
	assert.Equal(t, uint64(249142670248501), v)
}

func TestRanlux48_OutputsFit48Bits(t *testing.T) {
	r := NewRanlux48(12345)
	for i := 0; i < 5000; i++ {
		require.Less(t, r.Next(), uint64(1)<<48)
	}
}

// -----------------------------------------------------------------------------
// Contract Properties
// -----------------------------------------------------------------------------

func constructors() map[string]func(uint64) engine {
	return map[string]func(uint64) engine{
		"splitmix64":     func(s uint64) engine { return NewSplitMix64(s) },
		"xoroshiro128pp": func(s uint64) engine { return NewXoroshiro128pp(s) },
		"xoshiro256ss":   func(s uint64) engine { return NewXoshiro256ss(s) },
		"lehmer64":       func(s uint64) engine { return NewLehmer64(s) },
		"pcg32":          func(s uint64) engine { return NewPCG32(s) },
		"mt19937":        func(s uint64) engine { return NewMT19937(s) },
		"mt19937_64":     func(s uint64) engine { return NewMT19937_64(s) },
		"minstd_rand":    func(s uint64) engine { return NewMinStdRand(s) },
		"ranlux48":       func(s uint64) engine { return NewRanlux48(s) },
	}
}

func TestGenerators_Deterministic(t *testing.T) {
	for name, ctor := range constructors() {
		t.Run(name, func(t *testing.T) {
			a, b := ctor(0xC0FFEED5EED), ctor(0xC0FFEED5EED)
			for i := 0; i < 1000; i++ {
				require.Equal(t, a.NextU64(), b.NextU64(), "draw %d", i)
			}
		})
	}
}

func TestGenerators_SeedSensitive(t *testing.T) {
	for name, ctor := range constructors() {
		t.Run(name, func(t *testing.T) {
			a, b := ctor(1), ctor(2)
			same := 0
			for i := 0; i < 64; i++ {
				if a.NextU64() == b.NextU64() {
					same++
				}
			}
			assert.Less(t, same, 64)
		})
	}
}

func TestGenerators_FloatRange(t *testing.T) {
	for name, ctor := range constructors() {
		t.Run(name, func(t *testing.T) {
			g := ctor(99)
			for i := 0; i < 10000; i++ {
				f := g.NextF64()
				require.GreaterOrEqual(t, f, 0.0)
				require.Less(t, f, 1.0)
			}
		})
	}
}

func TestToFloat64_Bounds(t *testing.T) {
	assert.Equal(t, 0.0, ToFloat64(0))
	assert.Equal(t, 0.0, ToFloat64(0x7FF))
	assert.Less(t, ToFloat64(^uint64(0)), 1.0)
	assert.Equal(t, 0.5, ToFloat64(1<<63))
}
