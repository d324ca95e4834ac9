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

const (
	pcgMultiplier = 6364136223846793005

	// PCG32DefaultStream is the stream selector used when none is given.
	PCG32DefaultStream = 54
)

// PCG32 is the PCG XSH-RR 64/32 generator.
type PCG32 struct {
	state uint64
	inc   uint64
}

// NewPCG32 creates a generator on the default stream.
func NewPCG32(seed uint64) *PCG32 {
	return NewPCG32Stream(seed, PCG32DefaultStream)
}

// NewPCG32Stream creates a generator on the given stream.
//
// Description:
//
//	Follows pcg32_srandom_r: the state is zeroed, stepped once, offset by
//	seed, and stepped again. The increment is (stream<<1)|1 so it is
//	always odd.
func NewPCG32Stream(seed, stream uint64) *PCG32 {
	p := &PCG32{inc: (stream << 1) | 1}
	p.NextU32()
	p.state += seed
	p.NextU32()
	return p
}

// NextU32 returns the next 32-bit output.
func (p *PCG32) NextU32() uint32 {
	old := p.state
	p.state = old*pcgMultiplier + p.inc
	xorshifted := uint32(((old >> 18) ^ old) >> 27)
	rot := int(old >> 59)
	return bits.RotateLeft32(xorshifted, -rot)
}

// NextU64 returns (a<<32)|b from two consecutive 32-bit outputs.
func (p *PCG32) NextU64() uint64 {
	a := uint64(p.NextU32())
	b := uint64(p.NextU32())
	return a<<32 | b
}

// NextF64 returns a value in [0,1).
func (p *PCG32) NextF64() float64 {
	return ToFloat64(p.NextU64())
}
