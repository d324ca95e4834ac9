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
	"encoding/binary"
	"math/rand/v2"

	"github.com/valyala/fastrand"
	"golang.org/x/crypto/chacha20"
	exprand "golang.org/x/exp/rand"

	"github.com/AleutianAI/rngbench/services/rng/prng"
)

// uint64Source is satisfied by the library generators wrapped below.
type uint64Source interface {
	Uint64() uint64
}

// u64Engine adapts a Uint64-only source; doubles come from ToFloat64.
type u64Engine struct {
	src uint64Source
}

func (e u64Engine) NextU64() uint64  { return e.src.Uint64() }
func (e u64Engine) NextF64() float64 { return prng.ToFloat64(e.src.Uint64()) }

// expandSeed fills n bytes from a SplitMix64 chain starting at seed.
func expandSeed(seed uint64, n int) []byte {
	sm := prng.NewSplitMix64(seed)
	out := make([]byte, n+8)
	for i := 0; i < n; i += 8 {
		binary.LittleEndian.PutUint64(out[i:], sm.NextU64())
	}
	return out[:n]
}

// -----------------------------------------------------------------------------
// math/rand/v2
// -----------------------------------------------------------------------------

func newGoPCG(seed uint64) Engine {
	return u64Engine{src: rand.NewPCG(seed, prng.Mix(seed))}
}

func newGoChaCha8(seed uint64) Engine {
	var key [32]byte
	copy(key[:], expandSeed(seed, len(key)))
	return u64Engine{src: rand.NewChaCha8(key)}
}

// -----------------------------------------------------------------------------
// golang.org/x/exp/rand
// -----------------------------------------------------------------------------

func newExpPCG(seed uint64) Engine {
	src := &exprand.PCGSource{}
	src.Seed(seed)
	return u64Engine{src: src}
}

// -----------------------------------------------------------------------------
// golang.org/x/crypto/chacha20 keystream
// -----------------------------------------------------------------------------

const chachaBufSize = 512

// chachaStream serves 64-bit words from a ChaCha20 keystream, refilling a
// fixed buffer so draws do not allocate.
type chachaStream struct {
	cipher *chacha20.Cipher
	zero   [chachaBufSize]byte
	buf    [chachaBufSize]byte
	pos    int
}

func newChaCha20(seed uint64) Engine {
	material := expandSeed(seed, chacha20.KeySize+chacha20.NonceSize)
	c, err := chacha20.NewUnauthenticatedCipher(
		material[:chacha20.KeySize],
		material[chacha20.KeySize:],
	)
	if err != nil {
		// Key and nonce lengths are fixed above.
		panic(err)
	}
	s := &chachaStream{cipher: c, pos: chachaBufSize}
	return u64Engine{src: s}
}

func (s *chachaStream) Uint64() uint64 {
	if s.pos >= chachaBufSize {
		s.cipher.XORKeyStream(s.buf[:], s.zero[:])
		s.pos = 0
	}
	v := binary.LittleEndian.Uint64(s.buf[s.pos:])
	s.pos += 8
	return v
}

// -----------------------------------------------------------------------------
// github.com/valyala/fastrand
// -----------------------------------------------------------------------------

// fastrandEngine composes two 32-bit xorshift draws.
type fastrandEngine struct {
	rng fastrand.RNG
}

func newFastrand(seed uint64) Engine {
	e := &fastrandEngine{}
	// A zero state makes fastrand reseed itself from the runtime.
	e.rng.Seed(uint32(prng.Mix(seed)) | 1)
	return e
}

func (e *fastrandEngine) NextU64() uint64 {
	a := uint64(e.rng.Uint32())
	b := uint64(e.rng.Uint32())
	return a<<32 | b
}

func (e *fastrandEngine) NextF64() float64 {
	return prng.ToFloat64(e.NextU64())
}
