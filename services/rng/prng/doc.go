// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prng contains the in-process generator algorithms benchmarked by
// rngbench.
//
// # Description
//
// Every generator here is a plain value type with no locking and no
// allocation on the hot path. Each exposes NextU64 and NextF64 so it can be
// wrapped by the backend package without further adaptation.
//
// The 32-bit engines (MT19937, MinStdRand, Ranlux48, PCG32) compose a
// 64-bit draw from two consecutive native draws as (a<<32)|b, which keeps
// their numbers comparable with the historical C++ harness.
//
// # Thread Safety
//
// None of the generators are safe for concurrent use. The benchmark driver
// gives each worker its own instance.
//
// # Algorithms
//
//	splitmix64      seeding mixer and a generator in its own right
//	xoroshiro128++  Blackman & Vigna, splitmix64-seeded
//	xoshiro256**    Blackman & Vigna, splitmix64-seeded
//	pcg32           O'Neill XSH-RR 64/32, stream 54
//	mt19937         Matsumoto & Nishimura, 32-bit
//	mt19937_64      Matsumoto & Nishimura, 64-bit
//	minstd_rand     Park & Miller, multiplier 48271
//	ranlux48        Lüscher subtract-with-carry 48/5/12, block 389/11
//	lehmer64        Lemire 128-bit multiplicative
package prng
