// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bench

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AleutianAI/rngbench/services/rng/prng"
)

const (
	integerSeedStride = prng.GoldenGamma
	doubleSeedOffset  = 0xFACEB00C
	doubleSeedStride  = 0x9E37
)

// IntegerSeed derives worker w's seed for the integer phase.
func IntegerSeed(base uint64, w int) uint64 {
	return prng.Mix(base + uint64(w)*integerSeedStride)
}

// DoubleSeed derives worker w's seed for the double phase.
func DoubleSeed(base uint64, w int) uint64 {
	return prng.Mix(base + doubleSeedOffset + uint64(w)*doubleSeedStride)
}

// ParseSeed reads a base seed as hexadecimal, with an optional 0x prefix,
// and falls back to decimal. Hex wins whenever both readings are valid, so
// "42" is 0x42.
//
// Outputs:
//   - error: Wraps ErrConfigInvalid when neither reading is valid.
func ParseSeed(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if v, err := strconv.ParseUint(hex, 16, 64); err == nil {
		return v, nil
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	return 0, fmt.Errorf("%w: seed %q is neither hex nor decimal u64", ErrConfigInvalid, s)
}
