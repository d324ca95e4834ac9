// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bench runs the two-phase PRNG benchmark.
//
// # Description
//
// For each selected backend the Driver walks a fixed state machine:
//
//	Idle → RunningIntegerPhase → RunningDoublePhase → Reporting → Done
//
// The integer phase draws 64-bit values into a byte histogram; the double
// phase draws values in [0,1) into streaming moments. Each phase splits the
// sample budget evenly across W workers (remainder dropped), each worker on
// its own OS thread with a private generator and private accumulators that
// are folded into a fresh per-phase Aggregate once the worker finishes.
//
// Throughput is total / (Σ worker seconds / W), which is average per-worker
// rate scaled by W. It is reported that way for comparability with earlier
// result sets.
//
// A backend that fails to load or initialise is logged, recorded, and left
// out of the results; the remaining backends still run.
package bench
