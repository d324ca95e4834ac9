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
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// PerWorker returns total / workers. The remainder is dropped.
func PerWorker(total uint64, workers int) uint64 {
	if workers < 1 {
		return 0
	}
	return total / uint64(workers)
}

// RunPartitioned runs fn(0..workers-1) in parallel and waits for all of
// them.
//
// Description:
//
//	Every worker is locked to its OS thread for its whole run. With pin
//	set, worker w is also bound to CPU w mod NumCPU; a failed bind is
//	logged at debug level and the worker runs unpinned. Workers are not
//	cancelled when a sibling fails.
//
// Outputs:
//   - error: The first error returned by any worker.
func RunPartitioned(workers int, pin bool, logger *slog.Logger, fn func(w int) error) error {
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			if pin {
				if err := pinToCPU(w % runtime.NumCPU()); err != nil {
					logger.Debug("cpu pin failed", slog.Int("worker", w), slog.String("error", err.Error()))
				}
			}
			return fn(w)
		})
	}
	return g.Wait()
}
