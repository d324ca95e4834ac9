// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders benchmark results as a fixed-width table or CSV.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/rngbench/pkg/ux"
	"github.com/AleutianAI/rngbench/services/rng/bench"
)

// Column widths, left aligned. Values wider than their column are not
// truncated.
const (
	widthName    = 20
	widthU64     = 16
	widthF64     = 16
	widthMean    = 12
	widthVar     = 12
	widthChi     = 14
	widthThreads = 8

	// TableWidth is the separator length.
	TableWidth = widthName + widthU64 + widthF64 + widthMean + widthVar + widthChi + widthThreads
)

var rowFormat = fmt.Sprintf("%%-%ds%%-%ds%%-%ds%%-%d.6f%%-%d.6f%%-%d.2f%%-%dd\n",
	widthName, widthU64, widthF64, widthMean, widthVar, widthChi, widthThreads)

// TableOptions controls table rendering.
type TableOptions struct {
	// Styled renders the header with terminal styling.
	Styled bool
}

// FormatRate renders ops/s as millions with two decimals, e.g. "123.45 M/s".
func FormatRate(opsPerSecond float64) string {
	return fmt.Sprintf("%.2f M/s", opsPerSecond/1e6)
}

// Header returns the unstyled header line without a trailing newline.
func Header() string {
	return fmt.Sprintf("%-*s%-*s%-*s%-*s%-*s%-*s%-*s",
		widthName, "generator",
		widthU64, "u64 ops/s",
		widthF64, "f64 ops/s",
		widthMean, "mean(f64)",
		widthVar, "var(f64)",
		widthChi, "chi2(bytes)",
		widthThreads, "threads",
	)
}

// WriteTable writes the header, a dashed separator, and one row per result.
func WriteTable(w io.Writer, results []bench.Result, opts TableOptions) error {
	header := Header()
	if opts.Styled {
		header = ux.Styles.Title.Render(header)
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", TableWidth)); err != nil {
		return err
	}
	for _, r := range results {
		_, err := fmt.Fprintf(w, rowFormat,
			r.Backend,
			FormatRate(r.U64.OpsPerSecond),
			FormatRate(r.F64.OpsPerSecond),
			r.Mean,
			r.Variance,
			r.ChiSquare,
			r.Workers,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
