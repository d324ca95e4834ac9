// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/AleutianAI/rngbench/services/rng/bench"
)

// CSVHeader is the fixed column order.
var CSVHeader = []string{
	"generator",
	"u64_ops_per_s",
	"f64_ops_per_s",
	"mean_f64",
	"var_f64",
	"chi2_bytes",
	"threads",
	"total_u64",
	"total_f64",
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

// CSVRecord returns r as CSV fields in CSVHeader order.
func CSVRecord(r bench.Result) []string {
	return []string{
		r.Backend,
		formatFloat(r.U64.OpsPerSecond),
		formatFloat(r.F64.OpsPerSecond),
		formatFloat(r.Mean),
		formatFloat(r.Variance),
		formatFloat(r.ChiSquare),
		strconv.Itoa(r.Workers),
		strconv.FormatUint(r.U64.Samples, 10),
		strconv.FormatUint(r.F64.Samples, 10),
	}
}

// WriteCSV writes the header and one record per result.
func WriteCSV(w io.Writer, results []bench.Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, r := range results {
		if err := writer.Write(CSVRecord(r)); err != nil {
			return fmt.Errorf("write CSV row %s: %w", r.Backend, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSVFile creates or truncates path and writes results to it.
func WriteCSVFile(path string, results []bench.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WriteCSV(f, results)
}
