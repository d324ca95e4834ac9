// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/rngbench/pkg/ux"
	"github.com/AleutianAI/rngbench/services/rng/bench"
	"github.com/AleutianAI/rngbench/services/rng/history"
	"github.com/AleutianAI/rngbench/services/rng/report"
)

// shutdownTimeout bounds flushing sinks after a run.
const shutdownTimeout = 10 * time.Second

func runBench(cmd *cobra.Command, _ []string) error {
	if err := applyBenchFlags(cmd, settings); err != nil {
		return err
	}
	ctx := cmd.Context()
	logger := appLogger.Slog()

	params, err := settings.BenchParams()
	if err != nil {
		return err
	}

	stack, err := newTelemetryStack(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeStack(stack, logger)

	store, err := openHistory(settings, false, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	spin := ux.NewSpinner(cmd.ErrOrStderr(), "preparing benchmark")
	r, err := newRunner(settings, store, stack, progressHook(spin), logger)
	if err != nil {
		return err
	}

	spin.Start()
	run, err := r.Execute(ctx, params, settings.Bench.Gens)
	spin.Stop()
	if run != nil {
		if perr := printRun(cmd.OutOrStdout(), run); perr != nil {
			return perr
		}
		writeCSV(settings.Bench.CSV, run.Results, logger)
		writeTextfile(settings.Telemetry.Textfile, stack.Registry, logger)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("benchmark interrupted")
		}
		return err
	}
	if store != nil {
		logger.Info("run saved", slog.String("run_id", run.ID))
	}
	return nil
}

// printRun writes the results table, then one line per failed backend.
func printRun(w io.Writer, run *history.Run) error {
	printer := ux.NewPrinter(w)
	if err := report.WriteTable(w, run.Results, report.TableOptions{Styled: printer.Styled()}); err != nil {
		return err
	}
	for _, f := range run.Failures {
		printer.Error(fmt.Sprintf("%s: %s", f.Backend, f.Error))
	}
	return nil
}

// writeCSV writes results to path when one is configured. Failures are
// logged and do not fail the command.
func writeCSV(path string, results []bench.Result, logger *slog.Logger) {
	if path == "" {
		return
	}
	if err := report.WriteCSVFile(path, results); err != nil {
		logger.Warn("failed to write CSV", slog.String("path", path), slog.Any("error", err))
		return
	}
	logger.Info("wrote CSV", slog.String("path", path))
}

func writeTextfile(path string, reg *prometheus.Registry, logger *slog.Logger) {
	if path == "" {
		return
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		logger.Warn("failed to write metrics textfile", slog.String("path", path), slog.Any("error", err))
		return
	}
	logger.Info("wrote metrics textfile", slog.String("path", path))
}

func closeStack(stack *telemetryStack, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stack.Close(ctx); err != nil {
		logger.Warn("telemetry shutdown failed", slog.Any("error", err))
	}
}
