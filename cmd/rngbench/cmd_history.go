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
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/rngbench/pkg/validation"
	"github.com/AleutianAI/rngbench/services/rng/history"
)

func openHistoryForCommand(cmd *cobra.Command) (*history.Store, error) {
	if cmd.Flags().Changed("history-path") {
		settings.History.Path = historyPath
	}
	return openHistory(settings, true, appLogger.Slog())
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	store, err := openHistoryForCommand(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	writeRunList(cmd.OutOrStdout(), runs)
	return nil
}

// writeRunList prints one line per run, newest first.
func writeRunList(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no stored runs")
		return
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("ID", "STARTED", "DURATION", "TOTAL", "THREADS", "RESULTS", "FAILURES")
	for _, r := range runs {
		t.Row(
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			strconv.FormatUint(r.Config.Total, 10),
			strconv.Itoa(r.Config.Workers),
			strconv.Itoa(len(r.Results)),
			strconv.Itoa(len(r.Failures)),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	if err := validation.ValidateRunID(args[0]); err != nil {
		return err
	}
	store, err := openHistoryForCommand(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s  started %s  seed %#x  total %d\n\n",
		run.ID, run.StartedAt.Local().Format(time.DateTime), run.Config.Seed, run.Config.Total)
	return printRun(out, run)
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	if err := validation.ValidateRunID(args[0]); err != nil {
		return err
	}
	store, err := openHistoryForCommand(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	appLogger.Slog().Info("run deleted", slog.String("run_id", args[0]))
	return nil
}
