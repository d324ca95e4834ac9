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
	"time"

	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string
	logLevel   string
	logJSON    bool
	logDir     string

	benchTotal     uint64
	benchThreads   int
	benchSeed      string
	benchCSV       string
	benchGens      string
	benchPin       bool
	csimdLib       string
	csimdAlgo      int32
	csimdBitWidth  int32
	historyEnabled bool
	historyPath    string
	influxEnabled  bool
	influxURL      string
	influxToken    string
	influxOrg      string
	influxBucket   string
	otelExporter   string
	promTextfile   string

	serveAddr     string
	historyLimit  int
	watchDebounce time.Duration

	rootCmd = &cobra.Command{
		Use:   "rngbench",
		Short: "Benchmark pseudo-random number generators in parallel",
		Long: `rngbench measures the throughput and output quality of in-process
and native-plugin PRNGs across all CPU cores.`,
		SilenceUsage:       true,
		PersistentPreRunE:  setupLogging,
		PersistentPostRunE: teardownLogging,
	}

	// --- Benchmarking ---
	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Run the benchmark once and print the results table",
		Args:  cobra.NoArgs,
		RunE:  runBench, // Defined in cmd_bench.go
	}
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-run the benchmark whenever the csimd library is rebuilt",
		Args:  cobra.NoArgs,
		RunE:  runWatch, // Defined in cmd_watch.go
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the registered generators and the default selection",
		Args:  cobra.NoArgs,
		RunE:  runList, // Defined in cmd_list.go
	}

	// --- History ---
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Inspect stored benchmark runs",
	}
	historyListCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryList, // Defined in cmd_history.go
	}
	historyShowCmd = &cobra.Command{
		Use:   "show [run_id]",
		Short: "Print the results of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow, // Defined in cmd_history.go
	}
	historyDeleteCmd = &cobra.Command{
		Use:   "delete [run_id]",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryDelete, // Defined in cmd_history.go
	}

	// --- Server ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the benchmark HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_serve.go
	}

	// --- Config ---
	initCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit, // Defined in cmd_list.go
	}
)

// addBenchFlags registers the flags that shape a benchmark run. Flags left
// unset keep the configuration file's values.
func addBenchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Uint64Var(&benchTotal, "total", 0, "Samples per phase, split across threads (default 100000000)")
	f.IntVar(&benchThreads, "threads", 0, "Worker threads; values below 1 run one worker (default: number of CPUs)")
	f.StringVar(&benchSeed, "seed", "", "Base seed, hex with optional 0x or decimal (default 0xC0FFEED5EED)")
	f.StringVar(&benchGens, "gens", "", "Comma-separated generators to run (default: the standard set)")
	f.BoolVar(&benchPin, "pin", false, "Pin worker i to CPU i where supported")
	f.StringVar(&csimdLib, "csimd-lib", "", "Path to the csimd shared library")
	f.Int32Var(&csimdAlgo, "csimd-algo", 0, "csimd algorithm id")
	f.Int32Var(&csimdBitWidth, "csimd-bw", 1, "csimd bit-width selector")
	f.BoolVar(&historyEnabled, "history", false, "Store the run in the history database")
	f.StringVar(&historyPath, "history-path", "", "History database directory")
	f.BoolVar(&influxEnabled, "influx", false, "Write results to InfluxDB")
	f.StringVar(&influxURL, "influx-url", "", "InfluxDB server URL")
	f.StringVar(&influxToken, "influx-token", "", "InfluxDB API token")
	f.StringVar(&influxOrg, "influx-org", "", "InfluxDB organization")
	f.StringVar(&influxBucket, "influx-bucket", "", "InfluxDB bucket")
	f.StringVar(&otelExporter, "otel-exporter", "", "Trace exporter: none, stdout, or otlp")
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log JSON to stderr")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Also write JSON logs to this directory")

	rootCmd.AddCommand(benchCmd)
	addBenchFlags(benchCmd)
	benchCmd.Flags().StringVar(&benchCSV, "csv", "", "Also write results to this CSV file")
	benchCmd.Flags().StringVar(&promTextfile, "prom-textfile", "", "Write Prometheus metrics to this file after the run")

	rootCmd.AddCommand(watchCmd)
	addBenchFlags(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period after a library change before re-running")

	rootCmd.AddCommand(listCmd)

	rootCmd.AddCommand(historyCmd)
	historyCmd.PersistentFlags().StringVar(&historyPath, "history-path", "", "History database directory")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to list")

	rootCmd.AddCommand(serveCmd)
	addBenchFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default 127.0.0.1:8088)")

	rootCmd.AddCommand(initCmd)
}
