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
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/rngbench/cmd/rngbench/config"
	"github.com/AleutianAI/rngbench/pkg/logging"
	"github.com/AleutianAI/rngbench/pkg/ux"
	"github.com/AleutianAI/rngbench/pkg/validation"
	"github.com/AleutianAI/rngbench/services/rng/backend"
	"github.com/AleutianAI/rngbench/services/rng/bench"
	"github.com/AleutianAI/rngbench/services/rng/history"
	"github.com/AleutianAI/rngbench/services/rng/runner"
	"github.com/AleutianAI/rngbench/services/rng/telemetry"
)

var (
	settings  *config.Config
	appLogger *logging.Logger
)

// setupLogging loads the configuration file and builds the process logger.
func setupLogging(cmd *cobra.Command, _ []string) error {
	if cmd == initCmd {
		settings = new(config.Config)
		*settings = config.DefaultConfig()
	} else {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		settings = cfg
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		settings.Logging.Level = logLevel
	}
	if flags.Changed("log-json") {
		settings.Logging.JSON = logJSON
	}
	if flags.Changed("log-dir") {
		settings.Logging.Dir = logDir
	}

	level, err := logging.ParseLevel(settings.Logging.Level)
	if err != nil {
		return err
	}
	appLogger = logging.New(logging.Config{
		Level:   level,
		LogDir:  settings.Logging.Dir,
		Service: logging.DefaultService,
		JSON:    settings.Logging.JSON,
		Writer:  cmd.ErrOrStderr(),
	})
	slog.SetDefault(appLogger.Slog())
	if path := appLogger.FilePath(); path != "" {
		appLogger.Slog().Debug("logging to file", slog.String("path", path))
	}
	return nil
}

func teardownLogging(*cobra.Command, []string) error {
	if appLogger == nil {
		return nil
	}
	return appLogger.Close()
}

// applyBenchFlags overlays the flags the user set on cfg and validates the
// result.
func applyBenchFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("total") {
		cfg.Bench.Total = benchTotal
	}
	if f.Changed("threads") {
		threads := benchThreads
		cfg.Bench.Threads = &threads
	}
	if f.Changed("seed") {
		cfg.Bench.Seed = benchSeed
	}
	if f.Changed("gens") {
		cfg.Bench.Gens = validation.ParseGeneratorList(benchGens)
	}
	if f.Changed("pin") {
		cfg.Bench.Pin = benchPin
	}
	if f.Changed("csv") {
		cfg.Bench.CSV = benchCSV
	}
	if f.Changed("csimd-lib") {
		cfg.CSIMD.Lib = csimdLib
	}
	if f.Changed("csimd-algo") {
		cfg.CSIMD.Algo = csimdAlgo
	}
	if f.Changed("csimd-bw") {
		cfg.CSIMD.BitWidth = csimdBitWidth
	}
	if f.Changed("history") {
		cfg.History.Enabled = historyEnabled
	}
	if f.Changed("history-path") {
		cfg.History.Path = historyPath
	}
	if f.Changed("influx") {
		cfg.Telemetry.Influx.Enabled = influxEnabled
	}
	for name, dst := range map[string]*string{
		"influx-url":    &cfg.Telemetry.Influx.URL,
		"influx-token":  &cfg.Telemetry.Influx.Token,
		"influx-org":    &cfg.Telemetry.Influx.Org,
		"influx-bucket": &cfg.Telemetry.Influx.Bucket,
	} {
		if f.Changed(name) {
			*dst = f.Lookup(name).Value.String()
		}
	}
	if f.Changed("otel-exporter") {
		cfg.Telemetry.TraceExporter = strings.ToLower(otelExporter)
	}
	if f.Changed("prom-textfile") {
		cfg.Telemetry.Textfile = promTextfile
	}
	if f.Changed("addr") {
		cfg.Server.Addr = serveAddr
	}
	return cfg.Validate()
}

// openHistory opens the run store when history is enabled, or when force
// is set for the history subcommands.
func openHistory(cfg *config.Config, force bool, logger *slog.Logger) (*history.Store, error) {
	if !cfg.History.Enabled && !force {
		return nil, nil
	}
	hc := cfg.HistoryStore()
	hc.Logger = logger
	store, err := history.Open(hc)
	if err != nil {
		return nil, fmt.Errorf("open history at %s: %w", hc.Path, err)
	}
	return store, nil
}

// -----------------------------------------------------------------------------
// Telemetry
// -----------------------------------------------------------------------------

// telemetryStack bundles the sinks and providers of one process.
type telemetryStack struct {
	Sink      telemetry.Sink
	Providers *telemetry.Providers
	Registry  *prometheus.Registry
}

// newTelemetryStack builds every sink cfg enables over a private Prometheus
// registry. With nothing enabled the sink is a NoOpSink.
func newTelemetryStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*telemetryStack, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	pc := cfg.Providers()
	pc.Registry = reg
	pc.SetGlobal = true
	providers, err := telemetry.SetupProviders(ctx, pc)
	if err != nil {
		return nil, err
	}

	stack := &telemetryStack{Providers: providers, Registry: reg}
	var sinks []telemetry.Sink

	if pc.TraceExporter != telemetry.ExporterNone || pc.MetricExporter != telemetry.ExporterNone {
		oc := telemetry.DefaultOTelConfig()
		oc.TracerProvider = providers.TracerProvider
		oc.MeterProvider = providers.MeterProvider
		oc.TraceEnabled = pc.TraceExporter != telemetry.ExporterNone
		oc.MetricsEnabled = pc.MetricExporter != telemetry.ExporterNone
		sink, err := telemetry.NewOTelSink(oc)
		if err != nil {
			return nil, stack.failWith(ctx, sinks, err)
		}
		sinks = append(sinks, sink)
	}

	if cfg.Telemetry.Prometheus || cfg.Telemetry.Textfile != "" {
		prc := telemetry.DefaultPrometheusConfig()
		prc.Registry = reg
		sink, err := telemetry.NewPrometheusSink(prc)
		if err != nil {
			return nil, stack.failWith(ctx, sinks, err)
		}
		sinks = append(sinks, sink)
	}

	if cfg.Telemetry.Influx.Enabled {
		sink, err := telemetry.NewInfluxSink(cfg.InfluxSink())
		if err != nil {
			return nil, stack.failWith(ctx, sinks, err)
		}
		logger.Info("writing results to InfluxDB",
			slog.String("url", cfg.Telemetry.Influx.URL),
			slog.String("bucket", cfg.Telemetry.Influx.Bucket))
		sinks = append(sinks, sink)
	}

	switch len(sinks) {
	case 0:
		stack.Sink = telemetry.NewNoOpSink()
	case 1:
		stack.Sink = sinks[0]
	default:
		composite, err := telemetry.NewCompositeSink(sinks...)
		if err != nil {
			return nil, stack.failWith(ctx, sinks, err)
		}
		stack.Sink = composite
	}
	return stack, nil
}

func (s *telemetryStack) failWith(ctx context.Context, sinks []telemetry.Sink, err error) error {
	for _, sink := range sinks {
		_ = sink.Close()
	}
	_ = s.Providers.Shutdown(ctx)
	return err
}

// MetricsHandler serves the stack's registry.
func (s *telemetryStack) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry})
}

// Close flushes and closes the sink, then shuts the providers down.
func (s *telemetryStack) Close(ctx context.Context) error {
	flushErr := s.Sink.Flush(ctx)
	closeErr := s.Sink.Close()
	shutdownErr := s.Providers.Shutdown(ctx)
	return errors.Join(flushErr, closeErr, shutdownErr)
}

// newRunner wires a Runner over the built-in registry. store and hook may
// be nil.
func newRunner(cfg *config.Config, store *history.Store, stack *telemetryStack, hook bench.StateHook, logger *slog.Logger) (*runner.Runner, error) {
	rc := runner.Config{
		Registry:       backend.NewBuiltinRegistry(),
		Plugin:         cfg.Plugin(),
		Recorder:       stack.Sink,
		Logger:         logger,
		TracerProvider: stack.Providers.TracerProvider,
		StateHook:      hook,
	}
	if store != nil {
		rc.Store = store
	}
	return runner.New(rc)
}

// progressHook reports each driver transition on spin.
func progressHook(spin *ux.Spinner) bench.StateHook {
	return func(backend string, _, to bench.State) {
		spin.UpdateMessage(fmt.Sprintf("%s: %s", backend, to))
	}
}
