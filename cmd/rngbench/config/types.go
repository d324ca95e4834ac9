// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the rngbench YAML configuration file.
package config

import (
	"runtime"
	"time"

	"github.com/AleutianAI/rngbench/services/rng/bench"
	"github.com/AleutianAI/rngbench/services/rng/history"
	"github.com/AleutianAI/rngbench/services/rng/telemetry"
)

// Config is the on-disk configuration. Every section has defaults, so an
// empty file is valid.
type Config struct {
	// Bench holds the benchmark parameters the CLI flags override.
	Bench BenchConfig `yaml:"bench"`

	// CSIMD configures the native plugin backend.
	CSIMD PluginConfig `yaml:"csimd"`

	// History configures the run store.
	History HistoryConfig `yaml:"history"`

	// Telemetry selects exporters.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Server configures `rngbench serve`.
	Server ServerConfig `yaml:"server"`

	// Logging configures pkg/logging.
	Logging LoggingConfig `yaml:"logging"`
}

type BenchConfig struct {
	Total   uint64   `yaml:"total" validate:"gt=0"`
	Threads *int     `yaml:"threads,omitempty" validate:"omitempty,lte=4096"` // unset = NumCPU
	Seed    string   `yaml:"seed" validate:"required,max=24"`
	Gens    []string `yaml:"gens,omitempty" validate:"max=64,dive,required"`
	CSV     string   `yaml:"csv"`
	Pin     bool     `yaml:"pin"`
}

type PluginConfig struct {
	Lib      string `yaml:"lib"`
	Algo     int32  `yaml:"algo"`
	BitWidth int32  `yaml:"bitwidth"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

type TelemetryConfig struct {
	// Prometheus enables the client_golang sink (served on /metrics).
	Prometheus bool `yaml:"prometheus"`

	// Textfile writes the Prometheus registry after `rngbench bench` in the
	// node_exporter textfile format.
	Textfile string `yaml:"textfile"`

	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`

	Influx InfluxConfig `yaml:"influx"`
}

type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"omitempty,url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org" validate:"required_if=Enabled true"`
	Bucket  string `yaml:"bucket" validate:"required_if=Enabled true"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	influx := telemetry.DefaultInfluxConfig()
	return Config{
		Bench: BenchConfig{
			Total: bench.DefaultTotal,
			Seed:  "0xC0FFEED5EED",
		},
		CSIMD: PluginConfig{
			Algo:     bench.DefaultPluginConfig().Algorithm,
			BitWidth: bench.DefaultPluginConfig().BitWidth,
		},
		History: HistoryConfig{
			Path: "~/.rngbench/history",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  telemetry.ExporterNone,
			MetricExporter: telemetry.ExporterNone,
			OTLPEndpoint:   "localhost:4317",
			Influx: InfluxConfig{
				URL:    influx.URL,
				Token:  influx.Token,
				Org:    influx.Org,
				Bucket: influx.Bucket,
			},
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8088",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// BenchParams converts the bench section. An unset thread count selects
// runtime.NumCPU(); an explicit count below 1 runs a single worker.
func (c *Config) BenchParams() (bench.Config, error) {
	seed, err := bench.ParseSeed(c.Bench.Seed)
	if err != nil {
		return bench.Config{}, err
	}
	threads := runtime.NumCPU()
	if c.Bench.Threads != nil {
		threads = *c.Bench.Threads
	}
	return bench.Config{
		Total:   c.Bench.Total,
		Workers: bench.CoerceWorkers(threads),
		Seed:    seed,
		Pin:     c.Bench.Pin,
	}, nil
}

// Plugin converts the csimd section.
func (c *Config) Plugin() bench.PluginConfig {
	return bench.PluginConfig{
		Path:      expandHome(c.CSIMD.Lib),
		Algorithm: c.CSIMD.Algo,
		BitWidth:  c.CSIMD.BitWidth,
	}
}

// HistoryStore converts the history section.
func (c *Config) HistoryStore() history.Config {
	return history.DefaultConfig(expandHome(c.History.Path))
}

// Providers converts the exporter selection.
func (c *Config) Providers() telemetry.ProviderConfig {
	p := telemetry.DefaultProviderConfig()
	p.TraceExporter = c.Telemetry.TraceExporter
	p.MetricExporter = c.Telemetry.MetricExporter
	p.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	return p
}

// InfluxSink converts the influx section.
func (c *Config) InfluxSink() *telemetry.InfluxConfig {
	return &telemetry.InfluxConfig{
		URL:    c.Telemetry.Influx.URL,
		Token:  c.Telemetry.Influx.Token,
		Org:    c.Telemetry.Influx.Org,
		Bucket: c.Telemetry.Influx.Bucket,
	}
}
