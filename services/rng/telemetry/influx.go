// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/AleutianAI/rngbench/services/rng/bench"
)

// MeasurementBenchmarks is the measurement every result point is written to.
const MeasurementBenchmarks = "prng_benchmarks"

// MeasurementErrors is the measurement failed backends are written to.
const MeasurementErrors = "prng_benchmark_errors"

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`

	// RunID tags every point so that runs can be told apart.
	// Optional.
	RunID string `yaml:"-"`
}

// DefaultInfluxConfig reads INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG and
// INFLUXDB_BUCKET, falling back to local development values.
func DefaultInfluxConfig() *InfluxConfig {
	return &InfluxConfig{
		URL:    envOr("INFLUXDB_URL", "http://localhost:8086"),
		Token:  os.Getenv("INFLUXDB_TOKEN"),
		Org:    envOr("INFLUXDB_ORG", "rngbench"),
		Bucket: envOr("INFLUXDB_BUCKET", "prng"),
	}
}

// Validate checks that the connection fields are set.
func (c *InfluxConfig) Validate() error {
	if c.URL == "" {
		return errors.New("influx url is required")
	}
	if c.Org == "" {
		return errors.New("influx org is required")
	}
	if c.Bucket == "" {
		return errors.New("influx bucket is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// -----------------------------------------------------------------------------
// Influx Sink
// -----------------------------------------------------------------------------

// pointWriter is the subset of api.WriteAPIBlocking the sink uses.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
	Flush(ctx context.Context) error
}

// InfluxSink writes one point per result to InfluxDB.
//
// Description:
//
//	Points go to MeasurementBenchmarks tagged with generator (and run_id
//	when set). Writes are blocking; a failed write is returned to the
//	caller.
//
// Thread Safety: Safe for concurrent use.
type InfluxSink struct {
	closeGuard

	client influxdb2.Client
	writer pointWriter
	runID  string
	now    func() time.Time
}

// NewInfluxSink creates a sink writing through a new InfluxDB client.
func NewInfluxSink(config *InfluxConfig) (*InfluxSink, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	client := influxdb2.NewClient(config.URL, config.Token)
	return &InfluxSink{
		client: client,
		writer: client.WriteAPIBlocking(config.Org, config.Bucket),
		runID:  config.RunID,
		now:    time.Now,
	}, nil
}

// resultPoint builds the point for r.
func (s *InfluxSink) resultPoint(r bench.Result) *write.Point {
	p := influxdb2.NewPointWithMeasurement(MeasurementBenchmarks).
		AddTag("generator", r.Backend).
		AddField("u64_ops_per_s", r.U64.OpsPerSecond).
		AddField("f64_ops_per_s", r.F64.OpsPerSecond).
		AddField("u64_elapsed_s", r.U64.Elapsed.Seconds()).
		AddField("f64_elapsed_s", r.F64.Elapsed.Seconds()).
		AddField("mean_f64", r.Mean).
		AddField("var_f64", r.Variance).
		AddField("chi2_bytes", r.ChiSquare).
		AddField("threads", r.Workers).
		AddField("total_u64", r.U64.Samples).
		AddField("total_f64", r.F64.Samples).
		SetTime(s.now())
	if s.runID != "" {
		p.AddTag("run_id", s.runID)
	}
	return p
}

// RecordBenchmark writes r as one point.
func (s *InfluxSink) RecordBenchmark(ctx context.Context, r bench.Result) error {
	if s.isClosed() {
		return ErrSinkClosed
	}
	return s.writer.WritePoint(ctx, s.resultPoint(r))
}

// RecordError writes the failure to MeasurementErrors.
func (s *InfluxSink) RecordError(ctx context.Context, backend string, cause error) error {
	if s.isClosed() {
		return ErrSinkClosed
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	p := influxdb2.NewPointWithMeasurement(MeasurementErrors).
		AddTag("generator", backend).
		AddField("error", msg).
		SetTime(s.now())
	if s.runID != "" {
		p.AddTag("run_id", s.runID)
	}
	return s.writer.WritePoint(ctx, p)
}

// Flush flushes the write API.
func (s *InfluxSink) Flush(ctx context.Context) error {
	if s.isClosed() {
		return ErrSinkClosed
	}
	return s.writer.Flush(ctx)
}

// Close releases the client. Idempotent.
func (s *InfluxSink) Close() error {
	if !s.markClosed() {
		return nil
	}
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

// Verify interface compliance at compile time.
var _ Sink = (*InfluxSink)(nil)
