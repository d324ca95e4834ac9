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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/rngbench/services/rng/bench"
)

const instrumentationName = "github.com/AleutianAI/rngbench/services/rng/telemetry"

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// OTelConfig configures the OpenTelemetry sink.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type OTelConfig struct {
	// ServiceName is the service name for telemetry.
	// Required.
	ServiceName string

	// ServiceVersion is the instrumentation version.
	// Optional.
	ServiceVersion string

	// TracerProvider is the tracer provider to use.
	// If nil, uses the global tracer provider.
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If nil, uses the global meter provider.
	MeterProvider metric.MeterProvider

	// TraceEnabled enables the benchmark.record span.
	// Default: true.
	TraceEnabled bool

	// MetricsEnabled enables instrument recording.
	// Default: true.
	MetricsEnabled bool
}

// DefaultOTelConfig returns a configuration with tracing and metrics enabled.
func DefaultOTelConfig() *OTelConfig {
	return &OTelConfig{
		ServiceName:    "rngbench",
		ServiceVersion: "1.0.0",
		TraceEnabled:   true,
		MetricsEnabled: true,
	}
}

// Validate checks that required fields are set.
func (c *OTelConfig) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service name is required")
	}
	return nil
}

// -----------------------------------------------------------------------------
// OpenTelemetry Sink
// -----------------------------------------------------------------------------

// OTelSink exports results as OpenTelemetry spans and metric instruments.
//
// Description:
//
//	Each result produces one "benchmark.record" span carrying every figure
//	as an attribute, plus instrument recordings attributed with the
//	generator and phase. The sink does not own its providers; the caller
//	shuts them down (see SetupProviders).
//
// Thread Safety: Safe for concurrent use.
type OTelSink struct {
	closeGuard

	config *OTelConfig
	tracer trace.Tracer
	meter  metric.Meter

	throughput    metric.Float64Histogram
	phaseDuration metric.Float64Histogram
	samples       metric.Int64Counter
	mean          metric.Float64Gauge
	variance      metric.Float64Gauge
	chiSquare     metric.Float64Gauge
	errorsTotal   metric.Int64Counter
}

// NewOTelSink creates a sink on the configured (or global) providers.
//
// Outputs:
//   - *OTelSink: Never nil on success.
//   - error: ErrInvalidConfig, or ErrOTelInitFailed joined with the cause.
func NewOTelSink(config *OTelConfig) (*OTelSink, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	cfg := *config
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	s := &OTelSink{
		config: &cfg,
		tracer: tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(cfg.ServiceVersion)),
		meter:  mp.Meter(instrumentationName, metric.WithInstrumentationVersion(cfg.ServiceVersion)),
	}

	if cfg.MetricsEnabled {
		if err := s.initializeMetrics(); err != nil {
			return nil, errors.Join(ErrOTelInitFailed, err)
		}
	}
	return s, nil
}

// initializeMetrics creates all metric instruments.
func (s *OTelSink) initializeMetrics() error {
	var err error

	s.throughput, err = s.meter.Float64Histogram(
		"rngbench.throughput",
		metric.WithDescription("Phase throughput"),
		metric.WithUnit("{sample}/s"),
	)
	if err != nil {
		return err
	}

	s.phaseDuration, err = s.meter.Float64Histogram(
		"rngbench.phase.duration",
		metric.WithDescription("Summed per-worker loop time of a phase"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	s.samples, err = s.meter.Int64Counter(
		"rngbench.samples",
		metric.WithDescription("Samples drawn"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return err
	}

	s.mean, err = s.meter.Float64Gauge(
		"rngbench.f64.mean",
		metric.WithDescription("Mean of the double-phase samples"),
	)
	if err != nil {
		return err
	}

	s.variance, err = s.meter.Float64Gauge(
		"rngbench.f64.variance",
		metric.WithDescription("Sample variance of the double-phase samples"),
	)
	if err != nil {
		return err
	}

	s.chiSquare, err = s.meter.Float64Gauge(
		"rngbench.bytes.chi_square",
		metric.WithDescription("Chi-square statistic of the low-byte histogram"),
	)
	if err != nil {
		return err
	}

	s.errorsTotal, err = s.meter.Int64Counter(
		"rngbench.errors",
		metric.WithDescription("Backends that failed to benchmark"),
	)
	return err
}

// RecordBenchmark emits a span and instrument recordings for r.
func (s *OTelSink) RecordBenchmark(ctx context.Context, r bench.Result) error {
	if s.isClosed() {
		return ErrSinkClosed
	}

	gen := attribute.String("generator", r.Backend)

	if s.config.TraceEnabled {
		_, span := s.tracer.Start(ctx, "benchmark.record",
			trace.WithAttributes(
				gen,
				attribute.Int("workers", r.Workers),
				attribute.Int64("u64.samples", int64(r.U64.Samples)),
				attribute.Float64("u64.ops_per_second", r.U64.OpsPerSecond),
				attribute.Int64("u64.elapsed_ns", r.U64.Elapsed.Nanoseconds()),
				attribute.Int64("f64.samples", int64(r.F64.Samples)),
				attribute.Float64("f64.ops_per_second", r.F64.OpsPerSecond),
				attribute.Int64("f64.elapsed_ns", r.F64.Elapsed.Nanoseconds()),
				attribute.Float64("f64.mean", r.Mean),
				attribute.Float64("f64.variance", r.Variance),
				attribute.Float64("bytes.chi_square", r.ChiSquare),
			),
		)
		span.End()
	}

	if s.config.MetricsEnabled {
		for _, p := range []struct {
			phase bench.Phase
			res   bench.PhaseResult
		}{
			{bench.PhaseInteger, r.U64},
			{bench.PhaseDouble, r.F64},
		} {
			attrs := metric.WithAttributes(gen, attribute.String("phase", string(p.phase)))
			s.throughput.Record(ctx, p.res.OpsPerSecond, attrs)
			s.phaseDuration.Record(ctx, p.res.Elapsed.Seconds(), attrs)
			s.samples.Add(ctx, int64(p.res.Samples), attrs)
		}
		genAttrs := metric.WithAttributes(gen)
		s.mean.Record(ctx, r.Mean, genAttrs)
		s.variance.Record(ctx, r.Variance, genAttrs)
		s.chiSquare.Record(ctx, r.ChiSquare, genAttrs)
	}
	return nil
}

// RecordError emits an error span and counts the failure.
func (s *OTelSink) RecordError(ctx context.Context, backend string, cause error) error {
	if s.isClosed() {
		return ErrSinkClosed
	}

	gen := attribute.String("generator", backend)
	if s.config.TraceEnabled {
		_, span := s.tracer.Start(ctx, "benchmark.error", trace.WithAttributes(gen))
		if cause != nil {
			span.RecordError(cause)
			span.SetStatus(codes.Error, cause.Error())
		}
		span.End()
	}
	if s.config.MetricsEnabled {
		s.errorsTotal.Add(ctx, 1, metric.WithAttributes(gen))
	}
	return nil
}

// Flush is a no-op; the providers own export.
func (s *OTelSink) Flush(context.Context) error {
	if s.isClosed() {
		return ErrSinkClosed
	}
	return nil
}

// Close marks the sink closed. The providers are left running.
func (s *OTelSink) Close() error {
	s.markClosed()
	return nil
}

// Verify interface compliance at compile time.
var _ Sink = (*OTelSink)(nil)
