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
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AleutianAI/rngbench/services/rng/bench"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// PrometheusConfig configures the Prometheus sink.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type PrometheusConfig struct {
	// Namespace is the metrics namespace.
	// Required.
	Namespace string

	// Subsystem is the metrics subsystem.
	// Required.
	Subsystem string

	// Registry is the Prometheus registry to use.
	// If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// ThroughputBuckets defines histogram buckets for throughput (ops/sec).
	// If nil, uses default buckets.
	ThroughputBuckets []float64

	// DurationBuckets defines histogram buckets for summed phase time (seconds).
	// If nil, uses default buckets.
	DurationBuckets []float64

	// MaxLabelCardinality is the maximum number of distinct generator names
	// tracked. Names beyond it are reported as "_other".
	// Default: 256
	MaxLabelCardinality int
}

// DefaultPrometheusConfig returns a configuration with defaults applied.
func DefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Namespace: "rngbench",
		Subsystem: "bench",
		ThroughputBuckets: []float64{
			1e6, 5e6, 1e7, 5e7, 1e8, 2.5e8, 5e8, 1e9, 2.5e9, 5e9, 1e10,
		},
		DurationBuckets: []float64{
			0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
		},
		MaxLabelCardinality: 256,
	}
}

// Validate checks that required fields are set.
func (c *PrometheusConfig) Validate() error {
	if c.Namespace == "" {
		return errors.New("namespace is required")
	}
	if c.Subsystem == "" {
		return errors.New("subsystem is required")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Prometheus Sink
// -----------------------------------------------------------------------------

// PrometheusSink exposes benchmark results as Prometheus metrics.
//
// Description:
//
//	Throughput and phase time are labelled by generator and phase; the
//	distribution statistics of the double phase are labelled by generator
//	only. Collectors are registered on creation and unregistered on Close
//	when the registry supports it.
//
// Thread Safety: Safe for concurrent use.
type PrometheusSink struct {
	closeGuard

	config   *PrometheusConfig
	registry prometheus.Registerer

	opsPerSecond   *prometheus.GaugeVec
	throughput     *prometheus.HistogramVec
	phaseDuration  *prometheus.HistogramVec
	samplesTotal   *prometheus.CounterVec
	mean           *prometheus.GaugeVec
	variance       *prometheus.GaugeVec
	chiSquare      *prometheus.GaugeVec
	workers        *prometheus.GaugeVec
	benchmarkTotal *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec

	collectors []prometheus.Collector

	labelMu        sync.Mutex
	seenLabels     map[string]struct{}
	maxCardinality int
}

// NewPrometheusSink creates and registers the sink's collectors.
//
// Inputs:
//   - config: Prometheus configuration. Must not be nil.
//
// Outputs:
//   - *PrometheusSink: Never nil on success.
//   - error: ErrInvalidConfig, or ErrRegistrationFailed joined with the cause.
//
// Assumptions:
//   - A collector already registered under the same name is reused.
func NewPrometheusSink(config *PrometheusConfig) (*PrometheusSink, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	cfg := *config
	defaults := DefaultPrometheusConfig()
	if cfg.ThroughputBuckets == nil {
		cfg.ThroughputBuckets = defaults.ThroughputBuckets
	}
	if cfg.DurationBuckets == nil {
		cfg.DurationBuckets = defaults.DurationBuckets
	}
	maxCard := cfg.MaxLabelCardinality
	if maxCard <= 0 {
		maxCard = defaults.MaxLabelCardinality
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	s := &PrometheusSink{
		config:         &cfg,
		registry:       registry,
		seenLabels:     make(map[string]struct{}),
		maxCardinality: maxCard,
	}

	phaseLabels := []string{"generator", "phase"}
	genLabels := []string{"generator"}

	s.opsPerSecond = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "ops_per_second",
		Help:      "Throughput of the most recent run in samples per second",
	}, phaseLabels)

	s.throughput = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "throughput_ops_per_second",
		Help:      "Distribution of throughput across runs in samples per second",
		Buckets:   cfg.ThroughputBuckets,
	}, phaseLabels)

	s.phaseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "phase_duration_seconds",
		Help:      "Summed per-worker loop time of a phase in seconds",
		Buckets:   cfg.DurationBuckets,
	}, phaseLabels)

	s.samplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "samples_total",
		Help:      "Total samples drawn",
	}, phaseLabels)

	s.mean = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "f64_mean",
		Help:      "Mean of the double-phase samples",
	}, genLabels)

	s.variance = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "f64_variance",
		Help:      "Sample variance of the double-phase samples",
	}, genLabels)

	s.chiSquare = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "byte_chi_square",
		Help:      "Chi-square statistic of the low-byte histogram (255 degrees of freedom)",
	}, genLabels)

	s.workers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "workers",
		Help:      "Worker count of the most recent run",
	}, genLabels)

	s.benchmarkTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "benchmarks_total",
		Help:      "Total completed backend benchmarks",
	}, genLabels)

	s.errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "errors_total",
		Help:      "Total backends that failed to benchmark",
	}, genLabels)

	var err error
	register := func(c prometheus.Collector) prometheus.Collector {
		if err != nil {
			return c
		}
		var existing prometheus.Collector
		existing, err = registerOrReuse(registry, c)
		s.collectors = append(s.collectors, existing)
		return existing
	}

	s.opsPerSecond = register(s.opsPerSecond).(*prometheus.GaugeVec)
	s.throughput = register(s.throughput).(*prometheus.HistogramVec)
	s.phaseDuration = register(s.phaseDuration).(*prometheus.HistogramVec)
	s.samplesTotal = register(s.samplesTotal).(*prometheus.CounterVec)
	s.mean = register(s.mean).(*prometheus.GaugeVec)
	s.variance = register(s.variance).(*prometheus.GaugeVec)
	s.chiSquare = register(s.chiSquare).(*prometheus.GaugeVec)
	s.workers = register(s.workers).(*prometheus.GaugeVec)
	s.benchmarkTotal = register(s.benchmarkTotal).(*prometheus.CounterVec)
	s.errorsTotal = register(s.errorsTotal).(*prometheus.CounterVec)
	if err != nil {
		return nil, errors.Join(ErrRegistrationFailed, err)
	}

	return s, nil
}

// registerOrReuse registers c, returning the previously registered
// collector when an identical one already exists.
func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector, nil
		}
		return c, err
	}
	return c, nil
}

// RecordBenchmark records both phases and the distribution statistics of r.
func (s *PrometheusSink) RecordBenchmark(_ context.Context, r bench.Result) error {
	if s.isClosed() {
		return ErrSinkClosed
	}

	gen := s.sanitizeLabel(r.Backend)
	for _, p := range []struct {
		phase bench.Phase
		res   bench.PhaseResult
	}{
		{bench.PhaseInteger, r.U64},
		{bench.PhaseDouble, r.F64},
	} {
		phase := string(p.phase)
		s.opsPerSecond.WithLabelValues(gen, phase).Set(p.res.OpsPerSecond)
		s.throughput.WithLabelValues(gen, phase).Observe(p.res.OpsPerSecond)
		s.phaseDuration.WithLabelValues(gen, phase).Observe(p.res.Elapsed.Seconds())
		s.samplesTotal.WithLabelValues(gen, phase).Add(float64(p.res.Samples))
	}

	s.mean.WithLabelValues(gen).Set(r.Mean)
	s.variance.WithLabelValues(gen).Set(r.Variance)
	s.chiSquare.WithLabelValues(gen).Set(r.ChiSquare)
	s.workers.WithLabelValues(gen).Set(float64(r.Workers))
	s.benchmarkTotal.WithLabelValues(gen).Inc()
	return nil
}

// RecordError counts a failed backend.
func (s *PrometheusSink) RecordError(_ context.Context, backend string, _ error) error {
	if s.isClosed() {
		return ErrSinkClosed
	}
	s.errorsTotal.WithLabelValues(s.sanitizeLabel(backend)).Inc()
	return nil
}

// Flush is a no-op; Prometheus metrics are pulled by scraping.
func (s *PrometheusSink) Flush(context.Context) error {
	if s.isClosed() {
		return ErrSinkClosed
	}
	return nil
}

// Close unregisters the collectors from a *prometheus.Registry. Idempotent.
func (s *PrometheusSink) Close() error {
	if !s.markClosed() {
		return nil
	}
	if reg, ok := s.registry.(*prometheus.Registry); ok {
		for _, c := range s.collectors {
			reg.Unregister(c)
		}
	}
	return nil
}

// sanitizeLabel caps the number of distinct generator label values. The
// "unknown" placeholder for an empty name is not counted against the cap.
func (s *PrometheusSink) sanitizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}

	s.labelMu.Lock()
	defer s.labelMu.Unlock()

	if _, ok := s.seenLabels[value]; ok {
		return value
	}
	if len(s.seenLabels) >= s.maxCardinality {
		return "_other"
	}
	s.seenLabels[value] = struct{}{}
	return value
}

// Verify interface compliance at compile time.
var _ Sink = (*PrometheusSink)(nil)
