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
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/rngbench/services/rng/bench"
)

func sampleResult(name string) bench.Result {
	return bench.Result{
		Backend:   name,
		U64:       bench.PhaseResult{Samples: 1000, Elapsed: 2 * time.Millisecond, OpsPerSecond: 2e9},
		F64:       bench.PhaseResult{Samples: 1000, Elapsed: 4 * time.Millisecond, OpsPerSecond: 1e9},
		Mean:      0.5,
		Variance:  1.0 / 12,
		ChiSquare: 250.5,
		Workers:   4,
	}
}

// recordingSink counts calls and can be told to fail.
type recordingSink struct {
	mu         sync.Mutex
	benchmarks int
	errs       int
	flushes    int
	closes     int
	fail       error
}

func (r *recordingSink) RecordBenchmark(context.Context, bench.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.benchmarks++
	return r.fail
}

func (r *recordingSink) RecordError(context.Context, string, error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs++
	return r.fail
}

func (r *recordingSink) Flush(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return r.fail
}

func (r *recordingSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes++
	return r.fail
}

// -----------------------------------------------------------------------------
// Composite
// -----------------------------------------------------------------------------

func TestNewCompositeSink_RequiresSinks(t *testing.T) {
	_, err := NewCompositeSink()
	assert.ErrorIs(t, err, ErrNoSinks)

	_, err = NewCompositeSink(nil, nil)
	assert.ErrorIs(t, err, ErrNoSinks)
}

func TestCompositeSink_FansOutAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := &recordingSink{}
	bad := &recordingSink{fail: boom}

	c, err := NewCompositeSink(ok, nil, bad)
	require.NoError(t, err)

	ctx := context.Background()
	assert.ErrorIs(t, c.RecordBenchmark(ctx, sampleResult("pcg32")), boom)
	assert.ErrorIs(t, c.RecordError(ctx, "csimd_universal", errors.New("x")), boom)
	assert.ErrorIs(t, c.Flush(ctx), boom)

	assert.Equal(t, 1, ok.benchmarks)
	assert.Equal(t, 1, bad.benchmarks)
	assert.Equal(t, 1, ok.errs)
	assert.Equal(t, 1, ok.flushes)
	assert.Equal(t, 1, bad.flushes)
}

func TestCompositeSink_CloseIdempotent(t *testing.T) {
	child := &recordingSink{}
	c, err := NewCompositeSink(child)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, child.closes)

	assert.ErrorIs(t, c.RecordBenchmark(context.Background(), sampleResult("x")), ErrSinkClosed)
	assert.ErrorIs(t, c.Flush(context.Background()), ErrSinkClosed)
	assert.Equal(t, 0, child.benchmarks)
}

func TestNoOpSink(t *testing.T) {
	var s Sink = NewNoOpSink()
	ctx := context.Background()
	assert.NoError(t, s.RecordBenchmark(ctx, sampleResult("x")))
	assert.NoError(t, s.RecordError(ctx, "x", errors.New("e")))
	assert.NoError(t, s.Flush(ctx))
	assert.NoError(t, s.Close())
}

// -----------------------------------------------------------------------------
// Prometheus
// -----------------------------------------------------------------------------

func newTestPrometheusSink(t *testing.T) (*PrometheusSink, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := DefaultPrometheusConfig()
	cfg.Registry = reg
	s, err := NewPrometheusSink(cfg)
	require.NoError(t, err)
	return s, reg
}

func TestPrometheusConfig_Validate(t *testing.T) {
	_, err := NewPrometheusSink(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := DefaultPrometheusConfig()
	cfg.Namespace = ""
	_, err = NewPrometheusSink(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultPrometheusConfig()
	cfg.Subsystem = ""
	assert.Error(t, cfg.Validate())
}

func TestPrometheusSink_RecordBenchmark(t *testing.T) {
	s, _ := newTestPrometheusSink(t)
	ctx := context.Background()

	require.NoError(t, s.RecordBenchmark(ctx, sampleResult("pcg32")))
	require.NoError(t, s.RecordBenchmark(ctx, sampleResult("pcg32")))

	assert.Equal(t, 2e9, testutil.ToFloat64(s.opsPerSecond.WithLabelValues("pcg32", "u64")))
	assert.Equal(t, 1e9, testutil.ToFloat64(s.opsPerSecond.WithLabelValues("pcg32", "f64")))
	assert.Equal(t, 2000.0, testutil.ToFloat64(s.samplesTotal.WithLabelValues("pcg32", "u64")))
	assert.Equal(t, 0.5, testutil.ToFloat64(s.mean.WithLabelValues("pcg32")))
	assert.Equal(t, 250.5, testutil.ToFloat64(s.chiSquare.WithLabelValues("pcg32")))
	assert.Equal(t, 4.0, testutil.ToFloat64(s.workers.WithLabelValues("pcg32")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.benchmarkTotal.WithLabelValues("pcg32")))
	assert.Equal(t, 2, testutil.CollectAndCount(s.throughput))
}

func TestPrometheusSink_RecordError(t *testing.T) {
	s, _ := newTestPrometheusSink(t)
	require.NoError(t, s.RecordError(context.Background(), "csimd_universal", errors.New("load")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.errorsTotal.WithLabelValues("csimd_universal")))
}

func TestPrometheusSink_Exposition(t *testing.T) {
	s, reg := newTestPrometheusSink(t)
	require.NoError(t, s.RecordBenchmark(context.Background(), sampleResult("pcg32")))

	expected := `
# HELP rngbench_bench_f64_mean Mean of the double-phase samples
# TYPE rngbench_bench_f64_mean gauge
rngbench_bench_f64_mean{generator="pcg32"} 0.5
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "rngbench_bench_f64_mean"))
}

func TestPrometheusSink_LabelCardinality(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := DefaultPrometheusConfig()
	cfg.Registry = reg
	cfg.MaxLabelCardinality = 2
	s, err := NewPrometheusSink(cfg)
	require.NoError(t, err)

	assert.Equal(t, "a", s.sanitizeLabel("a"))
	assert.Equal(t, "b", s.sanitizeLabel("b"))
	assert.Equal(t, "_other", s.sanitizeLabel("c"))
	assert.Equal(t, "a", s.sanitizeLabel("a"))
	assert.Equal(t, "unknown", s.sanitizeLabel(""))
	assert.Equal(t, "_other", s.sanitizeLabel("d"), "the placeholder does not free a slot")
}

func TestPrometheusSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := DefaultPrometheusConfig()
	cfg.Registry = reg

	first, err := NewPrometheusSink(cfg)
	require.NoError(t, err)
	second, err := NewPrometheusSink(cfg)
	require.NoError(t, err)

	require.NoError(t, first.RecordBenchmark(context.Background(), sampleResult("pcg32")))
	assert.Equal(t, 1.0, testutil.ToFloat64(second.benchmarkTotal.WithLabelValues("pcg32")))
}

func TestPrometheusSink_CloseUnregisters(t *testing.T) {
	s, reg := newTestPrometheusSink(t)
	require.NoError(t, s.RecordBenchmark(context.Background(), sampleResult("pcg32")))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
	assert.ErrorIs(t, s.RecordBenchmark(context.Background(), sampleResult("pcg32")), ErrSinkClosed)
	assert.ErrorIs(t, s.Flush(context.Background()), ErrSinkClosed)
}

// -----------------------------------------------------------------------------
// OpenTelemetry
// -----------------------------------------------------------------------------

func newTestOTelSink(t *testing.T) (*OTelSink, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()

	cfg := DefaultOTelConfig()
	cfg.TracerProvider = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	cfg.MeterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	s, err := NewOTelSink(cfg)
	require.NoError(t, err)
	return s, spans, reader
}

func findMetric(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.Metrics {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %q not found", name)
	return metricdata.Metrics{}
}

func TestOTelConfig_Validate(t *testing.T) {
	_, err := NewOTelSink(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := DefaultOTelConfig()
	cfg.ServiceName = ""
	_, err = NewOTelSink(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOTelSink_RecordBenchmarkSpan(t *testing.T) {
	s, spans, _ := newTestOTelSink(t)
	require.NoError(t, s.RecordBenchmark(context.Background(), sampleResult("pcg32")))

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "benchmark.record", ended[0].Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "pcg32", attrs["generator"].AsString())
	assert.Equal(t, int64(4), attrs["workers"].AsInt64())
	assert.Equal(t, 250.5, attrs["bytes.chi_square"].AsFloat64())
	assert.Equal(t, 2e9, attrs["u64.ops_per_second"].AsFloat64())
}

func TestOTelSink_RecordBenchmarkMetrics(t *testing.T) {
	s, _, reader := newTestOTelSink(t)
	ctx := context.Background()
	require.NoError(t, s.RecordBenchmark(ctx, sampleResult("pcg32")))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	samples := findMetric(t, rm, "rngbench.samples")
	sum, ok := samples.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 2)
	for _, dp := range sum.DataPoints {
		assert.Equal(t, int64(1000), dp.Value)
	}

	mean := findMetric(t, rm, "rngbench.f64.mean")
	gauge, ok := mean.Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, 0.5, gauge.DataPoints[0].Value)

	throughput := findMetric(t, rm, "rngbench.throughput")
	hist, ok := throughput.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)
}

func TestOTelSink_RecordError(t *testing.T) {
	s, spans, reader := newTestOTelSink(t)
	ctx := context.Background()
	require.NoError(t, s.RecordError(ctx, "csimd_universal", errors.New("dlopen failed")))

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "benchmark.error", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "dlopen failed", ended[0].Status().Description)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	errs := findMetric(t, rm, "rngbench.errors")
	sum, ok := errs.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
}

func TestOTelSink_TracingDisabled(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	cfg := DefaultOTelConfig()
	cfg.TraceEnabled = false
	cfg.MetricsEnabled = false
	cfg.TracerProvider = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	s, err := NewOTelSink(cfg)
	require.NoError(t, err)
	require.NoError(t, s.RecordBenchmark(context.Background(), sampleResult("pcg32")))
	assert.Empty(t, spans.Ended())
}

func TestOTelSink_Closed(t *testing.T) {
	s, _, _ := newTestOTelSink(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.RecordBenchmark(context.Background(), sampleResult("x")), ErrSinkClosed)
	assert.ErrorIs(t, s.RecordError(context.Background(), "x", nil), ErrSinkClosed)
}

// -----------------------------------------------------------------------------
// Influx
// -----------------------------------------------------------------------------

type fakePointWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushed int
	err     error
}

func (f *fakePointWriter) WritePoint(_ context.Context, points ...*write.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.points = append(f.points, points...)
	return nil
}

func (f *fakePointWriter) Flush(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed++
	return nil
}

func newTestInfluxSink(w pointWriter, runID string) *InfluxSink {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &InfluxSink{writer: w, runID: runID, now: func() time.Time { return fixed }}
}

func fieldMap(p *write.Point) map[string]any {
	out := map[string]any{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func tagMap(p *write.Point) map[string]string {
	out := map[string]string{}
	for _, tg := range p.TagList() {
		out[tg.Key] = tg.Value
	}
	return out
}

func TestInfluxSink_RecordBenchmark(t *testing.T) {
	w := &fakePointWriter{}
	s := newTestInfluxSink(w, "run-1")

	require.NoError(t, s.RecordBenchmark(context.Background(), sampleResult("pcg32")))
	require.Len(t, w.points, 1)

	p := w.points[0]
	assert.Equal(t, MeasurementBenchmarks, p.Name())
	assert.Equal(t, map[string]string{"generator": "pcg32", "run_id": "run-1"}, tagMap(p))
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), p.Time())

	fields := fieldMap(p)
	assert.Equal(t, 2e9, fields["u64_ops_per_s"])
	assert.Equal(t, 1e9, fields["f64_ops_per_s"])
	assert.Equal(t, 0.5, fields["mean_f64"])
	assert.Equal(t, 250.5, fields["chi2_bytes"])
	assert.Equal(t, int64(4), fields["threads"])
	assert.Equal(t, uint64(1000), fields["total_u64"])
}

func TestInfluxSink_RecordError(t *testing.T) {
	w := &fakePointWriter{}
	s := newTestInfluxSink(w, "")

	require.NoError(t, s.RecordError(context.Background(), "csimd_universal", errors.New("missing symbol")))
	require.Len(t, w.points, 1)
	assert.Equal(t, MeasurementErrors, w.points[0].Name())
	assert.Equal(t, map[string]string{"generator": "csimd_universal"}, tagMap(w.points[0]))
	assert.Equal(t, "missing symbol", fieldMap(w.points[0])["error"])
}

func TestInfluxSink_WriteErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	s := newTestInfluxSink(&fakePointWriter{err: boom}, "")
	assert.ErrorIs(t, s.RecordBenchmark(context.Background(), sampleResult("x")), boom)
}

func TestInfluxSink_FlushAndClose(t *testing.T) {
	w := &fakePointWriter{}
	s := newTestInfluxSink(w, "")

	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 1, w.flushed)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Flush(context.Background()), ErrSinkClosed)
	assert.ErrorIs(t, s.RecordBenchmark(context.Background(), sampleResult("x")), ErrSinkClosed)
}

func TestInfluxConfig(t *testing.T) {
	t.Setenv("INFLUXDB_URL", "http://influx:8086")
	t.Setenv("INFLUXDB_ORG", "")
	cfg := DefaultInfluxConfig()
	assert.Equal(t, "http://influx:8086", cfg.URL)
	assert.Equal(t, "rngbench", cfg.Org)
	require.NoError(t, cfg.Validate())

	cfg.Bucket = ""
	_, err := NewInfluxSink(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewInfluxSink_CreatesClient(t *testing.T) {
	s, err := NewInfluxSink(&InfluxConfig{URL: "http://127.0.0.1:1", Org: "o", Bucket: "b"})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

// -----------------------------------------------------------------------------
// Providers
// -----------------------------------------------------------------------------

func TestSetupProviders_NoneIsNoop(t *testing.T) {
	cfg := DefaultProviderConfig()
	cfg.TraceExporter = ExporterNone
	cfg.MetricExporter = ExporterNone

	p, err := SetupProviders(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, p.TracerProvider)
	assert.NotNil(t, p.MeterProvider)
	assert.Nil(t, p.MetricsHandler)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetupProviders_UnknownExporter(t *testing.T) {
	cfg := DefaultProviderConfig()
	cfg.TraceExporter = "zipkin"
	_, err := SetupProviders(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)

	cfg = DefaultProviderConfig()
	cfg.MetricExporter = "graphite"
	_, err = SetupProviders(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestSetupProviders_StdoutTraces(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultProviderConfig()
	cfg.TraceExporter = ExporterStdout
	cfg.MetricExporter = ExporterNone
	cfg.Writer = &buf

	p, err := SetupProviders(context.Background(), cfg)
	require.NoError(t, err)

	sink, err := NewOTelSink(&OTelConfig{
		ServiceName:    "test",
		TracerProvider: p.TracerProvider,
		MeterProvider:  p.MeterProvider,
		TraceEnabled:   true,
		MetricsEnabled: true,
	})
	require.NoError(t, err)
	require.NoError(t, sink.RecordBenchmark(context.Background(), sampleResult("pcg32")))

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "benchmark.record")
	assert.Contains(t, buf.String(), "pcg32")
}

func TestSetupProviders_PrometheusHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := DefaultProviderConfig()
	cfg.TraceExporter = ExporterNone
	cfg.MetricExporter = ExporterPrometheus
	cfg.Registry = reg

	p, err := SetupProviders(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Shutdown(context.Background())
	require.NotNil(t, p.MetricsHandler)

	sink, err := NewOTelSink(&OTelConfig{
		ServiceName:    "test",
		MeterProvider:  p.MeterProvider,
		TracerProvider: p.TracerProvider,
		MetricsEnabled: true,
	})
	require.NoError(t, err)
	require.NoError(t, sink.RecordBenchmark(context.Background(), sampleResult("pcg32")))

	rec := httptest.NewRecorder()
	p.MetricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rngbench_samples")
}
