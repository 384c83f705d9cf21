// Package telemetry implements the observability hooks with Prometheus
// metrics and OpenTelemetry span events.
//
// Hooks record metrics on the registry they were created with and add
// events to the span found in the context, if any. The server starts one
// span per request with [StartSpan]; without a configured tracer provider
// the spans are no-ops.
package telemetry

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matzehuels/poa/pkg/observability"
)

const (
	namespace  = "poa"
	tracerName = "github.com/matzehuels/poa"
)

// StartSpan starts a span named name on the package tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Register installs hooks backed by reg as the global observability hooks.
func Register(reg prometheus.Registerer) {
	observability.SetBuildHooks(NewBuildHooks(reg))
	observability.SetCacheHooks(NewCacheHooks(reg))
	observability.SetRequestHooks(NewRequestHooks(reg))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// =============================================================================
// Build Hooks
// =============================================================================

type buildHooks struct {
	builds        *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	alignDuration *prometheus.HistogramVec
	alignCells    prometheus.Histogram
	steps         *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	bundles       prometheus.Histogram
	premature     prometheus.Counter
}

// NewBuildHooks creates build hooks registered on reg.
func NewBuildHooks(reg prometheus.Registerer) observability.BuildHooks {
	f := promauto.With(reg)
	return &buildHooks{
		builds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Completed build-ups by strategy and status.",
		}, []string{"strategy", "status"}),
		buildDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Build-up duration by strategy.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"strategy"}),
		alignDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "align_duration_seconds",
			Help:      "Pairwise alignment duration by mode.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"mode"}),
		alignCells: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "align_cells",
			Help:      "Dynamic-programming cells per alignment.",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		}),
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "build_steps_total",
			Help:      "Graphs fused during build-ups.",
		}, []string{"strategy"}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "build_steps_skipped_total",
			Help:      "Build-up steps abandoned, e.g. over the allocation budget.",
		}, []string{"strategy"}),
		bundles: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bundles",
			Help:      "Bundles found per bundling run.",
			Buckets:   prometheus.LinearBuckets(0, 1, 10),
		}),
		premature: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundling_premature_total",
			Help:      "Bundling runs that left sources unbundled.",
		}),
	}
}

func (h *buildHooks) OnBuildStart(ctx context.Context, strategy string, inputs int) {
	trace.SpanFromContext(ctx).AddEvent("build.start", trace.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.Int("inputs", inputs),
	))
}

func (h *buildHooks) OnAlign(ctx context.Context, mode string, nodesX, nodesY, score int, duration time.Duration) {
	h.alignDuration.WithLabelValues(mode).Observe(duration.Seconds())
	h.alignCells.Observe(float64(nodesX) * float64(nodesY))
}

func (h *buildHooks) OnStepComplete(ctx context.Context, strategy string, step, nodes int, duration time.Duration) {
	h.steps.WithLabelValues(strategy).Inc()
}

func (h *buildHooks) OnStepSkipped(ctx context.Context, strategy, name string, err error) {
	h.skipped.WithLabelValues(strategy).Inc()
	trace.SpanFromContext(ctx).AddEvent("build.skip", trace.WithAttributes(
		attribute.String("sequence", name),
		attribute.String("reason", err.Error()),
	))
}

func (h *buildHooks) OnBuildComplete(ctx context.Context, strategy string, nodes int, duration time.Duration, err error) {
	h.builds.WithLabelValues(strategy, status(err)).Inc()
	h.buildDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	trace.SpanFromContext(ctx).AddEvent("build.complete", trace.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.Int("nodes", nodes),
	))
}

func (h *buildHooks) OnBundles(ctx context.Context, bundles int, premature bool, duration time.Duration) {
	h.bundles.Observe(float64(bundles))
	if premature {
		h.premature.Inc()
	}
	trace.SpanFromContext(ctx).AddEvent("bundles", trace.WithAttributes(
		attribute.Int("bundles", bundles),
		attribute.Bool("premature", premature),
	))
}

// =============================================================================
// Cache Hooks
// =============================================================================

type cacheHooks struct {
	hits   *prometheus.CounterVec
	misses *prometheus.CounterVec
	bytes  *prometheus.CounterVec
}

// NewCacheHooks creates cache hooks registered on reg.
func NewCacheHooks(reg prometheus.Registerer) observability.CacheHooks {
	f := promauto.With(reg)
	return &cacheHooks{
		hits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by key type.",
		}, []string{"type"}),
		misses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses by key type.",
		}, []string{"type"}),
		bytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by key type.",
		}, []string{"type"}),
	}
}

func (h *cacheHooks) OnCacheHit(ctx context.Context, keyType string) {
	h.hits.WithLabelValues(keyType).Inc()
}

func (h *cacheHooks) OnCacheMiss(ctx context.Context, keyType string) {
	h.misses.WithLabelValues(keyType).Inc()
}

func (h *cacheHooks) OnCacheSet(ctx context.Context, keyType string, size int) {
	h.bytes.WithLabelValues(keyType).Add(float64(size))
}

// =============================================================================
// Request Hooks
// =============================================================================

type requestHooks struct {
	inFlight  prometheus.Gauge
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewRequestHooks creates HTTP request hooks registered on reg.
func NewRequestHooks(reg prometheus.Registerer) observability.RequestHooks {
	f := promauto.With(reg)
	return &requestHooks{
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests being served.",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		durations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Request duration by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (h *requestHooks) OnRequest(ctx context.Context, method, route string) {
	h.inFlight.Inc()
}

func (h *requestHooks) OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	h.inFlight.Dec()
	h.requests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	h.durations.WithLabelValues(method, route).Observe(duration.Seconds())
}
