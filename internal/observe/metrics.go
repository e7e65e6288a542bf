// Package observe provides the observability primitives of decksmith:
// OpenTelemetry metrics, tracing, trace-aware logging, and HTTP middleware
// for the metrics and health endpoints.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported in
// Prometheus format by [Setup]. [DefaultMetrics] returns a
// package-level instance bound to the global meter provider; tests should use
// [NewMetrics] with their own [metric.MeterProvider].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/MrWong99/decksmith"

// Metrics holds the metric instruments of the translation pipeline. All
// fields are safe for concurrent use.
type Metrics struct {
	// StageDuration tracks the latency of each pipeline stage. Attributes:
	// stage, decision.
	StageDuration metric.Float64Histogram

	// ClassifyDuration tracks LLM classification latency. Attribute: result.
	ClassifyDuration metric.Float64Histogram

	// RunOutcomes counts finished runs by terminal state. Attribute: state.
	RunOutcomes metric.Int64Counter

	// RecognizerPaths counts which recognizer produced the intent.
	// Attribute: path (rule_based, llm, rule_based_fallback).
	RecognizerPaths metric.Int64Counter

	// ProviderRequests counts LLM provider calls. Attributes: provider,
	// status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts LLM provider failures. Attribute: provider.
	ProviderErrors metric.Int64Counter

	// AssetLookups counts asset existence checks. Attributes: source,
	// result (found, unknown, unavailable).
	AssetLookups metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes. Attributes:
	// breaker, state.
	BreakerTransitions metric.Int64Counter

	// TaxonomyReloads counts taxonomy hot swaps.
	TaxonomyReloads metric.Int64Counter

	// ActiveRuns tracks pipeline runs in flight.
	ActiveRuns metric.Int64UpDownCounter

	// HTTPRequestDuration tracks probe and scrape latency on the metrics
	// listener. Attributes: route, status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are bucket boundaries in seconds. Rule-based stages finish
// in microseconds; LLM calls and remote asset lookups take up to seconds.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates all instruments using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("decksmith.stage.duration",
		metric.WithDescription("Latency of a pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ClassifyDuration, err = m.Float64Histogram("decksmith.classify.duration",
		metric.WithDescription("Latency of LLM intent classification."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RunOutcomes, err = m.Int64Counter("decksmith.run.outcomes",
		metric.WithDescription("Finished pipeline runs by terminal state."),
	); err != nil {
		return nil, err
	}
	if met.RecognizerPaths, err = m.Int64Counter("decksmith.recognizer.paths",
		metric.WithDescription("Recognized intents by recognizer path."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("decksmith.provider.requests",
		metric.WithDescription("LLM provider requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("decksmith.provider.errors",
		metric.WithDescription("LLM provider errors by provider."),
	); err != nil {
		return nil, err
	}
	if met.AssetLookups, err = m.Int64Counter("decksmith.asset.lookups",
		metric.WithDescription("Asset existence checks by source and result."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("decksmith.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes."),
	); err != nil {
		return nil, err
	}
	if met.TaxonomyReloads, err = m.Int64Counter("decksmith.taxonomy.reloads",
		metric.WithDescription("Taxonomy snapshots swapped in at runtime."),
	); err != nil {
		return nil, err
	}
	if met.ActiveRuns, err = m.Int64UpDownCounter("decksmith.active_runs",
		metric.WithDescription("Pipeline runs in flight."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("decksmith.http.request.duration",
		metric.WithDescription("Metrics listener request latency by route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] bound to
// [otel.GetMeterProvider]. It panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordStage records one stage execution.
func (m *Metrics) RecordStage(ctx context.Context, stage, decision string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(Attr("stage", stage), Attr("decision", decision)),
	)
}

// RecordOutcome counts a finished run.
func (m *Metrics) RecordOutcome(ctx context.Context, state string) {
	m.RunOutcomes.Add(ctx, 1, metric.WithAttributes(Attr("state", state)))
}

// RecordRecognizer counts the recognizer path that produced an intent.
func (m *Metrics) RecordRecognizer(ctx context.Context, path string) {
	m.RecognizerPaths.Add(ctx, 1, metric.WithAttributes(Attr("path", path)))
}

// RecordClassify records the latency of an LLM classification.
func (m *Metrics) RecordClassify(ctx context.Context, result string, d time.Duration) {
	m.ClassifyDuration.Record(ctx, d.Seconds(), metric.WithAttributes(Attr("result", result)))
}

// RecordProviderRequest counts an LLM provider request.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(Attr("provider", provider), Attr("status", status)),
	)
}

// RecordProviderError counts an LLM provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(Attr("provider", provider)))
}

// RecordAssetLookup counts an asset existence check.
func (m *Metrics) RecordAssetLookup(ctx context.Context, source, result string) {
	m.AssetLookups.Add(ctx, 1,
		metric.WithAttributes(Attr("source", source), Attr("result", result)),
	)
}

// RecordBreakerTransition counts a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, breaker, state string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(Attr("breaker", breaker), Attr("state", state)),
	)
}

// RecordTaxonomyReload counts a taxonomy swap.
func (m *Metrics) RecordTaxonomyReload(ctx context.Context, version string) {
	m.TaxonomyReloads.Add(ctx, 1, metric.WithAttributes(Attr("version", version)))
}
