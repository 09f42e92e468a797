// Package observe provides observability primitives for canon:
// OpenTelemetry metrics with a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A
// package-level default [Metrics] instance ([DefaultMetrics]) is
// provided for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all canon metrics.
const meterName = "github.com/ersonp/canon-core"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per validation stage ---

	// ValidateDuration tracks end-to-end selection validation latency.
	ValidateDuration metric.Float64Histogram

	// CycleDetectionDuration tracks circular-dependency detection latency.
	CycleDetectionDuration metric.Float64Histogram

	// ConflictDetectionDuration tracks conflict detection latency.
	ConflictDetectionDuration metric.Float64Histogram

	// RuleEvaluationDuration tracks rule engine batch evaluation latency.
	RuleEvaluationDuration metric.Float64Histogram

	// --- Counters ---

	// RulesEvaluated counts individual rule evaluations. Use with attributes:
	//   attribute.String("fandom", ...), attribute.String("status", ...)
	RulesEvaluated metric.Int64Counter

	// ConflictsFound counts conflicts reported by the detector. Use with
	// attribute: attribute.String("type", ...)
	ConflictsFound metric.Int64Counter

	// CyclesFound counts dependency chains reported by the detector.
	CyclesFound metric.Int64Counter

	// EngineTimeouts counts rule evaluations abandoned by the engine's
	// execution-time budget.
	EngineTimeouts metric.Int64Counter

	// --- Gauges ---

	// ActiveWatchSessions tracks the number of live watch-mode sessions.
	ActiveWatchSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The
// engine budget defaults to one second, so most of the resolution sits
// below that.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ValidateDuration, err = m.Float64Histogram("canon.validate.duration",
		metric.WithDescription("End-to-end latency of selection validation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CycleDetectionDuration, err = m.Float64Histogram("canon.cycles.duration",
		metric.WithDescription("Latency of circular-dependency detection."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ConflictDetectionDuration, err = m.Float64Histogram("canon.conflicts.duration",
		metric.WithDescription("Latency of conflict detection."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RuleEvaluationDuration, err = m.Float64Histogram("canon.rules.duration",
		metric.WithDescription("Latency of rule engine batch evaluation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.RulesEvaluated, err = m.Int64Counter("canon.rules.evaluated",
		metric.WithDescription("Total rule evaluations by fandom and status."),
	); err != nil {
		return nil, err
	}
	if met.ConflictsFound, err = m.Int64Counter("canon.conflicts.found",
		metric.WithDescription("Total conflicts reported by conflict type."),
	); err != nil {
		return nil, err
	}
	if met.CyclesFound, err = m.Int64Counter("canon.cycles.found",
		metric.WithDescription("Total dependency chains reported."),
	); err != nil {
		return nil, err
	}
	if met.EngineTimeouts, err = m.Int64Counter("canon.engine.timeouts",
		metric.WithDescription("Total rule evaluations abandoned on timeout."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveWatchSessions, err = m.Int64UpDownCounter("canon.watch.active_sessions",
		metric.WithDescription("Number of live watch-mode sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordRuleEvaluation records a single rule evaluation with the standard
// attribute set.
func (m *Metrics) RecordRuleEvaluation(ctx context.Context, fandom, status string) {
	m.RulesEvaluated.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("fandom", fandom),
			attribute.String("status", status),
		),
	)
}

// RecordConflict records one reported conflict by type.
func (m *Metrics) RecordConflict(ctx context.Context, conflictType string) {
	m.ConflictsFound.Add(ctx, 1,
		metric.WithAttributes(attribute.String("type", conflictType)),
	)
}
