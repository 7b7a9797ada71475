// Package observe holds the OpenTelemetry instruments realcheck records and
// the Prometheus bridge that exposes them.
//
// Instruments are created from a [metric.MeterProvider]. Production code uses
// [DefaultMetrics], which binds to the global provider installed by
// [InitProvider]; tests build their own with [NewMetrics] and a manual reader.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/jask/realcheck"

// Metrics holds every instrument. A nil *Metrics records nothing.
type Metrics struct {
	// InferenceDuration is the round trip to the classifier, by mode and status.
	InferenceDuration metric.Float64Histogram

	// StagingDuration is the time to decode a preview, by mode and status.
	StagingDuration metric.Float64Histogram

	// InferenceRequests counts classifier calls by mode and status.
	InferenceRequests metric.Int64Counter

	// Cycles counts finished cycles by mode and outcome
	// (result, validation, staging, network).
	Cycles metric.Int64Counter
}

var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.InferenceDuration, err = m.Float64Histogram("realcheck.inference.duration",
		metric.WithDescription("Latency of classifier requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StagingDuration, err = m.Float64Histogram("realcheck.staging.duration",
		metric.WithDescription("Time spent decoding a preview before submission."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InferenceRequests, err = m.Int64Counter("realcheck.inference.requests",
		metric.WithDescription("Classifier requests by mode and status."),
	); err != nil {
		return nil, err
	}
	if met.Cycles, err = m.Int64Counter("realcheck.cycles",
		metric.WithDescription("Completed upload cycles by mode and outcome."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns instruments bound to the global meter provider,
// creating them on first use. Call it after InitProvider.
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

// RecordInference records one classifier call.
func (m *Metrics) RecordInference(ctx context.Context, mode, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("status", status),
	)
	m.InferenceDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.InferenceRequests.Add(ctx, 1, attrs)
}

// RecordStaging records one staging attempt.
func (m *Metrics) RecordStaging(ctx context.Context, mode, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StagingDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("status", status),
	))
}

// RecordCycle records a cycle reaching a terminal state.
func (m *Metrics) RecordCycle(ctx context.Context, mode, outcome string) {
	if m == nil {
		return
	}
	m.Cycles.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	))
}
