// Package observe holds the service's OpenTelemetry metric instruments and
// the Prometheus bridge that exposes them on /metrics.
//
// Tests should build Metrics with NewMetrics over a ManualReader-backed
// provider rather than the global one.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/windfall/vntutor_service"

// Metrics holds all metric instruments. Safe for concurrent use.
type Metrics struct {
	// TranscriptionDuration tracks engine latency by engine and status.
	TranscriptionDuration metric.Float64Histogram

	// Assessments counts orchestrated assessments by operation and status.
	Assessments metric.Int64Counter

	// PronunciationScore records overall scores of successful assessments.
	PronunciationScore metric.Float64Histogram

	// AccentDetections counts classifier answers by region and fallback.
	AccentDetections metric.Int64Counter

	// AsyncPending tracks async assessments not yet handed off.
	AsyncPending metric.Int64UpDownCounter

	// HTTPRequestDuration tracks request latency by method, route and status.
	HTTPRequestDuration metric.Float64Histogram
}

var latencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60}

var scoreBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 100}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscriptionDuration, err = m.Float64Histogram("vntutor.transcription.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Assessments, err = m.Int64Counter("vntutor.assessments",
		metric.WithDescription("Assessments by operation and status."),
	); err != nil {
		return nil, err
	}
	if met.PronunciationScore, err = m.Float64Histogram("vntutor.pronunciation.score",
		metric.WithDescription("Overall pronunciation score (0-100)."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AccentDetections, err = m.Int64Counter("vntutor.accent.detections",
		metric.WithDescription("Accent classifications by region and fallback reason."),
	); err != nil {
		return nil, err
	}
	if met.AsyncPending, err = m.Int64UpDownCounter("vntutor.async.pending",
		metric.WithDescription("Async assessments still running."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("vntutor.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordTranscription records one engine call.
func (m *Metrics) RecordTranscription(ctx context.Context, engine string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	m.TranscriptionDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("engine", engine),
		attribute.String("status", status(ok)),
	))
}

// RecordAssessment counts one orchestrator operation.
func (m *Metrics) RecordAssessment(ctx context.Context, operation string, ok bool) {
	if m == nil {
		return
	}
	m.Assessments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status(ok)),
	))
}

// RecordScore records an overall pronunciation score.
func (m *Metrics) RecordScore(ctx context.Context, score float64) {
	if m == nil {
		return
	}
	m.PronunciationScore.Record(ctx, score)
}

// RecordAccent counts one classifier answer. An empty fallback is reported
// as "none".
func (m *Metrics) RecordAccent(ctx context.Context, region, fallback string) {
	if m == nil {
		return
	}
	if fallback == "" {
		fallback = "none"
	}
	m.AccentDetections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("region", region),
		attribute.String("fallback", fallback),
	))
}

// AsyncStarted and AsyncFinished bracket a background assessment.
func (m *Metrics) AsyncStarted(ctx context.Context) {
	if m != nil {
		m.AsyncPending.Add(ctx, 1)
	}
}

func (m *Metrics) AsyncFinished(ctx context.Context) {
	if m != nil {
		m.AsyncPending.Add(ctx, -1)
	}
}

// RecordHTTP records one served request. route is the matched pattern, not
// the raw path.
func (m *Metrics) RecordHTTP(ctx context.Context, method, route string, code int, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", code),
	))
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
