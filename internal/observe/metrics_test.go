package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordAccentCountsByRegion(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAccent(ctx, "south", "")
	m.RecordAccent(ctx, "south", "")
	m.RecordAccent(ctx, "north", "empty_input")

	got := findMetric(collect(t, reader), "vntutor.accent.detections")
	if got == nil {
		t.Fatal("metric not found")
	}
	sum, ok := got.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", got.Data)
	}
	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		region, _ := dp.Attributes.Value(attribute.Key("region"))
		fallback, _ := dp.Attributes.Value(attribute.Key("fallback"))
		counts[region.AsString()+"/"+fallback.AsString()] = dp.Value
	}
	if counts["south/none"] != 2 || counts["north/empty_input"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestRecordTranscriptionHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordTranscription(context.Background(), "mock", true, 0.3)

	got := findMetric(collect(t, reader), "vntutor.transcription.duration")
	if got == nil {
		t.Fatal("metric not found")
	}
	hist, ok := got.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Fatalf("histogram = %+v", got.Data)
	}
}

func TestAsyncPendingGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.AsyncStarted(ctx)
	m.AsyncStarted(ctx)
	m.AsyncFinished(ctx)

	got := findMetric(collect(t, reader), "vntutor.async.pending")
	sum, ok := got.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Fatalf("pending = %+v", got.Data)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordAssessment(context.Background(), "assess", true)
	m.RecordScore(context.Background(), 50)
	m.AsyncStarted(context.Background())
}
