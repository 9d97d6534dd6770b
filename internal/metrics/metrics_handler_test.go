package metrics

import (
	"sync"
	"testing"
	"time"

	"hstrader/config"
	"hstrader/logger"
)

func TestEmitMetricDispatchesToHandlers(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	t.Cleanup(func() { timeNow = time.Now })

	var (
		mu  sync.Mutex
		got []Metric
	)
	id := RegisterMetricHandler(func(m Metric) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	})
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	fields := logger.Fields{"frame_type": "text"}
	EmitMetric(nil, "stream", "frames_received", 3, "", fields)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected one metric, got %d", len(got))
	}
	m := got[0]
	if m.Component != "stream" || m.Name != "frames_received" || m.Value != 3 {
		t.Fatalf("unexpected metric: %+v", m)
	}
	if m.Type != "counter" {
		t.Fatalf("expected default counter type, got %q", m.Type)
	}
	if !m.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected timestamp: %v", m.Timestamp)
	}

	fields["frame_type"] = "binary"
	if m.Fields["frame_type"] != "text" {
		t.Fatal("metric fields must be copied from the caller")
	}
}

func TestUnregisterMetricHandler(t *testing.T) {
	calls := 0
	id := RegisterMetricHandler(func(Metric) { calls++ })
	UnregisterMetricHandler(id)

	EmitMetric(nil, "rest", "requests", 1, "counter", nil)
	if calls != 0 {
		t.Fatalf("handler called %d times after unregister", calls)
	}

	if RegisterMetricHandler(nil) != 0 {
		t.Fatal("nil handler must not be registered")
	}
}

func TestDisabledMetricsAreNotDispatched(t *testing.T) {
	Configure(config.MetricsConfig{Disabled: true})
	t.Cleanup(func() { Configure(config.MetricsConfig{}) })

	calls := 0
	id := RegisterMetricHandler(func(Metric) { calls++ })
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	EmitMetric(nil, "rest", "requests", 1, "counter", nil)
	if calls != 0 {
		t.Fatalf("expected no dispatch while disabled, got %d", calls)
	}
}

func TestEmitDropMetric(t *testing.T) {
	var got []Metric
	id := RegisterMetricHandler(func(m Metric) { got = append(got, m) })
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	EmitDropMetric(nil, DropMetricUndecodable, "binary", "decode")

	if len(got) != 1 {
		t.Fatalf("expected one metric, got %d", len(got))
	}
	m := got[0]
	if m.Component != "stream_drops" || m.Name != "frames_undecodable" || m.Value != 1 {
		t.Fatalf("unexpected drop metric: %+v", m)
	}
	if m.Fields["frame_type"] != "binary" || m.Fields["reason"] != "decode" {
		t.Fatalf("unexpected drop fields: %+v", m.Fields)
	}
}

func TestCollectReportIncludesSources(t *testing.T) {
	fields := collectReport([]ReportSource{
		func() logger.Fields { return logger.Fields{"frames_received": uint64(7)} },
		nil,
	})

	if fields["frames_received"] != uint64(7) {
		t.Fatalf("expected source field, got %+v", fields)
	}
	if _, ok := fields["goroutines"]; !ok {
		t.Fatal("expected goroutine count in report")
	}
	if _, ok := fields["memory_mb"]; !ok {
		t.Fatal("expected memory usage in report")
	}
}
