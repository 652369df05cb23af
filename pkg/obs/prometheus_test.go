package obs

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"matchcore/pkg/engine"
)

var _ engine.MetricsRecorder = (*PrometheusMetricsRecorder)(nil)

func TestPrometheusMetricsRecorderObserve(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder, err := NewPrometheusMetricsRecorder(registry, "test")
	if err != nil {
		t.Fatalf("Failed to construct recorder: %v", err)
	}

	recorder.Observe(context.Background(), "run_match", true, 25*time.Millisecond)
	recorder.Observe(context.Background(), "run_match", true, 30*time.Millisecond)
	recorder.Observe(context.Background(), "run_match", false, time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Second)

	if got := testutil.ToFloat64(recorder.operations.WithLabelValues("run_match", "success")); got != 2 {
		t.Errorf("expected 2 successes counted, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.operations.WithLabelValues("run_match", "error")); got != 1 {
		t.Errorf("expected 1 error counted, got %v", got)
	}
	if got := testutil.CollectAndCount(recorder.durations, "test_operation_duration_seconds"); got != 1 {
		t.Errorf("expected one duration series, got %d", got)
	}
}

func TestPrometheusMetricsRecorderDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(registry, "test"); err != nil {
		t.Fatalf("Failed to construct recorder: %v", err)
	}
	_, err := NewPrometheusMetricsRecorder(registry, "test")
	if err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if !strings.Contains(err.Error(), "register") {
		t.Errorf("expected registration error, got %v", err)
	}
}

func TestPrometheusMetricsRecorderNamespaceFallback(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder, err := NewPrometheusMetricsRecorder(registry, "")
	if err != nil {
		t.Fatalf("Failed to construct recorder: %v", err)
	}
	recorder.Observe(context.Background(), "run_match", true, time.Millisecond)
	if got := testutil.CollectAndCount(recorder.operations, "matchcore_operations_total"); got != 1 {
		t.Errorf("expected fallback namespace series, got %d", got)
	}
}

func TestPrometheusMetricsRecorderDrivesEngine(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder, err := NewPrometheusMetricsRecorder(registry, "test")
	if err != nil {
		t.Fatalf("Failed to construct recorder: %v", err)
	}

	if _, err := engine.New(engine.WithMetricsRecorder(recorder)).Run(nil); err == nil {
		t.Fatalf("expected error from nil index")
	}
	if got := testutil.ToFloat64(recorder.operations.WithLabelValues("run_match", "error")); got != 1 {
		t.Errorf("expected the failed run counted, got %v", got)
	}
}
