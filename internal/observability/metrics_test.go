package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAsset("image", OutcomeCompleted, time.Second)
	m.IncFallback("translate")
	m.AddRecovered(3)
	m.IncLoopError()
	m.SetQueueDepth(4)
	m.InflightInc()
	m.InflightDec()
	if m.Registry() != nil {
		t.Fatalf("expected nil registry")
	}
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics()
	m.ObserveAsset("image", OutcomeCompleted, 2*time.Second)
	m.ObserveAsset("image", OutcomeCompleted, time.Second)
	m.ObserveAsset("text", OutcomeFailed, time.Second)
	m.IncFallback("classify")
	m.AddRecovered(2)
	m.AddRecovered(0)
	m.SetQueueDepth(7)

	if got := testutil.ToFloat64(m.processed.WithLabelValues(OutcomeCompleted, "image")); got != 2 {
		t.Fatalf("completed image=%v", got)
	}
	if got := testutil.ToFloat64(m.processed.WithLabelValues(OutcomeFailed, "text")); got != 1 {
		t.Fatalf("failed text=%v", got)
	}
	if got := testutil.ToFloat64(m.fallbacks.WithLabelValues("classify")); got != 1 {
		t.Fatalf("fallbacks=%v", got)
	}
	if got := testutil.ToFloat64(m.recovered); got != 2 {
		t.Fatalf("recovered=%v", got)
	}
	if got := testutil.ToFloat64(m.queueDepth); got != 7 {
		t.Fatalf("depth=%v", got)
	}
}

func TestParseHeadersAndRatio(t *testing.T) {
	h := ParseHeaders("a=1, b = 2 ,bad,=x")
	if len(h) != 2 || h["a"] != "1" || h["b"] != "2" {
		t.Fatalf("headers=%v", h)
	}
	if ParseHeaders("  ") != nil {
		t.Fatalf("expected nil")
	}
	if ParseRatio("", 0.1) != 0.1 || ParseRatio("2", 0.1) != 1 || ParseRatio("x", 0.3) != 0.3 {
		t.Fatalf("ratio parse")
	}
}
