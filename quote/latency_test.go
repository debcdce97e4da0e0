package quote

import (
	"testing"
	"time"
)

func push(a *LatencyAggregator, values ...float64) {
	for _, v := range values {
		a.Push(LatencySample{ValueMs: v, CapturedAt: time.Now()})
	}
}

func TestLatencyWindowEviction(t *testing.T) {
	a := NewLatencyAggregator(3)
	push(a, 10, 20, 30, 40)

	window := a.Window()
	if len(window) != 3 {
		t.Fatalf("expected window of 3, got %d", len(window))
	}
	want := []float64{20, 30, 40}
	for i, v := range want {
		if window[i] != v {
			t.Fatalf("window[%d] = %f, want %f", i, window[i], v)
		}
	}

	stats := a.Stats()
	if stats.Count != 3 {
		t.Errorf("Count = %d, want 3", stats.Count)
	}
	if stats.MeanMs != 30 {
		t.Errorf("MeanMs = %f, want 30", stats.MeanMs)
	}
	if stats.MinMs != 20 || stats.MaxMs != 40 {
		t.Errorf("Min/Max = %f/%f, want 20/40", stats.MinMs, stats.MaxMs)
	}
}

func TestLatencyStatsEmpty(t *testing.T) {
	a := NewLatencyAggregator(5)
	stats := a.Stats()
	if stats.Count != 0 || stats.MeanMs != 0 || stats.MinMs != 0 || stats.MaxMs != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestLatencyNegativeSamples(t *testing.T) {
	a := NewLatencyAggregator(10)
	push(a, -2, 4)

	stats := a.Stats()
	if stats.MinMs != -2 {
		t.Errorf("MinMs = %f, want -2", stats.MinMs)
	}
	if stats.MeanMs != 1 {
		t.Errorf("MeanMs = %f, want 1", stats.MeanMs)
	}
}

func TestLatencyReset(t *testing.T) {
	a := NewLatencyAggregator(5)
	push(a, 1, 2, 3)
	a.Reset()
	if got := a.Stats().Count; got != 0 {
		t.Fatalf("expected empty window after reset, got %d samples", got)
	}
}

func TestLatencyDefaultCapacity(t *testing.T) {
	a := NewLatencyAggregator(0)
	for i := 0; i < DefaultLatencyWindow+10; i++ {
		push(a, float64(i))
	}
	if got := a.Stats().Count; got != DefaultLatencyWindow {
		t.Fatalf("expected %d samples, got %d", DefaultLatencyWindow, got)
	}
}
