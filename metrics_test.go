package authkit

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsIncRespectsEnabledFlag(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		incs    int
		want    uint64
	}{
		{name: "disabled drops increments", enabled: false, incs: 5, want: 0},
		{name: "enabled counts increments", enabled: true, incs: 5, want: 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMetrics(MetricsConfig{Enabled: tc.enabled})
			for i := 0; i < tc.incs; i++ {
				m.Inc(MetricLoginSuccess)
			}
			if got := m.Value(MetricLoginSuccess); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricValidateSuccess)
			}
		}()
	}
	wg.Wait()

	if got, want := m.Value(MetricValidateSuccess), uint64(goroutines*perG); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketBoundaries(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	// One observation landing exactly on each bucket's upper bound, plus one
	// past the last finite bound for the +Inf bucket.
	for _, d := range []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	} {
		m.Observe(MetricValidateLatency, d)
	}

	buckets := m.Snapshot().Histograms[MetricValidateLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected exactly one observation, got %d", i, v)
		}
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginFailure)
	m.Inc(MetricLoginFailure)
	m.Observe(MetricValidateLatency, 2*time.Millisecond)

	snap := m.Snapshot()

	if got := snap.Counters[MetricLoginSuccess]; got != 1 {
		t.Fatalf("expected MetricLoginSuccess=1, got %d", got)
	}
	if got := snap.Counters[MetricLoginFailure]; got != 2 {
		t.Fatalf("expected MetricLoginFailure=2, got %d", got)
	}
	hist := snap.Histograms[MetricValidateLatency]
	if len(hist) != 8 || hist[0] != 1 {
		t.Fatalf("expected 2ms observation in first bucket, got %v", hist)
	}
}

func TestMetricsLatencyDisabledNoObservation(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricValidateLatency, 2*time.Millisecond)

	if hists := m.Snapshot().Histograms; len(hists) != 0 {
		t.Fatalf("expected no histograms when latency disabled, got %d", len(hists))
	}
}
