package sensor

import (
	"errors"
	"math"
	"testing"

	"github.com/sweeney/plant-light/internal/clock"
)

func newTestAggregator(t *testing.T, size int) *Aggregator {
	t.Helper()
	a, err := NewAggregator(size, 0)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return a
}

func mean(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func TestNewAggregatorRejectsNonPositiveSize(t *testing.T) {
	for _, n := range []int{0, -3} {
		if _, err := NewAggregator(n, 0); err == nil {
			t.Errorf("size %d: expected error", n)
		}
	}
}

func TestNewAggregatorDefaultCeiling(t *testing.T) {
	a := newTestAggregator(t, 5)
	if a.ceiling != DefaultCeilingLux {
		t.Errorf("ceiling: got %v, want %v", a.ceiling, DefaultCeilingLux)
	}
}

func TestAverageZeroBeforeFirstReading(t *testing.T) {
	a := newTestAggregator(t, 5)
	if a.Average() != 0 {
		t.Errorf("expected 0, got %v", a.Average())
	}
	if a.Resident() != 0 {
		t.Errorf("expected 0 resident, got %d", a.Resident())
	}
}

func TestAverageDuringWarmUpIsNotZeroPadded(t *testing.T) {
	a := newTestAggregator(t, 5)
	a.Submit(10, 0)
	a.Submit(20, 1000)

	if got := a.Average(); got != 15 {
		t.Errorf("expected 15, got %v", got)
	}
	if a.Resident() != 2 {
		t.Errorf("expected 2 resident, got %d", a.Resident())
	}
	if a.full {
		t.Error("buffer should not be full during warm-up")
	}
}

func TestAverageOverLastNSamples(t *testing.T) {
	const n = 5
	values := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110, 120, 130}

	for k := 0; k <= len(values)-n; k++ {
		a := newTestAggregator(t, n)
		submitted := values[:n+k]
		for i, v := range submitted {
			if err := a.Submit(v, clock.Millis(i*1000)); err != nil {
				t.Fatalf("submit %v: %v", v, err)
			}
		}
		want := mean(submitted[len(submitted)-n:])
		if got := a.Average(); math.Abs(got-want) > 1e-9 {
			t.Errorf("k=%d: got %v, want %v", k, got, want)
		}
		if a.Resident() != n {
			t.Errorf("k=%d: resident %d, want %d", k, a.Resident(), n)
		}
	}
}

func TestFullFlagSetAfterFirstWrap(t *testing.T) {
	a := newTestAggregator(t, 3)
	a.Submit(1, 0)
	a.Submit(2, 0)
	if a.full {
		t.Fatal("full before wrap")
	}
	a.Submit(3, 0)
	if !a.full {
		t.Fatal("expected full after wrap")
	}
	if a.cursor != 0 {
		t.Errorf("cursor: got %d, want 0", a.cursor)
	}
}

func TestSubmitRejectsInvalidReadings(t *testing.T) {
	tests := []struct {
		name string
		lux  float64
	}{
		{"NaN", math.NaN()},
		{"negative", -0.5},
		{"above ceiling", DefaultCeilingLux + 1},
		{"positive infinity", math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAggregator(t, 3)
			a.Submit(40, 0)

			err := a.Submit(tt.lux, 1000)
			if !errors.Is(err, ErrInvalidReading) {
				t.Fatalf("expected ErrInvalidReading, got %v", err)
			}
			if a.Average() != 40 {
				t.Errorf("average perturbed: %v", a.Average())
			}
			if a.ReadingCount() != 1 {
				t.Errorf("reading count: got %d, want 1", a.ReadingCount())
			}
			if a.LastRaw() != 40 {
				t.Errorf("last raw: got %v, want 40", a.LastRaw())
			}
			if a.Resident() != 1 {
				t.Errorf("resident: got %d, want 1", a.Resident())
			}
		})
	}
}

func TestSubmitAcceptsCeilingExactly(t *testing.T) {
	a := newTestAggregator(t, 3)
	if err := a.Submit(DefaultCeilingLux, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := a.Submit(0, 0); err != nil {
		t.Errorf("zero lux rejected: %v", err)
	}
}

func TestCustomCeiling(t *testing.T) {
	a, err := NewAggregator(3, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Submit(1001, 0); !errors.Is(err, ErrInvalidReading) {
		t.Errorf("expected rejection above custom ceiling, got %v", err)
	}
}

func TestIsBelowThresholdUsesAverage(t *testing.T) {
	const n = 5
	a := newTestAggregator(t, n)
	for i := 0; i < n-1; i++ {
		a.Submit(50, clock.Millis(i*1000))
	}
	// One bright outlier: (4*50 + 300) / 5 = 100, not below 101.
	a.Submit(300, 5000)

	if a.LastRaw() != 300 {
		t.Fatalf("last raw: got %v", a.LastRaw())
	}
	if !a.IsBelowThreshold(101) {
		t.Errorf("outlier flipped threshold: average %v", a.Average())
	}
	if a.IsBelowThreshold(100) {
		t.Errorf("average %v should not be below 100", a.Average())
	}
}

func TestIsBelowThresholdBeforeReadings(t *testing.T) {
	a := newTestAggregator(t, 5)
	if !a.IsBelowThreshold(100) {
		t.Error("average 0 should be below 100")
	}
}

func TestIsHealthy(t *testing.T) {
	a := newTestAggregator(t, 5)
	if a.IsHealthy(0) {
		t.Error("never-read sensor reported healthy")
	}

	a.Submit(80, 10000)
	if !a.IsHealthy(10000) {
		t.Error("expected healthy immediately after reading")
	}
	if !a.IsHealthy(10000 + HealthWindow - 1) {
		t.Error("expected healthy just inside window")
	}
	if a.IsHealthy(10000 + HealthWindow) {
		t.Error("expected unhealthy at window edge")
	}
}

func TestIsHealthyAcrossCounterWrap(t *testing.T) {
	a := newTestAggregator(t, 5)
	last := clock.Millis(math.MaxUint32 - 5000)
	a.Submit(80, last)

	if !a.IsHealthy(last + 30000) {
		t.Error("expected healthy 30s after reading across wrap")
	}
	if a.IsHealthy(last + HealthWindow + 1) {
		t.Error("expected unhealthy after window across wrap")
	}
}

func TestInvalidReadingsEventuallyMakeSensorUnhealthy(t *testing.T) {
	a := newTestAggregator(t, 5)
	a.Submit(80, 0)
	for now := clock.Millis(1000); now < 70000; now += 1000 {
		a.Submit(math.NaN(), now)
	}
	if a.IsHealthy(70000) {
		t.Error("expected unhealthy after a minute of invalid readings")
	}
}

func TestSinceLastReading(t *testing.T) {
	a := newTestAggregator(t, 5)
	if _, ok := a.SinceLastReading(100); ok {
		t.Error("expected no reading")
	}
	a.Submit(10, 100)
	d, ok := a.SinceLastReading(1100)
	if !ok || d != 1000 {
		t.Errorf("got (%d, %v), want (1000, true)", d, ok)
	}
}

func TestCapacity(t *testing.T) {
	a := newTestAggregator(t, 7)
	if a.Capacity() != 7 {
		t.Errorf("got %d, want 7", a.Capacity())
	}
}
