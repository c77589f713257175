// Package sensor smooths ambient light readings and tracks sensor health.
// The Aggregator is pure: time is always passed in as a clock.Millis.
package sensor

import (
	"errors"
	"fmt"
	"math"

	"github.com/sweeney/plant-light/internal/clock"
)

// DefaultCeilingLux is the rated maximum of the VEML7700 across all gain
// settings. Anything above it is treated as a bus error. The driver here
// saturates much lower, at SaturationLux.
const DefaultCeilingLux = 120000.0

// HealthWindow is how recent the last accepted reading must be for the
// sensor to count as healthy.
const HealthWindow clock.Millis = 60000

// ErrInvalidReading is returned by Submit for NaN, negative or
// out-of-range values.
var ErrInvalidReading = errors.New("sensor: invalid reading")

// Aggregator keeps the last N accepted lux readings in a ring buffer and
// reports their mean. Not safe for concurrent use; the control loop owns it.
type Aggregator struct {
	samples []float64
	cursor  int
	full    bool

	average  float64
	lastRaw  float64
	readings uint64

	lastReadingAt clock.Millis
	hasReading    bool

	ceiling float64
}

// NewAggregator creates an Aggregator averaging over size samples.
// A ceiling <= 0 selects DefaultCeilingLux.
func NewAggregator(size int, ceiling float64) (*Aggregator, error) {
	if size <= 0 {
		return nil, fmt.Errorf("sensor: sample count must be positive, got %d", size)
	}
	if ceiling <= 0 {
		ceiling = DefaultCeilingLux
	}
	return &Aggregator{
		samples: make([]float64, size),
		ceiling: ceiling,
	}, nil
}

// Submit records a raw lux reading taken at now. Rejected readings leave
// the buffer, the average and the health timestamp untouched.
func (a *Aggregator) Submit(lux float64, now clock.Millis) error {
	if math.IsNaN(lux) || lux < 0 || lux > a.ceiling {
		return fmt.Errorf("%w: %v", ErrInvalidReading, lux)
	}

	a.lastRaw = lux
	a.lastReadingAt = now
	a.hasReading = true
	a.readings++

	a.samples[a.cursor] = lux
	a.cursor++
	if a.cursor == len(a.samples) {
		a.cursor = 0
		a.full = true
	}

	a.recompute()
	return nil
}

func (a *Aggregator) recompute() {
	n := a.Resident()
	if n == 0 {
		a.average = 0
		return
	}
	var sum float64
	for _, v := range a.samples[:n] {
		sum += v
	}
	a.average = sum / float64(n)
}

// Resident returns how many samples currently contribute to the average.
func (a *Aggregator) Resident() int {
	if a.full {
		return len(a.samples)
	}
	return a.cursor
}

// Capacity returns the configured number of samples.
func (a *Aggregator) Capacity() int {
	return len(a.samples)
}

// Average returns the mean of the resident samples, or 0 before the first
// accepted reading.
func (a *Aggregator) Average() float64 {
	return a.average
}

// LastRaw returns the most recent accepted reading without smoothing.
func (a *Aggregator) LastRaw() float64 {
	return a.lastRaw
}

// ReadingCount returns the number of readings accepted since start.
func (a *Aggregator) ReadingCount() uint64 {
	return a.readings
}

// IsBelowThreshold compares the averaged value, never the raw one,
// against threshold.
func (a *Aggregator) IsBelowThreshold(threshold float64) bool {
	return a.average < threshold
}

// IsHealthy reports whether a valid reading was accepted within the last
// HealthWindow. A sensor that has never produced a reading is unhealthy.
func (a *Aggregator) IsHealthy(now clock.Millis) bool {
	if !a.hasReading {
		return false
	}
	if clock.Elapsed(now, a.lastReadingAt) >= HealthWindow {
		return false
	}
	return !math.IsNaN(a.lastRaw) && a.lastRaw >= 0
}

// SinceLastReading returns the time since the last accepted reading and
// false if there has never been one.
func (a *Aggregator) SinceLastReading(now clock.Millis) (clock.Millis, bool) {
	if !a.hasReading {
		return 0, false
	}
	return clock.Elapsed(now, a.lastReadingAt), true
}
