// Package clock provides the wrapping millisecond counter used for all
// elapsed-time arithmetic in the controller.
//
// A Millis value wraps after about 49.7 days. Elapsed time must always be
// computed with Elapsed (unsigned modular subtraction) and never by
// comparing two Millis values directly.
package clock

import (
	"math"
	"time"
)

// Millis is a monotonic millisecond counter that wraps at 2^32.
type Millis uint32

// Elapsed returns the time from since to now, correct across one wrap of
// the counter.
func Elapsed(now, since Millis) Millis {
	return now - since
}

// MaxDuration is the longest interval a Millis value can hold.
const MaxDuration = time.Duration(math.MaxUint32) * time.Millisecond

// FromDuration converts d to Millis, truncating to the counter range. Callers
// must keep d at or below MaxDuration.
func FromDuration(d time.Duration) Millis {
	return Millis(uint32(d.Milliseconds()))
}

// Duration converts m to a time.Duration.
func (m Millis) Duration() time.Duration {
	return time.Duration(m) * time.Millisecond
}

// Monotonic is a millisecond counter started at construction time.
type Monotonic struct {
	start time.Time
}

// NewMonotonic returns a counter reading zero at the current instant.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Now returns the milliseconds since the counter was started, wrapped to
// 32 bits.
func (m *Monotonic) Now() Millis {
	return Millis(uint32(time.Since(m.start).Milliseconds()))
}
