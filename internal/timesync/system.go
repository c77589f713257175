package timesync

import (
	"time"

	"github.com/sweeney/plant-light/internal/clock"
)

// MinPlausible is the earliest wall time SystemSource accepts. A Pi without
// an RTC boots at its last fake-hwclock value or the epoch until the OS
// synchronizes.
var MinPlausible = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// SystemSource trusts the operating system clock, for hosts where
// systemd-timesyncd or chrony already keep time.
type SystemSource struct {
	loc  *time.Location
	wall func() time.Time
}

// NewSystemSource creates a SystemSource in loc. Nil loc selects time.Local
// and nil wall selects time.Now.
func NewSystemSource(loc *time.Location, wall func() time.Time) *SystemSource {
	if loc == nil {
		loc = time.Local
	}
	if wall == nil {
		wall = time.Now
	}
	return &SystemSource{loc: loc, wall: wall}
}

// IsValid reports whether the system clock is past MinPlausible.
func (s *SystemSource) IsValid() bool {
	return s.wall().After(MinPlausible)
}

// CurrentHour returns the local hour, or NoHour if not valid.
func (s *SystemSource) CurrentHour() int {
	if !s.IsValid() {
		return NoHour
	}
	return s.wall().In(s.loc).Hour()
}

// Update is a no-op; the OS keeps the clock in sync.
func (s *SystemSource) Update(now clock.Millis) error {
	return nil
}

// Validity returns a snapshot of the source state. The sync age is zero
// while valid since the OS owns synchronization.
func (s *SystemSource) Validity(now clock.Millis) Validity {
	v := Validity{Valid: s.IsValid(), Hour: s.CurrentHour(), SyncAge: NeverSynced}
	if v.Valid {
		v.SyncAge = 0
	}
	return v
}
