// Package timesync supplies wall-clock hours to the controller and tracks
// whether that time can be trusted.
package timesync

import (
	"errors"
	"math"

	"github.com/sweeney/plant-light/internal/clock"
)

// ErrNoValidTime is returned when a time is requested before the source has
// synchronized.
var ErrNoValidTime = errors.New("timesync: no valid time")

// NoHour is returned by CurrentHour when the time is not valid.
const NoHour = -1

// NeverSynced is the sync age reported before the first successful sync.
const NeverSynced clock.Millis = math.MaxUint32

// Source provides the current hour of day. CurrentHour is only meaningful
// while IsValid returns true.
type Source interface {
	IsValid() bool
	CurrentHour() int
}

// Keeper is a Source that maintains its own synchronization. The control
// loop calls Update once per tick.
type Keeper interface {
	Source
	Update(now clock.Millis) error
	Validity(now clock.Millis) Validity
}

// Validity is a read-only view of a time source's state.
type Validity struct {
	Valid   bool
	Hour    int
	SyncAge clock.Millis
}

// Fake is a Keeper with directly settable state, for tests.
type Fake struct {
	Valid bool
	Hour  int

	// Updates counts calls to Update.
	Updates int

	// UpdateError, if set, is returned by Update.
	UpdateError error
}

// IsValid returns f.Valid.
func (f *Fake) IsValid() bool { return f.Valid }

// CurrentHour returns f.Hour, or NoHour when not valid.
func (f *Fake) CurrentHour() int {
	if !f.Valid {
		return NoHour
	}
	return f.Hour
}

// Update records the call.
func (f *Fake) Update(now clock.Millis) error {
	f.Updates++
	return f.UpdateError
}

// Validity returns the fake state with a zero sync age when valid.
func (f *Fake) Validity(now clock.Millis) Validity {
	v := Validity{Valid: f.Valid, Hour: f.CurrentHour(), SyncAge: NeverSynced}
	if f.Valid {
		v.SyncAge = 0
	}
	return v
}
