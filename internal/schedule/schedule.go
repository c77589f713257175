// Package schedule evaluates daily hour windows, including windows that
// cross midnight.
package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrHourOutOfRange is returned for hours outside [0,23].
	ErrHourOutOfRange = errors.New("schedule: hour out of range")

	// ErrZeroWidth is returned for a window whose start equals its end.
	// Such a window is never in effect.
	ErrZeroWidth = errors.New("schedule: start and end hour are equal")
)

// Window is a daily interval of whole hours. StartHour is inclusive and
// EndHour exclusive. StartHour > EndHour means the window crosses midnight.
type Window struct {
	StartHour int `yaml:"start_hour"`
	EndHour   int `yaml:"end_hour"`
}

// Validate reports whether w can be used as a schedule.
func (w Window) Validate() error {
	if !validHour(w.StartHour) {
		return fmt.Errorf("%w: start %d", ErrHourOutOfRange, w.StartHour)
	}
	if !validHour(w.EndHour) {
		return fmt.Errorf("%w: end %d", ErrHourOutOfRange, w.EndHour)
	}
	if w.StartHour == w.EndHour {
		return fmt.Errorf("%w: %d", ErrZeroWidth, w.StartHour)
	}
	return nil
}

// Overnight reports whether the window crosses midnight.
func (w Window) Overnight() bool {
	return w.StartHour > w.EndHour
}

// String formats the window as "HH:00-HH:00".
func (w Window) String() string {
	return fmt.Sprintf("%02d:00-%02d:00", w.StartHour, w.EndHour)
}

// InWindow reports whether hour falls inside w.
// An hour outside [0,23] is never in the window.
func InWindow(w Window, hour int) bool {
	if !validHour(hour) {
		return false
	}
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour < w.EndHour
	}
	return hour >= w.StartHour || hour < w.EndHour
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}
