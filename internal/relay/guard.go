package relay

import (
	"fmt"

	"github.com/sweeney/plant-light/internal/clock"
)

// Guard owns the relay state and refuses transitions that come sooner than
// the minimum dwell interval after the previous one. Not safe for
// concurrent use; the control loop owns it.
type Guard struct {
	out            Output
	energized      bool
	lastTransition clock.Millis
	minDwell       clock.Millis
}

// NewGuard creates a Guard over out. The relay is assumed off and the last
// transition is taken to be at counter zero until Init is called.
func NewGuard(out Output, minDwell clock.Millis) *Guard {
	return &Guard{
		out:      out,
		minDwell: minDwell,
	}
}

// Init drives the output off and stamps now as the last transition, so the
// first switch after startup waits a full dwell interval.
func (g *Guard) Init(now clock.Millis) error {
	if err := g.out.Write(false); err != nil {
		return fmt.Errorf("init relay: %w", err)
	}
	g.energized = false
	g.lastTransition = now
	return nil
}

// RequestState asks for the relay to be energized or not. It returns true
// if the relay is in the desired state afterwards. A request inside the
// dwell interval is refused without touching the hardware. A failed
// hardware write is returned as an error and commits nothing.
func (g *Guard) RequestState(desired bool, now clock.Millis) (bool, error) {
	if desired == g.energized {
		return true, nil
	}
	if !g.CanSwitch(now) {
		return false, nil
	}
	if err := g.out.Write(desired); err != nil {
		return false, fmt.Errorf("write relay: %w", err)
	}
	g.energized = desired
	g.lastTransition = now
	return true, nil
}

// CanSwitch reports whether the dwell interval has elapsed.
func (g *Guard) CanSwitch(now clock.Millis) bool {
	return clock.Elapsed(now, g.lastTransition) >= g.minDwell
}

// EmergencyOff forces the relay off, bypassing the dwell check. The forced
// transition is stamped so later requests still respect the dwell interval.
// The state is recorded as off even if the hardware write fails.
func (g *Guard) EmergencyOff(now clock.Millis) error {
	err := g.out.Write(false)
	g.energized = false
	g.lastTransition = now
	if err != nil {
		return fmt.Errorf("emergency off: %w", err)
	}
	return nil
}

// Energized returns the committed relay state.
func (g *Guard) Energized() bool {
	return g.energized
}

// SinceLastTransition returns the time since the last committed or forced
// transition.
func (g *Guard) SinceLastTransition(now clock.Millis) clock.Millis {
	return clock.Elapsed(now, g.lastTransition)
}

// LastTransition returns the counter value of the last transition.
func (g *Guard) LastTransition() clock.Millis {
	return g.lastTransition
}

// MinDwell returns the configured dwell interval.
func (g *Guard) MinDwell() clock.Millis {
	return g.minDwell
}
