package control

import (
	"fmt"

	"github.com/sweeney/plant-light/internal/clock"
	"github.com/sweeney/plant-light/internal/schedule"
)

// TimeSource provides the hour of day. CurrentHour is only consulted while
// IsValid returns true.
type TimeSource interface {
	IsValid() bool
	CurrentHour() int
}

// LightSensor is the smoothed ambient light view the controller needs.
type LightSensor interface {
	IsHealthy(now clock.Millis) bool
	IsBelowThreshold(threshold float64) bool
}

// Actuator is the guarded relay the controller drives.
type Actuator interface {
	Energized() bool
	CanSwitch(now clock.Millis) bool
	RequestState(desired bool, now clock.Millis) (bool, error)
	EmergencyOff(now clock.Millis) error
}

// Config is fixed for the life of a Controller.
type Config struct {
	Schedule       schedule.Window
	LuxThreshold   float64
	UpdateInterval clock.Millis
}

// Controller decides once per interval whether the lamp should be on.
// Not safe for concurrent use; the control loop owns it.
type Controller struct {
	cfg      Config
	time     TimeSource
	sensor   LightSensor
	actuator Actuator

	automatic  bool
	hasRun     bool
	lastUpdate clock.Millis

	decisions    uint64
	relayChanges uint64
	last         Outcome
}

// New creates a Controller with automatic control enabled. It rejects
// schedules that are out of range or zero width.
func New(cfg Config, ts TimeSource, ls LightSensor, act Actuator) (*Controller, error) {
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	return &Controller{
		cfg:       cfg,
		time:      ts,
		sensor:    ls,
		actuator:  act,
		automatic: true,
		last:      Outcome{Verdict: VerdictNoValidTime},
	}, nil
}

// Update runs a tick if at least UpdateInterval has elapsed since the last
// attempt (the first call always runs). It returns false when the tick was
// skipped by cadence or because automatic control is disabled.
func (c *Controller) Update(now clock.Millis) (Outcome, bool) {
	if c.hasRun && clock.Elapsed(now, c.lastUpdate) < c.cfg.UpdateInterval {
		return c.last, false
	}
	c.hasRun = true
	c.lastUpdate = now

	if !c.automatic {
		return c.last, false
	}
	return c.tick(now), true
}

// ForceUpdate runs a tick immediately, ignoring the cadence. It is still
// skipped while automatic control is disabled.
func (c *Controller) ForceUpdate(now clock.Millis) (Outcome, bool) {
	if !c.automatic {
		return c.last, false
	}
	return c.tick(now), true
}

func (c *Controller) tick(now clock.Millis) Outcome {
	o := Outcome{Verdict: c.Evaluate(now), At: now}

	switch o.Decision() {
	case TurnOn, TurnOff:
		applied, err := c.actuator.RequestState(o.Decision() == TurnOn, now)
		switch {
		case err != nil:
			o.Rejected = true
			o.Err = err
		case !applied:
			o.Rejected = true
		default:
			o.Committed = true
			c.relayChanges++
		}
	}

	c.decisions++
	o.DecisionSeq = c.decisions
	o.RelayChangeSeq = c.relayChanges
	c.last = o
	return o
}

// Evaluate computes the verdict for the current inputs without touching
// the relay or the counters.
func (c *Controller) Evaluate(now clock.Millis) Verdict {
	if v, ok := c.validate(now); !ok {
		return v
	}

	on := c.actuator.Energized()

	if !schedule.InWindow(c.cfg.Schedule, c.time.CurrentHour()) {
		if on {
			return VerdictScheduleEnded
		}
		return VerdictOutOfSchedule
	}

	if c.sensor.IsBelowThreshold(c.cfg.LuxThreshold) {
		if on {
			return VerdictDarkKeep
		}
		return VerdictDarkTurnOn
	}
	if on {
		return VerdictBrightTurnOff
	}
	return VerdictBrightKeep
}

// validate checks inputs in priority order; the first failure wins.
func (c *Controller) validate(now clock.Millis) (Verdict, bool) {
	if !c.time.IsValid() {
		return VerdictNoValidTime, false
	}
	if !c.sensor.IsHealthy(now) {
		return VerdictSensorFailure, false
	}
	if !c.actuator.CanSwitch(now) {
		return VerdictRelayBusy, false
	}
	return Verdict{}, true
}

// ComponentsHealthy reports whether time, sensor and relay would all pass
// validation right now.
func (c *Controller) ComponentsHealthy(now clock.Millis) bool {
	_, ok := c.validate(now)
	return ok
}

// SetAutomaticControl enables or disables automatic control. Disabling
// forces the relay off immediately, bypassing the dwell interval. A repeated
// disable with the relay already off is a no-op, so it does not restart the
// dwell interval.
func (c *Controller) SetAutomaticControl(enabled bool, now clock.Millis) error {
	wasEnabled := c.automatic
	c.automatic = enabled
	if enabled {
		return nil
	}
	if !wasEnabled && !c.actuator.Energized() {
		return nil
	}
	if err := c.actuator.EmergencyOff(now); err != nil {
		return fmt.Errorf("control: disable automatic control: %w", err)
	}
	return nil
}

// AutomaticControl reports whether automatic control is enabled.
func (c *Controller) AutomaticControl() bool {
	return c.automatic
}

// LastOutcome returns the outcome of the most recent executed tick.
func (c *Controller) LastOutcome() Outcome {
	return c.last
}

// DecisionCount returns the number of executed ticks.
func (c *Controller) DecisionCount() uint64 {
	return c.decisions
}

// RelayChanges returns the number of committed relay transitions.
func (c *Controller) RelayChanges() uint64 {
	return c.relayChanges
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}
