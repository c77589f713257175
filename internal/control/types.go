// Package control contains the lamp decision logic.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via clock.Millis parameters.
package control

import "github.com/sweeney/plant-light/internal/clock"

// Decision is what the controller wants done with the relay.
type Decision string

const (
	TurnOn      Decision = "TURN_ON"
	TurnOff     Decision = "TURN_OFF"
	KeepCurrent Decision = "KEEP_CURRENT"
	WaitForData Decision = "WAIT_FOR_DATA"
)

// Reason explains a Decision.
type Reason string

const (
	ReasonOutOfSchedule    Reason = "OUT_OF_SCHEDULE"
	ReasonInScheduleDark   Reason = "IN_SCHEDULE_DARK"
	ReasonInScheduleBright Reason = "IN_SCHEDULE_BRIGHT"
	ReasonNoValidTime      Reason = "NO_VALID_TIME"
	ReasonSensorFailure    Reason = "SENSOR_FAILURE"
	ReasonRelayBusy        Reason = "RELAY_BUSY"
)

// Verdict pairs a decision with its reason. The only values are the
// package-level Verdict variables, so a decision can never carry a reason
// that does not belong to it.
type Verdict struct {
	decision Decision
	reason   Reason
}

var (
	VerdictNoValidTime   = Verdict{WaitForData, ReasonNoValidTime}
	VerdictSensorFailure = Verdict{WaitForData, ReasonSensorFailure}
	VerdictRelayBusy     = Verdict{WaitForData, ReasonRelayBusy}
	VerdictScheduleEnded = Verdict{TurnOff, ReasonOutOfSchedule}
	VerdictOutOfSchedule = Verdict{KeepCurrent, ReasonOutOfSchedule}
	VerdictDarkTurnOn    = Verdict{TurnOn, ReasonInScheduleDark}
	VerdictDarkKeep      = Verdict{KeepCurrent, ReasonInScheduleDark}
	VerdictBrightTurnOff = Verdict{TurnOff, ReasonInScheduleBright}
	VerdictBrightKeep    = Verdict{KeepCurrent, ReasonInScheduleBright}
)

// Decision returns the action.
func (v Verdict) Decision() Decision { return v.decision }

// Reason returns why the action was chosen.
func (v Verdict) Reason() Reason { return v.reason }

// String returns a human-readable form, e.g. "turn on (in schedule, dark)".
func (v Verdict) String() string {
	return v.decision.String() + " (" + v.reason.String() + ")"
}

func (d Decision) String() string {
	switch d {
	case TurnOn:
		return "turn on"
	case TurnOff:
		return "turn off"
	case KeepCurrent:
		return "keep current"
	case WaitForData:
		return "wait for data"
	}
	return "unknown"
}

func (r Reason) String() string {
	switch r {
	case ReasonOutOfSchedule:
		return "outside schedule"
	case ReasonInScheduleDark:
		return "in schedule, dark"
	case ReasonInScheduleBright:
		return "in schedule, bright"
	case ReasonNoValidTime:
		return "no valid time"
	case ReasonSensorFailure:
		return "sensor failure"
	case ReasonRelayBusy:
		return "relay busy"
	}
	return "unknown reason"
}

// Outcome is the result of one control tick. It is replaced, not merged,
// on every tick.
type Outcome struct {
	Verdict

	// At is the counter value of the tick.
	At clock.Millis

	// DecisionSeq counts executed ticks; RelayChangeSeq counts committed
	// relay transitions. Both are monotonic for the life of the process.
	DecisionSeq    uint64
	RelayChangeSeq uint64

	// Committed is set when this tick changed the relay.
	Committed bool

	// Rejected is set when a TurnOn or TurnOff was not applied, either
	// because the dwell interval had not elapsed or the write failed.
	// The verdict still reports the intended action.
	Rejected bool

	// Err is the relay write error, if any.
	Err error
}
