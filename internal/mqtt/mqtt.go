// Package mqtt publishes lamp control events with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/plant-light/internal/control"
)

// Topic is the MQTT topic for lamp control events.
const Topic = "garden/plant-light/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "garden/plant-light/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a control event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event is a control tick worth announcing: a relay change or a change of
// decision or reason.
type Event struct {
	Timestamp      time.Time
	Decision       control.Decision
	Reason         control.Reason
	RelayOn        bool
	AverageLux     float64
	DecisionSeq    uint64
	RelayChangeSeq uint64
}

// NewEvent builds an Event from a control outcome.
func NewEvent(ts time.Time, o control.Outcome, relayOn bool, averageLux float64) Event {
	return Event{
		Timestamp:      ts,
		Decision:       o.Decision(),
		Reason:         o.Reason(),
		RelayOn:        relayOn,
		AverageLux:     averageLux,
		DecisionSeq:    o.DecisionSeq,
		RelayChangeSeq: o.RelayChangeSeq,
	}
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Lamp LampPayload `json:"lamp"`
}

// LampPayload contains the control event details.
type LampPayload struct {
	Timestamp      string     `json:"timestamp"`
	Decision       string     `json:"decision"`
	Reason         string     `json:"reason"`
	Relay          RelayState `json:"relay"`
	AverageLux     float64    `json:"average_lux"`
	DecisionSeq    uint64     `json:"decision_seq"`
	RelayChangeSeq uint64     `json:"relay_change_seq"`
}

// RelayState represents the relay output state.
type RelayState struct {
	State string `json:"state"`
}

// FormatPayload creates the JSON payload for a control event.
func FormatPayload(event Event) ([]byte, error) {
	state := "OFF"
	if event.RelayOn {
		state = "ON"
	}
	payload := Payload{
		Lamp: LampPayload{
			Timestamp:      event.Timestamp.UTC().Format(time.RFC3339),
			Decision:       string(event.Decision),
			Reason:         string(event.Reason),
			Relay:          RelayState{State: state},
			AverageLux:     event.AverageLux,
			DecisionSeq:    event.DecisionSeq,
			RelayChangeSeq: event.RelayChangeSeq,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
