package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/plant-light/internal/control"
)

func TestFormatPayload(t *testing.T) {
	event := Event{
		Timestamp:      time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Decision:       control.TurnOn,
		Reason:         control.ReasonInScheduleDark,
		RelayOn:        true,
		AverageLux:     42.5,
		DecisionSeq:    7,
		RelayChangeSeq: 2,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"lamp":{"timestamp":"2026-02-02T22:18:12Z","decision":"TURN_ON","reason":"IN_SCHEDULE_DARK","relay":{"state":"ON"},"average_lux":42.5,"decision_seq":7,"relay_change_seq":2}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadRelayOff(t *testing.T) {
	payload, err := FormatPayload(Event{
		Timestamp: time.Now(),
		Decision:  control.TurnOff,
		Reason:    control.ReasonOutOfSchedule,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Lamp.Relay.State != "OFF" {
		t.Errorf("relay state: got %s, want OFF", parsed.Lamp.Relay.State)
	}
	if parsed.Lamp.Reason != "OUT_OF_SCHEDULE" {
		t.Errorf("reason: got %s", parsed.Lamp.Reason)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	payload, _ := FormatPayload(Event{Timestamp: time.Date(2026, 2, 2, 23, 0, 0, 0, loc)})

	var parsed Payload
	json.Unmarshal(payload, &parsed)
	if parsed.Lamp.Timestamp != "2026-02-02T22:00:00Z" {
		t.Errorf("timestamp not converted to UTC: %s", parsed.Lamp.Timestamp)
	}
}

func TestNewEvent(t *testing.T) {
	ts := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	o := control.Outcome{Verdict: control.VerdictBrightTurnOff, DecisionSeq: 12, RelayChangeSeq: 4}

	e := NewEvent(ts, o, false, 850)
	if e.Decision != control.TurnOff || e.Reason != control.ReasonInScheduleBright {
		t.Errorf("verdict: got %s/%s", e.Decision, e.Reason)
	}
	if e.DecisionSeq != 12 || e.RelayChangeSeq != 4 {
		t.Errorf("seqs: got %d/%d", e.DecisionSeq, e.RelayChangeSeq)
	}
	if e.AverageLux != 850 || e.RelayOn || !e.Timestamp.Equal(ts) {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "garden/plant-light/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "garden/plant-light/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadReconnectedOmitsReason(t *testing.T) {
	payload, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	})

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload not passed through: %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(Event{Decision: control.TurnOn, Reason: control.ReasonInScheduleDark, RelayOn: true})
	f.Publish(Event{Decision: control.TurnOff, Reason: control.ReasonOutOfSchedule})

	if len(f.Events) != 2 || len(f.Payloads) != 2 {
		t.Fatalf("expected 2 events and payloads, got %d/%d", len(f.Events), len(f.Payloads))
	}
	if f.Events[0].Decision != control.TurnOn || f.Events[1].Decision != control.TurnOff {
		t.Error("events out of order")
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	f.PublishSystemError = errors.New("broker down")

	if err := f.Publish(Event{}); err == nil {
		t.Error("expected publish error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("expected publish system error")
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherSystemEvents(t *testing.T) {
	f := NewFakePublisher()
	f.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true})
	f.PublishSystem(SystemEvent{Event: "HEARTBEAT"})

	names := f.SystemEventNames()
	if len(names) != 2 || names[0] != "STARTUP" || names[1] != "HEARTBEAT" {
		t.Errorf("unexpected names %v", names)
	}
	if !f.SystemEvents[0].Retained || f.SystemEvents[1].Retained {
		t.Error("retained flag not recorded")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(Event{})
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Connected = true
	f.Close()
	f.Reset()

	if f.Events != nil || f.SystemEvents != nil || f.Closed || f.Connected {
		t.Error("Reset did not clear state")
	}
	if err := f.Publish(Event{}); err != nil {
		t.Errorf("reusable after reset: %v", err)
	}
}

var _ Publisher = (*RealPublisher)(nil)
var _ ConnectionStatus = (*RealPublisher)(nil)
