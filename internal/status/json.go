package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/plant-light/internal/clock"
	"github.com/sweeney/plant-light/internal/timesync"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Relay         string       `json:"relay"`
	Automatic     bool         `json:"automatic"`
	Decision      DecisionJSON `json:"decision"`
	Light         LightJSON    `json:"light"`
	Time          TimeJSON     `json:"time"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// DecisionJSON is the most recent controller outcome.
type DecisionJSON struct {
	Decision       string `json:"decision"`
	Reason         string `json:"reason"`
	Summary        string `json:"summary"`
	DecisionSeq    uint64 `json:"decision_seq"`
	RelayChangeSeq uint64 `json:"relay_change_seq"`
	Rejected       bool   `json:"rejected,omitempty"`
	// SinceSwitchSeconds is the time since the relay last changed state.
	SinceSwitchSeconds int64 `json:"since_switch_seconds"`
	ComponentsHealthy  bool  `json:"components_healthy"`
}

// LightJSON is the sensor state.
type LightJSON struct {
	AverageLux float64 `json:"average_lux"`
	RawLux     float64 `json:"raw_lux"`
	Healthy    bool    `json:"healthy"`
	Readings   uint64  `json:"readings"`
	Samples    int     `json:"samples"`
	// SinceReadingSeconds is omitted until a reading has been accepted.
	SinceReadingSeconds *int64 `json:"since_reading_seconds,omitempty"`
}

// TimeJSON is the time source state. Hour and SyncAgeSeconds are omitted
// when unknown.
type TimeJSON struct {
	Valid          bool   `json:"valid"`
	Hour           *int   `json:"hour,omitempty"`
	SyncAgeSeconds *int64 `json:"sync_age_seconds,omitempty"`
	SyncCount      uint64 `json:"sync_count"`
	Clock          string `json:"clock,omitempty"`
	OffsetMs       int64  `json:"offset_ms"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Schedule     string  `json:"schedule"`
	LuxThreshold float64 `json:"lux_threshold"`
	CheckMs      int64   `json:"check_ms"`
	PollMs       int64   `json:"poll_ms"`
	MinSwitchMs  int64   `json:"min_switch_ms"`
	Samples      int     `json:"samples"`
	TimeSource   string  `json:"time_source"`
	HeartbeatMs  int64   `json:"heartbeat_ms"`
	Broker       string  `json:"broker"`
	HTTPAddr     string  `json:"http_addr"`
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func buildDecision(snap Snapshot) DecisionJSON {
	if !snap.Lamp.HasRun {
		return DecisionJSON{
			Decision:           "NONE",
			Reason:             "NONE",
			Summary:            "no decision yet",
			SinceSwitchSeconds: seconds(snap.Lamp.SinceSwitch),
			ComponentsHealthy:  snap.Lamp.ComponentsHealthy,
		}
	}
	o := snap.Lamp.Last
	return DecisionJSON{
		Decision:           string(o.Decision()),
		Reason:             string(o.Reason()),
		Summary:            o.Verdict.String(),
		DecisionSeq:        o.DecisionSeq,
		RelayChangeSeq:     o.RelayChangeSeq,
		Rejected:           o.Rejected,
		SinceSwitchSeconds: seconds(snap.Lamp.SinceSwitch),
		ComponentsHealthy:  snap.Lamp.ComponentsHealthy,
	}
}

func seconds(m clock.Millis) int64 {
	return int64(m.Duration().Seconds())
}

func buildLight(snap Snapshot) LightJSON {
	lj := LightJSON{
		AverageLux: snap.Light.AverageLux,
		RawLux:     snap.Light.RawLux,
		Healthy:    snap.Light.Healthy,
		Readings:   snap.Light.Readings,
		Samples:    snap.Light.Resident,
	}
	if snap.Light.HasReading {
		s := seconds(snap.Light.SinceReading)
		lj.SinceReadingSeconds = &s
	}
	return lj
}

func buildTime(snap Snapshot) TimeJSON {
	tj := TimeJSON{
		Valid:     snap.Time.Valid,
		SyncCount: snap.SyncCount,
		Clock:     snap.Clock,
		OffsetMs:  snap.Offset.Milliseconds(),
	}
	if snap.Time.Valid && snap.Time.Hour != timesync.NoHour {
		h := snap.Time.Hour
		tj.Hour = &h
	}
	if snap.Time.SyncAge != timesync.NeverSynced {
		age := seconds(snap.Time.SyncAge)
		tj.SyncAgeSeconds = &age
	}
	return tj
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Relay:         onOff(snap.Lamp.RelayOn),
		Automatic:     snap.Lamp.Automatic,
		Decision:      buildDecision(snap),
		Light:         buildLight(snap),
		Time:          buildTime(snap),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Schedule:     snap.Config.Schedule,
			LuxThreshold: snap.Config.LuxThreshold,
			CheckMs:      snap.Config.CheckMs,
			PollMs:       snap.Config.PollMs,
			MinSwitchMs:  snap.Config.MinSwitchMs,
			Samples:      snap.Config.Samples,
			TimeSource:   snap.Config.TimeSource,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
