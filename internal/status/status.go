// Package status provides a thread-safe status tracker for the plant-light
// daemon. It is read by the HTTP handlers and by the heartbeat publisher.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/plant-light/internal/clock"
	"github.com/sweeney/plant-light/internal/control"
	"github.com/sweeney/plant-light/internal/timesync"
)

// NetworkInfo contains network state, as reported by the host environment.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Schedule     string
	LuxThreshold float64
	CheckMs      int64
	PollMs       int64
	MinSwitchMs  int64
	Samples      int
	TimeSource   string
	HeartbeatMs  int64
	Broker       string
	HTTPAddr     string
}

// Lamp is the controller-side state copied in on every tick.
type Lamp struct {
	RelayOn   bool
	Automatic bool
	Last      control.Outcome
	HasRun    bool
	// SinceSwitch is the time since the relay last changed state.
	SinceSwitch clock.Millis
	// ComponentsHealthy is true when time, sensor and relay all pass the
	// controller's checks.
	ComponentsHealthy bool
}

// Light is the sensor-side state copied in on every tick.
type Light struct {
	AverageLux float64
	RawLux     float64
	Healthy    bool
	Readings   uint64
	Resident   int
	// SinceReading is only meaningful when HasReading is set.
	SinceReading clock.Millis
	HasReading   bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Lamp          Lamp
	Light         Light
	Time          timesync.Validity
	SyncCount     uint64
	Clock         string
	Offset        time.Duration
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Time:      timesync.Validity{Hour: timesync.NoHour, SyncAge: timesync.NeverSynced},
		},
	}
}

// Update replaces the lamp, light and time state. Called from runLoop on
// every tick.
func (t *Tracker) Update(lamp Lamp, light Light, tv timesync.Validity) {
	t.mu.Lock()
	t.snap.Lamp = lamp
	t.snap.Light = light
	t.snap.Time = tv
	t.mu.Unlock()
}

// SetSyncCount records the number of successful time syncs.
func (t *Tracker) SetSyncCount(n uint64) {
	t.mu.Lock()
	t.snap.SyncCount = n
	t.mu.Unlock()
}

// SetClock records the corrected local time and the last measured offset
// from the time server.
func (t *Tracker) SetClock(local string, offset time.Duration) {
	t.mu.Lock()
	t.snap.Clock = local
	t.snap.Offset = offset
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

// HeartbeatDue reports whether a heartbeat should be sent at now, given the
// time of the last one. A zero interval disables heartbeats.
func HeartbeatDue(last, now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	return now.Sub(last) >= interval
}
