package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/plant-light/internal/clock"
	"github.com/sweeney/plant-light/internal/schedule"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plant-light.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultsMatchFirmware(t *testing.T) {
	cfg := Default()
	if cfg.Schedule != (schedule.Window{StartHour: 8, EndHour: 23}) {
		t.Errorf("schedule: got %v", cfg.Schedule)
	}
	if cfg.LuxThreshold != 100 {
		t.Errorf("lux threshold: got %v", cfg.LuxThreshold)
	}
	if cfg.Sensor.Samples != 5 {
		t.Errorf("samples: got %d", cfg.Sensor.Samples)
	}
	if cfg.CheckInterval != 30*time.Second {
		t.Errorf("check interval: got %v", cfg.CheckInterval)
	}
	if cfg.Relay.MinSwitchInterval != time.Minute {
		t.Errorf("min switch: got %v", cfg.Relay.MinSwitchInterval)
	}
	if cfg.Time.SyncInterval != 24*time.Hour {
		t.Errorf("sync interval: got %v", cfg.Time.SyncInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LuxThreshold != Default().LuxThreshold {
		t.Error("expected defaults")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
schedule:
  start_hour: 22
  end_hour: 6
lux_threshold: 42.5
check_interval: 10s
relay:
  pin: 27
  active_low: true
  min_switch_interval: 2m
sensor:
  bus: "1"
  address: 0x10
  samples: 8
time:
  source: system
  location: UTC
mqtt:
  broker: ""
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule != (schedule.Window{StartHour: 22, EndHour: 6}) {
		t.Errorf("schedule: got %v", cfg.Schedule)
	}
	if cfg.LuxThreshold != 42.5 {
		t.Errorf("lux threshold: got %v", cfg.LuxThreshold)
	}
	if cfg.CheckInterval != 10*time.Second {
		t.Errorf("check interval: got %v", cfg.CheckInterval)
	}
	if cfg.Relay.Pin != 27 || !cfg.Relay.ActiveLow || cfg.Relay.MinSwitchInterval != 2*time.Minute {
		t.Errorf("relay: got %+v", cfg.Relay)
	}
	if cfg.Sensor.Bus != "1" || cfg.Sensor.Address != 0x10 || cfg.Sensor.Samples != 8 {
		t.Errorf("sensor: got %+v", cfg.Sensor)
	}
	if cfg.Time.Source != TimeSourceSystem {
		t.Errorf("time source: got %q", cfg.Time.Source)
	}
	if cfg.MQTT.Broker != "" {
		t.Errorf("broker: got %q", cfg.MQTT.Broker)
	}
	// Untouched fields keep defaults.
	if cfg.Poll != time.Second {
		t.Errorf("poll: got %v", cfg.Poll)
	}
	if cfg.Time.Server != "pool.ntp.org" {
		t.Errorf("server: got %q", cfg.Time.Server)
	}
}

func TestLoadRejectsZeroWidthSchedule(t *testing.T) {
	path := writeConfig(t, "schedule:\n  start_hour: 7\n  end_hour: 7\n")
	_, err := Load(path)
	if !errors.Is(err, schedule.ErrZeroWidth) {
		t.Errorf("got %v, want ErrZeroWidth", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "schedule: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.LuxThreshold = 0
	cfg.Sensor.Samples = 0
	cfg.Time.Source = "gps"
	cfg.Time.Location = "Nowhere/Special"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"lux_threshold", "sensor.samples", "time.source", "time.location"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidateRejectsIntervalsBeyondCounterRange(t *testing.T) {
	cfg := Default()
	cfg.CheckInterval = 50 * 24 * time.Hour
	cfg.Relay.MinSwitchInterval = clock.MaxDuration + time.Millisecond
	cfg.Time.SyncInterval = 60 * 24 * time.Hour

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"check_interval", "relay.min_switch_interval", "time.sync_interval"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}

	cfg = Default()
	cfg.Relay.MinSwitchInterval = clock.MaxDuration
	if err := cfg.Validate(); err != nil {
		t.Errorf("longest representable dwell should be accepted: %v", err)
	}
}

func TestControlAndDwell(t *testing.T) {
	cfg := Default()
	cc := cfg.Control()
	if cc.UpdateInterval != 30000 {
		t.Errorf("update interval: got %d", cc.UpdateInterval)
	}
	if cc.Schedule != cfg.Schedule || cc.LuxThreshold != cfg.LuxThreshold {
		t.Errorf("control config mismatch: %+v", cc)
	}
	if cfg.MinDwell() != 60000 {
		t.Errorf("min dwell: got %d", cfg.MinDwell())
	}
}
