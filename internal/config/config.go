// Package config loads the daemon configuration from an optional YAML file
// layered over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/plant-light/internal/clock"
	"github.com/sweeney/plant-light/internal/control"
	"github.com/sweeney/plant-light/internal/relay"
	"github.com/sweeney/plant-light/internal/schedule"
	"github.com/sweeney/plant-light/internal/sensor"
	"github.com/sweeney/plant-light/internal/timesync"
)

// Time source kinds.
const (
	TimeSourceNTP    = "ntp"
	TimeSourceSystem = "system"
)

// Config is the full daemon configuration. It is fixed for the life of the
// process.
type Config struct {
	Schedule      schedule.Window `yaml:"schedule"`
	LuxThreshold  float64         `yaml:"lux_threshold"`
	CheckInterval time.Duration   `yaml:"check_interval"`
	Poll          time.Duration   `yaml:"poll"`

	Relay  RelayConfig  `yaml:"relay"`
	Sensor SensorConfig `yaml:"sensor"`
	Time   TimeConfig   `yaml:"time"`
	MQTT   MQTTConfig   `yaml:"mqtt"`

	HTTPAddr string `yaml:"http"`
	LogLevel string `yaml:"log_level"`
}

// RelayConfig describes the relay output.
type RelayConfig struct {
	Chip              string        `yaml:"chip"`
	Pin               int           `yaml:"pin"`
	ActiveLow         bool          `yaml:"active_low"`
	MinSwitchInterval time.Duration `yaml:"min_switch_interval"`
}

// SensorConfig describes the light sensor and smoothing.
type SensorConfig struct {
	Bus        string  `yaml:"bus"`
	Address    uint16  `yaml:"address"`
	Samples    int     `yaml:"samples"`
	CeilingLux float64 `yaml:"ceiling_lux"`
}

// TimeConfig selects and configures the wall-clock source.
type TimeConfig struct {
	Source       string        `yaml:"source"`
	Server       string        `yaml:"server"`
	Location     string        `yaml:"location"`
	SyncInterval time.Duration `yaml:"sync_interval"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// MQTTConfig configures event publishing. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Schedule:      schedule.Window{StartHour: 8, EndHour: 23},
		LuxThreshold:  100,
		CheckInterval: 30 * time.Second,
		Poll:          time.Second,
		Relay: RelayConfig{
			Chip:              relay.DefaultChip,
			Pin:               relay.DefaultPin,
			MinSwitchInterval: time.Minute,
		},
		Sensor: SensorConfig{
			Address:    sensor.DefaultVEML7700Addr,
			Samples:    5,
			CeilingLux: sensor.DefaultCeilingLux,
		},
		Time: TimeConfig{
			Source:       TimeSourceNTP,
			Server:       timesync.DefaultServer,
			Location:     "Local",
			SyncInterval: timesync.DefaultSyncInterval,
			QueryTimeout: timesync.DefaultQueryTimeout,
		},
		MQTT: MQTTConfig{
			Broker:    "tcp://192.168.1.200:1883",
			ClientID:  "plant-light",
			Heartbeat: 15 * time.Minute,
		},
		HTTPAddr: ":80",
		LogLevel: "info",
	}
}

// Load reads path over the defaults and validates the result. An empty
// path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the controller cannot run safely.
func (c Config) Validate() error {
	var errs []error

	if err := c.Schedule.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.LuxThreshold <= 0 {
		errs = append(errs, fmt.Errorf("lux_threshold must be positive, got %v", c.LuxThreshold))
	}
	if c.CheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("check_interval must be positive, got %v", c.CheckInterval))
	}
	if c.Poll <= 0 {
		errs = append(errs, fmt.Errorf("poll must be positive, got %v", c.Poll))
	}
	if c.Relay.MinSwitchInterval < 0 {
		errs = append(errs, fmt.Errorf("relay.min_switch_interval must not be negative, got %v", c.Relay.MinSwitchInterval))
	}
	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"check_interval", c.CheckInterval},
		{"relay.min_switch_interval", c.Relay.MinSwitchInterval},
		{"time.sync_interval", c.Time.SyncInterval},
	} {
		if d.val > clock.MaxDuration {
			errs = append(errs, fmt.Errorf("%s must not exceed %v, got %v", d.name, clock.MaxDuration, d.val))
		}
	}
	if c.Relay.Pin < 0 {
		errs = append(errs, fmt.Errorf("relay.pin must not be negative, got %d", c.Relay.Pin))
	}
	if c.Sensor.Samples <= 0 {
		errs = append(errs, fmt.Errorf("sensor.samples must be positive, got %d", c.Sensor.Samples))
	}
	switch c.Time.Source {
	case TimeSourceNTP, TimeSourceSystem:
	default:
		errs = append(errs, fmt.Errorf("time.source must be %q or %q, got %q", TimeSourceNTP, TimeSourceSystem, c.Time.Source))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Location resolves the configured time zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Time.Location)
	if err != nil {
		return nil, fmt.Errorf("time.location %q: %w", c.Time.Location, err)
	}
	return loc, nil
}

// Control returns the controller settings.
func (c Config) Control() control.Config {
	return control.Config{
		Schedule:       c.Schedule,
		LuxThreshold:   c.LuxThreshold,
		UpdateInterval: clock.FromDuration(c.CheckInterval),
	}
}

// MinDwell returns the relay dwell interval as a counter value.
func (c Config) MinDwell() clock.Millis {
	return clock.FromDuration(c.Relay.MinSwitchInterval)
}
