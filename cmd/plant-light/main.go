// Command plant-light drives a grow-lamp relay from a daily schedule and an
// ambient light sensor, publishing decisions to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/plant-light/internal/clock"
	"github.com/sweeney/plant-light/internal/config"
	"github.com/sweeney/plant-light/internal/control"
	"github.com/sweeney/plant-light/internal/metrics"
	"github.com/sweeney/plant-light/internal/mqtt"
	"github.com/sweeney/plant-light/internal/relay"
	"github.com/sweeney/plant-light/internal/schedule"
	"github.com/sweeney/plant-light/internal/sensor"
	"github.com/sweeney/plant-light/internal/status"
	"github.com/sweeney/plant-light/internal/timesync"
	"github.com/sweeney/plant-light/internal/web"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults if empty)")
	printState := flag.Bool("print-state", false, "Print current light level and time, then exit")
	httpAddr := flag.String("http", "", "HTTP status address, overrides config (empty string disables)")
	broker := flag.String("broker", "", "MQTT broker address, overrides config (empty string disables)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "broker":
			cfg.MQTT.Broker = *broker
		}
	})

	if err := setupLogging(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stderr
	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return nil
}

func run(cfg config.Config, printState bool) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	mono := clock.NewMonotonic()

	// Initialize sensor
	reader, err := sensor.NewVEML7700(cfg.Sensor.Bus, cfg.Sensor.Address)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer reader.Close()

	timeSource := newTimeSource(cfg, loc)

	// Print state mode
	if printState {
		return printCurrentState(os.Stdout, reader, timeSource, cfg.Schedule, mono.Now())
	}

	// Initialize relay, driven off until the first decision
	out, err := relay.NewRealOutput(cfg.Relay.Chip, cfg.Relay.Pin, cfg.Relay.ActiveLow)
	if err != nil {
		return fmt.Errorf("init relay: %w", err)
	}
	defer out.Close()

	guard := relay.NewGuard(out, cfg.MinDwell())
	if err := guard.Init(mono.Now()); err != nil {
		return fmt.Errorf("init relay: %w", err)
	}

	agg, err := sensor.NewAggregator(cfg.Sensor.Samples, cfg.Sensor.CeilingLux)
	if err != nil {
		return fmt.Errorf("init aggregator: %w", err)
	}

	ctrl, err := control.New(cfg.Control(), timeSource, agg, guard)
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}

	// Initialize MQTT
	var publisher mqtt.Publisher = nopPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		p := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		defer p.Close()
		publisher, mqttStatus = p, p
	}

	m := metrics.New()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Start HTTP status server
	commands := make(chan web.Command, 4)
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, m.Handler(), commands)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	log.Info().
		Stringer("schedule", cfg.Schedule).
		Float64("threshold_lux", cfg.LuxThreshold).
		Dur("check", cfg.CheckInterval).
		Dur("poll", cfg.Poll).
		Dur("min_switch", cfg.Relay.MinSwitchInterval).
		Str("time_source", cfg.Time.Source).
		Str("broker", cfg.MQTT.Broker).
		Msg("started")

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		reader:     reader,
		agg:        agg,
		guard:      guard,
		timeSource: timeSource,
		ctrl:       ctrl,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		metrics:    m,
		heartbeat:  cfg.MQTT.Heartbeat,
		now:        time.Now,
		millis:     mono.Now,
	}
	l.startup()
	return l.run(ticker.C, sigCh, commands)
}

func newTimeSource(cfg config.Config, loc *time.Location) timesync.Keeper {
	if cfg.Time.Source == config.TimeSourceSystem {
		return timesync.NewSystemSource(loc, time.Now)
	}
	return timesync.NewNTPSource(timesync.NTPConfig{
		Server:       cfg.Time.Server,
		Location:     loc,
		SyncInterval: cfg.Time.SyncInterval,
		Query:        timesync.QueryNTP(cfg.Time.QueryTimeout),
		Wall:         time.Now,
	})
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		Schedule:     cfg.Schedule.String(),
		LuxThreshold: cfg.LuxThreshold,
		CheckMs:      cfg.CheckInterval.Milliseconds(),
		PollMs:       cfg.Poll.Milliseconds(),
		MinSwitchMs:  cfg.Relay.MinSwitchInterval.Milliseconds(),
		Samples:      cfg.Sensor.Samples,
		TimeSource:   cfg.Time.Source,
		HeartbeatMs:  cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:       cfg.MQTT.Broker,
		HTTPAddr:     cfg.HTTPAddr,
	}
}

// printCurrentState takes one sensor reading and one time sample.
func printCurrentState(w io.Writer, reader sensor.Reader, ts timesync.Keeper, win schedule.Window, now clock.Millis) error {
	lux, err := reader.ReadLux()
	if err != nil {
		return fmt.Errorf("read sensor: %w", err)
	}
	if err := ts.Update(now); err != nil {
		log.Warn().Err(err).Msg("time sync failed")
	}

	fmt.Fprintf(w, "Light: %.1f lux\n", lux)
	if !ts.IsValid() {
		fmt.Fprintln(w, "Time: no time available")
		return nil
	}
	hour := ts.CurrentHour()
	fmt.Fprintf(w, "Hour: %d, schedule %s: %s\n", hour, win, inOut(schedule.InWindow(win, hour)))
	return nil
}

func inOut(in bool) string {
	if in {
		return "in window"
	}
	return "out of window"
}

// nopPublisher stands in when MQTT is disabled.
type nopPublisher struct{}

func (nopPublisher) Publish(mqtt.Event) error             { return nil }
func (nopPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (nopPublisher) Close() error                         { return nil }

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
