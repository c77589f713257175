package main

import (
	"os"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/plant-light/internal/clock"
	"github.com/sweeney/plant-light/internal/control"
	"github.com/sweeney/plant-light/internal/metrics"
	"github.com/sweeney/plant-light/internal/mqtt"
	"github.com/sweeney/plant-light/internal/relay"
	"github.com/sweeney/plant-light/internal/sensor"
	"github.com/sweeney/plant-light/internal/status"
	"github.com/sweeney/plant-light/internal/timesync"
	"github.com/sweeney/plant-light/internal/web"
)

// loop owns every component. All access happens on the goroutine running
// run; the web server reaches the controller only through the command
// channel.
type loop struct {
	reader     sensor.Reader
	agg        *sensor.Aggregator
	guard      *relay.Guard
	timeSource timesync.Keeper
	ctrl       *control.Controller
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	heartbeat  time.Duration
	now        func() time.Time
	millis     func() clock.Millis

	lastHeartbeat time.Time
	published     bool
	lastVerdict   control.Verdict
	readFailing   bool
}

// syncReporter is implemented by time sources that sync against a server.
type syncReporter interface {
	SyncCount() uint64
	Format() string
	Offset() time.Duration
}

// startup publishes the retained STARTUP event with a full snapshot.
func (l *loop) startup() {
	l.lastHeartbeat = l.now()
	l.refresh(l.millis())

	snap := l.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Error().Err(err).Msg("failed to publish startup event")
	} else {
		log.Info().Msg("published startup event")
	}
}

func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal, commands <-chan web.Command) error {
	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case c := <-commands:
			l.command(c)

		case <-tick:
			l.step()
		}
	}
}

// step is one loop iteration: refresh inputs, tick the controller, report.
func (l *loop) step() {
	ms := l.millis()

	if err := l.timeSource.Update(ms); err != nil {
		log.Warn().Err(err).Msg("time sync failed")
		l.metrics.ObserveSyncError()
	}
	l.readSensor(ms)

	if o, ran := l.ctrl.Update(ms); ran {
		l.record(o)
	}

	l.refresh(ms)
	l.maybeHeartbeat()
}

func (l *loop) readSensor(ms clock.Millis) {
	lux, err := l.reader.ReadLux()
	if err != nil {
		l.metrics.ObserveReading(metrics.ResultError)
		if !l.readFailing {
			log.Warn().Err(err).Msg("sensor read failed")
			l.readFailing = true
		}
		return
	}
	if l.readFailing {
		log.Info().Msg("sensor reads recovered")
		l.readFailing = false
	}

	if err := l.agg.Submit(lux, ms); err != nil {
		l.metrics.ObserveReading(metrics.ResultRejected)
		log.Debug().Err(err).Msg("discarded reading")
		return
	}
	l.metrics.ObserveReading(metrics.ResultAccepted)
}

// record logs, counts and publishes an executed tick. An MQTT event is sent
// when the relay changed or the verdict differs from the last one sent.
func (l *loop) record(o control.Outcome) {
	l.metrics.ObserveOutcome(o)

	ev := log.Debug()
	switch {
	case o.Err != nil:
		ev = log.Error().Err(o.Err)
	case o.Rejected:
		ev = log.Warn()
	case o.Committed:
		ev = log.Info()
	}
	ev.Str("decision", string(o.Decision())).
		Str("reason", string(o.Reason())).
		Bool("relay_on", l.guard.Energized()).
		Float64("avg_lux", l.agg.Average()).
		Bool("rejected", o.Rejected).
		Uint64("seq", o.DecisionSeq).
		Msg("decision")

	if !o.Committed && l.published && o.Verdict == l.lastVerdict {
		return
	}
	event := mqtt.NewEvent(l.now(), o, l.guard.Energized(), l.agg.Average())
	if err := l.publisher.Publish(event); err != nil {
		log.Error().Err(err).Msg("publish error")
		return
	}
	l.published = true
	l.lastVerdict = o.Verdict
}

func (l *loop) command(c web.Command) {
	ms := l.millis()
	log.Info().Stringer("command", c).Msg("manual command")

	switch c {
	case web.CommandEnable:
		if err := l.ctrl.SetAutomaticControl(true, ms); err != nil {
			log.Error().Err(err).Msg("enable automatic control")
		}
	case web.CommandDisable:
		if err := l.ctrl.SetAutomaticControl(false, ms); err != nil {
			log.Error().Err(err).Msg("disable automatic control: relay write failed")
		}
	case web.CommandEvaluate:
		if o, ran := l.ctrl.ForceUpdate(ms); ran {
			l.record(o)
		} else {
			log.Warn().Msg("evaluate skipped: automatic control disabled")
		}
	}
	l.refresh(ms)
}

// refresh copies component state into the tracker and the gauges.
func (l *loop) refresh(ms clock.Millis) {
	tv := l.timeSource.Validity(ms)
	healthy := l.agg.IsHealthy(ms)
	sinceReading, hasReading := l.agg.SinceLastReading(ms)

	l.tracker.Update(
		status.Lamp{
			RelayOn:   l.guard.Energized(),
			Automatic: l.ctrl.AutomaticControl(),
			Last:      l.ctrl.LastOutcome(),
			HasRun:    l.ctrl.DecisionCount() > 0,

			SinceSwitch:       l.guard.SinceLastTransition(ms),
			ComponentsHealthy: l.ctrl.ComponentsHealthy(ms),
		},
		status.Light{
			AverageLux: l.agg.Average(),
			RawLux:     l.agg.LastRaw(),
			Healthy:    healthy,
			Readings:   l.agg.ReadingCount(),
			Resident:   l.agg.Resident(),

			SinceReading: sinceReading,
			HasReading:   hasReading,
		},
		tv,
	)
	if sr, ok := l.timeSource.(syncReporter); ok {
		l.tracker.SetSyncCount(sr.SyncCount())
		l.tracker.SetClock(sr.Format(), sr.Offset())
	}
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}

	l.metrics.SetState(metrics.State{
		AverageLux:    l.agg.Average(),
		RelayOn:       l.guard.Energized(),
		TimeValid:     tv.Valid,
		SensorHealthy: healthy,
		Automatic:     l.ctrl.AutomaticControl(),
	})
}

func (l *loop) maybeHeartbeat() {
	t := l.now()
	if !status.HeartbeatDue(l.lastHeartbeat, t, l.heartbeat) {
		return
	}
	l.lastHeartbeat = t

	// Refresh network info for heartbeat
	if net := readNetworkInfo(); net != nil {
		l.tracker.SetNetwork(net)
	}
	snap := l.tracker.Snapshot()
	log.Info().
		Dur("uptime", snap.Uptime()).
		Bool("relay_on", snap.Lamp.RelayOn).
		Float64("avg_lux", snap.Light.AverageLux).
		Uint64("decisions", l.ctrl.DecisionCount()).
		Uint64("relay_changes", l.ctrl.RelayChanges()).
		Msg("heartbeat")

	event := mqtt.SystemEvent{
		Timestamp:  t,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Error().Err(err).Msg("heartbeat publish error")
	}
}

// shutdown forces the lamp off before announcing SHUTDOWN, so the retained
// status never reports a lamp left on.
func (l *loop) shutdown(s os.Signal) {
	log.Info().Stringer("signal", s).Msg("shutting down")
	ms := l.millis()

	if err := l.guard.EmergencyOff(ms); err != nil {
		log.Error().Err(err).Msg("emergency off failed")
	}
	l.refresh(ms)

	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}
	snap := l.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      "SHUTDOWN",
		Reason:     signalName,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Error().Err(err).Msg("failed to publish shutdown event")
	} else {
		log.Info().Msg("published shutdown event")
	}
}
