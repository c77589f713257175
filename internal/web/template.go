package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/plant-light/internal/clock"
	"github.com/sweeney/plant-light/internal/status"
	"github.com/sweeney/plant-light/internal/timesync"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"lux": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
	"syncAge": func(v timesync.Validity) string {
		if v.SyncAge == timesync.NeverSynced {
			return "never"
		}
		return v.SyncAge.Duration().Truncate(time.Second).String() + " ago"
	},
	"age": func(m clock.Millis) string {
		return m.Duration().Truncate(time.Second).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Plant Light</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.warn { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Plant Light</h1>

<h2>Lamp</h2>
<table>
<tr><th>Relay</th><td id="relay-state" class="{{if .Lamp.RelayOn}}on{{else}}off{{end}}">{{if .Lamp.RelayOn}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Automatic</th><td class="{{if .Lamp.Automatic}}on{{else}}warn{{end}}">{{if .Lamp.Automatic}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>Last decision</th><td>{{if .Lamp.HasRun}}{{.Lamp.Last.Verdict}}{{if .Lamp.Last.Rejected}} <span class="warn">(rejected)</span>{{end}}{{else}}none yet{{end}}</td></tr>
<tr><th>Decisions</th><td>{{.Lamp.Last.DecisionSeq}}</td></tr>
<tr><th>Relay changes</th><td>{{.Lamp.Last.RelayChangeSeq}}</td></tr>
<tr><th>Since switch</th><td>{{age .Lamp.SinceSwitch}}</td></tr>
<tr><th>Components</th><td class="{{if .Lamp.ComponentsHealthy}}connected{{else}}disconnected{{end}}">{{if .Lamp.ComponentsHealthy}}ok{{else}}fault{{end}}</td></tr>
</table>

<h2>Light</h2>
<table>
<tr><th>Average</th><td>{{lux .Light.AverageLux}} lux</td></tr>
<tr><th>Last reading</th><td>{{lux .Light.RawLux}} lux</td></tr>
<tr><th>Sensor</th><td class="{{if .Light.Healthy}}connected{{else}}disconnected{{end}}">{{if .Light.Healthy}}healthy{{else}}stale{{end}}</td></tr>
<tr><th>Samples</th><td>{{.Light.Resident}} of {{.Config.Samples}}</td></tr>
<tr><th>Readings</th><td>{{.Light.Readings}}</td></tr>
<tr><th>Since reading</th><td>{{if .Light.HasReading}}{{age .Light.SinceReading}}{{else}}never{{end}}</td></tr>
</table>

<h2>Time</h2>
<table>
<tr><th>Valid</th><td class="{{if .Time.Valid}}connected{{else}}disconnected{{end}}">{{if .Time.Valid}}yes{{else}}no{{end}}</td></tr>
<tr><th>Hour</th><td>{{if .Time.Valid}}{{.Time.Hour}}{{else}}-{{end}}</td></tr>
<tr><th>Last sync</th><td>{{syncAge .Time}}</td></tr>
<tr><th>Syncs</th><td>{{.SyncCount}}</td></tr>
{{if .Clock}}<tr><th>Clock</th><td id="clock">{{.Clock}}</td></tr>
<tr><th>Offset</th><td>{{.Offset}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Schedule</th><td>{{.Config.Schedule}}</td></tr>
<tr><th>Threshold</th><td>{{lux .Config.LuxThreshold}} lux</td></tr>
<tr><th>Check</th><td>{{.Config.CheckMs}}ms</td></tr>
<tr><th>Min switch</th><td>{{.Config.MinSwitchMs}}ms</td></tr>
<tr><th>Time source</th><td>{{.Config.TimeSource}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
