package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/robot-subsystems/internal/status"
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
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"ms": func(d time.Duration) string {
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Robot</title>
<style>
body { font-family: monospace; max-width: 700px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.enabled { color: green; font-weight: bold; }
.disabled { color: #888; }
.estopped { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.ERROR { color: red; }
.WARNING { color: orange; }
button { font-family: monospace; margin-right: 4px; }
</style>
</head>
<body>
<h1>Robot <span class="{{.Mode}}">{{orUnknown .Mode}}</span></h1>
<p>
<button onclick="post('/mode', {mode: 'enabled'})">Enable</button>
<button onclick="post('/mode', {mode: 'disabled'})">Disable</button>
<button onclick="post('/mode', {mode: 'estopped'})">E-Stop</button>
</p>

<h2>Subsystems</h2>
<table>
<tr><th>Name</th><th>State</th><th>Setpoint</th><th>Motor</th></tr>
{{range .Subsystems}}<tr><td>{{.Name}}</td><td>{{.State}}</td><td>{{printf "%.3f" .Setpoint}}</td><td class="{{if .Connected}}connected{{else}}disconnected{{end}}">{{if .Connected}}connected{{else}}disconnected{{end}}</td></tr>
{{end}}</table>

<h2>Alerts</h2>
{{if .Alerts}}<table>
{{range .Alerts}}<tr><td class="{{.Level}}">{{.Level}}</td><td>{{.Text}}</td><td>{{.ActiveSince.UTC.Format "15:04:05Z"}}</td></tr>
{{end}}</table>{{else}}<p>none</p>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Loop</h2>
<table>
<tr><th>Period</th><td>{{.Config.LoopPeriodMs}}ms</td></tr>
<tr><th>Cycles</th><td>{{.Loop.Cycles}}</td></tr>
<tr><th>Overruns</th><td>{{.Loop.Overruns}}</td></tr>
<tr><th>Last</th><td>{{ms .Loop.LastDuration}}</td></tr>
<tr><th>Max</th><td>{{ms .Loop.MaxDuration}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Session</th><td>{{.SessionID}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Run mode</th><td>{{.Config.RunMode}}</td></tr>
<tr><th>Config</th><td>v{{.Config.Version}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/metrics">metrics</a></p>
<script>
function post(path, body) {
  fetch(path, {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body)})
    .then(function(r) { return r.json(); })
    .then(function(j) { if (j.error) { alert(j.error); } location.reload(); });
}
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
