package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/skiptrack/internal/status"
	"github.com/sweeney/skiptrack/internal/workout"
)

type indexPage struct {
	status.Snapshot
	Plans        []workout.Plan
	Achievements []workout.Achievement
}

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		return d.Truncate(time.Second).String()
	},
	"mmss": workout.FormatDuration,
	"pct": func(r float64) string {
		return fmt.Sprintf("%.0f%%", r*100)
	},
	"sub": func(a, b time.Duration) time.Duration { return a - b },
	"inc": func(i int) int { return i + 1 },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Skiptrack</title>
<style>
body { font: 14px/1.4 sans-serif; max-width: 40em; margin: 1em auto; padding: 0 1em; color: #222; }
h2 { font-size: 1.1em; margin-top: 1.5em; border-bottom: 2px solid #eee; }
table { width: 100%; }
th { text-align: left; font-weight: normal; color: #666; width: 35%; }
.big { font-size: 3em; font-weight: bold; margin: 0.2em 0; }
.ok { color: #2a7; }
.muted { color: #999; }
.bad { color: #c33; }
form { display: inline-block; margin: 0.2em 0.2em 0 0; }
</style>
</head>
<body>
<h1>Skiptrack</h1>

<h2>Workout</h2>
{{with .Workout}}{{if .Running}}
<p class="big">{{.Jumps}}</p>
<table>
<tr><th>Elapsed</th><td>{{mmss .Elapsed}}</td></tr>
<tr><th>Manual taps</th><td>{{.Manual}}</td></tr>
{{with .Phase}}<tr><th>Plan</th><td>{{.Plan}}</td></tr>
{{if .Done}}<tr><th>Phase</th><td class="ok">complete</td></tr>
{{else}}<tr><th>Phase</th><td>{{.Name}} ({{inc .Index}}/{{.Count}})</td></tr>
<tr><th>Remaining</th><td>{{mmss (sub .Duration .Elapsed)}}</td></tr>
<tr><th>Phase jumps</th><td>{{.Jumps}}{{if .TargetJumps}} / {{.TargetJumps}} ({{pct .JumpProgress}}){{end}}</td></tr>{{end}}{{end}}
</table>
<form method="post" action="/workout/stop"><input type="hidden" name="redirect" value="/"><button>Stop</button></form>
<form method="post" action="/tap"><input type="hidden" name="redirect" value="/"><button>Tap</button></form>
{{else}}
<p class="muted">No workout running.</p>
<form method="post" action="/workout/start"><input type="hidden" name="redirect" value="/"><button>Free workout</button></form>
{{end}}{{end}}
{{if not .Workout.Running}}{{range .Plans}}
<form method="post" action="/workout/start"><input type="hidden" name="redirect" value="/"><input type="hidden" name="plan" value="{{.Name}}"><button title="{{.Description}}">{{.Name}} ({{mmss .TotalDuration}})</button></form>
{{end}}{{end}}

<h2>Detector</h2>
<table>
<tr><th>State</th><td class="{{if .Detector.Active}}ok{{else}}muted{{end}}">{{if .Detector.Active}}active{{else}}inactive{{end}}</td></tr>
<tr><th>Jumps (auto)</th><td>{{.Detector.Counts.Auto}}</td></tr>
<tr><th>Jumps (manual)</th><td>{{.Detector.Counts.Manual}}</td></tr>
<tr><th>Threshold</th><td>{{.Config.ThresholdG}} g</td></tr>
<tr><th>Refractory</th><td>{{.Config.RefractoryMs}}ms</td></tr>
</table>

<h2>Sensor</h2>
<table>
{{if .Source.Degraded}}<tr><th>Source</th><td class="bad">unavailable</td></tr>
{{else}}<tr><th>Source</th><td class="ok">{{.Source.Active}}</td></tr>{{end}}
<tr><th>Fallbacks</th><td>{{.Source.Fallbacks}}</td></tr>
{{if .Source.LastError}}<tr><th>Last error</th><td>{{.Source.LastError}}</td></tr>{{end}}
</table>

<h2>History</h2>
<table>
<tr><th>Workouts</th><td>{{.History.Workouts}}</td></tr>
<tr><th>Total jumps</th><td>{{.History.TotalJumps}}</td></tr>
<tr><th>Best</th><td>{{.History.BestJumps}}</td></tr>
<tr><th>Cadence</th><td>{{printf "%.1f" .History.AverageCadence}} /min</td></tr>
</table>
{{if .Achievements}}<ul>{{range .Achievements}}
<li><strong>{{.Title}}</strong>: {{.Description}}</li>{{end}}
</ul>{{end}}

<h2>System</h2>
<table>
{{if .MQTTConnected}}<tr><th>MQTT</th><td class="ok">connected</td></tr>{{else}}<tr><th>MQTT</th><td class="bad">offline</td></tr>{{end}}
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Since</th><td>{{.StartTime.UTC.Format "2006-01-02 15:04:05"}} UTC</td></tr>
<tr><th>Sampling</th><td>every {{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if .Config.HeartbeatMs}}every {{.Config.HeartbeatMs}}ms{{else}}off{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/workouts">workouts</a> · <a href="/achievements">achievements</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, page indexPage) error {
	return indexTmpl.Execute(w, page)
}
