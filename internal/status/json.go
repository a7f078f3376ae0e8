package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/skiptrack/internal/workout"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Active        bool         `json:"active"`
	LastJump      string       `json:"last_jump,omitempty"`
	Counts        CountsJSON   `json:"jump_counts"`
	Source        SourceJSON   `json:"source"`
	Workout       *WorkoutJSON `json:"workout,omitempty"`
	History       HistoryJSON  `json:"history"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Config        ConfigJSON   `json:"config"`
}

// CountsJSON is the JSON representation of jump counts since the detector
// was last started.
type CountsJSON struct {
	Auto   int `json:"auto"`
	Manual int `json:"manual"`
	Total  int `json:"total"`
}

// SourceJSON reports motion source selection.
type SourceJSON struct {
	Active    string `json:"active"`
	Available bool   `json:"available"`
	Fallbacks int    `json:"fallbacks"`
	LastError string `json:"last_error,omitempty"`
}

// WorkoutJSON describes the running workout.
type WorkoutJSON struct {
	ID             string     `json:"id"`
	Elapsed        string     `json:"elapsed"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
	Jumps          int        `json:"jumps"`
	Manual         int        `json:"manual"`
	Phase          *PhaseJSON `json:"phase,omitempty"`
}

// PhaseJSON describes progress through a plan phase.
type PhaseJSON struct {
	Plan         string  `json:"plan"`
	Name         string  `json:"name"`
	Index        int     `json:"index"`
	Count        int     `json:"count"`
	Jumps        int     `json:"jumps"`
	TargetJumps  int     `json:"target_jumps"`
	Remaining    string  `json:"remaining"`
	TimePercent  float64 `json:"time_percent"`
	JumpsPercent float64 `json:"jumps_percent"`
	Done         bool    `json:"done"`
}

// HistoryJSON aggregates finished workouts.
type HistoryJSON struct {
	Workouts       int     `json:"workouts"`
	TotalJumps     int     `json:"total_jumps"`
	BestJumps      int     `json:"best_jumps"`
	AverageCadence float64 `json:"average_cadence"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs           int64    `json:"poll_ms"`
	ThresholdG       float64  `json:"threshold_g"`
	RefractoryMs     int64    `json:"refractory_ms"`
	ManualIntervalMs int64    `json:"manual_interval_ms"`
	HeartbeatMs      int64    `json:"heartbeat_ms"`
	Sources          []string `json:"sources"`
	Button           bool     `json:"button"`
	Broker           string   `json:"broker"`
	HTTPAddr         string   `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	det := snap.Detector
	inner := StatusInner{
		Active: det.Active,
		Counts: CountsJSON{
			Auto:   det.Counts.Auto,
			Manual: det.Counts.Manual,
			Total:  det.Counts.Total(),
		},
		Source: SourceJSON{
			Active:    snap.Source.Active,
			Available: !snap.Source.Degraded,
			Fallbacks: snap.Source.Fallbacks,
			LastError: snap.Source.LastError,
		},
		History: HistoryJSON{
			Workouts:       snap.History.Workouts,
			TotalJumps:     snap.History.TotalJumps,
			BestJumps:      snap.History.BestJumps,
			AverageCadence: snap.History.AverageCadence,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			PollMs:           snap.Config.PollMs,
			ThresholdG:       snap.Config.ThresholdG,
			RefractoryMs:     snap.Config.RefractoryMs,
			ManualIntervalMs: snap.Config.ManualIntervalMs,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			Sources:          snap.Config.Sources,
			Button:           snap.Config.Button,
			Broker:           snap.Config.Broker,
			HTTPAddr:         snap.Config.HTTPAddr,
		},
	}
	if !det.LastEvent.IsZero() {
		inner.LastJump = det.LastEvent.UTC().Format(time.RFC3339Nano)
	}
	inner.Workout = buildWorkout(snap.Workout)
	return inner
}

func buildWorkout(w workout.Snapshot) *WorkoutJSON {
	if !w.Running {
		return nil
	}
	wj := &WorkoutJSON{
		ID:             w.ID.String(),
		Elapsed:        workout.FormatDuration(w.Elapsed),
		ElapsedSeconds: int64(w.Elapsed / time.Second),
		Jumps:          w.Jumps,
		Manual:         w.Manual,
	}
	if ph := w.Phase; ph != nil {
		wj.Phase = &PhaseJSON{
			Plan:         ph.Plan,
			Name:         ph.Name,
			Index:        ph.Index,
			Count:        ph.Count,
			Jumps:        ph.Jumps,
			TargetJumps:  ph.TargetJumps,
			Remaining:    workout.FormatDuration(ph.Duration - ph.Elapsed),
			TimePercent:  percent(ph.TimeProgress),
			JumpsPercent: percent(ph.JumpProgress),
			Done:         ph.Done,
		}
	}
	return wj
}

func percent(ratio float64) float64 {
	return float64(int(ratio*1000+0.5)) / 10
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
