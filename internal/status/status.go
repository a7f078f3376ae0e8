// Package status provides a thread-safe status tracker for the skiptrack
// daemon. It is written by the run loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/skiptrack/internal/logic"
	"github.com/sweeney/skiptrack/internal/motion"
	"github.com/sweeney/skiptrack/internal/workout"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs           int64
	ThresholdG       float64
	RefractoryMs     int64
	ManualIntervalMs int64
	HeartbeatMs      int64
	Sources          []string
	Button           bool
	Broker           string
	HTTPAddr         string
}

// HistorySummary aggregates finished workouts.
type HistorySummary struct {
	Workouts       int
	TotalJumps     int
	BestJumps      int
	AverageCadence float64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Detector      logic.Status
	Source        motion.State
	Workout       workout.Snapshot
	History       HistorySummary
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
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
		},
	}
}

// Update sets detector and source state. Called from the run loop on every tick.
func (t *Tracker) Update(det logic.Status, src motion.State) {
	t.mu.Lock()
	t.snap.Detector = det
	t.snap.Source = src
	t.mu.Unlock()
}

// SetWorkout sets the running workout view.
func (t *Tracker) SetWorkout(w workout.Snapshot) {
	t.mu.Lock()
	if w.Phase != nil {
		ph := *w.Phase
		w.Phase = &ph
	}
	t.snap.Workout = w
	t.mu.Unlock()
}

// SetHistory sets the history aggregates.
func (t *Tracker) SetHistory(h HistorySummary) {
	t.mu.Lock()
	t.snap.History = h
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
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

// Summarize builds the history aggregates.
func Summarize(h *workout.History) HistorySummary {
	s := HistorySummary{
		Workouts:       h.Len(),
		TotalJumps:     h.TotalJumps(),
		AverageCadence: h.AverageCadence(),
	}
	if b, ok := h.Best(); ok {
		s.BestJumps = b.Jumps
	}
	return s
}
