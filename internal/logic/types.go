// Package logic contains the pure jump detection state machine.
// This package has NO I/O dependencies (no serial, GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Default detection policy.
const (
	DefaultThreshold      = 1.8 // g, user acceleration with gravity removed
	DefaultRefractory     = 200 * time.Millisecond
	DefaultManualInterval = 300 * time.Millisecond
)

// Sample is one 3-axis user acceleration reading in g.
type Sample struct {
	X float64
	Y float64
	Z float64
}

// Input is a sample together with the instant it was taken.
type Input struct {
	Sample Sample
	Time   time.Time
}

// Origin identifies what produced a jump event.
type Origin string

const (
	OriginAuto   Origin = "AUTO"
	OriginManual Origin = "MANUAL"
)

// Verdict explains what the detector did with an input.
type Verdict string

const (
	VerdictAccepted       Verdict = "accepted"
	VerdictInactive       Verdict = "inactive"
	VerdictBelowThreshold Verdict = "below_threshold"
	VerdictRefractory     Verdict = "refractory"
)

// Policy holds the fixed detection tunables.
type Policy struct {
	// Threshold is the magnitude a sample must exceed to count as a jump.
	Threshold float64
	// Refractory is the minimum time between accepted automatic events.
	Refractory time.Duration
	// ManualInterval is the minimum time between a manual event and the
	// previous accepted event.
	ManualInterval time.Duration
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:      DefaultThreshold,
		Refractory:     DefaultRefractory,
		ManualInterval: DefaultManualInterval,
	}
}

// Event is an accepted jump.
type Event struct {
	Timestamp time.Time
	Origin    Origin
	// Magnitude of the triggering sample; zero for manual events.
	Magnitude float64
	// Offset since the detector was started.
	Offset time.Duration
	// Count is the total number of events since start, including this one.
	Count int
}

// Counts tracks accepted events by origin since the last Start.
type Counts struct {
	Auto   int
	Manual int
}

// Total returns the number of accepted events of any origin.
func (c Counts) Total() int {
	return c.Auto + c.Manual
}

// Status is a point-in-time copy of the detector state.
type Status struct {
	Active    bool
	StartedAt time.Time
	// LastEvent is zero when nothing was accepted since Start.
	LastEvent time.Time
	Counts    Counts
}

// Result is returned by every detector operation.
type Result struct {
	Status    Status
	Event     *Event
	Magnitude float64
	Verdict   Verdict
}

// Accepted reports whether the operation emitted an event.
func (r Result) Accepted() bool {
	return r.Event != nil
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
}
