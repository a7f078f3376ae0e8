package logic

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// Detector turns acceleration samples into debounced jump events.
// Not safe for concurrent use: callers serialize Start, Stop, Process and
// Manual on one goroutine.
type Detector struct {
	policy Policy

	active    bool
	startedAt time.Time
	// last accepted event, relative to startedAt
	last    time.Duration
	hasLast bool
	counts  Counts
}

// NewDetector creates an inactive detector with the given policy.
func NewDetector(policy Policy) *Detector {
	return &Detector{policy: policy}
}

// Policy returns the detector's tunables.
func (d *Detector) Policy() Policy {
	return d.policy
}

// Start arms the detector. The last-event timestamp and counts are cleared
// and now becomes the reference for elapsed-time comparisons.
func (d *Detector) Start(now time.Time) Status {
	d.active = true
	d.startedAt = now
	d.last = 0
	d.hasLast = false
	d.counts = Counts{}
	return d.Status()
}

// Stop disarms the detector. Counts stay readable until the next Start.
func (d *Detector) Stop() Status {
	d.active = false
	return d.Status()
}

// Active reports whether the detector is armed.
func (d *Detector) Active() bool {
	return d.active
}

// Status returns a copy of the current state.
func (d *Detector) Status() Status {
	s := Status{
		Active:    d.active,
		StartedAt: d.startedAt,
		Counts:    d.counts,
	}
	if d.hasLast {
		s.LastEvent = d.startedAt.Add(d.last)
	}
	return s
}

// Process evaluates one sample. A sample is accepted when its magnitude
// exceeds the threshold and more than the refractory interval has passed
// since the last accepted event. Rejected samples leave state untouched.
func (d *Detector) Process(in Input) Result {
	if !d.active {
		return Result{Status: d.Status(), Verdict: VerdictInactive}
	}

	mag := Magnitude(in.Sample)
	if mag <= d.policy.Threshold {
		return Result{Status: d.Status(), Magnitude: mag, Verdict: VerdictBelowThreshold}
	}

	offset := in.Time.Sub(d.startedAt)
	if d.hasLast && offset-d.last <= d.policy.Refractory {
		return Result{Status: d.Status(), Magnitude: mag, Verdict: VerdictRefractory}
	}

	d.counts.Auto++
	ev := d.accept(in.Time, offset, OriginAuto, mag)
	return Result{Status: d.Status(), Event: &ev, Magnitude: mag, Verdict: VerdictAccepted}
}

// Manual force-emits an event, e.g. for a button press standing in for a
// missed detection. It is only honoured while active and when more than the
// manual interval has passed since the previous accepted event.
func (d *Detector) Manual(now time.Time) Result {
	if !d.active {
		return Result{Status: d.Status(), Verdict: VerdictInactive}
	}

	offset := now.Sub(d.startedAt)
	if d.hasLast && offset-d.last <= d.policy.ManualInterval {
		return Result{Status: d.Status(), Verdict: VerdictRefractory}
	}

	d.counts.Manual++
	ev := d.accept(now, offset, OriginManual, 0)
	return Result{Status: d.Status(), Event: &ev, Verdict: VerdictAccepted}
}

func (d *Detector) accept(at time.Time, offset time.Duration, origin Origin, mag float64) Event {
	d.last = offset
	d.hasLast = true
	return Event{
		Timestamp: at,
		Origin:    origin,
		Magnitude: mag,
		Offset:    offset,
		Count:     d.counts.Total(),
	}
}

// Magnitude returns the Euclidean norm of the sample.
func Magnitude(s Sample) float64 {
	return floats.Norm([]float64{s.X, s.Y, s.Z}, 2)
}
