package workout

import (
	"fmt"
	"strings"
	"time"
)

// Phase is one timed block of a plan.
type Phase struct {
	Name        string
	Duration    time.Duration
	TargetJumps int
}

// Plan is a named sequence of phases.
type Plan struct {
	Name        string
	Description string
	TargetJumps int
	Phases      []Phase
}

// TotalDuration is the sum of phase durations.
func (p Plan) TotalDuration() time.Duration {
	var d time.Duration
	for _, ph := range p.Phases {
		d += ph.Duration
	}
	return d
}

var plans = []Plan{
	{
		Name:        "beginner",
		Description: "Perfect for starting your jump rope journey",
		TargetJumps: 200,
		Phases: []Phase{
			{Name: "Warm Up", Duration: 60 * time.Second, TargetJumps: 30},
			{Name: "Basic Jumping", Duration: 120 * time.Second, TargetJumps: 100},
			{Name: "Side Steps", Duration: 60 * time.Second, TargetJumps: 40},
			{Name: "Cool Down", Duration: 60 * time.Second, TargetJumps: 30},
		},
	},
	{
		Name:        "intermediate",
		Description: "Build endurance and coordination",
		TargetJumps: 500,
		Phases: []Phase{
			{Name: "Warm Up", Duration: 120 * time.Second, TargetJumps: 60},
			{Name: "Double Unders", Duration: 300 * time.Second, TargetJumps: 200},
			{Name: "Criss Cross", Duration: 240 * time.Second, TargetJumps: 150},
			{Name: "High Knees", Duration: 180 * time.Second, TargetJumps: 90},
			{Name: "Cool Down", Duration: 60 * time.Second},
		},
	},
	{
		Name:        "advanced",
		Description: "Master complex techniques and speed",
		TargetJumps: 1000,
		Phases: []Phase{
			{Name: "Dynamic Warm Up", Duration: 180 * time.Second, TargetJumps: 100},
			{Name: "Sprint Intervals", Duration: 480 * time.Second, TargetJumps: 400},
			{Name: "Triple Unders", Duration: 360 * time.Second, TargetJumps: 300},
			{Name: "Boxer Step", Duration: 360 * time.Second, TargetJumps: 200},
			{Name: "Cool Down", Duration: 120 * time.Second},
		},
	},
}

// Plans returns the built-in plans, easiest first.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// PlanByName looks up a built-in plan, ignoring case.
func PlanByName(name string) (Plan, error) {
	for _, p := range plans {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, name)
}

// PhaseStatus reports progress through the current phase.
type PhaseStatus struct {
	Plan         string
	Index        int
	Count        int
	Name         string
	Elapsed      time.Duration
	Duration     time.Duration
	Jumps        int
	TargetJumps  int
	TimeProgress float64
	JumpProgress float64
	Done         bool
}

// Progress tracks a running plan. Phases advance when their duration has
// elapsed; the plan is done after the last phase.
type Progress struct {
	plan       Plan
	index      int
	phaseStart time.Time
	phaseJumps int
	done       bool
}

// NewProgress starts plan at now.
func NewProgress(plan Plan, now time.Time) *Progress {
	return &Progress{
		plan:       plan,
		phaseStart: now,
		done:       len(plan.Phases) == 0,
	}
}

// Jump counts a jump toward the current phase.
func (p *Progress) Jump() {
	if !p.done {
		p.phaseJumps++
	}
}

// Advance moves past every phase whose time is up and reports whether the
// plan is complete.
func (p *Progress) Advance(now time.Time) bool {
	for !p.done {
		ph := p.plan.Phases[p.index]
		if now.Sub(p.phaseStart) < ph.Duration {
			break
		}
		p.phaseStart = p.phaseStart.Add(ph.Duration)
		p.phaseJumps = 0
		if p.index == len(p.plan.Phases)-1 {
			p.done = true
			break
		}
		p.index++
	}
	return p.done
}

// Status reports progress at now.
func (p *Progress) Status(now time.Time) PhaseStatus {
	st := PhaseStatus{
		Plan:  p.plan.Name,
		Index: p.index,
		Count: len(p.plan.Phases),
		Done:  p.done,
	}
	if p.done || len(p.plan.Phases) == 0 {
		st.TimeProgress = 1
		st.JumpProgress = 1
		return st
	}

	ph := p.plan.Phases[p.index]
	st.Name = ph.Name
	st.Duration = ph.Duration
	st.TargetJumps = ph.TargetJumps
	st.Jumps = p.phaseJumps
	st.Elapsed = now.Sub(p.phaseStart)
	st.TimeProgress = ratio(float64(st.Elapsed), float64(ph.Duration))
	st.JumpProgress = ratio(float64(p.phaseJumps), float64(ph.TargetJumps))
	return st
}

// ratio returns n/d clamped to [0, 1]; a zero target counts as met.
func ratio(n, d float64) float64 {
	if d <= 0 {
		return 1
	}
	r := n / d
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
