// Package workout tracks jump-rope workouts: the running session, the
// in-memory history of finished workouts, plans and achievements.
package workout

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/skiptrack/internal/logic"
)

// Sentinel errors.
var (
	ErrAlreadyRunning = errors.New("workout: already running")
	ErrNotRunning     = errors.New("workout: not running")
	ErrUnknownPlan    = errors.New("workout: unknown plan")
)

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	Running bool
	ID      uuid.UUID
	Start   time.Time
	Elapsed time.Duration
	Jumps   int
	Manual  int
	Phase   *PhaseStatus
}

// Session counts jumps for the running workout and files finished workouts
// into a History. It implements logic.Observer.
type Session struct {
	mu sync.RWMutex

	history *History
	newID   func() uuid.UUID

	running  bool
	id       uuid.UUID
	start    time.Time
	jumps    int
	manual   int
	progress *Progress
}

// NewSession creates an idle session backed by history.
func NewSession(history *History) *Session {
	return &Session{history: history, newID: uuid.New}
}

// Start begins a workout at now. A nil plan starts a free workout.
func (s *Session) Start(now time.Time, plan *Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	s.id = s.newID()
	s.start = now
	s.jumps = 0
	s.manual = 0
	s.progress = nil
	if plan != nil {
		s.progress = NewProgress(*plan, now)
	}
	return nil
}

// Stop ends the workout, records it in the history and returns it.
func (s *Session) Stop(now time.Time) (Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return Workout{}, ErrNotRunning
	}
	s.running = false

	w := Workout{
		ID:       s.id,
		Start:    s.start,
		Duration: now.Sub(s.start),
		Jumps:    s.jumps,
		Manual:   s.manual,
	}
	if s.progress != nil {
		w.Plan = s.progress.plan.Name
		w.Completed = s.progress.Advance(now)
	}
	s.progress = nil
	s.history.Add(w)
	return w, nil
}

// JumpDetected counts ev toward the running workout.
func (s *Session) JumpDetected(ev logic.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.jumps++
	if ev.Origin == logic.OriginManual {
		s.manual++
	}
	if s.progress != nil {
		s.progress.Jump()
	}
}

// Tick advances the plan and reports whether it has just completed. Free
// workouts never complete on their own.
func (s *Session) Tick(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.progress == nil {
		return false
	}
	return s.progress.Advance(now)
}

// Running reports whether a workout is in progress.
func (s *Session) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Snapshot returns the session state at now.
func (s *Session) Snapshot(now time.Time) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Running: s.running}
	if !s.running {
		return snap
	}
	snap.ID = s.id
	snap.Start = s.start
	snap.Elapsed = now.Sub(s.start)
	snap.Jumps = s.jumps
	snap.Manual = s.manual
	if s.progress != nil {
		ph := s.progress.Status(now)
		snap.Phase = &ph
	}
	return snap
}
