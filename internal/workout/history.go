package workout

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Workout is a finished session.
type Workout struct {
	ID       uuid.UUID
	Start    time.Time
	Duration time.Duration
	// Jumps counts every accepted event; Manual is the subset from taps.
	Jumps  int
	Manual int
	// Plan is empty for a free workout.
	Plan      string
	Completed bool
}

// Cadence returns jumps per minute.
func (w Workout) Cadence() float64 {
	if w.Duration <= 0 {
		return 0
	}
	return float64(w.Jumps) / w.Duration.Minutes()
}

// History is the in-memory list of finished workouts. Safe for concurrent use.
type History struct {
	mu       sync.RWMutex
	workouts []Workout
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Add appends w.
func (h *History) Add(w Workout) {
	h.mu.Lock()
	h.workouts = append(h.workouts, w)
	h.mu.Unlock()
}

// All returns a copy of the workouts, oldest first.
func (h *History) All() []Workout {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Workout, len(h.workouts))
	copy(out, h.workouts)
	return out
}

// Len returns the number of workouts.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.workouts)
}

// TotalJumps sums jumps over all workouts.
func (h *History) TotalJumps() int {
	return totalJumps(h.All())
}

// Best returns the workout with the most jumps; the earliest wins a tie.
func (h *History) Best() (Workout, bool) {
	return best(h.All())
}

// AverageCadence is the mean jumps-per-minute over workouts with a
// non-zero duration.
func (h *History) AverageCadence() float64 {
	var cadences []float64
	for _, w := range h.All() {
		if w.Duration > 0 {
			cadences = append(cadences, w.Cadence())
		}
	}
	if len(cadences) == 0 {
		return 0
	}
	return stat.Mean(cadences, nil)
}

func totalJumps(ws []Workout) int {
	n := 0
	for _, w := range ws {
		n += w.Jumps
	}
	return n
}

func best(ws []Workout) (Workout, bool) {
	if len(ws) == 0 {
		return Workout{}, false
	}
	b := ws[0]
	for _, w := range ws[1:] {
		if w.Jumps > b.Jumps {
			b = w
		}
	}
	return b, true
}
