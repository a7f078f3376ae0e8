package web

import (
	"time"

	"github.com/sweeney/skiptrack/internal/workout"
)

// WorkoutJSON is a finished workout.
type WorkoutJSON struct {
	ID        string  `json:"id"`
	Start     string  `json:"start"`
	Duration  string  `json:"duration"`
	Jumps     int     `json:"jumps"`
	Manual    int     `json:"manual"`
	Cadence   float64 `json:"cadence"`
	Plan      string  `json:"plan,omitempty"`
	Completed bool    `json:"completed"`
}

// WorkoutsJSON is the /workouts response.
type WorkoutsJSON struct {
	Workouts       []WorkoutJSON `json:"workouts"`
	TotalJumps     int           `json:"total_jumps"`
	AverageCadence float64       `json:"average_cadence"`
}

// AchievementJSON is an unlocked achievement.
type AchievementJSON struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Earned      string `json:"earned"`
}

// AchievementsJSON is the /achievements response.
type AchievementsJSON struct {
	Achievements []AchievementJSON `json:"achievements"`
}

// PhaseJSON is one plan phase.
type PhaseJSON struct {
	Name        string `json:"name"`
	Duration    string `json:"duration"`
	TargetJumps int    `json:"target_jumps"`
}

// PlanJSON is a built-in plan.
type PlanJSON struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	TargetJumps int         `json:"target_jumps"`
	Duration    string      `json:"duration"`
	Phases      []PhaseJSON `json:"phases"`
}

// PlansJSON is the /plans response.
type PlansJSON struct {
	Plans []PlanJSON `json:"plans"`
}

// StartJSON answers POST /workout/start.
type StartJSON struct {
	ID    string `json:"id"`
	Start string `json:"start"`
	Plan  string `json:"plan,omitempty"`
}

// TapJSON answers POST /tap.
type TapJSON struct {
	Accepted bool   `json:"accepted"`
	Verdict  string `json:"verdict"`
	Count    int    `json:"count"`
}

func toWorkoutJSON(w workout.Workout) WorkoutJSON {
	return WorkoutJSON{
		ID:        w.ID.String(),
		Start:     w.Start.UTC().Format(time.RFC3339),
		Duration:  workout.FormatDuration(w.Duration),
		Jumps:     w.Jumps,
		Manual:    w.Manual,
		Cadence:   float64(int(w.Cadence()*10+0.5)) / 10,
		Plan:      w.Plan,
		Completed: w.Completed,
	}
}
