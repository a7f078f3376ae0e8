package workout

import (
	"fmt"
	"time"
)

// Achievement thresholds.
const (
	jumpMasterTotal   = 1000
	streakLength      = 3
	streakMinJumps    = 100
	consistentWorkout = 10
)

// Achievement is an unlocked milestone.
type Achievement struct {
	Key         string
	Title       string
	Description string
	// Earned is the start of the workout that unlocked it.
	Earned time.Time
}

// Achievements evaluates milestones over workouts (oldest first).
func Achievements(ws []Workout) []Achievement {
	if len(ws) == 0 {
		return nil
	}

	var out []Achievement

	if b, ok := best(ws); ok {
		out = append(out, Achievement{
			Key:         "personal_best",
			Title:       "Personal Best",
			Description: fmt.Sprintf("%d jumps", b.Jumps),
			Earned:      b.Start,
		})
	}

	total := 0
	for _, w := range ws {
		total += w.Jumps
		if total >= jumpMasterTotal {
			out = append(out, Achievement{
				Key:         "jump_master",
				Title:       "Jump Master",
				Description: fmt.Sprintf("%d total jumps", totalJumps(ws)),
				Earned:      w.Start,
			})
			break
		}
	}

	if len(ws) >= streakLength {
		recent := ws[len(ws)-streakLength:]
		onFire := true
		for _, w := range recent {
			if w.Jumps < streakMinJumps {
				onFire = false
				break
			}
		}
		if onFire {
			out = append(out, Achievement{
				Key:         "on_fire",
				Title:       "On Fire!",
				Description: fmt.Sprintf("%d-workout streak", streakLength),
				Earned:      recent[len(recent)-1].Start,
			})
		}
	}

	if len(ws) >= consistentWorkout {
		out = append(out, Achievement{
			Key:         "consistent_trainer",
			Title:       "Consistent Trainer",
			Description: fmt.Sprintf("%d workouts completed", len(ws)),
			Earned:      ws[consistentWorkout-1].Start,
		})
	}

	return out
}
