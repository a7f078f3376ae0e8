package workout

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/skiptrack/internal/logic"
)

var t0 = time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)

func fixedID(id uuid.UUID) func() uuid.UUID {
	return func() uuid.UUID { return id }
}

func TestSessionFreeWorkout(t *testing.T) {
	h := NewHistory()
	s := NewSession(h)
	id := uuid.MustParse("6f1c2a4e-9d1b-4c5e-8a7f-0b2c3d4e5f60")
	s.newID = fixedID(id)

	require.NoError(t, s.Start(t0, nil))
	assert.True(t, s.Running())

	s.JumpDetected(logic.Event{Origin: logic.OriginAuto})
	s.JumpDetected(logic.Event{Origin: logic.OriginAuto})
	s.JumpDetected(logic.Event{Origin: logic.OriginManual})

	snap := s.Snapshot(t0.Add(30 * time.Second))
	assert.True(t, snap.Running)
	assert.Equal(t, 3, snap.Jumps)
	assert.Equal(t, 1, snap.Manual)
	assert.Equal(t, 30*time.Second, snap.Elapsed)
	assert.Nil(t, snap.Phase)
	assert.False(t, s.Tick(t0.Add(time.Hour)), "free workouts never complete")

	w, err := s.Stop(t0.Add(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, Workout{
		ID:       id,
		Start:    t0,
		Duration: 90 * time.Second,
		Jumps:    3,
		Manual:   1,
	}, w)
	assert.False(t, s.Running())
	assert.Equal(t, []Workout{w}, h.All())
}

func TestSessionIgnoresJumpsWhenIdle(t *testing.T) {
	s := NewSession(NewHistory())
	s.JumpDetected(logic.Event{Origin: logic.OriginAuto})

	require.NoError(t, s.Start(t0, nil))
	assert.Equal(t, 0, s.Snapshot(t0).Jumps)
}

func TestSessionLifecycleErrors(t *testing.T) {
	s := NewSession(NewHistory())

	_, err := s.Stop(t0)
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, s.Start(t0, nil))
	assert.ErrorIs(t, s.Start(t0, nil), ErrAlreadyRunning)
}

func TestSessionRestartResetsCounts(t *testing.T) {
	s := NewSession(NewHistory())
	require.NoError(t, s.Start(t0, nil))
	s.JumpDetected(logic.Event{})
	_, err := s.Stop(t0.Add(time.Minute))
	require.NoError(t, err)

	require.NoError(t, s.Start(t0.Add(2*time.Minute), nil))
	assert.Equal(t, 0, s.Snapshot(t0.Add(2*time.Minute)).Jumps)
}

func TestSessionWithPlan(t *testing.T) {
	plan, err := PlanByName("Beginner")
	require.NoError(t, err)

	s := NewSession(NewHistory())
	require.NoError(t, s.Start(t0, &plan))

	for i := 0; i < 15; i++ {
		s.JumpDetected(logic.Event{})
	}
	snap := s.Snapshot(t0.Add(30 * time.Second))
	require.NotNil(t, snap.Phase)
	assert.Equal(t, "Warm Up", snap.Phase.Name)
	assert.InDelta(t, 0.5, snap.Phase.TimeProgress, 1e-9)
	assert.InDelta(t, 0.5, snap.Phase.JumpProgress, 1e-9)

	assert.False(t, s.Tick(t0.Add(61*time.Second)))
	snap = s.Snapshot(t0.Add(61 * time.Second))
	assert.Equal(t, "Basic Jumping", snap.Phase.Name)
	assert.Equal(t, 0, snap.Phase.Jumps, "phase jumps reset on advance")
	assert.Equal(t, 15, snap.Jumps, "workout jumps keep accumulating")

	assert.True(t, s.Tick(t0.Add(plan.TotalDuration())))

	w, err := s.Stop(t0.Add(plan.TotalDuration()))
	require.NoError(t, err)
	assert.Equal(t, "beginner", w.Plan)
	assert.True(t, w.Completed)
}

func TestSessionStoppedEarlyIsIncomplete(t *testing.T) {
	plan, err := PlanByName("advanced")
	require.NoError(t, err)

	s := NewSession(NewHistory())
	require.NoError(t, s.Start(t0, &plan))
	w, err := s.Stop(t0.Add(5 * time.Minute))
	require.NoError(t, err)
	assert.False(t, w.Completed)
}
