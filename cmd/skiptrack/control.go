package main

import (
	"context"

	"github.com/sweeney/skiptrack/internal/logic"
	"github.com/sweeney/skiptrack/internal/workout"
)

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdTap
)

// command is a control request handled on the run loop goroutine, so start,
// stop and taps are serialized with sample processing.
type command struct {
	kind  commandKind
	plan  string
	reply chan reply
}

type reply struct {
	snapshot workout.Snapshot
	workout  workout.Workout
	result   logic.Result
	err      error
}

// controller sends commands to the run loop. It implements web.Controller.
type controller struct {
	cmds chan<- command
}

func (c *controller) do(ctx context.Context, cmd command) (reply, error) {
	cmd.reply = make(chan reply, 1)
	select {
	case c.cmds <- cmd:
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
	select {
	case r := <-cmd.reply:
		return r, r.err
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

// StartWorkout starts a free workout, or the named plan.
func (c *controller) StartWorkout(ctx context.Context, plan string) (workout.Snapshot, error) {
	r, err := c.do(ctx, command{kind: cmdStart, plan: plan})
	return r.snapshot, err
}

// StopWorkout stops the running workout.
func (c *controller) StopWorkout(ctx context.Context) (workout.Workout, error) {
	r, err := c.do(ctx, command{kind: cmdStop})
	return r.workout, err
}

// Tap registers a manual jump.
func (c *controller) Tap(ctx context.Context) (logic.Result, error) {
	r, err := c.do(ctx, command{kind: cmdTap})
	return r.result, err
}
