package main

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sweeney/skiptrack/internal/button"
	"github.com/sweeney/skiptrack/internal/config"
	"github.com/sweeney/skiptrack/internal/feedback"
	"github.com/sweeney/skiptrack/internal/logic"
	"github.com/sweeney/skiptrack/internal/metrics"
	"github.com/sweeney/skiptrack/internal/motion"
	"github.com/sweeney/skiptrack/internal/mqtt"
	"github.com/sweeney/skiptrack/internal/status"
	"github.com/sweeney/skiptrack/internal/workout"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)

var (
	high = logic.Sample{Z: 3}
	low  = logic.Sample{Z: 1}
)

// harness drives a loop synchronously with a manual clock.
type harness struct {
	l       *loop
	clock   time.Time
	sources []*motion.FakeSource
	btn     *button.FakeReader
	pub     *mqtt.FakePublisher
	fb      *feedback.Fake
	metrics *metrics.Manager
	history *workout.History
	tracker *status.Tracker
}

type harnessOption func(*loopDeps)

func withButton(b *button.FakeReader) harnessOption {
	return func(d *loopDeps) { d.Button = b }
}

func withHeartbeat(interval time.Duration) harnessOption {
	return func(d *loopDeps) { d.Heartbeat = interval }
}

func newHarness(t *testing.T, sources []*motion.FakeSource, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		clock:   t0,
		sources: sources,
		pub:     mqtt.NewFakePublisher(),
		fb:      &feedback.Fake{},
		metrics: metrics.NewManager(),
		history: workout.NewHistory(),
		tracker: status.NewTracker(t0, status.Config{}),
	}
	srcs := make([]motion.Source, len(sources))
	for i, s := range sources {
		srcs[i] = s
	}

	deps := loopDeps{
		Policy:     logic.DefaultPolicy(),
		Chain:      motion.NewChain(srcs...),
		History:    h.history,
		Publisher:  h.pub,
		MQTTStatus: h.pub,
		Feedback:   h.fb,
		Metrics:    h.metrics,
		Tracker:    h.tracker,
		Start:      t0,
		Now:        func() time.Time { return h.clock },
	}
	for _, o := range opts {
		o(&deps)
	}
	if b, ok := deps.Button.(*button.FakeReader); ok {
		h.btn = b
	}
	h.l = newLoop(deps)
	return h
}

// tick advances the clock by d and runs one sampling period.
func (h *harness) tick(d time.Duration) {
	h.clock = h.clock.Add(d)
	h.l.step(h.clock)
}

func (h *harness) ticks(n int, d time.Duration) {
	for i := 0; i < n; i++ {
		h.tick(d)
	}
}

func (h *harness) start(t *testing.T, plan string) workout.Snapshot {
	t.Helper()
	r := h.l.command(command{kind: cmdStart, plan: plan})
	require.NoError(t, r.err)
	return r.snapshot
}

func (h *harness) stop(t *testing.T) workout.Workout {
	t.Helper()
	r := h.l.command(command{kind: cmdStop})
	require.NoError(t, r.err)
	return r.workout
}

func (h *harness) tap() logic.Result {
	return h.l.command(command{kind: cmdTap}).result
}

func (h *harness) counter(t *testing.T, name string) float64 {
	t.Helper()
	families, err := h.metrics.Registry().Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func repeat(s logic.Sample, n int) []logic.Sample {
	out := make([]logic.Sample, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestIdleLoopDoesNotReadOrCount(t *testing.T) {
	src := motion.NewFakeSource("imu", repeat(high, 1))
	h := newHarness(t, []*motion.FakeSource{src})

	h.ticks(10, 100*time.Millisecond)
	res := h.tap()

	assert.Equal(t, 0, src.Reads, "source must not be read while idle")
	assert.Equal(t, logic.VerdictInactive, res.Verdict)
	assert.Empty(t, h.pub.Events)
	assert.Zero(t, h.fb.Clicks)
	assert.Zero(t, h.history.Len())
}

func TestAutomaticJumps(t *testing.T) {
	samples := []logic.Sample{high, low, low, high, low, low, high, low, low}
	src := motion.NewFakeSource("imu", samples)
	h := newHarness(t, []*motion.FakeSource{src})

	snap := h.start(t, "")
	assert.True(t, snap.Running)
	assert.Nil(t, snap.Phase)

	h.ticks(len(samples), 100*time.Millisecond)

	require.Len(t, h.pub.Events, 3)
	for i, ev := range h.pub.Events {
		assert.Equal(t, logic.OriginAuto, ev.Origin)
		assert.Equal(t, i+1, ev.Count)
		assert.InDelta(t, 3.0, ev.Magnitude, 1e-9)
	}
	assert.Equal(t, t0.Add(100*time.Millisecond), h.pub.Events[0].Timestamp)
	assert.Equal(t, 3, h.fb.Clicks)

	st := h.tracker.Snapshot()
	assert.Equal(t, 3, st.Detector.Counts.Auto)
	assert.Equal(t, 3, st.Workout.Jumps)
	assert.Equal(t, "imu", st.Source.Active)
	assert.Equal(t, 9.0, h.counter(t, "skiptrack_samples_total"))
	assert.Equal(t, 3.0, h.counter(t, "skiptrack_jumps_total"))
}

func TestSustainedSignalIsDebounced(t *testing.T) {
	src := motion.NewFakeSource("imu", repeat(high, 1))
	h := newHarness(t, []*motion.FakeSource{src})
	h.start(t, "free")

	// Accepted at 100, 400, 700 and 1000ms with a 200ms refractory period.
	h.ticks(10, 100*time.Millisecond)

	require.Len(t, h.pub.Events, 4)
	for i := 1; i < len(h.pub.Events); i++ {
		gap := h.pub.Events[i].Timestamp.Sub(h.pub.Events[i-1].Timestamp)
		assert.Greater(t, gap, logic.DefaultRefractory)
	}
}

func TestTapStartStop(t *testing.T) {
	src := motion.NewFakeSource("imu", repeat(low, 1))
	h := newHarness(t, []*motion.FakeSource{src})

	h.start(t, "")
	h.clock = h.clock.Add(time.Second)
	res := h.tap()
	require.True(t, res.Accepted())
	assert.Equal(t, logic.OriginManual, res.Event.Origin)
	assert.Equal(t, 1, h.tracker.Snapshot().Workout.Jumps, "status reflects the tap immediately")
	assert.Equal(t, 1, h.tracker.Snapshot().Detector.Counts.Manual)

	// Within the manual interval of the previous tap.
	h.clock = h.clock.Add(100 * time.Millisecond)
	assert.False(t, h.tap().Accepted())

	h.clock = h.clock.Add(4 * time.Second)
	w := h.stop(t)

	assert.Equal(t, 1, w.Jumps)
	assert.Equal(t, 1, w.Manual)
	assert.Equal(t, 5100*time.Millisecond, w.Duration)
	assert.Equal(t, 1, h.history.Len())
	assert.Equal(t, 1, h.fb.Clicks)
	assert.GreaterOrEqual(t, src.Closed, 1, "source closed on stop")

	assert.Equal(t, []string{mqtt.EventWorkoutStart, mqtt.EventWorkoutStop}, h.pub.SystemEventNames())
	assert.Equal(t, "free", h.pub.SystemEvents[0].Reason)
	assert.Equal(t, stopRequested, h.pub.SystemEvents[1].Reason)
	assert.Contains(t, string(h.pub.SystemEvents[1].RawPayload), `"total":1`)

	st := h.tracker.Snapshot()
	assert.False(t, st.Detector.Active)
	assert.False(t, st.Workout.Running)
	assert.Equal(t, 1, st.History.Workouts)
}

func TestCommandErrors(t *testing.T) {
	h := newHarness(t, []*motion.FakeSource{motion.NewFakeSource("imu", repeat(low, 1))})

	r := h.l.command(command{kind: cmdStop})
	assert.ErrorIs(t, r.err, workout.ErrNotRunning)

	r = h.l.command(command{kind: cmdStart, plan: "olympic"})
	assert.ErrorIs(t, r.err, workout.ErrUnknownPlan)
	assert.Empty(t, h.pub.SystemEvents, "rejected start must not publish")

	h.start(t, "")
	r = h.l.command(command{kind: cmdStart})
	assert.ErrorIs(t, r.err, workout.ErrAlreadyRunning)

	r = h.l.command(command{kind: commandKind(99)})
	assert.Error(t, r.err)
}

func TestButtonTaps(t *testing.T) {
	src := motion.NewFakeSource("imu", repeat(low, 1))
	// Rising edges on the 2nd and 6th polls.
	btn := button.NewFakeReader(false, true, true, false, false, true)
	h := newHarness(t, []*motion.FakeSource{src}, withButton(btn))
	h.start(t, "")

	h.ticks(8, 100*time.Millisecond)

	require.Len(t, h.pub.Events, 2)
	assert.Equal(t, logic.OriginManual, h.pub.Events[0].Origin)
	assert.Equal(t, t0.Add(200*time.Millisecond), h.pub.Events[0].Timestamp)
	assert.Equal(t, t0.Add(600*time.Millisecond), h.pub.Events[1].Timestamp)
	assert.Equal(t, 2, h.tracker.Snapshot().Workout.Manual)
}

func TestButtonErrorIsIgnored(t *testing.T) {
	btn := button.NewFakeReader()
	btn.ReadError = errors.New("line busy")
	h := newHarness(t, []*motion.FakeSource{motion.NewFakeSource("imu", repeat(high, 1))}, withButton(btn))
	h.start(t, "")

	h.ticks(3, 100*time.Millisecond)

	assert.Len(t, h.pub.Events, 1, "automatic detection continues")
}

func TestPlanCompletes(t *testing.T) {
	h := newHarness(t, []*motion.FakeSource{motion.NewFakeSource("imu", repeat(low, 1))})

	snap := h.start(t, "Beginner")
	require.NotNil(t, snap.Phase)
	assert.Equal(t, "Warm Up", snap.Phase.Name)

	h.tick(90 * time.Second)
	assert.Equal(t, "Basic Jumping", h.tracker.Snapshot().Workout.Phase.Name)

	h.tick(4 * time.Minute)

	assert.False(t, h.tracker.Snapshot().Workout.Running)
	require.Equal(t, 1, h.history.Len())
	w := h.history.All()[0]
	assert.Equal(t, "beginner", w.Plan)
	assert.True(t, w.Completed)

	assert.Equal(t, []string{mqtt.EventWorkoutStart, mqtt.EventWorkoutStop}, h.pub.SystemEventNames())
	assert.Equal(t, "beginner", h.pub.SystemEvents[0].Reason)
	assert.Equal(t, stopCompleted, h.pub.SystemEvents[1].Reason)
}

func TestSourceFallback(t *testing.T) {
	primary := motion.NewFakeSource("imu", repeat(low, 1))
	primary.FailAfter = 2
	backup := motion.NewFakeSource("replay", repeat(high, 1))
	h := newHarness(t, []*motion.FakeSource{primary, backup})
	h.start(t, "")

	h.ticks(4, 100*time.Millisecond)

	st := h.tracker.Snapshot().Source
	assert.Equal(t, "replay", st.Active)
	assert.False(t, st.Degraded)
	assert.Equal(t, 1, st.Fallbacks)
	assert.Equal(t, 1.0, h.counter(t, "skiptrack_source_fallbacks_total"))
	assert.Equal(t, 1.0, h.counter(t, "skiptrack_source_read_errors_total"))
	assert.Len(t, h.pub.Events, 1, "backup sample detected")
	assert.NotContains(t, h.pub.SystemEventNames(), mqtt.EventSourceUnavailable)
}

func TestSourceExhaustedReportsOnce(t *testing.T) {
	src := motion.NewFakeSource("imu", repeat(high, 1))
	src.ReadError = errors.New("device unplugged")
	h := newHarness(t, []*motion.FakeSource{src})
	h.start(t, "")

	h.ticks(5, 100*time.Millisecond)

	assert.Equal(t, []string{mqtt.EventWorkoutStart, mqtt.EventSourceUnavailable}, h.pub.SystemEventNames())
	assert.Contains(t, h.pub.SystemEvents[1].Reason, "device unplugged")
	assert.True(t, h.tracker.Snapshot().Source.Degraded)
	assert.Empty(t, h.pub.Events)

	// Manual taps still count.
	assert.True(t, h.tap().Accepted())

	// The next workout tries the source again.
	h.stop(t)
	h.start(t, "")
	h.tick(100 * time.Millisecond)
	assert.Equal(t, []string{
		mqtt.EventWorkoutStart, mqtt.EventSourceUnavailable,
		mqtt.EventWorkoutStop,
		mqtt.EventWorkoutStart, mqtt.EventSourceUnavailable,
	}, h.pub.SystemEventNames())
}

func TestNoSourceAtStart(t *testing.T) {
	src := motion.NewFakeSource("imu", repeat(high, 1))
	src.AvailableError = errors.New("no such file")
	h := newHarness(t, []*motion.FakeSource{src})

	snap := h.start(t, "")
	assert.True(t, snap.Running, "workout runs without a source")
	assert.Equal(t, []string{mqtt.EventWorkoutStart, mqtt.EventSourceUnavailable}, h.pub.SystemEventNames())

	h.ticks(3, 100*time.Millisecond)
	assert.Empty(t, h.pub.Events)
	assert.Len(t, h.pub.SystemEvents, 2)

	// Still missing at the next workout: reported again.
	h.stop(t)
	h.start(t, "")
	assert.Equal(t, []string{
		mqtt.EventWorkoutStart, mqtt.EventSourceUnavailable,
		mqtt.EventWorkoutStop,
		mqtt.EventWorkoutStart, mqtt.EventSourceUnavailable,
	}, h.pub.SystemEventNames())
	assert.True(t, h.tracker.Snapshot().Source.Degraded)
	assert.Equal(t, 2, src.Opened, "each workout retries the source")
}

func TestHeartbeat(t *testing.T) {
	h := newHarness(t, []*motion.FakeSource{motion.NewFakeSource("imu", repeat(low, 1))}, withHeartbeat(time.Minute))

	h.tick(30 * time.Second)
	assert.Empty(t, h.pub.SystemEvents)

	h.tick(30 * time.Second)
	require.Equal(t, []string{mqtt.EventHeartbeat}, h.pub.SystemEventNames())
	hb := h.pub.SystemEvents[0]
	assert.Equal(t, t0.Add(time.Minute), hb.Timestamp)
	assert.False(t, hb.Retained)
	assert.Contains(t, string(hb.RawPayload), `"event":"HEARTBEAT"`)

	h.tick(59 * time.Second)
	assert.Len(t, h.pub.SystemEvents, 1)
}

func TestPublishFailureDoesNotLoseJumps(t *testing.T) {
	h := newHarness(t, []*motion.FakeSource{motion.NewFakeSource("imu", repeat(low, 1))})
	h.pub.PublishError = errors.New("broker down")
	h.fb.ClickError = errors.New("no tty")
	h.start(t, "")

	h.clock = h.clock.Add(time.Second)
	require.True(t, h.tap().Accepted())

	assert.Equal(t, 1, h.fb.Clicks)
	assert.Equal(t, 1, h.tracker.Snapshot().Workout.Jumps)
	assert.Equal(t, 1.0, h.counter(t, "skiptrack_publish_errors_total"))
}

func TestShutdownStopsWorkout(t *testing.T) {
	h := newHarness(t, []*motion.FakeSource{motion.NewFakeSource("imu", repeat(low, 1))})
	h.start(t, "")
	h.clock = h.clock.Add(time.Second)
	h.tap()

	h.l.shutdown(syscall.SIGTERM)

	assert.Equal(t, []string{mqtt.EventWorkoutStart, mqtt.EventWorkoutStop, mqtt.EventShutdown}, h.pub.SystemEventNames())
	assert.Equal(t, stopShutdown, h.pub.SystemEvents[1].Reason)
	last := h.pub.SystemEvents[2]
	assert.Equal(t, "SIGTERM", last.Reason)
	assert.True(t, last.Retained)
	assert.Equal(t, 1, h.history.Len())
}

func TestRunLoop(t *testing.T) {
	src := motion.NewFakeSource("imu", repeat(low, 1))
	h := newHarness(t, []*motion.FakeSource{src})

	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	cmds := make(chan command)
	done := make(chan error, 1)
	go func() { done <- h.l.run(tick, sig, cmds) }()

	ctrl := &controller{cmds: cmds}
	ctx := context.Background()

	snap, err := ctrl.StartWorkout(ctx, "")
	require.NoError(t, err)
	assert.True(t, snap.Running)

	tick <- t0
	tick <- t0

	res, err := ctrl.Tap(ctx)
	require.NoError(t, err)
	assert.True(t, res.Accepted())

	_, err = ctrl.StartWorkout(ctx, "")
	assert.ErrorIs(t, err, workout.ErrAlreadyRunning)

	w, err := ctrl.StopWorkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Jumps)

	sig <- syscall.SIGINT
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run loop did not exit")
	}

	assert.Equal(t, 2, src.Reads)
	assert.Equal(t, mqtt.EventShutdown, h.pub.SystemEventNames()[len(h.pub.SystemEvents)-1])
}

func TestControllerHonoursContext(t *testing.T) {
	ctrl := &controller{cmds: make(chan command)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ctrl.Tap(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSignalName(t *testing.T) {
	assert.Equal(t, "SIGINT", signalName(syscall.SIGINT))
	assert.Equal(t, "SIGTERM", signalName(syscall.SIGTERM))
	assert.Equal(t, "UNKNOWN", signalName(syscall.SIGHUP))
}

func TestBuildSources(t *testing.T) {
	sources := buildSources([]config.SourceConfig{
		{Kind: config.KindSerial, Name: "imu", Path: "/dev/ttyUSB0"},
		{Kind: config.KindReplay, Path: "testdata/jumps.csv"},
	})

	require.Len(t, sources, 2)
	assert.Equal(t, "imu", sources[0].Name())
	assert.Equal(t, "replay:testdata/jumps.csv", sources[1].Name())
}

func TestStatusConfig(t *testing.T) {
	cfg := config.New()
	cfg.Sources = config.DefaultSources()

	got := statusConfig(cfg)

	assert.Equal(t, int64(100), got.PollMs)
	assert.Equal(t, 1.8, got.ThresholdG)
	assert.Equal(t, int64(200), got.RefractoryMs)
	assert.Equal(t, int64(300), got.ManualIntervalMs)
	assert.Equal(t, []string{"imu"}, got.Sources)
	assert.Equal(t, ":8080", got.HTTPAddr)
}
