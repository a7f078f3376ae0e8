package main

import (
	"errors"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/sweeney/skiptrack/internal/button"
	"github.com/sweeney/skiptrack/internal/logic"
	"github.com/sweeney/skiptrack/internal/metrics"
	"github.com/sweeney/skiptrack/internal/motion"
	"github.com/sweeney/skiptrack/internal/mqtt"
	"github.com/sweeney/skiptrack/internal/status"
	"github.com/sweeney/skiptrack/internal/workout"
)

// Reasons attached to WORKOUT_STOP events.
const (
	stopRequested = "REQUESTED"
	stopCompleted = "COMPLETED"
	stopShutdown  = "SHUTDOWN"
)

// loopDeps wires the run loop. Button may be nil.
type loopDeps struct {
	Policy     logic.Policy
	Chain      *motion.Chain
	Button     button.Reader
	History    *workout.History
	Publisher  mqtt.Publisher
	MQTTStatus mqtt.ConnectionStatus
	Feedback   logic.Feedback
	Metrics    *metrics.Manager
	Tracker    *status.Tracker
	Heartbeat  time.Duration
	Start      time.Time
	Now        func() time.Time
}

// loop owns the detector. Every method runs on the run loop goroutine.
type loop struct {
	detector  *logic.Detector
	chain     *motion.Chain
	button    button.Reader
	edge      button.Edge
	session   *workout.Session
	history   *workout.History
	publisher mqtt.Publisher
	mqtt      mqtt.ConnectionStatus
	feedback  logic.Feedback
	metrics   *metrics.Manager
	tracker   *status.Tracker
	heartbeat time.Duration
	hb        *logic.Heartbeat
	now       func() time.Time

	observer logic.Observer

	fallbacks int  // chain fallbacks already counted in metrics
	degraded  bool // last reported source availability

	log         *logrus.Entry
	readErrors  rate.Sometimes
	buttonError rate.Sometimes
}

func newLoop(d loopDeps) *loop {
	l := &loop{
		detector:    logic.NewDetector(d.Policy),
		chain:       d.Chain,
		button:      d.Button,
		session:     workout.NewSession(d.History),
		history:     d.History,
		publisher:   d.Publisher,
		mqtt:        d.MQTTStatus,
		feedback:    d.Feedback,
		metrics:     d.Metrics,
		tracker:     d.Tracker,
		heartbeat:   d.Heartbeat,
		hb:          logic.NewHeartbeat(d.Start),
		now:         d.Now,
		log:         logrus.WithField("component", "loop"),
		readErrors:  rate.Sometimes{First: 3, Interval: 30 * time.Second},
		buttonError: rate.Sometimes{First: 1, Interval: time.Minute},
	}

	// The single observer: workout counting, metrics and MQTT.
	l.observer = logic.ObserverFunc(func(ev logic.Event) {
		l.session.JumpDetected(ev)
		l.metrics.JumpDetected(ev)
		if err := l.publisher.Publish(ev); err != nil {
			l.metrics.PublishError("jump")
			l.log.WithError(err).Warn("publish jump")
		}
	})
	return l
}

// run processes ticks, commands and signals until a signal arrives.
func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal, cmds <-chan command) error {
	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case cmd := <-cmds:
			cmd.reply <- l.command(cmd)

		case <-tick:
			l.step(l.now())
		}
	}
}

// command handles cmd and publishes the resulting state to the tracker.
func (l *loop) command(cmd command) reply {
	r := l.handle(cmd)
	l.refresh(l.now())
	return r
}

func (l *loop) handle(cmd command) reply {
	t := l.now()
	switch cmd.kind {
	case cmdStart:
		snap, err := l.startWorkout(t, cmd.plan)
		return reply{snapshot: snap, err: err}
	case cmdStop:
		w, err := l.stopWorkout(t, stopRequested)
		return reply{workout: w, err: err}
	case cmdTap:
		return reply{result: l.tap(t)}
	default:
		return reply{err: errors.New("unknown command")}
	}
}

// step handles one sampling period.
func (l *loop) step(t time.Time) {
	l.pollButton(t)

	if l.detector.Active() {
		sample, err := l.chain.Read()
		if err != nil {
			l.metrics.SourceError()
			l.readErrors.Do(func() {
				l.log.WithError(err).Warn("motion read failed")
			})
		} else {
			res := l.detector.Process(logic.Input{Sample: sample, Time: t})
			l.metrics.ObserveResult(res)
			l.emit(res)
		}
		l.checkSource(t)
	}

	if l.session.Tick(t) {
		l.log.Info("plan complete")
		if _, err := l.stopWorkout(t, stopCompleted); err != nil {
			l.log.WithError(err).Warn("stop completed workout")
		}
	}

	if hb := l.hb.Check(t, l.heartbeat); hb != nil {
		l.refresh(t)
		l.log.WithField("uptime", hb.Uptime.Truncate(time.Second)).Info("heartbeat")
		l.publishSystem(hb.Timestamp, mqtt.EventHeartbeat, "")
	}

	l.refresh(t)
}

func (l *loop) pollButton(t time.Time) {
	if l.button == nil {
		return
	}
	pressed, err := l.button.Pressed()
	if err != nil {
		l.buttonError.Do(func() {
			l.log.WithError(err).Warn("button read failed")
		})
		return
	}
	if l.edge.Update(pressed) {
		l.tap(t)
	}
}

func (l *loop) tap(t time.Time) logic.Result {
	res := l.detector.Manual(t)
	l.emit(res)
	return res
}

// emit dispatches an accepted event to the observer and feedback.
func (l *loop) emit(res logic.Result) {
	if res.Event == nil {
		return
	}
	ev := *res.Event
	l.log.WithFields(logrus.Fields{
		"origin":    ev.Origin,
		"count":     ev.Count,
		"magnitude": ev.Magnitude,
	}).Debug("jump")
	if err := logic.Dispatch(l.observer, l.feedback, ev); err != nil {
		l.log.WithError(err).Warn("feedback failed")
	}
}

func (l *loop) startWorkout(t time.Time, planName string) (workout.Snapshot, error) {
	var plan *workout.Plan
	reason := "free"
	if name := strings.TrimSpace(planName); name != "" && !strings.EqualFold(name, "free") {
		p, err := workout.PlanByName(name)
		if err != nil {
			return workout.Snapshot{}, err
		}
		plan = &p
		reason = p.Name
	}

	if err := l.session.Start(t, plan); err != nil {
		return workout.Snapshot{}, err
	}

	// Each workout re-attempts every source from the top.
	if err := l.chain.Reset(); err != nil {
		l.log.WithError(err).Warn("starting workout without a motion source")
	}
	l.degraded = false
	l.fallbacks = 0
	l.detector.Start(t)
	l.metrics.WorkoutStarted()

	l.log.WithField("plan", reason).Info("workout started")
	l.refresh(t)
	l.publishSystem(t, mqtt.EventWorkoutStart, reason)
	l.checkSource(t)
	return l.session.Snapshot(t), nil
}

func (l *loop) stopWorkout(t time.Time, reason string) (workout.Workout, error) {
	w, err := l.session.Stop(t)
	if err != nil {
		return workout.Workout{}, err
	}
	l.detector.Stop()
	if err := l.chain.Close(); err != nil {
		l.log.WithError(err).Warn("close motion source")
	}
	l.metrics.WorkoutStopped(w.Plan, w.Jumps)

	l.log.WithFields(logrus.Fields{
		"jumps":    w.Jumps,
		"duration": workout.FormatDuration(w.Duration),
		"reason":   reason,
	}).Info("workout stopped")
	l.refresh(t)
	l.publishSystem(t, mqtt.EventWorkoutStop, reason)
	return w, nil
}

// checkSource updates source metrics and reports the transition into the
// degraded state once.
func (l *loop) checkSource(t time.Time) {
	st := l.chain.State()
	if st.Fallbacks > l.fallbacks {
		l.metrics.SourceFallbacks(st.Fallbacks - l.fallbacks)
	}
	l.fallbacks = st.Fallbacks
	l.metrics.SetDegraded(st.Degraded)

	if st.Degraded && !l.degraded {
		l.log.WithField("last_error", st.LastError).Warn("motion source unavailable")
		l.refresh(t)
		l.publishSystem(t, mqtt.EventSourceUnavailable, st.LastError)
	}
	l.degraded = st.Degraded
}

// refresh copies loop state into the tracker for HTTP readers.
func (l *loop) refresh(t time.Time) {
	l.tracker.Update(l.detector.Status(), l.chain.State())
	l.tracker.SetWorkout(l.session.Snapshot(t))
	l.tracker.SetHistory(status.Summarize(l.history))
	if l.mqtt != nil {
		l.tracker.SetMQTTConnected(l.mqtt.IsConnected())
	}
}

// publishSystem sends a system event carrying the full status snapshot.
func (l *loop) publishSystem(t time.Time, event, reason string) {
	ev := mqtt.SystemEvent{
		Timestamp:  t,
		Event:      event,
		Reason:     reason,
		RawPayload: status.FormatStatusEvent(l.tracker.Snapshot(), event, reason),
	}
	if err := l.publisher.PublishSystem(ev); err != nil {
		l.metrics.PublishError("system")
		l.log.WithError(err).WithField("event", event).Warn("publish system event")
	}
}

func (l *loop) shutdown(s os.Signal) {
	l.log.Infof("received %v, shutting down", s)
	t := l.now()
	if l.session.Running() {
		if _, err := l.stopWorkout(t, stopShutdown); err != nil {
			l.log.WithError(err).Warn("stop workout on shutdown")
		}
	}
	l.refresh(t)

	ev := mqtt.SystemEvent{
		Timestamp: t,
		Event:     mqtt.EventShutdown,
		Reason:    signalName(s),
		Retained:  true,
	}
	ev.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), ev.Event, ev.Reason)
	if err := l.publisher.PublishSystem(ev); err != nil {
		l.log.WithError(err).Warn("publish shutdown event")
	} else {
		l.log.Info("published shutdown event")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
