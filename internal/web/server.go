// Package web provides the HTTP status and control server for the skiptrack
// daemon.
package web

import (
	"context"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/skiptrack/internal/logic"
	"github.com/sweeney/skiptrack/internal/status"
	"github.com/sweeney/skiptrack/internal/workout"
)

// Controller performs control operations on the run loop. Calls block until
// the loop has handled them or ctx is done.
type Controller interface {
	StartWorkout(ctx context.Context, plan string) (workout.Snapshot, error)
	StopWorkout(ctx context.Context) (workout.Workout, error)
	Tap(ctx context.Context) (logic.Result, error)
}

// Options wires the server to the rest of the daemon.
type Options struct {
	Tracker *status.Tracker
	History *workout.History
	Control Controller
	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

// Server serves the status page and control endpoints over HTTP.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	tracker    *status.Tracker
	history    *workout.History
	control    Controller
	log        *logrus.Entry
}

// New creates a Server listening on addr.
func New(addr string, opts Options) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		tracker: opts.Tracker,
		history: opts.History,
		control: opts.Control,
		log:     logrus.WithField("component", "web"),
	}

	r := s.router
	r.HandleFunc("/", s.handleIndex).Methods("GET").Name("index")
	r.HandleFunc("/index.html", s.handleIndex).Methods("GET")
	r.HandleFunc("/index.json", s.handleJSON).Methods("GET").Name("status")
	r.HandleFunc("/workouts", s.handleWorkouts).Methods("GET").Name("workouts")
	r.HandleFunc("/achievements", s.handleAchievements).Methods("GET").Name("achievements")
	r.HandleFunc("/plans", s.handlePlans).Methods("GET").Name("plans")
	r.HandleFunc("/workout/start", s.handleStart).Methods("POST").Name("workout-start")
	r.HandleFunc("/workout/stop", s.handleStop).Methods("POST").Name("workout-stop")
	r.HandleFunc("/tap", s.handleTap).Methods("POST").Name("tap")
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods("GET").Name("metrics")
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Handler returns the router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := indexPage{
		Snapshot:     s.tracker.Snapshot(),
		Plans:        workout.Plans(),
		Achievements: workout.Achievements(s.history.All()),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, page); err != nil {
		s.log.WithError(err).Warn("render index")
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}
