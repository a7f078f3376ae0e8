package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sweeney/skiptrack/internal/workout"
)

// errorJSON is the body of every non-2xx response.
type errorJSON struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusServiceUnavailable
	switch {
	case errors.Is(err, workout.ErrUnknownPlan):
		code = http.StatusBadRequest
	case errors.Is(err, workout.ErrAlreadyRunning), errors.Is(err, workout.ErrNotRunning):
		code = http.StatusConflict
	}
	s.writeJSON(w, code, errorJSON{Error: err.Error()})
}

// respond writes v as JSON, or redirects back when the request came from
// the status page form.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any) {
	if to := r.FormValue("redirect"); to == "/" {
		http.Redirect(w, r, to, http.StatusSeeOther)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleWorkouts(w http.ResponseWriter, r *http.Request) {
	ws := s.history.All()
	out := WorkoutsJSON{
		Workouts:       make([]WorkoutJSON, len(ws)),
		TotalJumps:     s.history.TotalJumps(),
		AverageCadence: s.history.AverageCadence(),
	}
	for i, wk := range ws {
		out.Workouts[i] = toWorkoutJSON(wk)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	as := workout.Achievements(s.history.All())
	out := AchievementsJSON{Achievements: make([]AchievementJSON, len(as))}
	for i, a := range as {
		out.Achievements[i] = AchievementJSON{
			Key:         a.Key,
			Title:       a.Title,
			Description: a.Description,
			Earned:      a.Earned.UTC().Format(time.RFC3339),
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	ps := workout.Plans()
	out := PlansJSON{Plans: make([]PlanJSON, len(ps))}
	for i, p := range ps {
		pj := PlanJSON{
			Name:        p.Name,
			Description: p.Description,
			TargetJumps: p.TargetJumps,
			Duration:    workout.FormatDuration(p.TotalDuration()),
		}
		for _, ph := range p.Phases {
			pj.Phases = append(pj.Phases, PhaseJSON{
				Name:        ph.Name,
				Duration:    workout.FormatDuration(ph.Duration),
				TargetJumps: ph.TargetJumps,
			})
		}
		out.Plans[i] = pj
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	snap, err := s.control.StartWorkout(r.Context(), r.FormValue("plan"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := StartJSON{
		ID:    snap.ID.String(),
		Start: snap.Start.UTC().Format(time.RFC3339),
	}
	if snap.Phase != nil {
		resp.Plan = snap.Phase.Plan
	}
	s.respond(w, r, resp)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	wk, err := s.control.StopWorkout(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, r, toWorkoutJSON(wk))
}

func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	res, err := s.control.Tap(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, r, TapJSON{
		Accepted: res.Accepted(),
		Verdict:  string(res.Verdict),
		Count:    res.Status.Counts.Total(),
	})
}
