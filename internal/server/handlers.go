package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/claude/fitlog/internal/activity"
	"github.com/claude/fitlog/internal/aggregate"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/nutrition"
	"github.com/claude/fitlog/internal/session"
	"github.com/claude/fitlog/internal/state"
	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, aggregate.Dashboard(s.state.Snapshot(), s.now(), s.goals))
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := models.NewWorkoutSession(req.Label, s.now())
	if _, err := s.state.Dispatch(r.Context(), state.StartSession{Session: sess}); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	active, ok := session.Active(s.state.Snapshot().Workouts)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no active session"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": active,
		"groups":  aggregate.GroupSetsByExercise(active),
	})
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req addSetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	set := models.NewExerciseSet(req.Name, req.Weight.float(), req.Reps.int(), s.now())
	st, err := s.state.Dispatch(r.Context(), state.AddSet{SessionID: id, Set: set})
	if err != nil {
		s.writeError(w, err)
		return
	}
	active, ok := session.Active(st.Workouts)
	if !ok || active.ID != id {
		writeJSON(w, http.StatusNotFound, errorBody("session is not active"))
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if active, ok := session.Active(s.state.Snapshot().Workouts); !ok || active.ID != id {
		writeJSON(w, http.StatusNotFound, errorBody("session is not active"))
		return
	}
	st, err := s.state.Dispatch(r.Context(), state.FinishSession{SessionID: id})
	if err != nil {
		s.writeError(w, err)
		return
	}
	done, _ := session.Find(st.Workouts, id)
	writeJSON(w, http.StatusOK, aggregate.SummarizeSession(done))
}

func (s *Server) handleCompletedWorkouts(w http.ResponseWriter, r *http.Request) {
	completed := aggregate.CompletedSessions(s.state.Snapshot().Workouts)
	out := make([]aggregate.SessionSummary, 0, len(completed))
	for _, c := range completed {
		out = append(out, aggregate.SummarizeSession(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	s.dispatchNoContent(w, r, state.DeleteWorkout{ID: chi.URLParam(r, "id")})
}

func (s *Server) handlePreviousSet(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name parameter required"))
		return
	}
	set, ok := aggregate.PreviousSetFor(name, s.state.Snapshot().Workouts)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no previous set"))
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleExerciseStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, aggregate.ExerciseStats(s.state.Snapshot().Workouts))
}

func (s *Server) handleProgression(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name parameter required"))
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Progression(name, s.state.Snapshot().Workouts))
}

func (s *Server) handleTrainingSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.parseTimeRange(r, 30)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	bucket := aggregate.BucketWeek
	switch r.URL.Query().Get("bucket") {
	case "month", "monthly":
		bucket = aggregate.BucketMonth
	case "", "week", "weekly":
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("bucket must be week or month"))
		return
	}
	writeJSON(w, http.StatusOK, aggregate.TrainingSummary(s.state.Snapshot(), start, end, bucket, s.loc))
}

func (s *Server) handleImport(name string, imp Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if imp == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("import not available"))
			return
		}
		result, err := imp.Ingest(r.Context(), r.Body)
		if err != nil {
			s.log.Error("import error", "format", name, "error", err)
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// dispatchNoContent applies a delete-style action. Unknown ids are not an error.
func (s *Server) dispatchNoContent(w http.ResponseWriter, r *http.Request, a state.Action) {
	if _, err := s.state.Dispatch(r.Context(), a); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps domain errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		ae *nutrition.AnalysisError
		se *activity.SyncError
	)
	switch {
	case errors.Is(err, state.ErrSessionActive):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, activity.ErrNotLinked):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, nutrition.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.As(err, &ae):
		s.log.Warn("analysis failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody(ae.Message))
	case errors.As(err, &se):
		s.log.Warn("activity sync failed", "op", se.Op, "error", se.Err)
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	default:
		s.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads and validates a request body, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v validation.Validatable) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON: "+err.Error()))
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid request", Fields: err})
		return false
	}
	return true
}

// parseTimeRange reads start/end query parameters as RFC 3339 or dates in the
// server location. Without start, the range is the last defaultDays days.
func (s *Server) parseTimeRange(r *http.Request, defaultDays int) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	end = s.now()
	if endStr != "" {
		if end, err = s.parseTime(endStr, true); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if startStr == "" {
		return end.AddDate(0, 0, -defaultDays), end, nil
	}
	if start, err = s.parseTime(startStr, false); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (s *Server) parseTime(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, s.loc)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		// End of day for date-only
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
