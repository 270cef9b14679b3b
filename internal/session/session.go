// Package session implements the workout session lifecycle.
//
// A session is Active until finished (Completed, terminal) or deleted. All
// functions are pure: they return a new slice and never modify the input.
package session

import (
	"slices"
	"time"

	"github.com/claude/fitlog/internal/models"
)

// Active returns the canonical active session: the last incomplete session
// in the sequence. At most one should exist; if several do, the most recently
// appended wins.
func Active(workouts []models.WorkoutSession) (models.WorkoutSession, bool) {
	for i := len(workouts) - 1; i >= 0; i-- {
		if !workouts[i].IsCompleted {
			return workouts[i], true
		}
	}
	return models.WorkoutSession{}, false
}

// HasActive reports whether any session is still open.
func HasActive(workouts []models.WorkoutSession) bool {
	_, ok := Active(workouts)
	return ok
}

// Start appends a new active session. It does not check for an existing
// active session; that precondition belongs to the caller.
func Start(workouts []models.WorkoutSession, label string, now time.Time) ([]models.WorkoutSession, models.WorkoutSession) {
	s := models.NewWorkoutSession(label, now)
	return Append(workouts, s), s
}

// Append adds an already constructed session to the end of the sequence.
func Append(workouts []models.WorkoutSession, s models.WorkoutSession) []models.WorkoutSession {
	out := make([]models.WorkoutSession, 0, len(workouts)+1)
	out = append(out, workouts...)
	return append(out, s)
}

// AddSet appends set to the active session. If sessionID is not the
// canonical active session the input is returned unchanged.
func AddSet(workouts []models.WorkoutSession, sessionID string, set models.ExerciseSet) ([]models.WorkoutSession, bool) {
	active, ok := Active(workouts)
	if !ok || active.ID != sessionID {
		return workouts, false
	}
	return replace(workouts, sessionID, func(w models.WorkoutSession) models.WorkoutSession {
		w.Exercises = append(slices.Clip(w.Exercises), set)
		return w
	}), true
}

// Finish marks an active session completed. Completed or unknown sessions
// are left as they are.
func Finish(workouts []models.WorkoutSession, sessionID string) ([]models.WorkoutSession, bool) {
	i := indexOf(workouts, sessionID)
	if i < 0 || workouts[i].IsCompleted {
		return workouts, false
	}
	return replace(workouts, sessionID, func(w models.WorkoutSession) models.WorkoutSession {
		w.IsCompleted = true
		return w
	}), true
}

// Delete removes the session with the given id regardless of its state.
func Delete(workouts []models.WorkoutSession, sessionID string) ([]models.WorkoutSession, bool) {
	if indexOf(workouts, sessionID) < 0 {
		return workouts, false
	}
	out := make([]models.WorkoutSession, 0, len(workouts)-1)
	for _, w := range workouts {
		if w.ID != sessionID {
			out = append(out, w)
		}
	}
	return out, true
}

// Find returns the session with the given id.
func Find(workouts []models.WorkoutSession, sessionID string) (models.WorkoutSession, bool) {
	i := indexOf(workouts, sessionID)
	if i < 0 {
		return models.WorkoutSession{}, false
	}
	return workouts[i], true
}

func indexOf(workouts []models.WorkoutSession, id string) int {
	return slices.IndexFunc(workouts, func(w models.WorkoutSession) bool { return w.ID == id })
}

func replace(workouts []models.WorkoutSession, id string, fn func(models.WorkoutSession) models.WorkoutSession) []models.WorkoutSession {
	out := make([]models.WorkoutSession, len(workouts))
	for i, w := range workouts {
		if w.ID == id {
			w = fn(w)
		}
		out[i] = w
	}
	return out
}
