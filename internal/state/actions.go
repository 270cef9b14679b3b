package state

import (
	"errors"
	"fmt"
	"slices"

	"github.com/claude/fitlog/internal/activity"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/session"
)

// ErrSessionActive is returned when a session is started while another is still open.
var ErrSessionActive = errors.New("a workout session is already active")

// Action is a state transition request.
type Action interface {
	// Name identifies the action in logs.
	Name() string
}

// StartSession opens a new workout session. Session must be built with
// models.NewWorkoutSession.
type StartSession struct{ Session models.WorkoutSession }

// AddSet appends a set to the active session.
type AddSet struct {
	SessionID string
	Set       models.ExerciseSet
}

// FinishSession completes the given session.
type FinishSession struct{ SessionID string }

// DeleteWorkout removes a session in any state.
type DeleteWorkout struct{ ID string }

// AddCardio logs a cardio entry.
type AddCardio struct{ Entry models.CardioEntry }

// DeleteCardio removes a cardio entry.
type DeleteCardio struct{ ID string }

// MergeSyncedCardio adds synced entries not already in history.
type MergeSyncedCardio struct{ Entries []models.CardioEntry }

// AddHealth appends a health snapshot.
type AddHealth struct{ Snapshot models.HealthSnapshot }

// AddMeal logs a meal.
type AddMeal struct{ Meal models.MealEntry }

// DeleteMeal removes a meal.
type DeleteMeal struct{ ID string }

// SetSyncLinked records whether an activity account is linked.
type SetSyncLinked struct{ Linked bool }

// ImportSessions appends completed sessions whose id is not yet present.
type ImportSessions struct{ Sessions []models.WorkoutSession }

// ImportHealth appends imported body-metric snapshots in the given order.
// A snapshot whose date, weight and sleep match one already recorded is
// dropped, so concurrent imports of the same payload add it once.
type ImportHealth struct{ Snapshots []models.HealthSnapshot }

func (StartSession) Name() string { return "start_session" }
func (AddSet) Name() string { return "add_set" }
func (FinishSession) Name() string { return "finish_session" }
func (DeleteWorkout) Name() string { return "delete_workout" }
func (AddCardio) Name() string { return "add_cardio" }
func (DeleteCardio) Name() string { return "delete_cardio" }
func (MergeSyncedCardio) Name() string { return "merge_synced_cardio" }
func (AddHealth) Name() string { return "add_health" }
func (AddMeal) Name() string { return "add_meal" }
func (DeleteMeal) Name() string { return "delete_meal" }
func (SetSyncLinked) Name() string { return "set_sync_linked" }
func (ImportSessions) Name() string { return "import_sessions" }
func (ImportHealth) Name() string { return "import_health" }

// Reduce returns the state that results from applying a to st. It never
// modifies st. The returned bool is false when the action changed nothing
// (stale ids, duplicates), in which case the returned state is st.
func Reduce(st models.AppState, a Action) (models.AppState, bool, error) {
	next := st
	switch a := a.(type) {
	case StartSession:
		if session.HasActive(st.Workouts) {
			return st, false, ErrSessionActive
		}
		next.Workouts = session.Append(st.Workouts, a.Session)

	case AddSet:
		w, ok := session.AddSet(st.Workouts, a.SessionID, a.Set)
		if !ok {
			return st, false, nil
		}
		next.Workouts = w

	case FinishSession:
		w, ok := session.Finish(st.Workouts, a.SessionID)
		if !ok {
			return st, false, nil
		}
		next.Workouts = w

	case DeleteWorkout:
		w, ok := session.Delete(st.Workouts, a.ID)
		if !ok {
			return st, false, nil
		}
		next.Workouts = w

	case AddCardio:
		next.CardioHistory = prepend(st.CardioHistory, a.Entry)

	case DeleteCardio:
		c, ok := without(st.CardioHistory, func(c models.CardioEntry) bool { return c.ID == a.ID })
		if !ok {
			return st, false, nil
		}
		next.CardioHistory = c

	case MergeSyncedCardio:
		c, added := activity.Merge(st.CardioHistory, a.Entries)
		if added == 0 {
			return st, false, nil
		}
		next.CardioHistory = c

	case AddHealth:
		next.HealthHistory = appendCopy(st.HealthHistory, a.Snapshot)

	case AddMeal:
		next.MealHistory = prepend(st.MealHistory, a.Meal)

	case DeleteMeal:
		m, ok := without(st.MealHistory, func(m models.MealEntry) bool { return m.ID == a.ID })
		if !ok {
			return st, false, nil
		}
		next.MealHistory = m

	case SetSyncLinked:
		if st.ExternalSyncLinked == a.Linked {
			return st, false, nil
		}
		next.ExternalSyncLinked = a.Linked

	case ImportSessions:
		w, added := importSessions(st.Workouts, a.Sessions)
		if added == 0 {
			return st, false, nil
		}
		next.Workouts = w

	case ImportHealth:
		h, added := importHealth(st.HealthHistory, a.Snapshots)
		if added == 0 {
			return st, false, nil
		}
		next.HealthHistory = h

	default:
		return st, false, fmt.Errorf("unknown action %T", a)
	}
	return next, true, nil
}

func importSessions(workouts, incoming []models.WorkoutSession) ([]models.WorkoutSession, int) {
	seen := make(map[string]struct{}, len(workouts))
	for _, w := range workouts {
		seen[w.ID] = struct{}{}
	}
	out := workouts
	added := 0
	for _, s := range incoming {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		s.IsCompleted = true
		// Imported sessions go before any open session so it stays canonical.
		out = insertBeforeActive(out, s)
		added++
	}
	return out, added
}

func importHealth(history, incoming []models.HealthSnapshot) ([]models.HealthSnapshot, int) {
	out := make([]models.HealthSnapshot, 0, len(history)+len(incoming))
	out = append(out, history...)
	added := 0
	for _, s := range incoming {
		dup := slices.ContainsFunc(out, func(h models.HealthSnapshot) bool {
			return h.Date.Equal(s.Date) && h.WeightKg == s.WeightKg && h.SleepHours == s.SleepHours
		})
		if dup {
			continue
		}
		out = append(out, s)
		added++
	}
	return out, added
}

func insertBeforeActive(workouts []models.WorkoutSession, s models.WorkoutSession) []models.WorkoutSession {
	out := make([]models.WorkoutSession, 0, len(workouts)+1)
	if n := len(workouts); n > 0 && !workouts[n-1].IsCompleted {
		out = append(out, workouts[:n-1]...)
		out = append(out, s)
		return append(out, workouts[n-1])
	}
	out = append(out, workouts...)
	return append(out, s)
}

func prepend[T any](s []T, v T) []T {
	out := make([]T, 0, len(s)+1)
	out = append(out, v)
	return append(out, s...)
}

func appendCopy[T any](s []T, v T) []T {
	out := make([]T, 0, len(s)+1)
	out = append(out, s...)
	return append(out, v)
}

func without[T any](s []T, match func(T) bool) ([]T, bool) {
	out := make([]T, 0, len(s))
	for _, v := range s {
		if !match(v) {
			out = append(out, v)
		}
	}
	return out, len(out) != len(s)
}
