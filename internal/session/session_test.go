package session

import (
	"testing"
	"time"

	"github.com/claude/fitlog/internal/models"
)

var now = time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

func countActive(workouts []models.WorkoutSession) int {
	n := 0
	for _, w := range workouts {
		if !w.IsCompleted {
			n++
		}
	}
	return n
}

// TestPushDayScenario walks start -> add set -> finish and checks the resulting history.
func TestPushDayScenario(t *testing.T) {
	var workouts []models.WorkoutSession

	workouts, s := Start(workouts, "Push Day", now)
	if countActive(workouts) != 1 {
		t.Fatalf("active sessions = %d, want 1", countActive(workouts))
	}

	set := models.NewExerciseSet("Bench", 60, 8, now.Add(10*time.Minute))
	workouts, ok := AddSet(workouts, s.ID, set)
	if !ok {
		t.Fatal("AddSet on active session should apply")
	}

	workouts, ok = Finish(workouts, s.ID)
	if !ok {
		t.Fatal("Finish on active session should apply")
	}

	if len(workouts) != 1 {
		t.Fatalf("workouts = %d, want 1", len(workouts))
	}
	w := workouts[0]
	if !w.IsCompleted || w.Label != "Push Day" {
		t.Errorf("session = %+v, want completed Push Day", w)
	}
	if len(w.Exercises) != 1 || w.Exercises[0].ID != set.ID {
		t.Errorf("exercises = %+v, want the single bench set", w.Exercises)
	}
	if HasActive(workouts) {
		t.Error("no session should be active after finish")
	}
}

// TestAddSetIgnoresStaleReferences verifies AddSet is a no-op for unknown or completed sessions.
func TestAddSetIgnoresStaleReferences(t *testing.T) {
	workouts, s := Start(nil, "Legs", now)
	workouts, _ = Finish(workouts, s.ID)
	set := models.NewExerciseSet("Squat", 100, 5, now)

	if got, ok := AddSet(workouts, s.ID, set); ok || len(got[0].Exercises) != 0 {
		t.Error("AddSet on completed session should be a no-op")
	}
	if _, ok := AddSet(workouts, "nope", set); ok {
		t.Error("AddSet on unknown session should be a no-op")
	}
}

// TestAddSetDoesNotMutateInput verifies the previous snapshot is left untouched.
func TestAddSetDoesNotMutateInput(t *testing.T) {
	before, s := Start(nil, "Pull", now)
	after, _ := AddSet(before, s.ID, models.NewExerciseSet("Row", 50, 10, now))

	if len(before[0].Exercises) != 0 {
		t.Errorf("input mutated: %d exercises", len(before[0].Exercises))
	}
	if len(after[0].Exercises) != 1 {
		t.Errorf("output exercises = %d, want 1", len(after[0].Exercises))
	}
}

// TestActiveTieBreak verifies the most recently appended incomplete session is canonical.
func TestActiveTieBreak(t *testing.T) {
	workouts := []models.WorkoutSession{
		{ID: "old", Date: now.Add(-time.Hour)},
		{ID: "done", Date: now.Add(-30 * time.Minute), IsCompleted: true},
		{ID: "new", Date: now},
	}
	a, ok := Active(workouts)
	if !ok || a.ID != "new" {
		t.Errorf("Active = %q, want new", a.ID)
	}

	// Only the canonical session accepts sets.
	if _, ok := AddSet(workouts, "old", models.NewExerciseSet("Curl", 12, 12, now)); ok {
		t.Error("AddSet on non-canonical incomplete session should be a no-op")
	}
}

// TestFinishIsTerminal verifies finishing twice does nothing the second time.
func TestFinishIsTerminal(t *testing.T) {
	workouts, s := Start(nil, "Push", now)
	workouts, ok := Finish(workouts, s.ID)
	if !ok {
		t.Fatal("first finish should apply")
	}
	if _, ok := Finish(workouts, s.ID); ok {
		t.Error("second finish should be a no-op")
	}
}

// TestDelete verifies sessions can be deleted in any state.
func TestDelete(t *testing.T) {
	workouts, a := Start(nil, "A", now)
	workouts, _ = Finish(workouts, a.ID)
	workouts, b := Start(workouts, "B", now.Add(time.Hour))

	workouts, ok := Delete(workouts, a.ID)
	if !ok || len(workouts) != 1 {
		t.Fatalf("delete completed: ok=%v len=%d", ok, len(workouts))
	}
	workouts, ok = Delete(workouts, b.ID)
	if !ok || len(workouts) != 0 {
		t.Fatalf("delete active: ok=%v len=%d", ok, len(workouts))
	}
	if _, ok := Delete(workouts, "missing"); ok {
		t.Error("delete of unknown id should report false")
	}
}

// TestFind verifies lookup by id.
func TestFind(t *testing.T) {
	workouts, s := Start(nil, "Push", now)
	if got, ok := Find(workouts, s.ID); !ok || got.Label != "Push" {
		t.Errorf("Find = %+v, %v", got, ok)
	}
	if _, ok := Find(workouts, "x"); ok {
		t.Error("Find(x) should miss")
	}
}
