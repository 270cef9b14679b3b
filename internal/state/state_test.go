package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/claude/fitlog/internal/aggregate"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/storage"
)

var now = time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func activeCount(st models.AppState) int {
	n := 0
	for _, w := range st.Workouts {
		if !w.IsCompleted {
			n++
		}
	}
	return n
}

// errBackend fails every write.
type errBackend struct{ *storage.MemoryBackend }

func (errBackend) Put(context.Context, string, []byte) error { return errors.New("disk full") }

func newContainer(t *testing.T, backend storage.Backend, opts ...Option) (*Container, *storage.Store) {
	t.Helper()
	store := storage.NewStore(backend, discardLogger())
	return Open(context.Background(), store, discardLogger(), opts...), store
}

// TestPushDayScenario walks the full session lifecycle through the container and reloads it.
func TestPushDayScenario(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	c, store := newContainer(t, backend)

	s := models.NewWorkoutSession("Push Day", now)
	if _, err := c.Dispatch(ctx, StartSession{Session: s}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := c.Dispatch(ctx, AddSet{SessionID: s.ID, Set: models.NewExerciseSet("Bench", 60, 8, now)}); err != nil {
		t.Fatalf("add set: %v", err)
	}
	st, err := c.Dispatch(ctx, FinishSession{SessionID: s.ID})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	if len(st.Workouts) != 1 || !st.Workouts[0].IsCompleted || st.Workouts[0].Label != "Push Day" {
		t.Fatalf("workouts = %+v", st.Workouts)
	}
	set, ok := aggregate.PreviousSetFor("bench", st.Workouts)
	if !ok || set.Weight != 60 || set.Reps != 8 {
		t.Errorf("PreviousSetFor(bench) = %+v, %v", set, ok)
	}

	reloaded := store.Load(ctx)
	if len(reloaded.Workouts) != 1 || len(reloaded.Workouts[0].Exercises) != 1 {
		t.Errorf("reloaded = %+v", reloaded.Workouts)
	}
}

// TestStartWhileActiveIsRefused verifies at most one session is ever open.
func TestStartWhileActiveIsRefused(t *testing.T) {
	ctx := context.Background()
	c, _ := newContainer(t, storage.NewMemoryBackend())

	first := models.NewWorkoutSession("A", now)
	if _, err := c.Dispatch(ctx, StartSession{Session: first}); err != nil {
		t.Fatal(err)
	}
	before := c.Snapshot()

	st, err := c.Dispatch(ctx, StartSession{Session: models.NewWorkoutSession("B", now)})
	if !errors.Is(err, ErrSessionActive) {
		t.Fatalf("err = %v, want ErrSessionActive", err)
	}
	if len(st.Workouts) != len(before.Workouts) || activeCount(st) != 1 {
		t.Errorf("state changed: %+v", st.Workouts)
	}

	if _, err := c.Dispatch(ctx, FinishSession{SessionID: first.ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Dispatch(ctx, StartSession{Session: models.NewWorkoutSession("B", now)}); err != nil {
		t.Errorf("start after finish: %v", err)
	}
}

// TestSingleActiveInvariantConcurrent verifies concurrent starts never open two sessions.
func TestSingleActiveInvariantConcurrent(t *testing.T) {
	ctx := context.Background()
	c, _ := newContainer(t, storage.NewMemoryBackend())

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Dispatch(ctx, StartSession{Session: models.NewWorkoutSession("S", now.Add(time.Duration(i)*time.Second))})
		}()
	}
	wg.Wait()

	if n := activeCount(c.Snapshot()); n != 1 {
		t.Errorf("active sessions = %d, want 1", n)
	}
}

// TestSyncDedup verifies merging the same synced activity twice keeps one entry.
func TestSyncDedup(t *testing.T) {
	ctx := context.Background()
	c, _ := newContainer(t, storage.NewMemoryBackend())
	batch := []models.CardioEntry{{ID: "strava-42", Type: models.CardioRun, Distance: 5, Duration: 25, Date: now, Source: models.SourceExternalSync}}

	for range 2 {
		if _, err := c.Dispatch(ctx, MergeSyncedCardio{Entries: batch}); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(c.Snapshot().CardioHistory); n != 1 {
		t.Errorf("cardio entries = %d, want 1", n)
	}
}

// TestOrdering verifies cardio and meals are newest first while health appends.
func TestOrdering(t *testing.T) {
	ctx := context.Background()
	c, _ := newContainer(t, storage.NewMemoryBackend())

	m1 := models.NewMealEntry("first", 100, 1, 1, 1, 0, now)
	m2 := models.NewMealEntry("second", 200, 1, 1, 1, 0, now)
	_, _ = c.Dispatch(ctx, AddMeal{Meal: m1})
	_, _ = c.Dispatch(ctx, AddMeal{Meal: m2})

	h1 := models.NewHealthSnapshot(now, 75, 7, 2500, 180)
	h2 := models.NewHealthSnapshot(now.Add(time.Hour), 74, 8, 2400, 170)
	_, _ = c.Dispatch(ctx, AddHealth{Snapshot: h1})
	st, _ := c.Dispatch(ctx, AddHealth{Snapshot: h2})

	if st.MealHistory[0].ID != m2.ID {
		t.Errorf("newest meal not first")
	}
	if st.HealthHistory[1].WeightKg != 74 {
		t.Errorf("health snapshots not appended in order")
	}

	st, _ = c.Dispatch(ctx, DeleteMeal{ID: m1.ID})
	if len(st.MealHistory) != 1 || st.MealHistory[0].ID != m2.ID {
		t.Errorf("meals after delete = %+v", st.MealHistory)
	}
}

// TestSnapshotsAreImmutable verifies a dispatch never changes a previously returned snapshot.
func TestSnapshotsAreImmutable(t *testing.T) {
	ctx := context.Background()
	c, _ := newContainer(t, storage.NewMemoryBackend())
	s := models.NewWorkoutSession("Push", now)
	_, _ = c.Dispatch(ctx, StartSession{Session: s})

	before := c.Snapshot()
	_, _ = c.Dispatch(ctx, AddSet{SessionID: s.ID, Set: models.NewExerciseSet("Bench", 60, 8, now)})
	_, _ = c.Dispatch(ctx, AddCardio{Entry: models.NewCardioEntry(models.CardioRun, 5, 25, now)})

	if len(before.Workouts[0].Exercises) != 0 || len(before.CardioHistory) != 0 {
		t.Errorf("earlier snapshot mutated: %+v", before)
	}
}

// TestBestEffortSaveKeepsState verifies a failed save is swallowed and the state still advances.
func TestBestEffortSaveKeepsState(t *testing.T) {
	ctx := context.Background()
	c, _ := newContainer(t, errBackend{storage.NewMemoryBackend()})

	st, err := c.Dispatch(ctx, AddCardio{Entry: models.NewCardioEntry(models.CardioWalk, 2, 30, now)})
	if err != nil {
		t.Fatalf("best-effort dispatch returned %v", err)
	}
	if len(st.CardioHistory) != 1 || len(c.Snapshot().CardioHistory) != 1 {
		t.Error("state did not advance")
	}
}

// TestStrictModeDoesNotCommitOnFailure verifies strict durability leaves the state unchanged on write errors.
func TestStrictModeDoesNotCommitOnFailure(t *testing.T) {
	ctx := context.Background()
	c, _ := newContainer(t, errBackend{storage.NewMemoryBackend()}, WithStrictDurability(true))

	_, err := c.Dispatch(ctx, AddCardio{Entry: models.NewCardioEntry(models.CardioWalk, 2, 30, now)})
	if err == nil {
		t.Fatal("strict dispatch should return the save error")
	}
	if len(c.Snapshot().CardioHistory) != 0 {
		t.Error("strict mode committed despite failed save")
	}
}

// TestImportSessionsSkipsKnownIDs verifies re-importing the same sessions is a no-op
// and imported sessions never displace the open one.
func TestImportSessionsSkipsKnownIDs(t *testing.T) {
	ctx := context.Background()
	c, _ := newContainer(t, storage.NewMemoryBackend())
	open := models.NewWorkoutSession("Open", now)
	_, _ = c.Dispatch(ctx, StartSession{Session: open})

	imported := []models.WorkoutSession{
		{ID: "imp-1", Date: now.AddDate(0, 0, -3), Label: "Legs"},
		{ID: "imp-2", Date: now.AddDate(0, 0, -1), Label: "Back"},
	}
	st, _ := c.Dispatch(ctx, ImportSessions{Sessions: imported})
	st, _ = c.Dispatch(ctx, ImportSessions{Sessions: imported})

	if len(st.Workouts) != 3 {
		t.Fatalf("workouts = %d, want 3", len(st.Workouts))
	}
	if activeCount(st) != 1 || st.Workouts[2].ID != open.ID {
		t.Errorf("open session displaced: %+v", st.Workouts)
	}
}

// TestImportHealthConcurrentDedup verifies the same snapshots imported from
// several goroutines are recorded once, and a repeat reports no change.
func TestImportHealthConcurrentDedup(t *testing.T) {
	ctx := context.Background()
	c, _ := newContainer(t, storage.NewMemoryBackend())
	batch := []models.HealthSnapshot{
		models.NewHealthSnapshot(now.AddDate(0, 0, -2), 80, 7, 0, 0),
		models.NewHealthSnapshot(now.AddDate(0, 0, -1), 79.5, 6.5, 0, 0),
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Dispatch(ctx, ImportHealth{Snapshots: batch})
		}()
	}
	wg.Wait()

	st := c.Snapshot()
	if n := len(st.HealthHistory); n != 2 {
		t.Errorf("health snapshots = %d, want 2", n)
	}
	if _, changed, err := Reduce(st, ImportHealth{Snapshots: batch}); err != nil || changed {
		t.Errorf("repeat import changed = %v, err = %v", changed, err)
	}
}

// TestReduceUnknownAction verifies unknown actions are rejected without change.
func TestReduceUnknownAction(t *testing.T) {
	st := models.EmptyState()
	if _, _, err := Reduce(st, bogus{}); err == nil {
		t.Error("expected error for unknown action")
	}
}

type bogus struct{}

func (bogus) Name() string { return "bogus" }
