package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/claude/fitlog/internal/models"
)

var t0 = time.Date(2026, 2, 19, 16, 54, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleState() models.AppState {
	st := models.EmptyState()
	st.Workouts = []models.WorkoutSession{{
		ID:    "w1",
		Date:  t0,
		Label: "Push Day",
		Exercises: []models.ExerciseSet{
			{ID: "s1", Name: "Bench", Weight: 60, Reps: 8, Date: t0.Add(5 * time.Minute)},
		},
		IsCompleted: true,
	}}
	st.CardioHistory = []models.CardioEntry{
		{ID: "strava-1", Type: models.CardioRun, Distance: 5.01, Duration: 27, Date: t0, Source: models.SourceExternalSync},
	}
	carbs := 250
	st.HealthHistory = []models.HealthSnapshot{
		{Date: t0, SleepHours: 7.5, CaloriesGoal: 2400, ProteinGoal: 170, CarbsGoal: &carbs, WeightKg: 74},
	}
	st.MealHistory = []models.MealEntry{
		{ID: "m1", Name: "Apple", Calories: 130, ProteinG: 0.8, CarbsG: 35, FatsG: 0.5, Date: t0},
	}
	st.ExternalSyncLinked = true
	return st
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// TestLoadAbsentReturnsDefaults verifies a fresh profile starts with empty collections.
func TestLoadAbsentReturnsDefaults(t *testing.T) {
	s := NewStore(NewMemoryBackend(), discardLogger())
	st := s.Load(context.Background())

	if st.Workouts == nil || st.CardioHistory == nil || st.HealthHistory == nil || st.MealHistory == nil {
		t.Fatalf("collections should be non-nil: %+v", st)
	}
	if len(st.Workouts)+len(st.CardioHistory)+len(st.HealthHistory)+len(st.MealHistory) != 0 {
		t.Errorf("expected empty state, got %+v", st)
	}
	if st.ExternalSyncLinked {
		t.Error("sync flag should default to false")
	}
}

// TestLoadMalformedFallsBack verifies a corrupt blob is logged and replaced by defaults.
func TestLoadMalformedFallsBack(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	backend.Put(ctx, StateKey, []byte(`{"workouts": [`))

	var buf bytes.Buffer
	s := NewStore(backend, slog.New(slog.NewTextHandler(&buf, nil)))
	st := s.Load(ctx)

	if len(st.Workouts) != 0 {
		t.Errorf("workouts = %d, want 0", len(st.Workouts))
	}
	if !strings.Contains(buf.String(), "failed to parse state") {
		t.Errorf("expected parse failure to be logged, got %q", buf.String())
	}
}

// TestLoadWrongFieldTypeFallsBack verifies a type mismatch in a known field is treated as malformed.
func TestLoadWrongFieldTypeFallsBack(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	backend.Put(ctx, StateKey, []byte(`{"mealHistory": "oops"}`))

	st := NewStore(backend, discardLogger()).Load(ctx)
	if len(st.MealHistory) != 0 {
		t.Errorf("mealHistory = %d, want 0", len(st.MealHistory))
	}
}

// TestSaveLoadRoundTrip verifies save followed by load reproduces the state exactly.
func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryBackend(), discardLogger())
	want := sampleState()

	s.Save(ctx, want)
	got := s.Load(ctx)

	if mustJSON(t, got) != mustJSON(t, want) {
		t.Errorf("round trip mismatch:\n got  %s\n want %s", mustJSON(t, got), mustJSON(t, want))
	}

	// save(load()) then load() is stable
	s.Save(ctx, got)
	again := s.Load(ctx)
	if mustJSON(t, again) != mustJSON(t, want) {
		t.Error("second round trip changed the state")
	}
}

// TestShallowMergeDropsUnknownFields verifies unknown top-level keys are dropped
// and missing keys populate with defaults.
func TestShallowMergeDropsUnknownFields(t *testing.T) {
	blob := []byte(`{"mealHistory":[{"id":"m1","name":"Oats","calories":380,"date":"2026-02-19T08:00:00Z"}],"theme":"dark"}`)
	st, migrated, err := DecodeState(blob, t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if migrated {
		t.Error("no migration expected")
	}
	if len(st.MealHistory) != 1 || st.MealHistory[0].Name != "Oats" {
		t.Errorf("mealHistory = %+v", st.MealHistory)
	}
	if st.Workouts == nil || st.CardioHistory == nil {
		t.Error("absent collections should default to empty")
	}
	if strings.Contains(mustJSON(t, st), "theme") {
		t.Error("unknown field should be dropped")
	}
}

// TestLegacyMigration verifies a flat gymHistory blob becomes one completed "legacy" session.
func TestLegacyMigration(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	backend.Put(ctx, StateKey, []byte(`{"gymHistory":[{"id":"a","name":"Squat","weight":100,"reps":5,"date":"2026-01-10T09:00:00Z"}]}`))

	s := NewStore(backend, discardLogger())
	st := s.Load(ctx)

	if len(st.Workouts) != 1 {
		t.Fatalf("workouts = %d, want 1", len(st.Workouts))
	}
	w := st.Workouts[0]
	if w.Label != "legacy" || !w.IsCompleted {
		t.Errorf("session = %+v, want completed legacy session", w)
	}
	if len(w.Exercises) != 1 || w.Exercises[0].ID != "a" || w.Exercises[0].Weight != 100 || w.Exercises[0].Reps != 5 {
		t.Errorf("exercises = %+v", w.Exercises)
	}
	if !w.Date.Equal(time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("session date = %v, want earliest set date", w.Date)
	}

	// Saving and reloading must not migrate again.
	s.Save(ctx, st)
	again := s.Load(ctx)
	if len(again.Workouts) != 1 {
		t.Errorf("workouts after reload = %d, want 1", len(again.Workouts))
	}
}

// TestMigrateLegacyIdempotent verifies migrate(migrate(x)) == migrate(x).
func TestMigrateLegacyIdempotent(t *testing.T) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(`{"gymHistory":[{"id":"a","name":"Squat","weight":100,"reps":5,"date":"2026-01-10T09:00:00Z"}]}`), &raw); err != nil {
		t.Fatal(err)
	}

	once, changed, err := MigrateLegacy(raw, t0)
	if err != nil || !changed {
		t.Fatalf("first migration: changed=%v err=%v", changed, err)
	}
	twice, changed, err := MigrateLegacy(once, t0)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("second migration should be a no-op")
	}
	if mustJSON(t, once) != mustJSON(t, twice) {
		t.Error("migration is not idempotent")
	}
	if _, ok := raw["workouts"]; ok {
		t.Error("input map was modified")
	}
}

// TestMigrateLegacyKeepsSessionShape verifies a blob with both shapes keeps its sessions.
func TestMigrateLegacyKeepsSessionShape(t *testing.T) {
	blob := []byte(`{"workouts":[],"gymHistory":[{"id":"a","name":"Squat","weight":100,"reps":5,"date":"2026-01-10T09:00:00Z"}]}`)
	st, migrated, err := DecodeState(blob, t0)
	if err != nil {
		t.Fatal(err)
	}
	if migrated || len(st.Workouts) != 0 {
		t.Errorf("migrated=%v workouts=%d, want no migration", migrated, len(st.Workouts))
	}
}

// TestMigrateLegacyEmptyList verifies an empty legacy list still yields a session dated now.
func TestMigrateLegacyEmptyList(t *testing.T) {
	st, migrated, err := DecodeState([]byte(`{"gymHistory":[]}`), t0)
	if err != nil {
		t.Fatal(err)
	}
	if !migrated || len(st.Workouts) != 1 {
		t.Fatalf("migrated=%v workouts=%d", migrated, len(st.Workouts))
	}
	if !st.Workouts[0].Date.Equal(t0) {
		t.Errorf("date = %v, want %v", st.Workouts[0].Date, t0)
	}
}

type failingBackend struct{ *MemoryBackend }

func (f *failingBackend) Put(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

// TestSaveFailureIsSwallowed verifies write failures are logged but never surface to the caller.
func TestSaveFailureIsSwallowed(t *testing.T) {
	var buf bytes.Buffer
	s := NewStore(&failingBackend{MemoryBackend: NewMemoryBackend()}, slog.New(slog.NewTextHandler(&buf, nil)))

	s.Save(context.Background(), sampleState())

	if !strings.Contains(buf.String(), "quota exceeded") {
		t.Errorf("expected failure in log, got %q", buf.String())
	}
	if err := s.Put(context.Background(), sampleState()); err == nil {
		t.Error("Put should report the failure")
	}
}

// TestFileBackend verifies blobs persist across backend instances in the same directory.
func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")

	if _, err := NewFileBackend(dir).Get(ctx, StateKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty dir: err = %v, want ErrNotFound", err)
	}

	s := NewStore(NewFileBackend(dir), discardLogger())
	s.Save(ctx, sampleState())

	got := NewStore(NewFileBackend(dir), discardLogger()).Load(ctx)
	if mustJSON(t, got) != mustJSON(t, sampleState()) {
		t.Error("file backend round trip mismatch")
	}
}

// TestSQLiteBackend verifies migrations apply and blobs overwrite by key.
func TestSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fitlog.db")

	b, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if _, err := b.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
	if err := b.Put(ctx, "k", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := b.Put(ctx, "k", []byte("two")); err != nil {
		t.Fatal(err)
	}
	b.Close()

	// Reopen: migrations are already applied and data survives.
	b, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	got, err := b.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Errorf("value = %q, want two", got)
	}
}

// TestOpenDriver verifies driver names select backends and unknown ones fail.
func TestOpenDriver(t *testing.T) {
	b, err := Open("memory", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*MemoryBackend); !ok {
		t.Errorf("memory backend = %T", b)
	}
	if b, err := Open("file", t.TempDir()); err != nil {
		t.Fatal(err)
	} else if _, ok := b.(*FileBackend); !ok {
		t.Errorf("file backend = %T", b)
	}
	if _, err := Open("postgres", "x"); err == nil {
		t.Error("expected error for unknown driver")
	}
}
