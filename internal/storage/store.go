package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/fitlog/internal/models"
)

// StateKey is the well-known key the application state blob lives under.
const StateKey = "cyberfit_data_v1"

// Store owns the durable representation of the application state.
//
// Persistence is best effort: Save logs and swallows write failures, so the
// in-memory state can drift from what is on disk. Callers that need the
// failure use Put.
type Store struct {
	backend Backend
	log     *slog.Logger
	now     func() time.Time
}

// NewStore creates a Store over the given backend.
func NewStore(backend Backend, log *slog.Logger) *Store {
	return &Store{backend: backend, log: log, now: time.Now}
}

// Backend exposes the underlying blob storage for collaborators that persist
// their own small records (e.g. OAuth tokens).
func (s *Store) Backend() Backend {
	return s.backend
}

// Load returns the persisted state. A missing blob yields the empty state; a
// malformed blob is logged and also yields the empty state.
func (s *Store) Load(ctx context.Context) models.AppState {
	data, err := s.backend.Get(ctx, StateKey)
	if errors.Is(err, ErrNotFound) {
		return models.EmptyState()
	}
	if err != nil {
		s.log.Error("reading state blob, using defaults", "error", err)
		return models.EmptyState()
	}

	st, migrated, err := DecodeState(data, s.now())
	if err != nil {
		s.log.Error("failed to parse state, using defaults", "error", err)
		return models.EmptyState()
	}
	if migrated {
		s.log.Info("migrated legacy exercise history", "sets", len(st.Workouts[0].Exercises))
	}
	return st
}

// Save overwrites the persisted state. Errors are logged, never returned.
func (s *Store) Save(ctx context.Context, st models.AppState) {
	if err := s.Put(ctx, st); err != nil {
		s.log.Error("state save failed, in-memory state not persisted", "error", err)
	}
}

// Put overwrites the persisted state and reports failure.
func (s *Store) Put(ctx context.Context, st models.AppState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := s.backend.Put(ctx, StateKey, data); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

// DecodeState parses a stored blob, applies the legacy migration and merges
// the known top-level fields over the empty defaults. Unknown fields are dropped.
func DecodeState(data []byte, now time.Time) (models.AppState, bool, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.EmptyState(), false, fmt.Errorf("parsing state blob: %w", err)
	}
	if raw == nil {
		return models.EmptyState(), false, nil
	}

	raw, migrated, err := MigrateLegacy(raw, now)
	if err != nil {
		return models.EmptyState(), false, err
	}

	st := models.EmptyState()
	fields := []struct {
		key  string
		dest any
	}{
		{"workouts", &st.Workouts},
		{"cardioHistory", &st.CardioHistory},
		{"healthHistory", &st.HealthHistory},
		{"mealHistory", &st.MealHistory},
		{"externalSyncLinked", &st.ExternalSyncLinked},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok || isNull(v) {
			continue
		}
		if err := json.Unmarshal(v, f.dest); err != nil {
			return models.EmptyState(), false, fmt.Errorf("decoding %s: %w", f.key, err)
		}
	}

	for i := range st.Workouts {
		if st.Workouts[i].Exercises == nil {
			st.Workouts[i].Exercises = []models.ExerciseSet{}
		}
	}
	return st, migrated, nil
}
