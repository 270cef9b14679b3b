package storage

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/claude/fitlog/internal/models"
)

const (
	legacySessionID    = "legacy"
	legacySessionLabel = "legacy"
)

// MigrateLegacy rewrites a pre-session blob into the session-based shape.
//
// Blobs that carry a flat "gymHistory" list of sets and no "workouts" get one
// completed session wrapping that list; "gymHistory" is removed. Any other
// blob is returned unchanged. The input map is not modified. Applying the
// migration twice yields the same result as applying it once.
func MigrateLegacy(raw map[string]json.RawMessage, now time.Time) (map[string]json.RawMessage, bool, error) {
	legacy, hasLegacy := raw["gymHistory"]
	if !hasLegacy || isNull(legacy) {
		return raw, false, nil
	}
	if w, ok := raw["workouts"]; ok && !isNull(w) {
		return raw, false, nil
	}

	var sets []models.ExerciseSet
	if err := json.Unmarshal(legacy, &sets); err != nil {
		return nil, false, fmt.Errorf("decoding legacy gymHistory: %w", err)
	}
	if sets == nil {
		sets = []models.ExerciseSet{}
	}

	session := models.WorkoutSession{
		ID:          legacySessionID,
		Date:        earliestSetDate(sets, now),
		Label:       legacySessionLabel,
		Exercises:   sets,
		IsCompleted: true,
	}
	workouts, err := json.Marshal([]models.WorkoutSession{session})
	if err != nil {
		return nil, false, fmt.Errorf("encoding legacy session: %w", err)
	}

	out := maps.Clone(raw)
	delete(out, "gymHistory")
	out["workouts"] = workouts
	return out, true, nil
}

func earliestSetDate(sets []models.ExerciseSet, fallback time.Time) time.Time {
	if len(sets) == 0 {
		return fallback
	}
	earliest := sets[0].Date
	for _, s := range sets[1:] {
		if s.Date.Before(earliest) {
			earliest = s.Date
		}
	}
	return earliest
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || string(v) == "null"
}
