package alpha

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/claude/fitlog/internal/models"
)

// namespace seeds the deterministic ids of imported records.
var namespace = uuid.MustParse("6f1c8c2e-3d4a-5b7e-9a1f-0c2d4e6f8a10")

// SessionID returns the stable id for an exported session, so importing the
// same export twice yields the same ids.
func SessionID(s Session) string {
	return uuid.NewSHA1(namespace, []byte(s.Name+"|"+s.Date.UTC().Format("2006-01-02T15:04"))).String()
}

// ToWorkout converts an exported session to a completed workout session.
// Warm-up sets are dropped; bodyweight-plus sets record the added weight.
func ToWorkout(s Session) (models.WorkoutSession, int) {
	id := SessionID(s)
	w := models.WorkoutSession{
		ID:          id,
		Date:        s.Date,
		Label:       s.Name,
		Exercises:   []models.ExerciseSet{},
		IsCompleted: true,
	}
	warmups := 0
	for _, ex := range s.Exercises {
		for _, set := range ex.Sets {
			if set.IsWarmup {
				warmups++
				continue
			}
			setID := uuid.NewSHA1(namespace, fmt.Appendf(nil, "%s|%d|%d", id, ex.Number, set.Number))
			w.Exercises = append(w.Exercises, models.ExerciseSet{
				ID:     setID.String(),
				Name:   ex.Name,
				Weight: set.WeightKg,
				Reps:   set.Reps,
				Date:   s.Date,
			})
		}
	}
	return w, warmups
}
