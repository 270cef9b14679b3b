package models

import (
	"time"

	"github.com/google/uuid"
)

// CardioType is the kind of cardio activity.
type CardioType string

const (
	CardioRun   CardioType = "run"
	CardioCycle CardioType = "cycle"
	CardioWalk  CardioType = "walk"
)

// CardioSource records where a cardio entry came from.
type CardioSource string

const (
	SourceManual       CardioSource = "manual"
	SourceExternalSync CardioSource = "external-sync"
)

// ExerciseSet is one logged set of a strength exercise.
type ExerciseSet struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Weight float64   `json:"weight"`
	Reps   int       `json:"reps"`
	Date   time.Time `json:"date"`
}

// WorkoutSession groups the sets logged between start and finish.
// Date is the session start.
type WorkoutSession struct {
	ID          string        `json:"id"`
	Date        time.Time     `json:"date"`
	Label       string        `json:"label"`
	Exercises   []ExerciseSet `json:"exercises"`
	IsCompleted bool          `json:"isCompleted"`
}

// CardioEntry is a single cardio activity, manual or synced.
type CardioEntry struct {
	ID       string       `json:"id"`
	Type     CardioType   `json:"type"`
	Distance float64      `json:"distance"` // km
	Duration int          `json:"duration"` // minutes
	Date     time.Time    `json:"date"`
	Source   CardioSource `json:"source"`
	AvgSpeed *float64     `json:"avgSpeed,omitempty"` // km/h, synced entries only
}

// HealthSnapshot is an append-only record of body metrics and nutrition goals.
// Settings edits append a new snapshot rather than mutating an old one.
type HealthSnapshot struct {
	Date         time.Time `json:"date"`
	SleepHours   float64   `json:"sleepHours"`
	CaloriesGoal int       `json:"caloriesGoal"`
	ProteinGoal  int       `json:"proteinGoal"`
	CarbsGoal    *int      `json:"carbsGoal,omitempty"`
	FatsGoal     *int      `json:"fatsGoal,omitempty"`
	WeightKg     float64   `json:"weightKg"`
	HeightCm     *float64  `json:"heightCm,omitempty"`
	Age          *int      `json:"age,omitempty"`
	GoalLabel    *string   `json:"goalLabel,omitempty"`
}

// MealEntry is a logged meal with concrete (already scaled) nutrition values.
type MealEntry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Calories float64   `json:"calories"`
	ProteinG float64   `json:"proteinG"`
	CarbsG   float64   `json:"carbsG"`
	FatsG    float64   `json:"fatsG"`
	FiberG   float64   `json:"fiberG"`
	Date     time.Time `json:"date"`
}

// AppState is the aggregate root holding all user history.
type AppState struct {
	Workouts           []WorkoutSession `json:"workouts"`
	CardioHistory      []CardioEntry    `json:"cardioHistory"`
	HealthHistory      []HealthSnapshot `json:"healthHistory"`
	MealHistory        []MealEntry      `json:"mealHistory"`
	ExternalSyncLinked bool             `json:"externalSyncLinked"`
}

// EmptyState returns a state with all collections empty (non-nil) and the sync flag off.
func EmptyState() AppState {
	return AppState{
		Workouts:      []WorkoutSession{},
		CardioHistory: []CardioEntry{},
		HealthHistory: []HealthSnapshot{},
		MealHistory:   []MealEntry{},
	}
}

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}

// NewExerciseSet creates a set stamped with a fresh id and the given time.
// Negative weight or reps are clamped to zero.
func NewExerciseSet(name string, weight float64, reps int, at time.Time) ExerciseSet {
	return ExerciseSet{
		ID:     NewID(),
		Name:   name,
		Weight: nonNegative(weight),
		Reps:   max(reps, 0),
		Date:   at,
	}
}

// NewWorkoutSession creates an active (incomplete) session starting at the given time.
func NewWorkoutSession(label string, at time.Time) WorkoutSession {
	return WorkoutSession{
		ID:        NewID(),
		Date:      at,
		Label:     label,
		Exercises: []ExerciseSet{},
	}
}

// NewCardioEntry creates a manually logged cardio entry.
func NewCardioEntry(kind CardioType, distanceKm float64, durationMin int, at time.Time) CardioEntry {
	if kind == "" {
		kind = CardioRun
	}
	return CardioEntry{
		ID:       NewID(),
		Type:     kind,
		Distance: nonNegative(distanceKm),
		Duration: max(durationMin, 0),
		Date:     at,
		Source:   SourceManual,
	}
}

// NewMealEntry creates a meal entry. An empty name falls back to "Meal".
func NewMealEntry(name string, calories, protein, carbs, fats, fiber float64, at time.Time) MealEntry {
	if name == "" {
		name = "Meal"
	}
	return MealEntry{
		ID:       NewID(),
		Name:     name,
		Calories: nonNegative(calories),
		ProteinG: nonNegative(protein),
		CarbsG:   nonNegative(carbs),
		FatsG:    nonNegative(fats),
		FiberG:   nonNegative(fiber),
		Date:     at,
	}
}

// IsValidCardioType reports whether t is one of the known cardio kinds.
func IsValidCardioType(t CardioType) bool {
	switch t {
	case CardioRun, CardioCycle, CardioWalk:
		return true
	}
	return false
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
