package aggregate

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/claude/fitlog/internal/models"
)

// PreviousSetFor returns the most recent set (by date) whose name matches
// exerciseName case-insensitively, across all sessions.
func PreviousSetFor(exerciseName string, workouts []models.WorkoutSession) (models.ExerciseSet, bool) {
	var best models.ExerciseSet
	found := false
	for _, w := range workouts {
		for _, s := range w.Exercises {
			if !strings.EqualFold(s.Name, exerciseName) {
				continue
			}
			if !found || s.Date.After(best.Date) {
				best = s
				found = true
			}
		}
	}
	return best, found
}

// ExerciseGroup is the sets of one exercise within a session.
type ExerciseGroup struct {
	Name string               `json:"name"`
	Sets []models.ExerciseSet `json:"sets"`
}

// GroupSetsByExercise groups a session's sets by exercise name. Groups appear
// in order of first appearance and keep insertion order within each group.
func GroupSetsByExercise(s models.WorkoutSession) []ExerciseGroup {
	groups := []ExerciseGroup{}
	index := make(map[string]int)
	for _, set := range s.Exercises {
		i, ok := index[set.Name]
		if !ok {
			i = len(groups)
			index[set.Name] = i
			groups = append(groups, ExerciseGroup{Name: set.Name})
		}
		groups[i].Sets = append(groups[i].Sets, set)
	}
	return groups
}

// CompletedSessions returns completed sessions, newest first.
func CompletedSessions(workouts []models.WorkoutSession) []models.WorkoutSession {
	out := []models.WorkoutSession{}
	for _, w := range workouts {
		if w.IsCompleted {
			out = append(out, w)
		}
	}
	slices.SortStableFunc(out, func(a, b models.WorkoutSession) int {
		return b.Date.Compare(a.Date)
	})
	return out
}

// ExerciseLine is the rendered summary of one exercise in a session.
type ExerciseLine struct {
	Name     string   `json:"name"`
	SetCount int      `json:"set_count"`
	Sets     []string `json:"sets"`
}

// SessionSummary is a grouped, display-ready view of a session.
type SessionSummary struct {
	ID        string         `json:"id"`
	Label     string         `json:"label"`
	Date      string         `json:"date"`
	Completed bool           `json:"completed"`
	Exercises []ExerciseLine `json:"exercises"`
}

// SummarizeSession renders each exercise group as a set count and
// "weight kg × reps" lines.
func SummarizeSession(s models.WorkoutSession) SessionSummary {
	sum := SessionSummary{
		ID:        s.ID,
		Label:     s.Label,
		Date:      s.Date.Format("2006-01-02"),
		Completed: s.IsCompleted,
		Exercises: []ExerciseLine{},
	}
	for _, g := range GroupSetsByExercise(s) {
		line := ExerciseLine{Name: g.Name, SetCount: len(g.Sets)}
		for _, set := range g.Sets {
			line.Sets = append(line.Sets, fmt.Sprintf("%skg × %d", formatWeight(set.Weight), set.Reps))
		}
		sum.Exercises = append(sum.Exercises, line)
	}
	return sum
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
