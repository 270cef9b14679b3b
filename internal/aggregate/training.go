package aggregate

import (
	"slices"
	"strings"
	"time"

	"github.com/claude/fitlog/internal/models"
)

// Bucket is the aggregation period for training summaries.
type Bucket string

const (
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

// CardioTypeSummary holds aggregated cardio stats for one activity type within a period.
type CardioTypeSummary struct {
	Type         models.CardioType `json:"type"`
	Count        int               `json:"count"`
	TotalKm      float64           `json:"total_km"`
	TotalMinutes int               `json:"total_minutes"`
	AvgPaceMinKm *float64          `json:"avg_pace_min_km,omitempty"`
}

// StrengthVolumeSummary holds aggregated strength training stats for a period.
type StrengthVolumeSummary struct {
	Sets              int     `json:"sets"`
	TotalReps         int     `json:"total_reps"`
	TonnageKg         float64 `json:"tonnage_kg"`
	Sessions          int     `json:"sessions"`
	AvgSetsPerSession float64 `json:"avg_sets_per_session"`
}

// TrainingSummaryPeriod holds combined cardio + strength data for one period.
type TrainingSummaryPeriod struct {
	Period   string                 `json:"period"`
	Cardio   []CardioTypeSummary    `json:"cardio"`
	Strength *StrengthVolumeSummary `json:"strength,omitempty"`
}

// PeriodStart truncates t to the start of its week (Monday) or month in t's location.
func PeriodStart(t time.Time, b Bucket) time.Time {
	y, m, d := t.Date()
	if b == BucketWeek {
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	}
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// TrainingSummary aggregates completed sessions and cardio entries dated in
// [start, end) per period, newest period first. Dates are bucketed in loc.
func TrainingSummary(st models.AppState, start, end time.Time, b Bucket, loc *time.Location) []TrainingSummaryPeriod {
	periods := make(map[time.Time]*TrainingSummaryPeriod)
	get := func(t time.Time) *TrainingSummaryPeriod {
		key := PeriodStart(t.In(loc), b)
		p, ok := periods[key]
		if !ok {
			p = &TrainingSummaryPeriod{Period: key.Format("2006-01-02"), Cardio: []CardioTypeSummary{}}
			periods[key] = p
		}
		return p
	}
	inRange := func(t time.Time) bool {
		return !t.Before(start) && t.Before(end)
	}

	for _, w := range st.Workouts {
		if !w.IsCompleted || !inRange(w.Date) {
			continue
		}
		p := get(w.Date)
		if p.Strength == nil {
			p.Strength = &StrengthVolumeSummary{}
		}
		p.Strength.Sessions++
		for _, s := range w.Exercises {
			p.Strength.Sets++
			p.Strength.TotalReps += s.Reps
			p.Strength.TonnageKg += s.Weight * float64(s.Reps)
		}
	}

	for _, c := range st.CardioHistory {
		if !inRange(c.Date) {
			continue
		}
		p := get(c.Date)
		i := slices.IndexFunc(p.Cardio, func(s CardioTypeSummary) bool { return s.Type == c.Type })
		if i < 0 {
			p.Cardio = append(p.Cardio, CardioTypeSummary{Type: c.Type})
			i = len(p.Cardio) - 1
		}
		p.Cardio[i].Count++
		p.Cardio[i].TotalKm += c.Distance
		p.Cardio[i].TotalMinutes += c.Duration
	}

	keys := make([]time.Time, 0, len(periods))
	for k := range periods {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b time.Time) int { return b.Compare(a) })

	result := make([]TrainingSummaryPeriod, 0, len(keys))
	for _, k := range keys {
		p := periods[k]
		if p.Strength != nil && p.Strength.Sessions > 0 {
			p.Strength.AvgSetsPerSession = float64(p.Strength.Sets) / float64(p.Strength.Sessions)
		}
		for i := range p.Cardio {
			if c := &p.Cardio[i]; c.TotalKm > 0 {
				pace := round1(float64(c.TotalMinutes) / c.TotalKm)
				c.AvgPaceMinKm = &pace
			}
		}
		slices.SortStableFunc(p.Cardio, func(a, b CardioTypeSummary) int { return b.Count - a.Count })
		result = append(result, *p)
	}
	return result
}

// ExerciseSummary holds aggregated stats for a single exercise.
type ExerciseSummary struct {
	Name      string  `json:"name"`
	TotalSets int     `json:"total_sets"`
	TotalReps int     `json:"total_reps"`
	TonnageKg float64 `json:"tonnage_kg"`
	MaxWeight float64 `json:"max_weight_kg"`
}

// ExerciseStats summarizes every exercise across all sessions, highest
// tonnage first. Names are grouped case-insensitively; the first spelling
// seen is reported.
func ExerciseStats(workouts []models.WorkoutSession) []ExerciseSummary {
	index := make(map[string]int)
	var out []ExerciseSummary
	for _, w := range workouts {
		for _, s := range w.Exercises {
			key := strings.ToLower(s.Name)
			i, ok := index[key]
			if !ok {
				i = len(out)
				index[key] = i
				out = append(out, ExerciseSummary{Name: s.Name})
			}
			e := &out[i]
			e.TotalSets++
			e.TotalReps += s.Reps
			e.TonnageKg += s.Weight * float64(s.Reps)
			e.MaxWeight = max(e.MaxWeight, s.Weight)
		}
	}
	slices.SortStableFunc(out, func(a, b ExerciseSummary) int {
		switch {
		case a.TonnageKg > b.TonnageKg:
			return -1
		case a.TonnageKg < b.TonnageKg:
			return 1
		}
		return 0
	})
	if out == nil {
		out = []ExerciseSummary{}
	}
	return out
}

// ExerciseProgression holds one session's data for a specific exercise.
type ExerciseProgression struct {
	SessionID      string  `json:"session_id"`
	Date           string  `json:"date"`
	MaxWeight      float64 `json:"max_weight_kg"`
	SessionTonnage float64 `json:"session_tonnage_kg"`
	Sets           int     `json:"sets"`
}

// Progression returns per-session stats for one exercise (case-insensitive
// exact name), oldest session first.
func Progression(exerciseName string, workouts []models.WorkoutSession) []ExerciseProgression {
	sorted := slices.Clone(workouts)
	slices.SortStableFunc(sorted, func(a, b models.WorkoutSession) int { return a.Date.Compare(b.Date) })

	out := []ExerciseProgression{}
	for _, w := range sorted {
		var p ExerciseProgression
		for _, s := range w.Exercises {
			if !strings.EqualFold(s.Name, exerciseName) {
				continue
			}
			p.Sets++
			p.MaxWeight = max(p.MaxWeight, s.Weight)
			p.SessionTonnage += s.Weight * float64(s.Reps)
		}
		if p.Sets == 0 {
			continue
		}
		p.SessionID = w.ID
		p.Date = w.Date.Format("2006-01-02")
		out = append(out, p)
	}
	return out
}
