package aggregate

import (
	"math"
	"slices"

	"github.com/claude/fitlog/internal/models"
)

// BMICategory classifies a BMI value.
type BMICategory string

const (
	Underweight BMICategory = "underweight"
	Healthy     BMICategory = "healthy"
	Overweight  BMICategory = "overweight"
	Obese       BMICategory = "obese"
)

// LatestHealth returns the snapshot with the greatest date. Position in the
// slice is ignored because settings edits may append out of order. The input
// is not reordered.
func LatestHealth(history []models.HealthSnapshot) (models.HealthSnapshot, bool) {
	if len(history) == 0 {
		return models.HealthSnapshot{}, false
	}
	latest := history[0]
	for _, h := range history[1:] {
		if h.Date.After(latest.Date) {
			latest = h
		}
	}
	return latest, true
}

// BMI returns weight / height(m)^2 rounded to one decimal. The second return
// is false unless both inputs are strictly positive.
func BMI(weightKg, heightCm float64) (float64, bool) {
	if weightKg <= 0 || heightCm <= 0 {
		return 0, false
	}
	m := heightCm / 100
	return round1(weightKg / (m * m)), true
}

// ClassifyBMI maps a BMI to its category. Each lower bound is inclusive.
func ClassifyBMI(bmi float64) BMICategory {
	switch {
	case bmi < 18.5:
		return Underweight
	case bmi < 25:
		return Healthy
	case bmi < 30:
		return Overweight
	default:
		return Obese
	}
}

// WeightPoint is one entry of the weight trend.
type WeightPoint struct {
	Date     string  `json:"date"`
	WeightKg float64 `json:"weight_kg"`
}

// WeightTrend returns the n most recent weight readings, oldest first.
// Snapshots without a weight are skipped. The input is not reordered.
func WeightTrend(history []models.HealthSnapshot, n int) []WeightPoint {
	sorted := slices.Clone(history)
	slices.SortStableFunc(sorted, func(a, b models.HealthSnapshot) int { return a.Date.Compare(b.Date) })

	points := []WeightPoint{}
	for _, h := range sorted {
		if h.WeightKg <= 0 {
			continue
		}
		points = append(points, WeightPoint{Date: h.Date.Format("2006-01-02"), WeightKg: h.WeightKg})
	}
	if n > 0 && len(points) > n {
		points = points[len(points)-n:]
	}
	return points
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// HealthView is the latest snapshot with the goals and BMI derived from it.
type HealthView struct {
	Snapshot    models.HealthSnapshot `json:"snapshot"`
	Goals       Goals                 `json:"goals"`
	BMI         *float64              `json:"bmi,omitempty"`
	BMICategory BMICategory           `json:"bmi_category,omitempty"`
}

// LatestHealthView derives a HealthView from the latest snapshot in history.
func LatestHealthView(history []models.HealthSnapshot, defaults Goals) (HealthView, bool) {
	latest, ok := LatestHealth(history)
	if !ok {
		return HealthView{}, false
	}
	v := HealthView{Snapshot: latest, Goals: MacroGoals(&latest, defaults)}
	if bmi, ok := BMI(latest.WeightKg, models.Deref(latest.HeightCm)); ok {
		v.BMI = &bmi
		v.BMICategory = ClassifyBMI(bmi)
	}
	return v, true
}
