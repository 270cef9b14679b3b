// Package aggregate holds the read-side computations over the application
// state. Every function is pure and total: missing data produces an empty
// result, zero, false or a default, never an error.
package aggregate

import (
	"time"

	"github.com/claude/fitlog/internal/models"
)

// Totals is the summed nutrition of a set of meals.
type Totals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

// Goals are daily macro targets.
type Goals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

// DefaultGoals apply per field when the latest snapshot has no goal set.
var DefaultGoals = Goals{Calories: 2500, Protein: 180, Carbs: 250, Fats: 70}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DailyMeals returns the meals logged on ref's calendar day, evaluated in
// ref's location. Pass time.Now() for "today" in local time.
func DailyMeals(meals []models.MealEntry, ref time.Time) []models.MealEntry {
	loc := ref.Location()
	out := []models.MealEntry{}
	for _, m := range meals {
		if SameDay(m.Date, ref, loc) {
			out = append(out, m)
		}
	}
	return out
}

// DayMeals is one calendar day of meals with their totals.
type DayMeals struct {
	Date   string             `json:"date"`
	Meals  []models.MealEntry `json:"meals"`
	Totals Totals             `json:"totals"`
}

// MealsOn returns the meals and totals for ref's calendar day.
func MealsOn(meals []models.MealEntry, ref time.Time) DayMeals {
	day := DailyMeals(meals, ref)
	return DayMeals{Date: ref.Format("2006-01-02"), Meals: day, Totals: DailyTotals(day)}
}

// DailyTotals sums calories and macros over meals.
func DailyTotals(meals []models.MealEntry) Totals {
	var t Totals
	for _, m := range meals {
		t.Calories += m.Calories
		t.Protein += m.ProteinG
		t.Carbs += m.CarbsG
		t.Fats += m.FatsG
	}
	return t
}

// MacroGoals resolves the daily targets from the latest snapshot. Each field
// falls back to its default independently when absent or zero.
func MacroGoals(latest *models.HealthSnapshot, defaults Goals) Goals {
	g := defaults
	if latest == nil {
		return g
	}
	if latest.CaloriesGoal > 0 {
		g.Calories = float64(latest.CaloriesGoal)
	}
	if latest.ProteinGoal > 0 {
		g.Protein = float64(latest.ProteinGoal)
	}
	if v := models.Deref(latest.CarbsGoal); v > 0 {
		g.Carbs = float64(v)
	}
	if v := models.Deref(latest.FatsGoal); v > 0 {
		g.Fats = float64(v)
	}
	return g
}
