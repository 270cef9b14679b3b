package aggregate

import (
	"math"
	"slices"
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/session"
)

// Progress is the share of each goal reached today, as percentages capped at 100.
type Progress struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

// DashboardView is the overview shown on the home screen.
type DashboardView struct {
	Date              string                 `json:"date"`
	Totals            Totals                 `json:"totals"`
	Goals             Goals                  `json:"goals"`
	Progress          Progress               `json:"progress"`
	CaloriesRemaining float64                `json:"calories_remaining"`
	OverLimit         bool                   `json:"over_limit"`
	MealCount         int                    `json:"meal_count"`
	Latest            *models.HealthSnapshot `json:"latest_health,omitempty"`
	BMI               *float64               `json:"bmi,omitempty"`
	BMICategory       BMICategory            `json:"bmi_category,omitempty"`
	ActiveSession     *models.WorkoutSession `json:"active_session,omitempty"`
	WeightTrend       []WeightPoint          `json:"weight_trend"`
	RecentCardio      []models.CardioEntry   `json:"recent_cardio"`
}

// Dashboard computes the overview for now's calendar day.
func Dashboard(st models.AppState, now time.Time, defaults Goals) DashboardView {
	meals := DailyMeals(st.MealHistory, now)
	totals := DailyTotals(meals)

	v := DashboardView{
		Date:         now.Format("2006-01-02"),
		Totals:       totals,
		MealCount:    len(meals),
		WeightTrend:  WeightTrend(st.HealthHistory, 7),
		RecentCardio: RecentCardio(st.CardioHistory, 3),
	}

	var latest *models.HealthSnapshot
	if h, ok := LatestHealth(st.HealthHistory); ok {
		latest = &h
		v.Latest = latest
		if bmi, ok := BMI(h.WeightKg, models.Deref(h.HeightCm)); ok {
			v.BMI = &bmi
			v.BMICategory = ClassifyBMI(bmi)
		}
	}

	v.Goals = MacroGoals(latest, defaults)
	v.CaloriesRemaining = v.Goals.Calories - totals.Calories
	v.OverLimit = totals.Calories > v.Goals.Calories
	v.Progress = Progress{
		Calories: percent(totals.Calories, v.Goals.Calories),
		Protein:  percent(totals.Protein, v.Goals.Protein),
		Carbs:    percent(totals.Carbs, v.Goals.Carbs),
		Fats:     percent(totals.Fats, v.Goals.Fats),
	}

	if a, ok := session.Active(st.Workouts); ok {
		v.ActiveSession = &a
	}
	return v
}

// RecentCardio returns the n most recent cardio entries, newest first.
func RecentCardio(history []models.CardioEntry, n int) []models.CardioEntry {
	out := slices.Clone(history)
	if out == nil {
		out = []models.CardioEntry{}
	}
	slices.SortStableFunc(out, func(a, b models.CardioEntry) int { return b.Date.Compare(a.Date) })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func percent(value, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	return math.Min(100, math.Round(value/goal*100))
}
