package mcp

import (
	"context"
	"time"

	"github.com/claude/fitlog/internal/aggregate"
	"github.com/claude/fitlog/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end, with start defaulting to days before end.
func defaultTimeRange(startStr, endStr string, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -days)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetDashboard = mcp.NewTool("get_dashboard",
	mcp.WithDescription("Today's overview: calories and macros eaten against goals (with percentages capped at 100), calories remaining, BMI, the open workout session, the last weight readings and recent cardio."),
)

var toolGetActiveSession = mcp.NewTool("get_active_session",
	mcp.WithDescription("The workout session currently in progress with its sets grouped by exercise, if any."),
)

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("Completed strength sessions, newest first. Each session lists its exercises with set count and 'weight kg × reps' lines."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of sessions. Defaults to 10.")),
)

var toolGetPreviousSet = mcp.NewTool("get_previous_set",
	mcp.WithDescription("The most recent set logged for an exercise (case-insensitive exact name). Use it to suggest progressive overload."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name, e.g. 'Bench Press'")),
)

var toolGetTrainingSummary = mcp.NewTool("get_training_summary",
	mcp.WithDescription("Weekly/monthly aggregated training volume. Returns strength sets, reps, tonnage and sessions plus cardio count, distance, time and pace by type per period, newest first."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 6 months ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to 'month'."), mcp.Enum("week", "month")),
)

var toolGetExerciseStats = mcp.NewTool("get_exercise_stats",
	mcp.WithDescription("Per-exercise totals over all sessions: sets, reps, tonnage, max weight and last performed, highest tonnage first."),
)

var toolGetExerciseProgression = mcp.NewTool("get_exercise_progression",
	mcp.WithDescription("Session-by-session progression for one exercise: top set weight, reps and volume, oldest first."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name, e.g. 'Squat'")),
)

var toolGetMealsToday = mcp.NewTool("get_meals_today",
	mcp.WithDescription("Meals logged today with summed calories, protein, carbs and fats."),
)

var toolGetLatestHealth = mcp.NewTool("get_latest_health",
	mcp.WithDescription("The most recent body-metric snapshot (weight, sleep, height, age, goal) with resolved macro goals and BMI category."),
)

var toolLogMeal = mcp.NewTool("log_meal",
	mcp.WithDescription("Log a meal with already scaled nutrition values."),
	mcp.WithString("name", mcp.Description("Meal name. Defaults to 'Meal'.")),
	mcp.WithNumber("calories", mcp.Required(), mcp.Description("Calories (kcal)")),
	mcp.WithNumber("protein", mcp.Description("Protein in grams")),
	mcp.WithNumber("carbs", mcp.Description("Carbohydrates in grams")),
	mcp.WithNumber("fats", mcp.Description("Fat in grams")),
)

var toolLogCardio = mcp.NewTool("log_cardio",
	mcp.WithDescription("Log a manual cardio activity dated now."),
	mcp.WithString("type", mcp.Required(), mcp.Description("Activity type"), mcp.Enum("run", "cycle", "walk")),
	mcp.WithNumber("distance_km", mcp.Description("Distance in kilometres")),
	mcp.WithNumber("duration_min", mcp.Description("Duration in whole minutes")),
)

// --- Tool handlers ---

func jsonResult(v any) *mcp.CallToolResult {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed")
	}
	return result
}

func (h *handlers) queryFailed(tool string, err error) *mcp.CallToolResult {
	h.log.Error("mcp "+tool, "error", err)
	return mcp.NewToolResultError("query failed: " + err.Error())
}

func (h *handlers) getDashboard(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := h.ds.Dashboard(ctx)
	if err != nil {
		return h.queryFailed("get_dashboard", err), nil
	}
	return jsonResult(v), nil
}

func (h *handlers) getActiveSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, err := h.ds.ActiveSession(ctx)
	if err != nil {
		return h.queryFailed("get_active_session", err), nil
	}
	if s == nil {
		return mcp.NewToolResultText("No workout session is in progress."), nil
	}
	return jsonResult(map[string]any{
		"session": s,
		"groups":  aggregate.GroupSetsByExercise(*s),
	}), nil
}

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 10)
	workouts, err := h.ds.CompletedWorkouts(ctx)
	if err != nil {
		return h.queryFailed("get_workouts", err), nil
	}
	if limit > 0 && len(workouts) > limit {
		workouts = workouts[:limit]
	}
	return jsonResult(workouts), nil
}

func (h *handlers) getPreviousSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	set, err := h.ds.PreviousSet(ctx, exercise)
	if err != nil {
		return h.queryFailed("get_previous_set", err), nil
	}
	if set == nil {
		return mcp.NewToolResultText("No previous set logged for " + exercise + "."), nil
	}
	return jsonResult(set), nil
}

func (h *handlers) getTrainingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), 182)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	bucket := aggregate.BucketMonth
	if req.GetString("bucket", "month") == "week" {
		bucket = aggregate.BucketWeek
	}

	periods, err := h.ds.TrainingSummary(ctx, start, end, bucket)
	if err != nil {
		return h.queryFailed("get_training_summary", err), nil
	}
	return jsonResult(periods), nil
}

func (h *handlers) getExerciseStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.ds.ExerciseStats(ctx)
	if err != nil {
		return h.queryFailed("get_exercise_stats", err), nil
	}
	return jsonResult(stats), nil
}

func (h *handlers) getExerciseProgression(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	points, err := h.ds.Progression(ctx, exercise)
	if err != nil {
		return h.queryFailed("get_exercise_progression", err), nil
	}
	return jsonResult(points), nil
}

func (h *handlers) getMealsToday(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	meals, err := h.ds.MealsToday(ctx)
	if err != nil {
		return h.queryFailed("get_meals_today", err), nil
	}
	return jsonResult(meals), nil
}

func (h *handlers) getLatestHealth(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := h.ds.LatestHealth(ctx)
	if err != nil {
		return h.queryFailed("get_latest_health", err), nil
	}
	if v == nil {
		return mcp.NewToolResultText("No health data logged yet."), nil
	}
	return jsonResult(v), nil
}

func (h *handlers) logMeal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	calories, err := req.RequireFloat("calories")
	if err != nil {
		return mcp.NewToolResultError("calories parameter is required"), nil
	}
	meal, err := h.ds.LogMeal(ctx, MealInput{
		Name:     req.GetString("name", ""),
		Calories: calories,
		Protein:  req.GetFloat("protein", 0),
		Carbs:    req.GetFloat("carbs", 0),
		Fats:     req.GetFloat("fats", 0),
	})
	if err != nil {
		return h.queryFailed("log_meal", err), nil
	}
	return jsonResult(meal), nil
}

func (h *handlers) logCardio(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("type parameter is required"), nil
	}
	if !models.IsValidCardioType(models.CardioType(kind)) {
		return mcp.NewToolResultError("type must be run, cycle or walk"), nil
	}
	entry, err := h.ds.LogCardio(ctx, CardioInput{
		Type:     models.CardioType(kind),
		Distance: req.GetFloat("distance_km", 0),
		Duration: req.GetInt("duration_min", 0),
	})
	if err != nil {
		return h.queryFailed("log_cardio", err), nil
	}
	return jsonResult(entry), nil
}
