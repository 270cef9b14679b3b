package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/claude/fitlog/internal/aggregate"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/state"
	"github.com/claude/fitlog/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

var fixedNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

// newTestHandlers builds handlers over an in-memory state seeded with one
// finished bench session.
func newTestHandlers(t *testing.T) (*handlers, *state.Container) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()
	c := state.Open(ctx, storage.NewStore(storage.NewMemoryBackend(), log), log)

	start := fixedNow.Add(-2 * time.Hour)
	s := models.NewWorkoutSession("Push", start)
	mustDispatch(t, c, state.StartSession{Session: s})
	mustDispatch(t, c, state.AddSet{SessionID: s.ID, Set: models.NewExerciseSet("Bench Press", 80, 8, start.Add(5*time.Minute))})
	mustDispatch(t, c, state.AddSet{SessionID: s.ID, Set: models.NewExerciseSet("Bench Press", 85, 6, start.Add(10*time.Minute))})
	mustDispatch(t, c, state.FinishSession{SessionID: s.ID})

	local := NewLocal(c, time.UTC, aggregate.DefaultGoals)
	local.now = func() time.Time { return fixedNow }
	return &handlers{ds: local, log: log}, c
}

func mustDispatch(t *testing.T, c *state.Container, a state.Action) {
	t.Helper()
	if _, err := c.Dispatch(context.Background(), a); err != nil {
		t.Fatalf("dispatch %s: %v", a.Name(), err)
	}
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty result content")
	}
	tc, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", r.Content[0])
	}
	return tc.Text
}

// TestDefaultTimeRange verifies default start/end when strings are empty.
func TestDefaultTimeRange(t *testing.T) {
	start, end, err := defaultTimeRange("", "", 7)
	if err != nil {
		t.Fatal(err)
	}
	diff := end.Sub(start)
	if diff < 6*24*time.Hour || diff > 8*24*time.Hour {
		t.Errorf("expected ~7 days range, got %v", diff)
	}
}

// TestDefaultTimeRangeExplicit verifies both date formats are accepted.
func TestDefaultTimeRangeExplicit(t *testing.T) {
	start, end, err := defaultTimeRange("2026-01-01", "2026-02-01T00:00:00Z", 7)
	if err != nil {
		t.Fatal(err)
	}
	if start.Month() != time.January || end.Month() != time.February {
		t.Errorf("got %v .. %v", start, end)
	}
	if _, _, err := defaultTimeRange("yesterday", "", 7); err == nil {
		t.Error("expected error for unparseable date")
	}
}

// TestGetPreviousSet verifies the latest set for an exercise is returned case-insensitively.
func TestGetPreviousSet(t *testing.T) {
	h, _ := newTestHandlers(t)

	r, err := h.getPreviousSet(context.Background(), callTool("get_previous_set", map[string]any{"exercise": "bench press"}))
	if err != nil {
		t.Fatal(err)
	}
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, r))
	}
	var set models.ExerciseSet
	if err := json.Unmarshal([]byte(resultText(t, r)), &set); err != nil {
		t.Fatal(err)
	}
	if set.Weight != 85 || set.Reps != 6 {
		t.Errorf("set = %+v, want 85kg × 6", set)
	}
}

// TestGetPreviousSetMissing verifies unknown exercises produce a text message, not an error.
func TestGetPreviousSetMissing(t *testing.T) {
	h, _ := newTestHandlers(t)

	r, _ := h.getPreviousSet(context.Background(), callTool("get_previous_set", map[string]any{"exercise": "Deadlift"}))
	if r.IsError {
		t.Fatal("missing exercise should not be a tool error")
	}
	if !strings.Contains(resultText(t, r), "No previous set") {
		t.Errorf("text = %q", resultText(t, r))
	}

	r, _ = h.getPreviousSet(context.Background(), callTool("get_previous_set", nil))
	if !r.IsError {
		t.Error("expected error when exercise is missing")
	}
}

// TestGetWorkoutsLimit verifies the limit argument truncates the history.
func TestGetWorkoutsLimit(t *testing.T) {
	h, c := newTestHandlers(t)
	s := models.NewWorkoutSession("Pull", fixedNow.Add(-time.Hour))
	mustDispatch(t, c, state.StartSession{Session: s})
	mustDispatch(t, c, state.FinishSession{SessionID: s.ID})

	r, err := h.getWorkouts(context.Background(), callTool("get_workouts", map[string]any{"limit": float64(1)}))
	if err != nil {
		t.Fatal(err)
	}
	var got []aggregate.SessionSummary
	if err := json.Unmarshal([]byte(resultText(t, r)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("workouts = %d, want 1", len(got))
	}
}

// TestGetActiveSessionNone verifies the no-session message.
func TestGetActiveSessionNone(t *testing.T) {
	h, _ := newTestHandlers(t)
	r, _ := h.getActiveSession(context.Background(), callTool("get_active_session", nil))
	if r.IsError || !strings.Contains(resultText(t, r), "No workout session") {
		t.Errorf("result = %q", resultText(t, r))
	}
}

// TestLogMealUpdatesDashboard verifies a logged meal is counted in today's totals.
func TestLogMealUpdatesDashboard(t *testing.T) {
	h, c := newTestHandlers(t)
	ctx := context.Background()

	r, err := h.logMeal(ctx, callTool("log_meal", map[string]any{
		"name":     "Oats",
		"calories": float64(400),
		"protein":  float64(20),
	}))
	if err != nil {
		t.Fatal(err)
	}
	if r.IsError {
		t.Fatalf("log_meal failed: %s", resultText(t, r))
	}
	if n := len(c.Snapshot().MealHistory); n != 1 {
		t.Fatalf("meals = %d, want 1", n)
	}

	r, _ = h.getDashboard(ctx, callTool("get_dashboard", nil))
	var v aggregate.DashboardView
	if err := json.Unmarshal([]byte(resultText(t, r)), &v); err != nil {
		t.Fatal(err)
	}
	if v.Totals.Calories != 400 || v.CaloriesRemaining != 2100 {
		t.Errorf("totals = %+v, remaining = %v", v.Totals, v.CaloriesRemaining)
	}
}

// TestLogMealRequiresCalories verifies the calories argument is mandatory.
func TestLogMealRequiresCalories(t *testing.T) {
	h, c := newTestHandlers(t)
	r, _ := h.logMeal(context.Background(), callTool("log_meal", map[string]any{"name": "Air"}))
	if !r.IsError {
		t.Error("expected tool error")
	}
	if n := len(c.Snapshot().MealHistory); n != 0 {
		t.Errorf("meals = %d, want 0", n)
	}
}

// TestLogCardio verifies type validation and that valid entries are stored.
func TestLogCardio(t *testing.T) {
	h, c := newTestHandlers(t)
	ctx := context.Background()

	r, _ := h.logCardio(ctx, callTool("log_cardio", map[string]any{"type": "swim"}))
	if !r.IsError {
		t.Error("expected error for unknown type")
	}

	r, _ = h.logCardio(ctx, callTool("log_cardio", map[string]any{
		"type":         "run",
		"distance_km":  5.2,
		"duration_min": float64(28),
	}))
	if r.IsError {
		t.Fatalf("log_cardio failed: %s", resultText(t, r))
	}
	hist := c.Snapshot().CardioHistory
	if len(hist) != 1 || hist[0].Distance != 5.2 || hist[0].Duration != 28 || hist[0].Source != models.SourceManual {
		t.Errorf("cardio = %+v", hist)
	}
}

// TestGetTrainingSummary verifies strength volume is bucketed by week.
func TestGetTrainingSummary(t *testing.T) {
	h, _ := newTestHandlers(t)

	r, err := h.getTrainingSummary(context.Background(), callTool("get_training_summary", map[string]any{
		"start":  "2026-02-23",
		"end":    "2026-03-08",
		"bucket": "week",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(t, r))
	}
	var periods []aggregate.TrainingSummaryPeriod
	if err := json.Unmarshal([]byte(resultText(t, r)), &periods); err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, p := range periods {
		if p.Strength != nil && p.Strength.Sets == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("no period with 2 strength sets: %+v", periods)
	}

	r, _ = h.getTrainingSummary(context.Background(), callTool("get_training_summary", map[string]any{"start": "last week"}))
	if !r.IsError {
		t.Error("expected error for bad date")
	}
}

// TestGetLatestHealthEmpty verifies the message when no body metrics exist.
func TestGetLatestHealthEmpty(t *testing.T) {
	h, _ := newTestHandlers(t)
	r, _ := h.getLatestHealth(context.Background(), callTool("get_latest_health", nil))
	if r.IsError || !strings.Contains(resultText(t, r), "No health data") {
		t.Errorf("result = %q", resultText(t, r))
	}
}

// TestRecentWorkoutsResource verifies the resource returns JSON under the requested URI.
func TestRecentWorkoutsResource(t *testing.T) {
	h, _ := newTestHandlers(t)
	req := mcp.ReadResourceRequest{}
	req.Params.URI = "fitlog://recent_workouts"

	contents, err := h.recentWorkouts(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type = %T", contents[0])
	}
	if tc.URI != req.Params.URI || !strings.Contains(tc.Text, "85kg × 6") {
		t.Errorf("resource = %+v", tc)
	}
}
