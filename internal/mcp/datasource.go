package mcp

import (
	"context"
	"time"

	"github.com/claude/fitlog/internal/aggregate"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/session"
	"github.com/claude/fitlog/internal/state"
)

// MealInput is a meal logged through a tool call.
type MealInput struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"proteinG"`
	Carbs    float64 `json:"carbsG"`
	Fats     float64 `json:"fatsG"`
}

// CardioInput is a cardio entry logged through a tool call.
type CardioInput struct {
	Type     models.CardioType `json:"type"`
	Distance float64           `json:"distance"`
	Duration int               `json:"duration"`
}

// DataSource abstracts the data layer for MCP tools. Both Local (in-process)
// and HTTPClient (remote via REST API) satisfy this interface. Lookups that
// find nothing return nil without an error.
type DataSource interface {
	Dashboard(ctx context.Context) (*aggregate.DashboardView, error)
	ActiveSession(ctx context.Context) (*models.WorkoutSession, error)
	CompletedWorkouts(ctx context.Context) ([]aggregate.SessionSummary, error)
	PreviousSet(ctx context.Context, exercise string) (*models.ExerciseSet, error)
	TrainingSummary(ctx context.Context, start, end time.Time, bucket aggregate.Bucket) ([]aggregate.TrainingSummaryPeriod, error)
	ExerciseStats(ctx context.Context) ([]aggregate.ExerciseSummary, error)
	Progression(ctx context.Context, exercise string) ([]aggregate.ExerciseProgression, error)
	MealsToday(ctx context.Context) (*aggregate.DayMeals, error)
	LatestHealth(ctx context.Context) (*aggregate.HealthView, error)
	LogMeal(ctx context.Context, in MealInput) (*models.MealEntry, error)
	LogCardio(ctx context.Context, in CardioInput) (*models.CardioEntry, error)
}

// State is the part of the state container Local reads and writes.
type State interface {
	Snapshot() models.AppState
	Dispatch(ctx context.Context, a state.Action) (models.AppState, error)
}

// Local serves tools straight from the in-process state container.
type Local struct {
	state State
	loc   *time.Location
	goals aggregate.Goals
	now   func() time.Time
}

// Compile-time check: *Local satisfies DataSource.
var _ DataSource = (*Local)(nil)

// NewLocal creates a Local data source. Calendar days are evaluated in loc.
func NewLocal(st State, loc *time.Location, goals aggregate.Goals) *Local {
	if loc == nil {
		loc = time.Local
	}
	return &Local{state: st, loc: loc, goals: goals, now: time.Now}
}

func (l *Local) today() time.Time { return l.now().In(l.loc) }

func (l *Local) Dashboard(context.Context) (*aggregate.DashboardView, error) {
	v := aggregate.Dashboard(l.state.Snapshot(), l.today(), l.goals)
	return &v, nil
}

func (l *Local) ActiveSession(context.Context) (*models.WorkoutSession, error) {
	if s, ok := session.Active(l.state.Snapshot().Workouts); ok {
		return &s, nil
	}
	return nil, nil
}

func (l *Local) CompletedWorkouts(context.Context) ([]aggregate.SessionSummary, error) {
	completed := aggregate.CompletedSessions(l.state.Snapshot().Workouts)
	out := make([]aggregate.SessionSummary, 0, len(completed))
	for _, c := range completed {
		out = append(out, aggregate.SummarizeSession(c))
	}
	return out, nil
}

func (l *Local) PreviousSet(_ context.Context, exercise string) (*models.ExerciseSet, error) {
	if set, ok := aggregate.PreviousSetFor(exercise, l.state.Snapshot().Workouts); ok {
		return &set, nil
	}
	return nil, nil
}

func (l *Local) TrainingSummary(_ context.Context, start, end time.Time, bucket aggregate.Bucket) ([]aggregate.TrainingSummaryPeriod, error) {
	return aggregate.TrainingSummary(l.state.Snapshot(), start, end, bucket, l.loc), nil
}

func (l *Local) ExerciseStats(context.Context) ([]aggregate.ExerciseSummary, error) {
	return aggregate.ExerciseStats(l.state.Snapshot().Workouts), nil
}

func (l *Local) Progression(_ context.Context, exercise string) ([]aggregate.ExerciseProgression, error) {
	return aggregate.Progression(exercise, l.state.Snapshot().Workouts), nil
}

func (l *Local) MealsToday(context.Context) (*aggregate.DayMeals, error) {
	d := aggregate.MealsOn(l.state.Snapshot().MealHistory, l.today())
	return &d, nil
}

func (l *Local) LatestHealth(context.Context) (*aggregate.HealthView, error) {
	if v, ok := aggregate.LatestHealthView(l.state.Snapshot().HealthHistory, l.goals); ok {
		return &v, nil
	}
	return nil, nil
}

func (l *Local) LogMeal(ctx context.Context, in MealInput) (*models.MealEntry, error) {
	meal := models.NewMealEntry(in.Name, in.Calories, in.Protein, in.Carbs, in.Fats, 0, l.today())
	if _, err := l.state.Dispatch(ctx, state.AddMeal{Meal: meal}); err != nil {
		return nil, err
	}
	return &meal, nil
}

func (l *Local) LogCardio(ctx context.Context, in CardioInput) (*models.CardioEntry, error) {
	entry := models.NewCardioEntry(in.Type, in.Distance, in.Duration, l.today())
	if _, err := l.state.Dispatch(ctx, state.AddCardio{Entry: entry}); err != nil {
		return nil, err
	}
	return &entry, nil
}
