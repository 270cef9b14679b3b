package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/fitlog/internal/ingest"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/state"
)

// Dispatcher is the part of the state container the importer needs.
type Dispatcher interface {
	Snapshot() models.AppState
	Dispatch(ctx context.Context, a state.Action) (models.AppState, error)
}

// Provider imports Alpha Progression CSV exports into the workout history.
type Provider struct {
	state Dispatcher
	loc   *time.Location
	log   *slog.Logger
}

// NewProvider creates a provider. Export timestamps are read in loc.
func NewProvider(st Dispatcher, loc *time.Location, log *slog.Logger) *Provider {
	return &Provider{state: st, loc: loc, log: log}
}

// Ingest parses an export and adds sessions not imported before.
func (p *Provider) Ingest(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	sessions, err := Parse(r, p.loc)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	existing := make(map[string]struct{})
	for _, w := range p.state.Snapshot().Workouts {
		existing[w.ID] = struct{}{}
	}

	result := &ingest.Result{SessionsReceived: len(sessions)}
	workouts := make([]models.WorkoutSession, 0, len(sessions))
	for _, s := range sessions {
		w, warmups := ToWorkout(s)
		result.SetsReceived += len(w.Exercises) + warmups
		result.WarmupsSkipped += warmups
		if _, ok := existing[w.ID]; ok {
			result.SessionsSkipped++
			continue
		}
		result.SessionsInserted++
		result.SetsImported += len(w.Exercises)
		workouts = append(workouts, w)
	}

	if len(workouts) > 0 {
		if _, err := p.state.Dispatch(ctx, state.ImportSessions{Sessions: workouts}); err != nil {
			return nil, fmt.Errorf("storing sessions: %w", err)
		}
	}

	p.log.Info("alpha import complete",
		"sessions", result.SessionsReceived,
		"inserted", result.SessionsInserted,
		"skipped", result.SessionsSkipped,
		"sets", result.SetsImported,
	)
	return result, nil
}
