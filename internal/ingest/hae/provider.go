// Package hae imports body weight and sleep from Health Auto Export JSON
// payloads as health snapshots.
package hae

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/claude/fitlog/internal/aggregate"
	"github.com/claude/fitlog/internal/ingest"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/state"
)

// Dispatcher is the part of the state container the importer needs.
type Dispatcher interface {
	Snapshot() models.AppState
	Dispatch(ctx context.Context, a state.Action) (models.AppState, error)
}

// Provider processes Health Auto Export REST API payloads.
type Provider struct {
	state Dispatcher
	loc   *time.Location
	log   *slog.Logger
}

// NewProvider creates a new HAE ingest provider. Calendar days are taken in loc.
func NewProvider(st Dispatcher, loc *time.Location, log *slog.Logger) *Provider {
	if loc == nil {
		loc = time.Local
	}
	return &Provider{state: st, loc: loc, log: log}
}

// day collects the readings for one calendar day.
type day struct {
	key      string
	at       time.Time
	weight   float64
	weightAt time.Time
	sleep    float64
}

// Ingest decodes a payload and records one snapshot per day that has a
// weight or sleep reading. Goals, height and age carry over from the latest
// existing snapshot; a day without a weight reading reuses the last known weight.
func (p *Provider) Ingest(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	var payload Payload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	result := &ingest.Result{}
	days := make(map[string]*day)
	for _, m := range payload.Data.Metrics {
		switch m.Name {
		case metricWeight:
			p.collectWeight(m, days, result)
		case metricSleep:
			p.collectSleep(m, days, result)
		default:
			result.MetricsSkipped += len(m.Data)
		}
	}

	snapshots := p.snapshots(days, result)
	if len(snapshots) > 0 {
		if _, err := p.state.Dispatch(ctx, state.ImportHealth{Snapshots: snapshots}); err != nil {
			return nil, fmt.Errorf("storing snapshots: %w", err)
		}
	}

	p.log.Info("hae import complete",
		"metrics", result.MetricsReceived,
		"skipped_metrics", result.MetricsSkipped,
		"inserted", result.SnapshotsInserted,
		"skipped", result.SnapshotsSkipped,
	)
	return result, nil
}

func (p *Provider) dayFor(days map[string]*day, t time.Time) *day {
	local := t.In(p.loc)
	key := local.Format(time.DateOnly)
	d, ok := days[key]
	if !ok {
		d = &day{key: key, at: local}
		days[key] = d
	}
	if local.After(d.at) {
		d.at = local
	}
	return d
}

func (p *Provider) collectWeight(m Metric, days map[string]*day, result *ingest.Result) {
	for _, raw := range m.Data {
		result.MetricsReceived++
		var dp qtyPoint
		if err := json.Unmarshal(raw, &dp); err != nil || dp.Qty <= 0 {
			p.log.Warn("skipping weight point", "error", err)
			result.MetricsSkipped++
			continue
		}
		d := p.dayFor(days, dp.Date.Time)
		// Latest reading of the day wins.
		if d.weightAt.IsZero() || !dp.Date.Before(d.weightAt) {
			d.weight = math.Round(weightKg(dp.Qty, m.Units)*10) / 10
			d.weightAt = dp.Date.Time
		}
	}
}

func (p *Provider) collectSleep(m Metric, days map[string]*day, result *ingest.Result) {
	for _, raw := range m.Data {
		result.MetricsReceived++

		switch DetectSleepFormat(raw) {
		case SleepFormatAggregated:
			var dp sleepSummary
			if err := json.Unmarshal(raw, &dp); err != nil {
				p.log.Warn("skipping aggregated sleep point", "error", err)
				result.MetricsSkipped++
				continue
			}
			hours := dp.TotalSleep
			if hours == 0 {
				hours = dp.Asleep
			}
			at := dp.SleepEnd.Time
			if at.IsZero() {
				// Date-only values parse as UTC midnight; keep the calendar day.
				at = time.Date(dp.Date.Year(), dp.Date.Month(), dp.Date.Day(), 8, 0, 0, 0, p.loc)
			}
			p.dayFor(days, at).sleep += hours

		case SleepFormatUnaggregated:
			var dp sleepStage
			if err := json.Unmarshal(raw, &dp); err != nil {
				p.log.Warn("skipping sleep stage", "error", err)
				result.MetricsSkipped++
				continue
			}
			if !countsAsSleep(dp.Value) {
				continue
			}
			p.dayFor(days, dp.EndDate.Time).sleep += dp.Qty
		}
	}
}

// snapshots builds new snapshots oldest first, skipping days already
// recorded with the same weight and sleep. A day without a weight reading
// takes the most recent weight dated before it, from this payload or the
// existing history. The counts reflect the history read here; a concurrent
// import of the same days is deduplicated again when dispatched.
func (p *Provider) snapshots(days map[string]*day, result *ingest.Result) []models.HealthSnapshot {
	current := p.state.Snapshot().HealthHistory
	base, hasBase := aggregate.LatestHealth(current)

	existing := make(map[string][]models.HealthSnapshot)
	for _, h := range current {
		key := h.Date.In(p.loc).Format(time.DateOnly)
		existing[key] = append(existing[key], h)
	}

	ordered := make([]*day, 0, len(days))
	for _, d := range days {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].key < ordered[j].key })

	var (
		lastWeight float64
		lastAt     time.Time
	)

	var out []models.HealthSnapshot
	for _, d := range ordered {
		weight := d.weight
		if weight > 0 {
			lastWeight, lastAt = d.weight, d.weightAt
		} else {
			weight = lastWeight
			if w, at, ok := weighedBefore(current, d.at); ok && at.After(lastAt) {
				weight = w
			}
		}
		if weight == 0 {
			result.SnapshotsSkipped++
			continue
		}
		sleep := math.Round(d.sleep*100) / 100

		if recorded(existing[d.key], weight, sleep) {
			result.SnapshotsSkipped++
			continue
		}

		snap := models.NewHealthSnapshot(d.at, weight, sleep, 0, 0)
		if hasBase {
			snap.CaloriesGoal = base.CaloriesGoal
			snap.ProteinGoal = base.ProteinGoal
			snap.CarbsGoal = base.CarbsGoal
			snap.FatsGoal = base.FatsGoal
			snap.HeightCm = base.HeightCm
			snap.Age = base.Age
			snap.GoalLabel = base.GoalLabel
		}
		out = append(out, snap)
		result.SnapshotsInserted++
	}
	return out
}

// weighedBefore returns the weight of the latest snapshot dated before t.
func weighedBefore(history []models.HealthSnapshot, t time.Time) (float64, time.Time, bool) {
	var (
		best  models.HealthSnapshot
		found bool
	)
	for _, h := range history {
		if h.WeightKg <= 0 || !h.Date.Before(t) {
			continue
		}
		if !found || h.Date.After(best.Date) {
			best, found = h, true
		}
	}
	return best.WeightKg, best.Date, found
}

func recorded(snaps []models.HealthSnapshot, weight, sleep float64) bool {
	for _, s := range snaps {
		if s.WeightKg == weight && s.SleepHours == sleep {
			return true
		}
	}
	return false
}
