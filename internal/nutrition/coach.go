package nutrition

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/claude/fitlog/internal/aggregate"
	"github.com/claude/fitlog/internal/models"
)

// Fallback coach messages.
const (
	InsightsUnconfigured = "AI coach needs configuration."
	InsightsOffline      = "The AI coach is temporarily offline."
	InsightsEmpty        = "Nice work, keep logging!"
)

// Coach produces short training tips from recent history.
type Coach struct {
	gen TextGenerator
	log *slog.Logger
}

// NewCoach creates a Coach. A nil generator always yields InsightsUnconfigured.
func NewCoach(gen TextGenerator, log *slog.Logger) *Coach {
	return &Coach{gen: gen, log: log}
}

// Insights returns tips for st. It never fails; errors become fallback messages.
func (c *Coach) Insights(ctx context.Context, st models.AppState) string {
	if c.gen == nil {
		return InsightsUnconfigured
	}
	if g, ok := c.gen.(interface{ Configured() bool }); ok && !g.Configured() {
		return InsightsUnconfigured
	}

	text, err := c.gen.Generate(ctx, InsightsPrompt(st))
	if err != nil {
		c.log.Warn("coach insights failed", "error", err)
		return InsightsOffline
	}
	if text = strings.TrimSpace(text); text == "" {
		return InsightsEmpty
	}
	return text
}

// InsightsPrompt builds the coach prompt from the last three sessions and the
// latest health snapshot.
func InsightsPrompt(st models.AppState) string {
	recent := st.Workouts
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	gym := make([]string, 0, len(recent))
	for _, w := range recent {
		gym = append(gym, fmt.Sprintf("%s: %d sets", w.Label, len(w.Exercises)))
	}

	var bio string
	if h, ok := aggregate.LatestHealth(st.HealthHistory); ok {
		bio = fmt.Sprintf("Age: %d, Weight: %gkg, Height: %gcm, Goal: %s. ",
			models.Deref(h.Age), h.WeightKg, models.Deref(h.HeightCm), models.Deref(h.GoalLabel))
	}

	return fmt.Sprintf("You are a high-performance fitness coach. Give 3 very short, punchy tips based on this data: %sRecent workouts: %s. Focus on progressive overload and consistency.",
		bio, strings.Join(gym, ", "))
}
