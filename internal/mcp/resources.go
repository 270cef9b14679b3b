package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const recentWorkoutLimit = 10

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) dashboard(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	v, err := h.ds.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, v)
}

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	workouts, err := h.ds.CompletedWorkouts(ctx)
	if err != nil {
		return nil, err
	}
	if len(workouts) > recentWorkoutLimit {
		workouts = workouts[:recentWorkoutLimit]
	}
	return jsonResource(req.Params.URI, workouts)
}

func (h *handlers) todaysMeals(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	meals, err := h.ds.MealsToday(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, meals)
}
