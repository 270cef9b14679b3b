// Package mcp exposes the training and nutrition history as MCP tools and
// resources.
package mcp

import (
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("FitLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("FitLog personal training and nutrition log. Query workouts, exercise progression, training volume, meals, macro goals and body metrics, and log meals or cardio."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetDashboard, Handler: h.getDashboard},
		server.ServerTool{Tool: toolGetActiveSession, Handler: h.getActiveSession},
		server.ServerTool{Tool: toolGetWorkouts, Handler: h.getWorkouts},
		server.ServerTool{Tool: toolGetPreviousSet, Handler: h.getPreviousSet},
		server.ServerTool{Tool: toolGetTrainingSummary, Handler: h.getTrainingSummary},
		server.ServerTool{Tool: toolGetExerciseStats, Handler: h.getExerciseStats},
		server.ServerTool{Tool: toolGetExerciseProgression, Handler: h.getExerciseProgression},
		server.ServerTool{Tool: toolGetMealsToday, Handler: h.getMealsToday},
		server.ServerTool{Tool: toolGetLatestHealth, Handler: h.getLatestHealth},
		server.ServerTool{Tool: toolLogMeal, Handler: h.logMeal},
		server.ServerTool{Tool: toolLogCardio, Handler: h.logCardio},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resDashboard, Handler: h.dashboard},
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
		server.ServerResource{Resource: resTodaysMeals, Handler: h.todaysMeals},
	)

	return s
}

// Handler serves s over streamable HTTP for mounting at /mcp.
func Handler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s)
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resDashboard = mcp.NewResource(
	"fitlog://dashboard",
	"Dashboard",
	mcp.WithResourceDescription("Today's calorie and macro totals against goals, BMI, active session, weight trend and recent cardio"),
	mcp.WithMIMEType("application/json"),
)

var resRecentWorkouts = mcp.NewResource(
	"fitlog://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("The ten most recent completed strength sessions, grouped by exercise"),
	mcp.WithMIMEType("application/json"),
)

var resTodaysMeals = mcp.NewResource(
	"fitlog://todays_meals",
	"Today's Meals",
	mcp.WithResourceDescription("Meals logged today with calorie and macro totals"),
	mcp.WithMIMEType("application/json"),
)
