package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/fitlog/internal/aggregate"
	"github.com/claude/fitlog/internal/ingest"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/nutrition"
	"github.com/claude/fitlog/internal/state"
	"github.com/go-chi/chi/v5"
)

// StateStore is the part of the state container the handlers use.
type StateStore interface {
	Snapshot() models.AppState
	Dispatch(ctx context.Context, a state.Action) (models.AppState, error)
}

// Importer ingests a history export.
type Importer interface {
	Ingest(ctx context.Context, r io.Reader) (*ingest.Result, error)
}

// ActivitySync is the OAuth activity provider.
type ActivitySync interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) error
	Latest(ctx context.Context) ([]models.CardioEntry, error)
}

// Deps are the collaborators a Server needs. Optional ones may be nil;
// their routes then answer 503.
type Deps struct {
	State    StateStore
	Alpha    Importer
	HAE      Importer
	Analyzer nutrition.Analyzer
	Barcode  nutrition.BarcodeLookup
	Coach    *nutrition.Coach
	Activity ActivitySync
	// MCP is mounted at /mcp when set.
	MCP http.Handler

	APIKey   string
	Location *time.Location
	Goals    aggregate.Goals
	Now      func() time.Time
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	state    StateStore
	alpha    Importer
	hae      Importer
	analyzer nutrition.Analyzer
	barcode  nutrition.BarcodeLookup
	coach    *nutrition.Coach
	activity ActivitySync
	mcp      http.Handler
	apiKey   string
	loc      *time.Location
	goals    aggregate.Goals
	clock    func() time.Time
	identity func(http.Handler) http.Handler
	log      *slog.Logger
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(d Deps, log *slog.Logger) *Server {
	s := &Server{
		state:    d.State,
		alpha:    d.Alpha,
		hae:      d.HAE,
		analyzer: d.Analyzer,
		barcode:  d.Barcode,
		coach:    d.Coach,
		activity: d.Activity,
		mcp:      d.MCP,
		apiKey:   d.APIKey,
		loc:      d.Location,
		goals:    d.Goals,
		clock:    d.Now,
		identity: DevIdentity,
		log:      log,
		router:   chi.NewRouter(),
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.goals == (aggregate.Goals{}) {
		s.goals = aggregate.DefaultGoals
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches request identity to the tailnet peer making the call.
func (s *Server) SetTailscale(lc WhoIser) {
	s.identity = TailscaleIdentity(lc, s.log)
}

func (s *Server) now() time.Time {
	return s.clock().In(s.loc)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.identity(next).ServeHTTP(w, r)
		})
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)
		r.Get("/state", s.handleState)
		r.Get("/dashboard", s.handleDashboard)

		r.Post("/sessions", s.handleStartSession)
		r.Get("/sessions/active", s.handleActiveSession)
		r.Post("/sessions/{id}/sets", s.handleAddSet)
		r.Post("/sessions/{id}/finish", s.handleFinishSession)
		r.Get("/workouts/completed", s.handleCompletedWorkouts)
		r.Delete("/workouts/{id}", s.handleDeleteWorkout)

		r.Get("/exercises/previous", s.handlePreviousSet)
		r.Get("/exercises/stats", s.handleExerciseStats)
		r.Get("/exercises/progression", s.handleProgression)
		r.Get("/training/summary", s.handleTrainingSummary)

		r.Post("/cardio", s.handleAddCardio)
		r.Delete("/cardio/{id}", s.handleDeleteCardio)
		r.Post("/cardio/sync", s.handleSyncCardio)
		r.Get("/strava/connect", s.handleStravaConnect)
		r.Get("/strava/callback", s.handleStravaCallback)
		r.Delete("/strava/link", s.handleStravaUnlink)

		r.Post("/health", s.handleAddHealth)
		r.Get("/health/latest", s.handleLatestHealth)

		r.Post("/meals", s.handleAddMeal)
		r.Delete("/meals/{id}", s.handleDeleteMeal)
		r.Get("/meals/today", s.handleMealsToday)
		r.Post("/portion", s.handlePortion)
		r.Post("/scan", s.handleScan)
		r.Get("/barcode/{code}", s.handleBarcode)
		r.Get("/insights", s.handleInsights)

		// Import endpoints (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/import/alpha", s.handleImport("alpha", s.alpha))
			r.Post("/import/hae", s.handleImport("hae", s.hae))
		})
	})

	if s.mcp != nil {
		s.router.Handle("/mcp", s.mcp)
		s.router.Handle("/mcp/*", s.mcp)
	}
}
