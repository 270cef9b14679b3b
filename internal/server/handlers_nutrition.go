package server

import (
	"net/http"
	"strings"

	"github.com/claude/fitlog/internal/aggregate"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/nutrition"
	"github.com/claude/fitlog/internal/portion"
	"github.com/claude/fitlog/internal/state"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAddHealth(w http.ResponseWriter, r *http.Request) {
	var req healthRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap := req.snapshot(s.now())
	if _, err := s.state.Dispatch(r.Context(), state.AddHealth{Snapshot: snap}); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleLatestHealth(w http.ResponseWriter, r *http.Request) {
	view, ok := aggregate.LatestHealthView(s.state.Snapshot().HealthHistory, s.goals)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no health data"))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAddMeal(w http.ResponseWriter, r *http.Request) {
	var req mealRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	meal := models.NewMealEntry(req.Name, req.Calories.float(), req.Protein.float(), req.Carbs.float(), req.Fats.float(), req.Fiber.float(), s.now())
	if _, err := s.state.Dispatch(r.Context(), state.AddMeal{Meal: meal}); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meal)
}

func (s *Server) handleDeleteMeal(w http.ResponseWriter, r *http.Request) {
	s.dispatchNoContent(w, r, state.DeleteMeal{ID: chi.URLParam(r, "id")})
}

func (s *Server) handleMealsToday(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, aggregate.MealsOn(s.state.Snapshot().MealHistory, s.now()))
}

func (s *Server) handlePortion(w http.ResponseWriter, r *http.Request) {
	var req portionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c := portion.NewComposer(req.Baseline)
	if req.Quantity != nil {
		c.SetQuantity(req.Quantity.float())
	}
	resp := portionResponse{Baseline: c.Baseline(), Quantity: c.Quantity(), Portion: c.Portion()}

	if req.Save {
		meal := c.Meal(s.now())
		if _, err := s.state.Dispatch(r.Context(), state.AddMeal{Meal: meal}); err != nil {
			s.writeError(w, err)
			return
		}
		resp.Meal = &meal
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("meal analysis is not configured"))
		return
	}
	var req scanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	image, mimeType, err := nutrition.ParseDataURL(req.Image)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), image, mimeType)
	if err != nil {
		s.writeError(w, err)
		return
	}
	c := res.Normalize()
	writeJSON(w, http.StatusOK, scanResponse{
		Kind:     string(res.Kind),
		Name:     c.Baseline().Name,
		Fixed:    c.Fixed(),
		Baseline: c.Baseline(),
		Quantity: c.Quantity(),
		Portion:  c.Portion(),
	})
}

func (s *Server) handleBarcode(w http.ResponseWriter, r *http.Request) {
	if s.barcode == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("barcode lookup is not configured"))
		return
	}
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("barcode required"))
		return
	}
	b, err := s.barcode.Lookup(r.Context(), code)
	if err != nil {
		s.writeError(w, err)
		return
	}
	c := portion.NewComposer(b)
	writeJSON(w, http.StatusOK, portionResponse{Baseline: c.Baseline(), Quantity: c.Quantity(), Portion: c.Portion()})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	text := nutrition.InsightsUnconfigured
	if s.coach != nil {
		text = s.coach.Insights(r.Context(), s.state.Snapshot())
	}
	writeJSON(w, http.StatusOK, map[string]string{"insights": text})
}
