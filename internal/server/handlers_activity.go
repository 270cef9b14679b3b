package server

import (
	"net/http"
	"time"

	"github.com/claude/fitlog/internal/activity"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/state"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const oauthStateCookie = "fitlog_oauth_state"

func (s *Server) handleAddCardio(w http.ResponseWriter, r *http.Request) {
	var req cardioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	at := s.now()
	if req.Date != nil && !req.Date.IsZero() {
		at = *req.Date
	}
	entry := models.NewCardioEntry(req.Type, req.Distance.float(), req.Duration.int(), at)
	if _, err := s.state.Dispatch(r.Context(), state.AddCardio{Entry: entry}); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleDeleteCardio(w http.ResponseWriter, r *http.Request) {
	s.dispatchNoContent(w, r, state.DeleteCardio{ID: chi.URLParam(r, "id")})
}

// handleSyncCardio fetches recent activities and merges the new ones.
// The fetch runs outside the state lock; a failed fetch changes nothing.
func (s *Server) handleSyncCardio(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("activity sync is not configured"))
		return
	}
	if !s.state.Snapshot().ExternalSyncLinked {
		s.writeError(w, activity.ErrNotLinked)
		return
	}
	entries, err := s.activity.Latest(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	before := len(s.state.Snapshot().CardioHistory)
	st, err := s.state.Dispatch(r.Context(), state.MergeSyncedCardio{Entries: entries})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("activities synced", "fetched", len(entries), "added", len(st.CardioHistory)-before)
	writeJSON(w, http.StatusOK, syncResponse{Added: len(st.CardioHistory) - before, Cardio: st.CardioHistory})
}

func (s *Server) handleStravaConnect(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("activity sync is not configured"))
		return
	}
	st := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    st,
		Path:     "/api/v1/strava",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.activity.AuthCodeURL(st), http.StatusFound)
}

func (s *Server) handleStravaCallback(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("activity sync is not configured"))
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writeJSON(w, http.StatusBadRequest, errorBody("authorization denied: "+e))
		return
	}
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != q.Get("state") {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid oauth state"))
		return
	}
	code := q.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("code parameter required"))
		return
	}

	if err := s.activity.Exchange(r.Context(), code); err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.state.Dispatch(r.Context(), state.SetSyncLinked{Linked: true}); err != nil {
		s.writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/api/v1/strava", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]bool{"linked": true})
}

// handleStravaUnlink clears the linked flag, which disables sync. The stored
// token is overwritten by the next link.
func (s *Server) handleStravaUnlink(w http.ResponseWriter, r *http.Request) {
	s.dispatchNoContent(w, r, state.SetSyncLinked{Linked: false})
}
