// internal/handlers/squad.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/squadpick/squadpick/internal/store"
)

// ListSquadsHandler returns the saved-squad gallery as plain JSON for
// clients that don't need the live stream.
func ListSquadsHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.Squads.List(r.Context())
		if err != nil {
			s.Logger.Errorf("list squads failed: %v", err)
			writeError(w, http.StatusInternalServerError, "listing failed")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// RateSquadHandler records the caller's star rating using the persistent
// anonymous voter cookie; re-rating replaces the earlier vote.
func RateSquadHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			SquadID string `json:"squadId"`
			Value   int    `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SquadID == "" {
			writeError(w, http.StatusBadRequest, "squadId and value are required")
			return
		}

		voterID := EnsureAnonID(w, r)
		err := s.Squads.Rate(r.Context(), req.SquadID, voterID, req.Value)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "squad not found")
			return
		}
		if err != nil {
			s.Logger.Errorf("rate squad %s failed: %v", req.SquadID, err)
			writeError(w, http.StatusInternalServerError, "rating failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"rated": true})
	}
}

// MyVoteHandler returns the caller's current vote for a squad, if any.
func MyVoteHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		squadID := r.URL.Query().Get("squadId")
		if squadID == "" {
			writeError(w, http.StatusBadRequest, "squadId is required")
			return
		}
		voterID := EnsureAnonID(w, r)
		v, ok, err := s.Squads.Vote(r.Context(), squadID, voterID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"voted": ok, "value": v})
	}
}
