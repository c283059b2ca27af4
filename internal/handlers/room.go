// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/squadpick/squadpick/internal/draft"
	"github.com/squadpick/squadpick/internal/identity"
	"github.com/squadpick/squadpick/internal/store"
)

// CreateRoomHandler creates a room with the caller as host and caches the
// host identity under the caller's session.
func CreateRoomHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			HostName string `json:"hostName"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HostName == "" {
			writeError(w, http.StatusBadRequest, "hostName is required")
			return
		}

		sid, err := EnsureSession(w, r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "session error")
			return
		}

		rm, err := s.Rooms.CreateRoom(r.Context(), req.HostName)
		if err != nil {
			s.Logger.Errorf("create room failed: %v", err)
			writeError(w, http.StatusInternalServerError, "could not create room")
			return
		}

		tok := identity.Token{ParticipantID: rm.Host.ID, Name: rm.Host.Name}
		if err := s.Identity.Put(r.Context(), sid, rm.Code, tok); err != nil {
			s.Logger.Warnf("identity cache put failed for room %s: %v", rm.Code, err)
		}
		writeJSON(w, http.StatusOK, rm)
	}
}

// JoinRoomHandler seats the caller as guest. 409 when the seat is taken or
// the room is missing; the record is untouched in that case.
func JoinRoomHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			RoomID string `json:"roomId"`
			Name   string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || !draft.ValidCode(req.RoomID) {
			writeError(w, http.StatusBadRequest, "roomId and name are required")
			return
		}

		sid, err := EnsureSession(w, r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "session error")
			return
		}

		guest := draft.Participant{ID: uuid.New(), Name: req.Name}
		ok, err := s.Rooms.JoinRoom(r.Context(), req.RoomID, guest)
		if err != nil {
			s.Logger.Errorf("join room %s failed: %v", req.RoomID, err)
			writeError(w, http.StatusInternalServerError, "could not join room")
			return
		}
		if !ok {
			writeJSON(w, http.StatusConflict, map[string]bool{"joined": false})
			return
		}

		tok := identity.Token{ParticipantID: guest.ID, Name: guest.Name}
		if err := s.Identity.Put(r.Context(), sid, req.RoomID, tok); err != nil {
			s.Logger.Warnf("identity cache put failed for room %s: %v", req.RoomID, err)
		}
		writeJSON(w, http.StatusOK, map[string]bool{"joined": true})
	}
}

// RoomExistsHandler lets the join form distinguish a typo from a full room.
func RoomExistsHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if !draft.ValidCode(code) {
			writeJSON(w, http.StatusOK, map[string]bool{"exists": false})
			return
		}
		exists, err := s.Rooms.RoomExists(r.Context(), code)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
	}
}

// DeleteRoomHandler removes a room permanently. Authorization is enforced
// by the admin surface in front of this endpoint, not here.
func DeleteRoomHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			RoomID string `json:"roomId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !draft.ValidCode(req.RoomID) {
			writeError(w, http.StatusBadRequest, "roomId is required")
			return
		}
		err := s.Rooms.DeleteRoom(r.Context(), req.RoomID)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "delete failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}
