// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/squadpick/squadpick/internal/draft"
	"github.com/squadpick/squadpick/internal/identity"
	"github.com/squadpick/squadpick/internal/middleware"
	"github.com/squadpick/squadpick/internal/store"
)

// roomCommand is one client request over the room socket. Every command
// maps 1:1 to a room-service operation.
type roomCommand struct {
	Type     string         `json:"type"`
	Name     string         `json:"name,omitempty"`
	PlayerID string         `json:"playerId,omitempty"`
	Position draft.Position `json:"position,omitempty"`
	Value    int            `json:"value,omitempty"`
}

// roomConn is the per-connection state shared between the read and write
// pumps: the cached identity token and the last snapshot seen, used for
// presentation-level gating (the authoritative checks live in the store
// transactions).
type roomConn struct {
	mu    sync.Mutex
	token identity.Token
	last  *draft.Room
}

func (c *roomConn) setToken(t identity.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = t
}

func (c *roomConn) observe(r *draft.Room) draft.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = r
	return identity.Resolve(r, c.token.ParticipantID)
}

func (c *roomConn) role() draft.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return identity.Resolve(c.last, c.token.ParticipantID)
}

func (c *roomConn) lastRoom() *draft.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// RoomWSHandler upgrades to WebSocket for one room: it streams whole-state
// snapshots (or an explicit absent marker) on every change and accepts the
// fixed command set. The subscription lives until the client disconnects.
func RoomWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimPrefix(r.URL.Path, "/room/ws/")
		if idx := strings.Index(code, "/"); idx != -1 {
			code = code[:idx]
		}
		if !draft.ValidCode(code) {
			http.Error(w, "invalid room code", http.StatusBadRequest)
			return
		}

		sid, err := EnsureSession(w, r)
		if err != nil {
			http.Error(w, "session error", http.StatusInternalServerError)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"draft"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "draft" {
			c.Close(BadSubprotocolError, "client must speak the draft subprotocol")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancelCtx := context.WithCancel(r.Context())
		defer cancelCtx()

		conn := &roomConn{}
		if tok, ok, err := s.Identity.Get(ctx, sid, code); err == nil && ok {
			conn.setToken(tok)
		}

		snaps, cancelWatch, err := s.RoomStore.Watch(ctx, code)
		if err != nil {
			logger.Warnf("room %s: watch failed: %v", code, err)
			c.Close(websocket.StatusInternalError, "subscription failed")
			return
		}
		defer cancelWatch()

		// Write pump: forward every snapshot with the caller's derived role.
		go func() {
			for snap := range snaps {
				role := conn.observe(snap.Room)
				payload := map[string]interface{}{
					"type":     "room_state",
					"room":     snap.Room,
					"yourRole": role,
				}
				data, err := json.Marshal(payload)
				if err != nil {
					logger.Errorf("room %s: marshal snapshot: %v", code, err)
					continue
				}
				if err := c.Write(ctx, websocket.MessageText, data); err != nil {
					cancelCtx()
					return
				}
			}
		}()

		// Read pump (blocks until the connection drops).
		readErr := roomReadPump(ctx, c, s, conn, sid, code, logger)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
		c.Close(websocket.StatusNormalClosure, "bye")
	}
}

func roomReadPump(ctx context.Context, c *websocket.Conn, s *Server, conn *roomConn, sid, code string, logger *logrus.Logger) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		var cmd roomCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			writeAck(ctx, c, "", false, "invalid JSON")
			continue
		}
		ok, msg := dispatchRoomCommand(ctx, s, conn, sid, code, cmd, logger)
		writeAck(ctx, c, cmd.Type, ok, msg)
		if cmd.Type == "leave" {
			return nil
		}
	}
}

func writeAck(ctx context.Context, c *websocket.Conn, cmd string, ok bool, msg string) {
	payload := map[string]interface{}{"type": "ack", "cmd": cmd, "ok": ok}
	if msg != "" {
		payload["error"] = msg
	}
	data, _ := json.Marshal(payload)
	_ = c.Write(ctx, websocket.MessageText, data)
}

// dispatchRoomCommand maps one command onto the room service. Role gating
// here is presentation-level convenience; the store transaction is what
// actually guarantees consistency under races.
func dispatchRoomCommand(ctx context.Context, s *Server, conn *roomConn, sid, code string, cmd roomCommand, logger *logrus.Logger) (bool, string) {
	role := conn.role()
	participant := role == draft.RoleHost || role == draft.RoleGuest

	switch cmd.Type {
	case "join":
		if cmd.Name == "" {
			return false, "name is required"
		}
		guest := draft.Participant{ID: uuid.New(), Name: cmd.Name}
		ok, err := s.Rooms.JoinRoom(ctx, code, guest)
		if err != nil {
			return false, "join failed"
		}
		if !ok {
			return false, "room is full or missing"
		}
		tok := identity.Token{ParticipantID: guest.ID, Name: guest.Name}
		conn.setToken(tok)
		if err := s.Identity.Put(ctx, sid, code, tok); err != nil {
			logger.Warnf("identity cache put failed: %v", err)
		}
		return true, ""

	case "request_join":
		if cmd.Name == "" {
			return false, "name is required"
		}
		requester := draft.Participant{ID: uuid.New(), Name: cmd.Name}
		ok, err := s.Rooms.SendJoinRequest(ctx, code, requester)
		if err != nil {
			return false, "request failed"
		}
		if !ok {
			return false, "room is full or a request is already pending"
		}
		tok := identity.Token{ParticipantID: requester.ID, Name: requester.Name}
		conn.setToken(tok)
		if err := s.Identity.Put(ctx, sid, code, tok); err != nil {
			logger.Warnf("identity cache put failed: %v", err)
		}
		if err := s.Identity.SetPending(ctx, sid, code, true); err != nil {
			logger.Warnf("identity cache pending flag failed: %v", err)
		}
		return true, ""

	case "approve_request":
		if role != draft.RoleHost {
			return false, "only the host can approve"
		}
		return opResult(s.Rooms.ApproveJoinRequest(ctx, code))

	case "deny_request":
		if role != draft.RoleHost {
			return false, "only the host can deny"
		}
		return opResult(s.Rooms.DenyJoinRequest(ctx, code))

	case "clear_request":
		if err := s.Identity.SetPending(ctx, sid, code, false); err != nil {
			logger.Warnf("identity cache pending flag failed: %v", err)
		}
		return opResult(s.Rooms.ClearJoinRequest(ctx, code))

	case "add_player":
		if !participant {
			return false, "not a participant"
		}
		if cmd.Name == "" {
			return false, "name is required"
		}
		_, err := s.Rooms.AddPlayer(ctx, code, cmd.Name, cmd.Position)
		return opResult(err)

	case "remove_player":
		if !participant {
			return false, "not a participant"
		}
		id, err := uuid.Parse(cmd.PlayerID)
		if err != nil {
			return false, "invalid playerId"
		}
		return opResult(s.Rooms.RemovePlayer(ctx, code, id))

	case "set_position":
		if !participant {
			return false, "not a participant"
		}
		id, err := uuid.Parse(cmd.PlayerID)
		if err != nil {
			return false, "invalid playerId"
		}
		return opResult(s.Rooms.UpdatePlayerPosition(ctx, code, id, cmd.Position))

	case "start_rolling":
		if !participant {
			return false, "not a participant"
		}
		return opResult(s.Rooms.StartRolling(ctx, code))

	case "set_dice":
		if !participant {
			return false, "not a participant"
		}
		return opResult(s.Rooms.SetDice(ctx, code, role, cmd.Value))

	case "reset_dice":
		if !participant {
			return false, "not a participant"
		}
		return opResult(s.Rooms.ResetDice(ctx, code))

	case "start_draft":
		if !participant {
			return false, "not a participant"
		}
		return opResult(s.Rooms.StartDraft(ctx, code))

	case "pick_player":
		if !participant {
			return false, "not a participant"
		}
		if last := conn.lastRoom(); last != nil && last.CurrentTurn != role {
			return false, "not your turn"
		}
		id, err := uuid.Parse(cmd.PlayerID)
		if err != nil {
			return false, "invalid playerId"
		}
		return opResult(s.Rooms.PickPlayer(ctx, code, id))

	case "save_squad":
		if !participant {
			return false, "not a participant"
		}
		rm, err := s.Rooms.Get(ctx, code)
		if err != nil {
			return opResult(err)
		}
		if _, err := s.Squads.Save(ctx, rm); err != nil {
			return opResult(err)
		}
		return true, ""

	case "leave":
		if err := s.Identity.Clear(ctx, sid, code); err != nil {
			logger.Warnf("identity cache clear failed: %v", err)
		}
		return true, ""
	}

	return false, "unknown command"
}

// opResult folds a service error into the ack shape: precondition sentinels
// get readable messages, store trouble gets a generic connectivity message.
func opResult(err error) (bool, string) {
	switch {
	case err == nil:
		return true, ""
	case errors.Is(err, draft.ErrWrongPhase):
		return false, "not allowed in this phase"
	case errors.Is(err, draft.ErrPlayerNotFound):
		return false, "player not found"
	case errors.Is(err, draft.ErrBadDieValue):
		return false, "die value out of range"
	case errors.Is(err, draft.ErrBadPosition):
		return false, "unknown position"
	case errors.Is(err, draft.ErrNotEnoughPicks):
		return false, "need a guest and at least 2 players"
	case errors.Is(err, draft.ErrDiceUnresolved):
		return false, "dice not resolved"
	case errors.Is(err, store.ErrNotFound):
		return false, "room not found"
	default:
		return false, "operation failed"
	}
}
