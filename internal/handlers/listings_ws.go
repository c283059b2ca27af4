// internal/handlers/listings_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/squadpick/squadpick/internal/middleware"
)

// OpenRoomsWSHandler streams the joinable-room listing (status waiting, no
// guest) to room-discovery clients. Read-only: incoming messages are
// drained and ignored.
func OpenRoomsWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"listing"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancelCtx := context.WithCancel(r.Context())
		defer cancelCtx()

		rooms, cancelWatch, err := s.RoomStore.WatchOpen(ctx)
		if err != nil {
			logger.Warnf("open rooms watch failed: %v", err)
			c.Close(websocket.StatusInternalError, "subscription failed")
			return
		}
		defer cancelWatch()

		go drain(ctx, c, cancelCtx)

		for list := range rooms {
			payload := map[string]interface{}{"type": "open_rooms", "rooms": list}
			data, err := json.Marshal(payload)
			if err != nil {
				logger.Errorf("marshal open rooms: %v", err)
				continue
			}
			if err := c.Write(ctx, websocket.MessageText, data); err != nil {
				break
			}
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
		c.Close(websocket.StatusNormalClosure, "bye")
	}
}

// SquadsWSHandler streams the saved-squad gallery with live rating totals.
func SquadsWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"listing"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancelCtx := context.WithCancel(r.Context())
		defer cancelCtx()

		squads, cancelWatch, err := s.Squads.Watch(ctx)
		if err != nil {
			logger.Warnf("squads watch failed: %v", err)
			c.Close(websocket.StatusInternalError, "subscription failed")
			return
		}
		defer cancelWatch()

		go drain(ctx, c, cancelCtx)

		for list := range squads {
			payload := map[string]interface{}{"type": "squads", "squads": list}
			data, err := json.Marshal(payload)
			if err != nil {
				logger.Errorf("marshal squads: %v", err)
				continue
			}
			if err := c.Write(ctx, websocket.MessageText, data); err != nil {
				break
			}
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
		c.Close(websocket.StatusNormalClosure, "bye")
	}
}

// drain keeps reading so pings are answered and a client close surfaces
// promptly, cancelling the watch.
func drain(ctx context.Context, c *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := c.Read(ctx); err != nil {
			return
		}
	}
}
