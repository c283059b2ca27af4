// internal/handlers/server.go
package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/squadpick/squadpick/internal/identity"
	"github.com/squadpick/squadpick/internal/room"
	"github.com/squadpick/squadpick/internal/squad"
	"github.com/squadpick/squadpick/internal/store"
)

// Server bundles the services the HTTP/WS surface dispatches into. The
// presentation side only ever calls these operations; it never touches
// store records directly.
type Server struct {
	Rooms     *room.Service
	Squads    *squad.Service
	RoomStore store.RoomStore
	Identity  identity.Cache
	Logger    *logrus.Logger
}

// NewServer wires the handler surface.
func NewServer(rooms *room.Service, squads *squad.Service, roomStore store.RoomStore, cache identity.Cache, logger *logrus.Logger) *Server {
	return &Server{
		Rooms:     rooms,
		Squads:    squads,
		RoomStore: roomStore,
		Identity:  cache,
		Logger:    logger,
	}
}
