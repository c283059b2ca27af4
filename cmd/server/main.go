// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/squadpick/squadpick/internal/auth"
	"github.com/squadpick/squadpick/internal/handlers"
	"github.com/squadpick/squadpick/internal/identity"
	"github.com/squadpick/squadpick/internal/middleware"
	"github.com/squadpick/squadpick/internal/room"
	"github.com/squadpick/squadpick/internal/squad"
	"github.com/squadpick/squadpick/internal/store"
	"github.com/squadpick/squadpick/internal/store/memstore"
	"github.com/squadpick/squadpick/internal/store/pgstore"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	ctx := context.Background()

	var (
		roomStore  store.RoomStore
		squadStore store.SquadStore
		idCache    identity.Cache
	)

	// STORE=memory runs everything in-process for local development; the
	// default is Postgres documents with Redis pub/sub fan-out.
	if os.Getenv("STORE") == "memory" {
		roomStore = memstore.NewRooms()
		squadStore = memstore.NewSquads()
		idCache = identity.NewMemCache()
		logger.Warn("running with in-memory store; nothing is persisted")
	} else {
		db, err := pgstore.Connect(ctx)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer db.Close()

		rdb, err := pgstore.ConnectRedis(ctx)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()

		roomStore = pgstore.NewRooms(db, rdb, logger)
		squadStore = pgstore.NewSquads(db, rdb, logger)
		idCache = identity.NewRedisCache(rdb)
	}

	rooms := room.NewService(roomStore, logger)
	squads := squad.NewService(squadStore, rooms, logger)
	srv := handlers.NewServer(rooms, squads, roomStore, idCache, logger)

	logMW := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()

	// room lifecycle
	mux.Handle("/room/create", logMW(handlers.CreateRoomHandler(srv)))
	mux.Handle("/room/join", logMW(handlers.JoinRoomHandler(srv)))
	mux.Handle("/room/exists", logMW(handlers.RoomExistsHandler(srv)))
	mux.Handle("/room/delete", logMW(handlers.DeleteRoomHandler(srv)))

	// room session websocket
	mux.Handle("/room/ws/", logMW(handlers.RoomWSHandler(logger, srv)))

	// discovery + gallery
	mux.Handle("/rooms/ws", logMW(handlers.OpenRoomsWSHandler(logger, srv)))
	mux.Handle("/squads/ws", logMW(handlers.SquadsWSHandler(logger, srv)))
	mux.Handle("/squads", logMW(handlers.ListSquadsHandler(srv)))
	mux.Handle("/squad/rate", logMW(handlers.RateSquadHandler(srv)))
	mux.Handle("/squad/vote", logMW(handlers.MyVoteHandler(srv)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
