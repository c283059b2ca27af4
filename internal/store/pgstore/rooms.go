// internal/store/pgstore/rooms.go
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/squadpick/squadpick/internal/draft"
	"github.com/squadpick/squadpick/internal/store"
)

// maxCASRetries bounds the optimistic retry loop. Contention on a two-party
// room is light; hitting this means something is badly wrong.
const maxCASRetries = 8

// absentPayload marks a deleted/missing room on the pub/sub channel.
const absentPayload = "null"

// Rooms is the Postgres RoomStore.
type Rooms struct {
	db  *pgxpool.Pool
	rdb *redis.Client
	log *logrus.Logger
}

// NewRooms wires a room store over an existing pool and Redis client.
func NewRooms(db *pgxpool.Pool, rdb *redis.Client, log *logrus.Logger) *Rooms {
	return &Rooms{db: db, rdb: rdb, log: log}
}

func (s *Rooms) Insert(ctx context.Context, room *draft.Room) error {
	cp := room.Clone()
	cp.Version = 1
	doc, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	q := `
	INSERT INTO rooms (code, doc, version, status, guest_filled, created_at)
	VALUES ($1, $2, 1, $3, $4, $5)
	ON CONFLICT (code) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, q, cp.Code, doc, cp.Status, cp.Guest != nil, cp.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrExists
	}
	s.publish(ctx, cp.Code, doc)
	return nil
}

func (s *Rooms) Get(ctx context.Context, code string) (*draft.Room, error) {
	var doc []byte
	var version int64
	err := s.db.QueryRow(ctx, `SELECT doc, version FROM rooms WHERE code = $1`, code).Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRoom(doc, version)
}

func (s *Rooms) Update(ctx context.Context, code string, mutate store.MutateFunc) (*draft.Room, error) {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		var doc []byte
		var version int64
		err := s.db.QueryRow(ctx, `SELECT doc, version FROM rooms WHERE code = $1`, code).Scan(&doc, &version)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if err != nil {
			return nil, err
		}

		room, err := decodeRoom(doc, version)
		if err != nil {
			return nil, err
		}
		if err := mutate(room); err != nil {
			if err == store.ErrUnchanged {
				return room, nil
			}
			return nil, err
		}
		room.Version = version + 1

		newDoc, err := json.Marshal(room)
		if err != nil {
			return nil, err
		}
		q := `
		UPDATE rooms
		   SET doc = $1, version = $2, status = $3, guest_filled = $4
		 WHERE code = $5 AND version = $6
		`
		tag, err := s.db.Exec(ctx, q, newDoc, room.Version, room.Status, room.Guest != nil, code, version)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 1 {
			s.publish(ctx, code, newDoc)
			return room, nil
		}
		// Lost the version race; re-read and try again.
	}
	return nil, store.ErrConflict
}

func (s *Rooms) Delete(ctx context.Context, code string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM rooms WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	s.publish(ctx, code, []byte(absentPayload))
	return nil
}

func (s *Rooms) Watch(ctx context.Context, code string) (<-chan store.Snapshot, store.CancelFunc, error) {
	ps := s.rdb.Subscribe(ctx, roomChannel(code))
	// Force the subscription onto the wire before the initial read so no
	// change can slip between the two.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, err
	}

	out := make(chan store.Snapshot, 1)
	done := make(chan struct{})

	initial, err := s.Get(ctx, code)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		ps.Close()
		return nil, nil, err
	}

	go func() {
		defer close(out)
		deliver := func(snap store.Snapshot) bool {
			select {
			case out <- snap:
				return true
			case <-done:
				return false
			case <-ctx.Done():
				return false
			}
		}
		if !deliver(store.Snapshot{Room: initial}) {
			return
		}
		for {
			select {
			case msg, ok := <-ps.Channel():
				if !ok {
					return
				}
				if msg.Payload == absentPayload {
					if !deliver(store.Snapshot{}) {
						return
					}
					continue
				}
				room, err := decodeRoom([]byte(msg.Payload), 0)
				if err != nil {
					s.log.Warnf("room watch %s: undecodable payload: %v", code, err)
					continue
				}
				if !deliver(store.Snapshot{Room: room}) {
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			ps.Close()
		})
	}
	return out, cancel, nil
}

func (s *Rooms) WatchOpen(ctx context.Context) (<-chan []*draft.Room, store.CancelFunc, error) {
	ps := s.rdb.Subscribe(ctx, openRoomsChannel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, err
	}

	out := make(chan []*draft.Room, 1)
	done := make(chan struct{})

	go func() {
		defer close(out)
		deliver := func() bool {
			open, err := s.listOpen(ctx)
			if err != nil {
				s.log.Warnf("open rooms query failed: %v", err)
				return true
			}
			select {
			case out <- open:
				return true
			case <-done:
				return false
			case <-ctx.Done():
				return false
			}
		}
		if !deliver() {
			return
		}
		for {
			select {
			case _, ok := <-ps.Channel():
				if !ok {
					return
				}
				if !deliver() {
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			ps.Close()
		})
	}
	return out, cancel, nil
}

func (s *Rooms) listOpen(ctx context.Context) ([]*draft.Room, error) {
	q := `
	SELECT doc, version FROM rooms
	 WHERE status = $1 AND NOT guest_filled
	 ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, q, draft.StatusWaiting)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	open := []*draft.Room{}
	for rows.Next() {
		var doc []byte
		var version int64
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, err
		}
		room, err := decodeRoom(doc, version)
		if err != nil {
			return nil, err
		}
		open = append(open, room)
	}
	return open, rows.Err()
}

// publish fans the committed document out to room watchers and pokes the
// open-rooms listing. Publish failures are logged, not surfaced: the commit
// already happened and watchers recover on their next snapshot.
func (s *Rooms) publish(ctx context.Context, code string, doc []byte) {
	if err := s.rdb.Publish(ctx, roomChannel(code), doc).Err(); err != nil {
		s.log.Warnf("publish room %s failed: %v", code, err)
	}
	if err := s.rdb.Publish(ctx, openRoomsChannel, code).Err(); err != nil {
		s.log.Warnf("publish open rooms signal failed: %v", err)
	}
}

func decodeRoom(doc []byte, version int64) (*draft.Room, error) {
	var room draft.Room
	if err := json.Unmarshal(doc, &room); err != nil {
		return nil, err
	}
	if version > 0 {
		room.Version = version
	}
	return &room, nil
}
