// internal/store/memstore/rooms.go
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/squadpick/squadpick/internal/draft"
	"github.com/squadpick/squadpick/internal/store"
)

// Rooms is an in-memory RoomStore. All commits happen under one mutex,
// which gives the same serialized read-modify-write guarantee the Postgres
// implementation gets from version CAS.
type Rooms struct {
	mu    sync.Mutex
	rooms map[string]*draft.Room

	watchers     map[string]map[int]*watcher[store.Snapshot]
	openWatchers map[int]*watcher[[]*draft.Room]
	nextID       int
}

// NewRooms returns an empty in-memory room store.
func NewRooms() *Rooms {
	return &Rooms{
		rooms:        make(map[string]*draft.Room),
		watchers:     make(map[string]map[int]*watcher[store.Snapshot]),
		openWatchers: make(map[int]*watcher[[]*draft.Room]),
	}
}

func (s *Rooms) Insert(ctx context.Context, room *draft.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; ok {
		return store.ErrExists
	}
	cp := room.Clone()
	cp.Version = 1
	s.rooms[room.Code] = cp
	s.notifyLocked(room.Code)
	return nil
}

func (s *Rooms) Get(ctx context.Context, code string) (*draft.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *Rooms) Update(ctx context.Context, code string, mutate store.MutateFunc) (*draft.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rooms[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	next := cur.Clone()
	if err := mutate(next); err != nil {
		if err == store.ErrUnchanged {
			return cur.Clone(), nil
		}
		return nil, err
	}
	next.Version = cur.Version + 1
	s.rooms[code] = next
	s.notifyLocked(code)
	return next.Clone(), nil
}

func (s *Rooms) Delete(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; !ok {
		return store.ErrNotFound
	}
	delete(s.rooms, code)
	s.notifyLocked(code)
	return nil
}

func (s *Rooms) Watch(ctx context.Context, code string) (<-chan store.Snapshot, store.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	w := newWatcher[store.Snapshot]()
	if s.watchers[code] == nil {
		s.watchers[code] = make(map[int]*watcher[store.Snapshot])
	}
	s.watchers[code][id] = w

	// Initial delivery: current state, or the explicit absent marker.
	w.push(s.snapshotLocked(code))

	cancel := cancelOnce(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers[code], id)
		w.close()
	})
	return w.ch, cancel, nil
}

func (s *Rooms) WatchOpen(ctx context.Context) (<-chan []*draft.Room, store.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	w := newWatcher[[]*draft.Room]()
	s.openWatchers[id] = w
	w.push(s.openRoomsLocked())

	cancel := cancelOnce(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.openWatchers, id)
		w.close()
	})
	return w.ch, cancel, nil
}

func (s *Rooms) snapshotLocked(code string) store.Snapshot {
	if r, ok := s.rooms[code]; ok {
		return store.Snapshot{Room: r.Clone()}
	}
	return store.Snapshot{}
}

func (s *Rooms) openRoomsLocked() []*draft.Room {
	open := []*draft.Room{}
	for _, r := range s.rooms {
		if r.Status == draft.StatusWaiting && r.Guest == nil {
			open = append(open, r.Clone())
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].CreatedAt.After(open[j].CreatedAt)
	})
	return open
}

func (s *Rooms) notifyLocked(code string) {
	snap := s.snapshotLocked(code)
	for _, w := range s.watchers[code] {
		w.push(snap)
	}
	if len(s.openWatchers) > 0 {
		open := s.openRoomsLocked()
		for _, w := range s.openWatchers {
			w.push(open)
		}
	}
}
