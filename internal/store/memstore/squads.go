// internal/store/memstore/squads.go
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/squadpick/squadpick/internal/store"
)

// Squads is an in-memory SquadStore.
type Squads struct {
	mu       sync.Mutex
	squads   map[string]*store.SavedSquad
	votes    map[string]map[string]int // squadID -> voterID -> value
	watchers map[int]*watcher[[]*store.SavedSquad]
	nextID   int
}

// NewSquads returns an empty in-memory squad store.
func NewSquads() *Squads {
	return &Squads{
		squads:   make(map[string]*store.SavedSquad),
		votes:    make(map[string]map[string]int),
		watchers: make(map[int]*watcher[[]*store.SavedSquad]),
	}
}

func (s *Squads) SaveIfAbsent(ctx context.Context, squad *store.SavedSquad) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.squads[squad.ID]; ok {
		return false, nil
	}
	cp := *squad
	s.squads[squad.ID] = &cp
	s.notifyLocked()
	return true, nil
}

func (s *Squads) Get(ctx context.Context, id string) (*store.SavedSquad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sq, ok := s.squads[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sq
	return &cp, nil
}

func (s *Squads) List(ctx context.Context) ([]*store.SavedSquad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(), nil
}

func (s *Squads) Rate(ctx context.Context, squadID, voterID string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sq, ok := s.squads[squadID]
	if !ok {
		return store.ErrNotFound
	}
	if s.votes[squadID] == nil {
		s.votes[squadID] = make(map[string]int)
	}
	if old, voted := s.votes[squadID][voterID]; voted {
		sq.TotalRating += value - old
	} else {
		sq.TotalRating += value
		sq.RatingCount++
	}
	s.votes[squadID][voterID] = value
	s.notifyLocked()
	return nil
}

func (s *Squads) Vote(ctx context.Context, squadID, voterID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.votes[squadID][voterID]
	return v, ok, nil
}

func (s *Squads) Watch(ctx context.Context) (<-chan []*store.SavedSquad, store.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	w := newWatcher[[]*store.SavedSquad]()
	s.watchers[id] = w
	w.push(s.listLocked())

	cancel := cancelOnce(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
		w.close()
	})
	return w.ch, cancel, nil
}

func (s *Squads) listLocked() []*store.SavedSquad {
	out := make([]*store.SavedSquad, 0, len(s.squads))
	for _, sq := range s.squads {
		cp := *sq
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Squads) notifyLocked() {
	if len(s.watchers) == 0 {
		return
	}
	list := s.listLocked()
	for _, w := range s.watchers {
		w.push(list)
	}
}
