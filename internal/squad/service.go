// internal/squad/service.go
//
// Community results: completed rosters saved once per room into their own
// collection, open to anonymous star ratings.
package squad

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/squadpick/squadpick/internal/draft"
	"github.com/squadpick/squadpick/internal/store"
)

// ErrNotCompleted rejects saving a room that has not finished drafting.
var ErrNotCompleted = errors.New("room is not completed")

// RoomMarker is the slice of the room service the squad service needs to
// flip the one-shot saved flag on the live record.
type RoomMarker interface {
	MarkSquadSaved(ctx context.Context, code string) error
}

// Service persists and rates community squads.
type Service struct {
	squads store.SquadStore
	rooms  RoomMarker
	log    *logrus.Logger
}

// NewService builds a squad service.
func NewService(squads store.SquadStore, rooms RoomMarker, log *logrus.Logger) *Service {
	return &Service{squads: squads, rooms: rooms, log: log}
}

// Save persists the room's final rosters as a community squad. Idempotent:
// the squad record is keyed by room code and created at most once; repeat
// calls return false with no effect. The room's squadSaved flag is set
// after a successful first save.
func (s *Service) Save(ctx context.Context, r *draft.Room) (bool, error) {
	if r.Status != draft.StatusCompleted {
		return false, ErrNotCompleted
	}
	guestName := ""
	if r.Guest != nil {
		guestName = r.Guest.Name
	}
	sq := &store.SavedSquad{
		ID:        r.Code,
		RoomCode:  r.Code,
		HostName:  r.Host.Name,
		GuestName: guestName,
		HostTeam:  r.HostTeam,
		GuestTeam: r.GuestTeam,
		CreatedAt: time.Now().UTC(),
	}
	created, err := s.squads.SaveIfAbsent(ctx, sq)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}
	if err := s.rooms.MarkSquadSaved(ctx, r.Code); err != nil {
		// The squad itself is saved; the flag is advisory. Log and move on.
		s.log.Warnf("squad %s saved but marking room failed: %v", r.Code, err)
	}
	return true, nil
}

// Rate records the anonymous voter's star rating, clamped to [1,5]. A
// second vote from the same voter replaces the first.
func (s *Service) Rate(ctx context.Context, squadID, voterID string, value int) error {
	if value < 1 {
		value = 1
	}
	if value > 5 {
		value = 5
	}
	return s.squads.Rate(ctx, squadID, voterID, value)
}

// Vote returns the voter's current rating for a squad, if any.
func (s *Service) Vote(ctx context.Context, squadID, voterID string) (int, bool, error) {
	return s.squads.Vote(ctx, squadID, voterID)
}

// List returns all saved squads, newest first.
func (s *Service) List(ctx context.Context) ([]*store.SavedSquad, error) {
	return s.squads.List(ctx)
}

// Watch streams the squad listing on every change.
func (s *Service) Watch(ctx context.Context) (<-chan []*store.SavedSquad, store.CancelFunc, error) {
	return s.squads.Watch(ctx)
}
