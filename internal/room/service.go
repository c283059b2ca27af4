// internal/room/service.go
//
// The operation surface over the room store. Every mutation is an atomic
// read-modify-write: the store re-reads the latest committed record, applies
// the state-machine transition to a copy, and commits under the version
// check. Precondition failures (seat taken, request pending) come back as a
// plain false; store-level trouble (missing record, conflict storm) comes
// back as an error the caller treats as transient.
package room

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/squadpick/squadpick/internal/draft"
	"github.com/squadpick/squadpick/internal/store"
)

// createRetries is how many fresh codes CreateRoom tries before giving up
// on an absurdly unlucky collision streak.
const createRetries = 5

var errRejected = errors.New("precondition failed")

// Service applies state-machine transitions to the room store.
type Service struct {
	rooms store.RoomStore
	log   *logrus.Logger
}

// NewService builds a room service over the given store.
func NewService(rooms store.RoomStore, log *logrus.Logger) *Service {
	return &Service{rooms: rooms, log: log}
}

// CreateRoom generates a fresh code and host identity and inserts the
// record in the waiting phase.
func (s *Service) CreateRoom(ctx context.Context, hostName string) (*draft.Room, error) {
	host := draft.Participant{ID: uuid.New(), Name: hostName}
	for i := 0; i < createRetries; i++ {
		room := draft.NewRoom(draft.GenerateCode(), host)
		err := s.rooms.Insert(ctx, room)
		if errors.Is(err, store.ErrExists) {
			s.log.Warnf("room code collision on %s, retrying", room.Code)
			continue
		}
		if err != nil {
			return nil, err
		}
		room.Version = 1
		return room, nil
	}
	return nil, store.ErrExists
}

// Get returns the current record.
func (s *Service) Get(ctx context.Context, code string) (*draft.Room, error) {
	return s.rooms.Get(ctx, code)
}

// RoomExists reports whether a record exists for the code.
func (s *Service) RoomExists(ctx context.Context, code string) (bool, error) {
	_, err := s.rooms.Get(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// JoinRoom seats the guest directly. Returns false (no error) when the room
// is missing or the seat is already filled; the record is untouched.
func (s *Service) JoinRoom(ctx context.Context, code string, guest draft.Participant) (bool, error) {
	_, err := s.rooms.Update(ctx, code, func(r *draft.Room) error {
		if !r.AssignGuest(guest) {
			return errRejected
		}
		return nil
	})
	if errors.Is(err, errRejected) || errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SendJoinRequest places a pending request. False when the guest seat is
// filled, another request is pending, or the room is missing.
func (s *Service) SendJoinRequest(ctx context.Context, code string, requester draft.Participant) (bool, error) {
	_, err := s.rooms.Update(ctx, code, func(r *draft.Room) error {
		if !r.RequestJoin(requester) {
			return errRejected
		}
		return nil
	})
	if errors.Is(err, errRejected) || errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ApproveJoinRequest seats the pending requester as guest. A no-op without
// a pending request.
func (s *Service) ApproveJoinRequest(ctx context.Context, code string) error {
	_, err := s.rooms.Update(ctx, code, func(r *draft.Room) error {
		if !r.ApproveRequest() {
			return store.ErrUnchanged
		}
		return nil
	})
	return err
}

// DenyJoinRequest marks the outstanding request denied, leaving it for the
// requester to observe and clear.
func (s *Service) DenyJoinRequest(ctx context.Context, code string) error {
	_, err := s.rooms.Update(ctx, code, func(r *draft.Room) error {
		if !r.DenyRequest() {
			return store.ErrUnchanged
		}
		return nil
	})
	return err
}

// ClearJoinRequest removes the join request entirely (requester ack path).
func (s *Service) ClearJoinRequest(ctx context.Context, code string) error {
	_, err := s.rooms.Update(ctx, code, func(r *draft.Room) error {
		if r.JoinRequest == nil {
			return store.ErrUnchanged
		}
		r.ClearRequest()
		return nil
	})
	return err
}

// AddPlayer appends a named candidate to the pool and returns its generated
// identity. No dedup: adding the same name twice adds two candidates.
func (s *Service) AddPlayer(ctx context.Context, code, name string, pos draft.Position) (draft.PlayerInfo, error) {
	player := draft.PlayerInfo{ID: uuid.New(), Name: name, Position: pos}
	_, err := s.rooms.Update(ctx, code, func(r *draft.Room) error {
		return r.AddPoolPlayer(player)
	})
	if err != nil {
		return draft.PlayerInfo{}, err
	}
	return player, nil
}

// RemovePlayer drops a candidate from the pool by id.
func (s *Service) RemovePlayer(ctx context.Context, code string, playerID uuid.UUID) error {
	_, err := s.rooms.Update(ctx, code, func(r *draft.Room) error {
		return r.RemovePoolPlayer(playerID)
	})
	return err
}

// UpdatePlayerPosition sets a pool candidate's position in place.
func (s *Service) UpdatePlayerPosition(ctx context.Context, code string, playerID uuid.UUID, pos draft.Position) error {
	_, err := s.rooms.Update(ctx, code, func(r *draft.Room) error {
		return r.SetPosition(playerID, pos)
	})
	return err
}

// StartRolling enters the dice phase, resetting dice and first picker.
func (s *Service) StartRolling(ctx context.Context, code string) error {
	_, err := s.rooms.Update(ctx, code, func(r *draft.Room) error {
		return r.BeginRolling()
	})
	return err
}

// SetDice writes the caller's die and resolves the first picker when both
// dice are in and unequal. The dice value is trusted client input; only the
// transition around it is guarded.
func (s *Service) SetDice(ctx context.Context, code string, role draft.Role, value int) error {
	_, err := s.rooms.Update(ctx, code, func(r *draft.Room) error {
		return r.SetDie(role, value)
	})
	return err
}

// ResetDice clears both dice and the first picker. Either side may call it
// on a tie or to force a re-roll; it wipes both dice unconditionally, so a
// delayed reset can erase a fresh roll from the other side.
func (s *Service) ResetDice(ctx context.Context, code string) error {
	_, err := s.rooms.Update(ctx, code, func(r *draft.Room) error {
		r.ClearDice()
		return nil
	})
	return err
}

// StartDraft enters the drafting phase with both captains seeded.
func (s *Service) StartDraft(ctx context.Context, code string) error {
	_, err := s.rooms.Update(ctx, code, func(r *draft.Room) error {
		return r.BeginDraft()
	})
	return err
}

// PickPlayer drafts a candidate onto the acting team and flips the turn;
// the final pick completes the room instead. Surfaces
// draft.ErrPlayerNotFound when a concurrent pick got there first.
func (s *Service) PickPlayer(ctx context.Context, code string, playerID uuid.UUID) error {
	_, err := s.rooms.Update(ctx, code, func(r *draft.Room) error {
		return r.Pick(playerID)
	})
	return err
}

// MarkSquadSaved sets the one-shot save flag on the room record.
func (s *Service) MarkSquadSaved(ctx context.Context, code string) error {
	_, err := s.rooms.Update(ctx, code, func(r *draft.Room) error {
		if r.SquadSaved {
			return store.ErrUnchanged
		}
		r.MarkSquadSaved()
		return nil
	})
	return err
}

// DeleteRoom removes the record permanently. Authorization is the
// presentation layer's concern.
func (s *Service) DeleteRoom(ctx context.Context, code string) error {
	return s.rooms.Delete(ctx, code)
}
