// internal/draft/machine.go
//
// Pure transition logic for the room record. Every method mutates the
// receiver in place and is meant to run inside a store transaction on a
// cloned record: either the whole transition commits or none of it does.
//
// Two failure styles mirror the operation contracts: precondition failures
// that the caller simply reports (guest seat taken, request already pending)
// return bool; failures that abort the enclosing transaction return a
// sentinel error.
package draft

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrWrongPhase     = errors.New("operation not legal in current phase")
	ErrPlayerNotFound = errors.New("player not found")
	ErrBadDieValue    = errors.New("die value out of range")
	ErrBadPosition    = errors.New("unknown position")
	ErrNotEnoughPicks = errors.New("need a guest and at least 2 pool players")
	ErrDiceUnresolved = errors.New("dice not resolved to a first picker")
)

// AssignGuest fills the guest seat directly and advances to adding_players.
// Exactly one guest is ever accepted; a second attempt returns false and
// leaves the record untouched.
func (r *Room) AssignGuest(g Participant) bool {
	if r.Guest != nil {
		return false
	}
	r.Guest = &g
	r.Status = StatusAddingPlayers
	return true
}

// RequestJoin places a pending join request on the room. Fails if the guest
// seat is filled or another request is already pending.
func (r *Room) RequestJoin(p Participant) bool {
	if r.Guest != nil {
		return false
	}
	if r.JoinRequest != nil && r.JoinRequest.Status == RequestPending {
		return false
	}
	r.JoinRequest = &JoinRequest{ID: p.ID, Name: p.Name, Status: RequestPending}
	return true
}

// ApproveRequest seats the pending requester as guest, clears the request
// and advances to adding_players. No-op (false) without a pending request.
func (r *Room) ApproveRequest() bool {
	if r.JoinRequest == nil || r.JoinRequest.Status != RequestPending {
		return false
	}
	r.Guest = &Participant{ID: r.JoinRequest.ID, Name: r.JoinRequest.Name}
	r.Status = StatusAddingPlayers
	r.JoinRequest = nil
	return true
}

// DenyRequest marks the outstanding request denied. The requester observes
// the denial on its next snapshot and clears it via ClearRequest.
func (r *Room) DenyRequest() bool {
	if r.JoinRequest == nil {
		return false
	}
	r.JoinRequest.Status = RequestDenied
	return true
}

// ClearRequest removes the join request, whatever its state.
func (r *Room) ClearRequest() {
	r.JoinRequest = nil
}

// AddPoolPlayer appends a candidate to the pool. Legal only while the pool
// is being assembled. The caller is responsible for duplicate-name checks;
// calling twice adds twice.
func (r *Room) AddPoolPlayer(p PlayerInfo) error {
	if r.Status != StatusAddingPlayers {
		return ErrWrongPhase
	}
	if !ValidPosition(p.Position) {
		return ErrBadPosition
	}
	r.Players = append(r.Players, p)
	return nil
}

// RemovePoolPlayer drops a candidate from the pool by id.
func (r *Room) RemovePoolPlayer(id uuid.UUID) error {
	if r.Status != StatusAddingPlayers {
		return ErrWrongPhase
	}
	kept := r.Players[:0]
	for _, p := range r.Players {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	r.Players = kept
	return nil
}

// SetPosition updates a pool candidate's position in place.
func (r *Room) SetPosition(id uuid.UUID, pos Position) error {
	if !ValidPosition(pos) {
		return ErrBadPosition
	}
	for i := range r.Players {
		if r.Players[i].ID == id {
			r.Players[i].Position = pos
			return nil
		}
	}
	return ErrPlayerNotFound
}

// BeginRolling enters the dice phase, clearing any previous dice state.
// Requires a seated guest and at least two candidates to draft.
func (r *Room) BeginRolling() error {
	if r.Guest == nil || len(r.Players) < 2 {
		return ErrNotEnoughPicks
	}
	r.Status = StatusRolling
	r.HostDice = nil
	r.GuestDice = nil
	r.FirstPicker = nil
	return nil
}

// SetDie records the given role's roll. Once both dice are set and unequal,
// the strictly higher roller becomes first picker and takes the turn. Equal
// dice resolve nothing: the tie is broken by an explicit ClearDice and a
// fresh pair of rolls.
func (r *Room) SetDie(role Role, value int) error {
	if r.Status != StatusRolling {
		return ErrWrongPhase
	}
	if value < 1 || value > 6 {
		return ErrBadDieValue
	}
	if role == RoleHost {
		r.HostDice = &value
	} else {
		r.GuestDice = &value
	}
	if r.HostDice != nil && r.GuestDice != nil && *r.HostDice != *r.GuestDice {
		winner := RoleGuest
		if *r.HostDice > *r.GuestDice {
			winner = RoleHost
		}
		r.FirstPicker = &winner
		r.CurrentTurn = winner
	}
	return nil
}

// ClearDice resets both dice and the first picker. Either participant may
// invoke it on a tie or to force a re-roll. Note this wipes both sides
// unconditionally, including a fresh roll the other side made mid-flight.
func (r *Room) ClearDice() {
	r.HostDice = nil
	r.GuestDice = nil
	r.FirstPicker = nil
}

// BeginDraft enters the drafting phase, seeding each roster with its
// participant as captain (index 0, position unset). CurrentTurn was already
// set to the first picker when the dice resolved.
func (r *Room) BeginDraft() error {
	if r.Status != StatusRolling {
		return ErrWrongPhase
	}
	if r.FirstPicker == nil || r.Guest == nil {
		return ErrDiceUnresolved
	}
	r.Status = StatusDrafting
	r.HostTeam = []PlayerInfo{{ID: r.Host.ID, Name: r.Host.Name}}
	r.GuestTeam = []PlayerInfo{{ID: r.Guest.ID, Name: r.Guest.Name}}
	return nil
}

// Pick moves a pool candidate onto the acting team and flips the turn. The
// pick that empties the pool completes the room instead, freezing
// CurrentTurn at its final value.
func (r *Room) Pick(id uuid.UUID) error {
	if r.Status != StatusDrafting {
		return ErrWrongPhase
	}
	picked, ok := r.PoolPlayer(id)
	if !ok {
		return ErrPlayerNotFound
	}
	remaining := make([]PlayerInfo, 0, len(r.Players)-1)
	for _, p := range r.Players {
		if p.ID != id {
			remaining = append(remaining, p)
		}
	}
	r.Players = remaining

	if r.CurrentTurn == RoleHost {
		r.HostTeam = append(r.HostTeam, picked)
	} else {
		r.GuestTeam = append(r.GuestTeam, picked)
	}

	if len(r.Players) == 0 {
		r.Status = StatusCompleted
	} else {
		r.CurrentTurn = r.CurrentTurn.Other()
	}
	return nil
}

// MarkSquadSaved sets the one-shot save guard.
func (r *Room) MarkSquadSaved() {
	r.SquadSaved = true
}
