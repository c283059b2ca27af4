// internal/draft/room.go
package draft

import (
	"time"

	"github.com/google/uuid"
)

// Status is the room's lifecycle phase. Transitions are linear; the only
// backward edge is the tie re-roll (rolling -> rolling).
type Status string

const (
	StatusWaiting       Status = "waiting"
	StatusAddingPlayers Status = "adding_players"
	StatusRolling       Status = "rolling"
	StatusDrafting      Status = "drafting"
	StatusCompleted     Status = "completed"
)

// Role identifies one of the two fixed participants.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
	// RoleNone is returned by identity resolution for unrelated visitors.
	// It is never stored in a room record.
	RoleNone Role = ""
)

// Other returns the opposing role.
func (r Role) Other() Role {
	if r == RoleHost {
		return RoleGuest
	}
	return RoleHost
}

// Position is a pool player's assigned slot, or empty if unset.
type Position string

const (
	PositionGK  Position = "GK"
	PositionDEF Position = "DEF"
	PositionMID Position = "MID"
	PositionFWD Position = "FWD"
)

// ValidPosition reports whether p is one of the fixed positions or unset.
func ValidPosition(p Position) bool {
	switch p {
	case PositionGK, PositionDEF, PositionMID, PositionFWD, "":
		return true
	}
	return false
}

// Participant is one of the two people in the room (host or guest).
type Participant struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// PlayerInfo is a draftable candidate in the pool or on a team.
type PlayerInfo struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Position Position  `json:"position"`
}

// RequestStatus is the state of an outstanding join request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestDenied   RequestStatus = "denied"
)

// JoinRequest is a guest-slot request awaiting host approval. At most one
// exists per room at a time.
type JoinRequest struct {
	ID     uuid.UUID     `json:"id"`
	Name   string        `json:"name"`
	Status RequestStatus `json:"status"`
}

// Room is the authoritative record for one draft session. It is mutated only
// through the transition methods in this package, applied inside a store
// transaction; handlers and clients see whole immutable snapshots.
type Room struct {
	Code   string `json:"roomId"`
	Status Status `json:"status"`

	Host  Participant  `json:"host"`
	Guest *Participant `json:"guest"`

	Players []PlayerInfo `json:"players"`

	HostDice  *int `json:"hostDice"`
	GuestDice *int `json:"guestDice"`

	CurrentTurn Role  `json:"currentTurn"`
	FirstPicker *Role `json:"firstPicker"`

	HostTeam  []PlayerInfo `json:"hostTeam"`
	GuestTeam []PlayerInfo `json:"guestTeam"`

	JoinRequest *JoinRequest `json:"joinRequest,omitempty"`
	SquadSaved  bool         `json:"squadSaved,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	// Version is the optimistic concurrency token managed by the store.
	Version int64 `json:"version"`
}

// NewRoom creates a fresh record in the waiting phase with the host seated.
func NewRoom(code string, host Participant) *Room {
	return &Room{
		Code:        code,
		Status:      StatusWaiting,
		Host:        host,
		Players:     []PlayerInfo{},
		CurrentTurn: RoleHost,
		HostTeam:    []PlayerInfo{},
		GuestTeam:   []PlayerInfo{},
		CreatedAt:   time.Now().UTC(),
	}
}

// Clone returns a deep copy. Store transactions mutate the copy and swap it
// in atomically so watchers never observe a half-applied record.
func (r *Room) Clone() *Room {
	cp := *r
	cp.Players = append([]PlayerInfo(nil), r.Players...)
	cp.HostTeam = append([]PlayerInfo(nil), r.HostTeam...)
	cp.GuestTeam = append([]PlayerInfo(nil), r.GuestTeam...)
	if r.Guest != nil {
		g := *r.Guest
		cp.Guest = &g
	}
	if r.HostDice != nil {
		d := *r.HostDice
		cp.HostDice = &d
	}
	if r.GuestDice != nil {
		d := *r.GuestDice
		cp.GuestDice = &d
	}
	if r.FirstPicker != nil {
		fp := *r.FirstPicker
		cp.FirstPicker = &fp
	}
	if r.JoinRequest != nil {
		jr := *r.JoinRequest
		cp.JoinRequest = &jr
	}
	return &cp
}

// Die returns the given role's die, or nil if that side has not rolled.
func (r *Room) Die(role Role) *int {
	if role == RoleHost {
		return r.HostDice
	}
	return r.GuestDice
}

// Team returns the given role's roster.
func (r *Room) Team(role Role) []PlayerInfo {
	if role == RoleHost {
		return r.HostTeam
	}
	return r.GuestTeam
}

// PoolPlayer finds a candidate in the pool by id.
func (r *Room) PoolPlayer(id uuid.UUID) (PlayerInfo, bool) {
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerInfo{}, false
}
