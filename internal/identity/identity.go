// internal/identity/identity.go
//
// Maps "this session, this room" to a participant role. Resolution is pure:
// given a cached token and the latest snapshot it deterministically yields
// host, guest, or none, with no network involved. The cache itself is
// pluggable (in-memory for tests and single-node dev, Redis in production).
// Losing the cache simply demotes the user to an unrelated visitor; that is
// accepted behavior, not a defect.
package identity

import (
	"github.com/google/uuid"

	"github.com/squadpick/squadpick/internal/draft"
)

// Token is the cached per-room identity: the generated participant id and
// the display name it was created with.
type Token struct {
	ParticipantID uuid.UUID `json:"participantId"`
	Name          string    `json:"name"`
}

// Resolve derives the caller's role from the latest snapshot. A nil room
// (absent snapshot) resolves to none. A requester whose approved join
// request filled the guest seat resolves to guest on the first snapshot
// where the seat matches.
func Resolve(room *draft.Room, participantID uuid.UUID) draft.Role {
	if room == nil || participantID == uuid.Nil {
		return draft.RoleNone
	}
	if room.Host.ID == participantID {
		return draft.RoleHost
	}
	if room.Guest != nil && room.Guest.ID == participantID {
		return draft.RoleGuest
	}
	return draft.RoleNone
}

// Cache keys per room: {code}-pid and {code}-name hold the token,
// {code}-pending marks an outstanding join request awaiting approval or
// denial.
const (
	keyPID     = "-pid"
	keyName    = "-name"
	keyPending = "-pending"
)
