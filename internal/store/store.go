// internal/store/store.go
//
// Storage contracts for room records and community squads. Two
// implementations exist: memstore (in-memory, used by tests and dev mode)
// and pgstore (Postgres documents with Redis pub/sub fan-out).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/squadpick/squadpick/internal/draft"
)

var (
	// ErrNotFound aborts an operation against a missing record.
	ErrNotFound = errors.New("record not found")
	// ErrExists signals a duplicate insert (room code already in use).
	ErrExists = errors.New("record already exists")
	// ErrConflict is returned when an optimistic update loses the version
	// race too many times in a row.
	ErrConflict = errors.New("update conflict")
	// ErrUnchanged may be returned by a mutate func to abort the commit
	// without surfacing an error: the record is left untouched, no version
	// bump, no watcher notification.
	ErrUnchanged = errors.New("no change")
)

// Snapshot is one whole-state delivery to a room watcher. A nil Room is the
// explicit "absent" signal, letting consumers distinguish "still loading"
// from "does not exist".
type Snapshot struct {
	Room *draft.Room
}

// CancelFunc tears down a watch. After it returns, no further deliveries
// occur and the channel is closed. Safe to call more than once.
type CancelFunc func()

// MutateFunc is applied to a private copy of the current record inside a
// transaction. Returning an error aborts the transaction; the stored record
// is never partially updated.
type MutateFunc func(*draft.Room) error

// RoomStore is the session store holding one record per room.
type RoomStore interface {
	// Insert creates a new record, failing with ErrExists on a code clash.
	Insert(ctx context.Context, room *draft.Room) error

	// Get returns the current record or ErrNotFound.
	Get(ctx context.Context, code string) (*draft.Room, error)

	// Update runs an atomic read-modify-write: it reads the latest committed
	// record, applies mutate to a copy, and commits under an optimistic
	// version check, retrying on conflict. On success every active watcher
	// of the room receives the new record.
	Update(ctx context.Context, code string, mutate MutateFunc) (*draft.Room, error)

	// Delete removes the record permanently. Watchers receive an absent
	// snapshot.
	Delete(ctx context.Context, code string) error

	// Watch streams whole-record snapshots for one room, starting with the
	// current state (or an absent snapshot if the room does not exist).
	Watch(ctx context.Context, code string) (<-chan Snapshot, CancelFunc, error)

	// WatchOpen streams the filtered listing of joinable rooms (status
	// waiting, no guest), re-evaluated on every change.
	WatchOpen(ctx context.Context) (<-chan []*draft.Room, CancelFunc, error)
}

// SavedSquad is one community result: the final rosters of a completed room
// plus its aggregate rating, decoupled from the live room record.
type SavedSquad struct {
	ID          string             `json:"id"`
	RoomCode    string             `json:"roomId"`
	HostName    string             `json:"hostName"`
	GuestName   string             `json:"guestName"`
	HostTeam    []draft.PlayerInfo `json:"hostTeam"`
	GuestTeam   []draft.PlayerInfo `json:"guestTeam"`
	TotalRating int                `json:"totalRating"`
	RatingCount int                `json:"ratingCount"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// SquadStore persists community results and their per-voter ratings.
type SquadStore interface {
	// SaveIfAbsent creates the squad record once; a second call with the
	// same ID is a no-op returning false.
	SaveIfAbsent(ctx context.Context, squad *SavedSquad) (bool, error)

	// Get returns a squad or ErrNotFound.
	Get(ctx context.Context, id string) (*SavedSquad, error)

	// List returns all saved squads, newest first.
	List(ctx context.Context) ([]*SavedSquad, error)

	// Rate records value for the given anonymous voter atomically. A repeat
	// vote from the same voter replaces the previous value and adjusts the
	// total without bumping the count.
	Rate(ctx context.Context, squadID, voterID string, value int) error

	// Vote returns the voter's current vote, if any.
	Vote(ctx context.Context, squadID, voterID string) (int, bool, error)

	// Watch streams the full squad listing on every change.
	Watch(ctx context.Context) (<-chan []*SavedSquad, CancelFunc, error)
}
