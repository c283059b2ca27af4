// internal/store/memstore/rooms_test.go
package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squadpick/squadpick/internal/draft"
	"github.com/squadpick/squadpick/internal/store"
)

func newRoom(code string) *draft.Room {
	return draft.NewRoom(code, draft.Participant{ID: uuid.New(), Name: "Host"})
}

// recvSnapshot pulls the next delivery with a deadline so a broken watch
// fails fast instead of hanging the test.
func recvSnapshot(t *testing.T, ch <-chan store.Snapshot) store.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "watch channel closed unexpectedly")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return store.Snapshot{}
	}
}

func TestInsertDuplicateCode(t *testing.T) {
	s := NewRooms()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, newRoom("AAAA22")))
	assert.ErrorIs(t, s.Insert(ctx, newRoom("AAAA22")), store.ErrExists)
}

func TestUpdateBumpsVersion(t *testing.T) {
	s := NewRooms()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, newRoom("AAAA22")))

	got, err := s.Get(ctx, "AAAA22")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)

	updated, err := s.Update(ctx, "AAAA22", func(r *draft.Room) error {
		r.AssignGuest(draft.Participant{ID: uuid.New(), Name: "G"})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
}

func TestUpdateAbortLeavesRecord(t *testing.T) {
	s := NewRooms()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, newRoom("AAAA22")))

	boom := assert.AnError
	_, err := s.Update(ctx, "AAAA22", func(r *draft.Room) error {
		r.Status = draft.StatusCompleted // would be committed if not aborted
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, "AAAA22")
	require.NoError(t, err)
	assert.Equal(t, draft.StatusWaiting, got.Status)
	assert.Equal(t, int64(1), got.Version)
}

func TestUpdateUnchangedSkipsCommit(t *testing.T) {
	s := NewRooms()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, newRoom("AAAA22")))

	got, err := s.Update(ctx, "AAAA22", func(r *draft.Room) error {
		return store.ErrUnchanged
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
}

func TestWatchDeliversCurrentThenChanges(t *testing.T) {
	s := NewRooms()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, newRoom("AAAA22")))

	ch, cancel, err := s.Watch(ctx, "AAAA22")
	require.NoError(t, err)
	defer cancel()

	first := recvSnapshot(t, ch)
	require.NotNil(t, first.Room)
	assert.Equal(t, draft.StatusWaiting, first.Room.Status)

	_, err = s.Update(ctx, "AAAA22", func(r *draft.Room) error {
		r.AssignGuest(draft.Participant{ID: uuid.New(), Name: "G"})
		return nil
	})
	require.NoError(t, err)

	next := recvSnapshot(t, ch)
	require.NotNil(t, next.Room)
	assert.Equal(t, draft.StatusAddingPlayers, next.Room.Status)
}

func TestWatchMissingRoomDeliversAbsent(t *testing.T) {
	s := NewRooms()
	ch, cancel, err := s.Watch(context.Background(), "ZZZZ99")
	require.NoError(t, err)
	defer cancel()

	snap := recvSnapshot(t, ch)
	assert.Nil(t, snap.Room, "absent signal, not an error")
}

func TestWatchDeleteDeliversAbsent(t *testing.T) {
	s := NewRooms()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, newRoom("AAAA22")))

	ch, cancel, err := s.Watch(ctx, "AAAA22")
	require.NoError(t, err)
	defer cancel()
	recvSnapshot(t, ch) // initial

	require.NoError(t, s.Delete(ctx, "AAAA22"))
	snap := recvSnapshot(t, ch)
	assert.Nil(t, snap.Room)
}

func TestWatchCancelClosesChannel(t *testing.T) {
	s := NewRooms()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, newRoom("AAAA22")))

	ch, cancel, err := s.Watch(ctx, "AAAA22")
	require.NoError(t, err)
	recvSnapshot(t, ch)

	cancel()
	cancel() // safe to call twice

	// Mutations after cancel must not reach the channel.
	_, err = s.Update(ctx, "AAAA22", func(r *draft.Room) error {
		r.AssignGuest(draft.Participant{ID: uuid.New(), Name: "G"})
		return nil
	})
	require.NoError(t, err)

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel must be closed, not delivering")
	case <-time.After(200 * time.Millisecond):
		t.Fatal("channel neither closed nor drained")
	}
}

func TestWatchCoalescesToLatest(t *testing.T) {
	s := NewRooms()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, newRoom("AAAA22")))

	ch, cancel, err := s.Watch(ctx, "AAAA22")
	require.NoError(t, err)
	defer cancel()
	recvSnapshot(t, ch)

	// Burst of commits while nobody reads: the slow consumer may miss
	// intermediate states but must end on the newest one.
	_, err = s.Update(ctx, "AAAA22", func(r *draft.Room) error {
		r.AssignGuest(draft.Participant{ID: uuid.New(), Name: "G"})
		return nil
	})
	require.NoError(t, err)
	for _, name := range []string{"A", "B", "C"} {
		_, err = s.Update(ctx, "AAAA22", func(r *draft.Room) error {
			return r.AddPoolPlayer(draft.PlayerInfo{ID: uuid.New(), Name: name})
		})
		require.NoError(t, err)
	}

	snap := recvSnapshot(t, ch)
	require.NotNil(t, snap.Room)
	assert.Len(t, snap.Room.Players, 3, "latest state wins")
}

func TestWatchOpenFiltersJoinableRooms(t *testing.T) {
	s := NewRooms()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, newRoom("AAAA22")))
	require.NoError(t, s.Insert(ctx, newRoom("BBBB33")))

	ch, cancel, err := s.WatchOpen(ctx)
	require.NoError(t, err)
	defer cancel()

	list := <-ch
	assert.Len(t, list, 2)

	// A room with a guest stops being joinable.
	_, err = s.Update(ctx, "AAAA22", func(r *draft.Room) error {
		r.AssignGuest(draft.Participant{ID: uuid.New(), Name: "G"})
		return nil
	})
	require.NoError(t, err)

	select {
	case list = <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for open-rooms update")
	}
	require.Len(t, list, 1)
	assert.Equal(t, "BBBB33", list[0].Code)
}
