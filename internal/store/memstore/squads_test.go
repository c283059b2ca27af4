// internal/store/memstore/squads_test.go
package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squadpick/squadpick/internal/store"
)

func savedSquad(id string, at time.Time) *store.SavedSquad {
	return &store.SavedSquad{ID: id, RoomCode: id, HostName: "H", GuestName: "G", CreatedAt: at}
}

func recvList(t *testing.T, ch <-chan []*store.SavedSquad) []*store.SavedSquad {
	t.Helper()
	select {
	case list, ok := <-ch:
		require.True(t, ok, "watch channel closed unexpectedly")
		return list
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for squad list")
		return nil
	}
}

func TestSaveIfAbsentIsIdempotent(t *testing.T) {
	s := NewSquads()
	ctx := context.Background()

	created, err := s.SaveIfAbsent(ctx, savedSquad("AAAA22", time.Now()))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.SaveIfAbsent(ctx, savedSquad("AAAA22", time.Now()))
	require.NoError(t, err)
	assert.False(t, created)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListNewestFirst(t *testing.T) {
	s := NewSquads()
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"OLD222", "MID333", "NEW444"} {
		_, err := s.SaveIfAbsent(ctx, savedSquad(id, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "NEW444", list[0].ID)
	assert.Equal(t, "OLD222", list[2].ID)
}

func TestSquadWatchSeesRatingChanges(t *testing.T) {
	s := NewSquads()
	ctx := context.Background()
	_, err := s.SaveIfAbsent(ctx, savedSquad("AAAA22", time.Now()))
	require.NoError(t, err)

	ch, cancel, err := s.Watch(ctx)
	require.NoError(t, err)
	defer cancel()

	initial := recvList(t, ch)
	require.Len(t, initial, 1)
	assert.Zero(t, initial[0].RatingCount)

	require.NoError(t, s.Rate(ctx, "AAAA22", "voter", 5))
	next := recvList(t, ch)
	require.Len(t, next, 1)
	assert.Equal(t, 5, next[0].TotalRating)
	assert.Equal(t, 1, next[0].RatingCount)

	// Mutating the delivered copy must not leak back into the store.
	next[0].TotalRating = 99
	sq, err := s.Get(ctx, "AAAA22")
	require.NoError(t, err)
	assert.Equal(t, 5, sq.TotalRating)
}
