// internal/squad/service_test.go
package squad

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squadpick/squadpick/internal/draft"
	"github.com/squadpick/squadpick/internal/store"
	"github.com/squadpick/squadpick/internal/store/memstore"
)

type markerSpy struct {
	calls []string
	err   error
}

func (m *markerSpy) MarkSquadSaved(ctx context.Context, code string) error {
	m.calls = append(m.calls, code)
	return m.err
}

func newTestService(t *testing.T) (*Service, *markerSpy, store.SquadStore) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	spy := &markerSpy{}
	squads := memstore.NewSquads()
	return NewService(squads, spy, logger), spy, squads
}

func completedRoom(t *testing.T) *draft.Room {
	t.Helper()
	r := draft.NewRoom(draft.GenerateCode(), draft.Participant{ID: uuid.New(), Name: "Ayşe"})
	require.True(t, r.AssignGuest(draft.Participant{ID: uuid.New(), Name: "Mehmet"}))
	require.NoError(t, r.AddPoolPlayer(draft.PlayerInfo{ID: uuid.New(), Name: "Cem"}))
	require.NoError(t, r.AddPoolPlayer(draft.PlayerInfo{ID: uuid.New(), Name: "Deniz"}))
	require.NoError(t, r.BeginRolling())
	require.NoError(t, r.SetDie(draft.RoleHost, 6))
	require.NoError(t, r.SetDie(draft.RoleGuest, 2))
	require.NoError(t, r.BeginDraft())
	for len(r.Players) > 0 {
		require.NoError(t, r.Pick(r.Players[0].ID))
	}
	require.Equal(t, draft.StatusCompleted, r.Status)
	return r
}

func TestSaveRequiresCompletedRoom(t *testing.T) {
	s, spy, _ := newTestService(t)
	r := draft.NewRoom(draft.GenerateCode(), draft.Participant{ID: uuid.New(), Name: "Ayşe"})

	_, err := s.Save(context.Background(), r)
	assert.ErrorIs(t, err, ErrNotCompleted)
	assert.Empty(t, spy.calls, "no flag flip on a rejected save")
}

func TestSaveOncePerRoom(t *testing.T) {
	s, spy, squads := newTestService(t)
	ctx := context.Background()
	r := completedRoom(t)

	created, err := s.Save(ctx, r)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{r.Code}, spy.calls)

	// Repeat saves are silent no-ops: no error, no duplicate, no re-mark.
	created, err = s.Save(ctx, r)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, spy.calls, 1)

	list, err := squads.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, r.Code, list[0].ID)
	assert.Equal(t, "Ayşe", list[0].HostName)
	assert.Equal(t, "Mehmet", list[0].GuestName)
	assert.Len(t, list[0].HostTeam, 2)
	assert.Len(t, list[0].GuestTeam, 2)
}

func TestSaveSucceedsEvenIfMarkFails(t *testing.T) {
	s, spy, squads := newTestService(t)
	spy.err = assert.AnError
	ctx := context.Background()
	r := completedRoom(t)

	created, err := s.Save(ctx, r)
	require.NoError(t, err, "flag failure is advisory, not fatal")
	assert.True(t, created)

	_, err = squads.Get(ctx, r.Code)
	assert.NoError(t, err)
}

func TestRateUpsertAdjustsAggregate(t *testing.T) {
	s, _, squads := newTestService(t)
	ctx := context.Background()
	r := completedRoom(t)
	_, err := s.Save(ctx, r)
	require.NoError(t, err)

	require.NoError(t, s.Rate(ctx, r.Code, "voter-a", 4))
	require.NoError(t, s.Rate(ctx, r.Code, "voter-b", 2))

	sq, err := squads.Get(ctx, r.Code)
	require.NoError(t, err)
	assert.Equal(t, 6, sq.TotalRating)
	assert.Equal(t, 2, sq.RatingCount)

	// A re-vote replaces the voter's previous value without double counting.
	require.NoError(t, s.Rate(ctx, r.Code, "voter-a", 1))
	sq, err = squads.Get(ctx, r.Code)
	require.NoError(t, err)
	assert.Equal(t, 3, sq.TotalRating)
	assert.Equal(t, 2, sq.RatingCount)

	v, ok, err := s.Vote(ctx, r.Code, "voter-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestRateClampsToStarRange(t *testing.T) {
	s, _, squads := newTestService(t)
	ctx := context.Background()
	r := completedRoom(t)
	_, err := s.Save(ctx, r)
	require.NoError(t, err)

	require.NoError(t, s.Rate(ctx, r.Code, "low", -3))
	require.NoError(t, s.Rate(ctx, r.Code, "high", 99))

	sq, err := squads.Get(ctx, r.Code)
	require.NoError(t, err)
	assert.Equal(t, 1+5, sq.TotalRating)
	assert.Equal(t, 2, sq.RatingCount)
}

func TestRateUnknownSquad(t *testing.T) {
	s, _, _ := newTestService(t)
	err := s.Rate(context.Background(), "MISSING", "voter", 3)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestVoteUnknownVoter(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	r := completedRoom(t)
	_, err := s.Save(ctx, r)
	require.NoError(t, err)

	_, ok, err := s.Vote(ctx, r.Code, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}
