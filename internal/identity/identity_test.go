// internal/identity/identity_test.go
package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squadpick/squadpick/internal/draft"
)

func TestResolveRoles(t *testing.T) {
	host := draft.Participant{ID: uuid.New(), Name: "Ayşe"}
	r := draft.NewRoom("ABC234", host)

	assert.Equal(t, draft.RoleHost, Resolve(r, host.ID))
	assert.Equal(t, draft.RoleNone, Resolve(r, uuid.New()), "stranger resolves to none")
	assert.Equal(t, draft.RoleNone, Resolve(r, uuid.Nil))
	assert.Equal(t, draft.RoleNone, Resolve(nil, host.ID), "absent room resolves to none")

	guest := draft.Participant{ID: uuid.New(), Name: "Mehmet"}
	require.True(t, r.AssignGuest(guest))
	assert.Equal(t, draft.RoleGuest, Resolve(r, guest.ID))
}

func TestResolveApprovedRequester(t *testing.T) {
	host := draft.Participant{ID: uuid.New(), Name: "Ayşe"}
	r := draft.NewRoom("ABC234", host)

	req := draft.Participant{ID: uuid.New(), Name: "Fatma"}
	require.True(t, r.RequestJoin(req))
	// Still a visitor while the request is pending.
	assert.Equal(t, draft.RoleNone, Resolve(r, req.ID))

	require.True(t, r.ApproveRequest())
	assert.Equal(t, draft.RoleGuest, Resolve(r, req.ID))
}

func TestMemCacheTokenLifecycle(t *testing.T) {
	c := NewMemCache()
	ctx := context.Background()
	tok := Token{ParticipantID: uuid.New(), Name: "Ayşe"}

	_, ok, err := c.Get(ctx, "scope-1", "ABC234")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "scope-1", "ABC234", tok))
	got, ok, err := c.Get(ctx, "scope-1", "ABC234")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tok, got)

	// Scoped per session and per room: neighbors see nothing.
	_, ok, err = c.Get(ctx, "scope-2", "ABC234")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = c.Get(ctx, "scope-1", "XYZ789")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Clear(ctx, "scope-1", "ABC234"))
	_, ok, err = c.Get(ctx, "scope-1", "ABC234")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemCachePendingFlag(t *testing.T) {
	c := NewMemCache()
	ctx := context.Background()

	p, err := c.Pending(ctx, "s", "ABC234")
	require.NoError(t, err)
	assert.False(t, p)

	require.NoError(t, c.SetPending(ctx, "s", "ABC234", true))
	p, err = c.Pending(ctx, "s", "ABC234")
	require.NoError(t, err)
	assert.True(t, p)

	require.NoError(t, c.SetPending(ctx, "s", "ABC234", false))
	p, err = c.Pending(ctx, "s", "ABC234")
	require.NoError(t, err)
	assert.False(t, p)

	// Clear wipes the pending marker along with the token.
	require.NoError(t, c.SetPending(ctx, "s", "ABC234", true))
	require.NoError(t, c.Clear(ctx, "s", "ABC234"))
	p, err = c.Pending(ctx, "s", "ABC234")
	require.NoError(t, err)
	assert.False(t, p)
}
