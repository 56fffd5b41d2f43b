package auction

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbids/starbids/starbids/database/models"
)

func TestLeaderboardAnonymityMask(t *testing.T) {
	m, st, _, clock := newTestManager(t)
	ctx := context.Background()
	a := newActiveAuction(t, m, clock, singleRound(1, 600), nil)

	require.NoError(t, st.UpsertUser(ctx, &models.User{
		UserID:     1,
		PublicName: "Alice",
	}))
	require.NoError(t, st.UpsertUser(ctx, &models.User{
		UserID:      2,
		PublicName:  "Bob",
		IsAnonymous: true,
		AnonName:    "Mystery Star",
	}))

	deposit(t, m, 1, "500")
	deposit(t, m, 2, "500")
	_, err := m.PlaceBid(ctx, a.ID, 1, dec("200"))
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = m.PlaceBid(ctx, a.ID, 2, dec("100"))
	require.NoError(t, err)

	result, err := m.GetLeaderboard(ctx, a.ID, 2)
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)

	public := result.Entries[0]
	assert.Equal(t, int64(1), public.UserID)
	assert.Equal(t, "Alice", public.DisplayName)
	assert.False(t, public.IsAnonymous)

	masked := result.Entries[1]
	assert.Zero(t, masked.UserID)
	assert.Equal(t, "Mystery Star", masked.DisplayName)
	assert.True(t, masked.IsAnonymous)

	// The real id must not leak into the serialized form either.
	raw, err := json.Marshal(masked)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "user_id")

	// The viewer still sees their own bid even when anonymous to others.
	require.NotNil(t, result.MyBid)
	assert.True(t, result.MyBid.Amount.Equal(dec("100")))
	assert.Equal(t, int64(2), result.MyBid.UserID)
}

func TestLeaderboardUnknownUserFallback(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	ctx := context.Background()
	a := newActiveAuction(t, m, clock, singleRound(1, 600), nil)

	deposit(t, m, 5, "500")
	_, err := m.PlaceBid(ctx, a.ID, 5, dec("100"))
	require.NoError(t, err)

	result, err := m.GetLeaderboard(ctx, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "User 5", result.Entries[0].DisplayName)
	assert.Nil(t, result.MyBid)
}
