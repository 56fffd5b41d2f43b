package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbids/starbids/starbids/database/models"
)

func TestRankBids(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	bids := []*models.Bid{
		{ID: 1, UserID: 1, Amount: dec("100"), AmountReachedAt: base},
		{ID: 2, UserID: 2, Amount: dec("300"), AmountReachedAt: base.Add(time.Second)},
		{ID: 3, UserID: 3, Amount: dec("200"), AmountReachedAt: base.Add(2 * time.Second)},
		// Same amount as bid 3 but reached earlier, so it ranks above.
		{ID: 4, UserID: 4, Amount: dec("200"), AmountReachedAt: base.Add(time.Second)},
	}

	ranked := RankBids(bids)
	require.Len(t, ranked, 4)
	assert.Equal(t, int64(2), ranked[0].ID)
	assert.Equal(t, int64(4), ranked[1].ID)
	assert.Equal(t, int64(3), ranked[2].ID)
	assert.Equal(t, int64(1), ranked[3].ID)

	// Input order must not matter.
	reversed := []*models.Bid{bids[3], bids[2], bids[1], bids[0]}
	again := RankBids(reversed)
	for i := range ranked {
		assert.Equal(t, ranked[i].ID, again[i].ID)
	}

	// The input slice stays untouched.
	assert.Equal(t, int64(1), bids[0].ID)
}

func TestRankBidsIDTieBreak(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bids := []*models.Bid{
		{ID: 7, Amount: dec("100"), AmountReachedAt: at},
		{ID: 3, Amount: dec("100"), AmountReachedAt: at},
	}
	ranked := RankBids(bids)
	assert.Equal(t, int64(3), ranked[0].ID)
	assert.Equal(t, int64(7), ranked[1].ID)
}

func TestTopK(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ranked := RankBids([]*models.Bid{
		{ID: 1, Amount: dec("300"), AmountReachedAt: at},
		{ID: 2, Amount: dec("200"), AmountReachedAt: at},
		{ID: 3, Amount: dec("100"), AmountReachedAt: at},
	})

	winners, rest := TopK(ranked, 2)
	require.Len(t, winners, 2)
	require.Len(t, rest, 1)
	assert.Equal(t, int64(1), winners[0].ID)
	assert.Equal(t, int64(2), winners[1].ID)
	assert.Equal(t, int64(3), rest[0].ID)

	winners, rest = TopK(ranked, 10)
	assert.Len(t, winners, 3)
	assert.Empty(t, rest)

	winners, rest = TopK(ranked, 0)
	assert.Empty(t, winners)
	assert.Len(t, rest, 3)
}
