package auction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbids/starbids/starbids/database/models"
	"github.com/starbids/starbids/starbids/store"
)

func twoRounds() []models.RoundConfig {
	return []models.RoundConfig{
		{RoundNumber: 1, DurationSeconds: 600, ItemsCount: 2},
		{RoundNumber: 2, DurationSeconds: 600, ItemsCount: 1},
	}
}

func expireAndFinalize(t *testing.T, m *Manager, clock *testClock) {
	t.Helper()
	ctx := context.Background()
	rounds, err := m.store.ListExpiredRounds(ctx, clock.Now(), 10)
	require.NoError(t, err)
	for _, r := range rounds {
		require.NoError(t, m.FinalizeRound(ctx, r))
	}
}

func TestFinalizeRoundWinnersAndTransfer(t *testing.T) {
	m, st, rec, clock := newTestManager(t)
	ctx := context.Background()
	a := newActiveAuction(t, m, clock, twoRounds(), nil)
	for uid := int64(1); uid <= 3; uid++ {
		deposit(t, m, uid, "1000")
	}

	_, err := m.PlaceBid(ctx, a.ID, 1, dec("300"))
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = m.PlaceBid(ctx, a.ID, 2, dec("200"))
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = m.PlaceBid(ctx, a.ID, 3, dec("100"))
	require.NoError(t, err)

	clock.Advance(600 * time.Second)
	expireAndFinalize(t, m, clock)

	// Top two bids won and their holds were captured.
	requireWallet(t, m, 1, "700", "0")
	requireWallet(t, m, 2, "800", "0")
	// The loser's hold follows the bid into round 2.
	requireWallet(t, m, 3, "900", "100")

	gifts1, err := m.MyGifts(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, gifts1, 1)
	gifts2, err := m.MyGifts(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, gifts2, 1)
	assert.ElementsMatch(t, []int{1, 2}, []int{gifts1[0].GiftNumber, gifts2[0].GiftNumber})

	view, err := m.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusActive, view.Auction.Status)
	assert.Equal(t, 2, view.Auction.CurrentRound)
	assert.Equal(t, 2, view.DistributedItems)

	round1, err := st.GetRound(ctx, a.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusCompleted, round1.Status)
	assert.Equal(t, 2, round1.WinnersCount)
	assert.Equal(t, 1, round1.TransferredCount)

	// The carried bid keeps its amount and stays active in round 2.
	round2, err := st.GetRound(ctx, a.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusActive, round2.Status)
	carried, err := st.GetActiveBidByUser(ctx, a.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, round2.ID, carried.RoundID)
	assert.True(t, carried.Amount.Equal(dec("100")))

	require.Len(t, rec.wins, 2)
	require.Len(t, rec.transfers, 1)
	assert.Equal(t, int64(3), rec.transfers[0].userID)
	assert.Equal(t, 1, rec.transfers[0].fromRound)
	assert.Equal(t, 2, rec.transfers[0].toRound)

	// Round 2 ends with the carried bid winning the last gift.
	clock.Advance(601 * time.Second)
	expireAndFinalize(t, m, clock)

	requireWallet(t, m, 3, "900", "0")
	gifts3, err := m.MyGifts(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, gifts3, 1)
	assert.Equal(t, 3, gifts3[0].GiftNumber)

	view, err = m.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusCompleted, view.Auction.Status)
}

func TestFinalizeTransferResumeDoesNotRenotify(t *testing.T) {
	m, st, rec, clock := newTestManager(t)
	ctx := context.Background()
	a := newActiveAuction(t, m, clock, twoRounds(), nil)
	for uid := int64(1); uid <= 3; uid++ {
		deposit(t, m, uid, "1000")
	}

	_, err := m.PlaceBid(ctx, a.ID, 1, dec("300"))
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = m.PlaceBid(ctx, a.ID, 2, dec("200"))
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = m.PlaceBid(ctx, a.ID, 3, dec("100"))
	require.NoError(t, err)

	clock.Advance(600 * time.Second)
	expireAndFinalize(t, m, clock)
	require.Len(t, rec.wins, 2)
	require.Len(t, rec.transfers, 1)

	// Crash-recovery resumption with all bids already settled: nothing is
	// re-notified and no state moves twice.
	round1, err := st.GetRound(ctx, a.ID, 1)
	require.NoError(t, err)
	round1.Status = models.RoundStatusFinalizing
	require.NoError(t, m.FinalizeRound(ctx, round1))

	assert.Len(t, rec.wins, 2)
	assert.Len(t, rec.transfers, 1)
	assert.Empty(t, rec.refunds)
	requireWallet(t, m, 1, "700", "0")
	requireWallet(t, m, 3, "900", "100")
}

func TestFinalizeFinalRoundRefundsLosers(t *testing.T) {
	m, _, rec, clock := newTestManager(t)
	ctx := context.Background()
	a := newActiveAuction(t, m, clock, singleRound(1, 600), nil)
	deposit(t, m, 1, "500")
	deposit(t, m, 2, "500")

	_, err := m.PlaceBid(ctx, a.ID, 1, dec("200"))
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = m.PlaceBid(ctx, a.ID, 2, dec("100"))
	require.NoError(t, err)

	clock.Advance(600 * time.Second)
	expireAndFinalize(t, m, clock)

	requireWallet(t, m, 1, "300", "0")
	// Loser fully refunded.
	requireWallet(t, m, 2, "500", "0")

	require.Len(t, rec.wins, 1)
	assert.Equal(t, int64(1), rec.wins[0].userID)
	require.Len(t, rec.refunds, 1)
	assert.Equal(t, int64(2), rec.refunds[0].userID)
	assert.True(t, rec.refunds[0].amount.Equal(dec("100")))

	view, err := m.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusCompleted, view.Auction.Status)
}

func TestFinalizeRoundIdempotent(t *testing.T) {
	m, st, rec, clock := newTestManager(t)
	ctx := context.Background()
	a := newActiveAuction(t, m, clock, singleRound(1, 600), nil)
	deposit(t, m, 1, "500")
	deposit(t, m, 2, "500")

	_, err := m.PlaceBid(ctx, a.ID, 1, dec("200"))
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = m.PlaceBid(ctx, a.ID, 2, dec("100"))
	require.NoError(t, err)

	clock.Advance(600 * time.Second)

	round, err := st.GetRound(ctx, a.ID, 1)
	require.NoError(t, err)

	// Finalize three times, including a crash-recovery resumption with the
	// round stuck in finalizing.
	require.NoError(t, m.FinalizeRound(ctx, round))

	stale := *round // still status=active from before the first call
	require.NoError(t, m.FinalizeRound(ctx, &stale))

	recovered, err := st.GetRoundByID(ctx, round.ID)
	require.NoError(t, err)
	recovered.Status = models.RoundStatusFinalizing
	require.NoError(t, m.FinalizeRound(ctx, recovered))

	// Money moved exactly once.
	requireWallet(t, m, 1, "300", "0")
	requireWallet(t, m, 2, "500", "0")

	gifts, err := m.MyGifts(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, gifts, 1)

	history, err := m.WalletHistory(ctx, 1, 0)
	require.NoError(t, err)
	// deposit + hold + capture, nothing duplicated.
	assert.Len(t, history, 3)

	history, err = m.WalletHistory(ctx, 2, 0)
	require.NoError(t, err)
	// deposit + hold + release.
	assert.Len(t, history, 3)

	assert.Len(t, rec.wins, 1)
	assert.Len(t, rec.refunds, 1)
}

func TestFinalizeEmptyRound(t *testing.T) {
	m, st, rec, clock := newTestManager(t)
	ctx := context.Background()
	a := newActiveAuction(t, m, clock, singleRound(1, 600), nil)

	clock.Advance(600 * time.Second)
	expireAndFinalize(t, m, clock)

	round, err := st.GetRound(ctx, a.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusCompleted, round.Status)
	assert.Equal(t, 0, round.WinnersCount)

	view, err := m.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusCompleted, view.Auction.Status)
	assert.Empty(t, rec.wins)
}

func TestFinalizeEarlyCompletionWithoutTransfers(t *testing.T) {
	m, st, _, clock := newTestManager(t)
	ctx := context.Background()
	a := newActiveAuction(t, m, clock, twoRounds(), nil)
	deposit(t, m, 1, "500")

	// One bidder, two winner slots: nobody is left to carry into round 2.
	_, err := m.PlaceBid(ctx, a.ID, 1, dec("100"))
	require.NoError(t, err)

	clock.Advance(600 * time.Second)
	expireAndFinalize(t, m, clock)

	view, err := m.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusCompleted, view.Auction.Status)

	_, err = st.GetRound(ctx, a.ID, 2)
	assert.ErrorIs(t, err, store.ErrNotFound)

	requireWallet(t, m, 1, "400", "0")
}

func TestSchedulerTick(t *testing.T) {
	m, st, _, clock := newTestManager(t)
	ctx := context.Background()
	s := NewScheduler(m, time.Second)

	startAt := clock.Now().Add(time.Minute)
	a, err := m.CreateAuction(ctx, 99, CreateAuctionParams{
		Name:    "Scheduled Drop",
		Rounds:  singleRound(1, 600),
		MinBid:  dec("100"),
		BidStep: dec("10"),
		StartAt: &startAt,
	})
	require.NoError(t, err)
	require.Equal(t, models.AuctionStatusUpcoming, a.Status)

	// Before the start time nothing happens.
	s.Tick(ctx)
	got, err := st.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusUpcoming, got.Status)

	// Past the start time the tick activates it and opens round 1.
	clock.Advance(time.Minute)
	s.Tick(ctx)
	got, err = st.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusActive, got.Status)
	assert.Equal(t, 1, got.CurrentRound)

	deposit(t, m, 1, "500")
	_, err = m.PlaceBid(ctx, a.ID, 1, dec("100"))
	require.NoError(t, err)

	// Past the round deadline the tick finalizes.
	clock.Advance(601 * time.Second)
	s.Tick(ctx)
	got, err = st.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusCompleted, got.Status)
	requireWallet(t, m, 1, "400", "0")
}
