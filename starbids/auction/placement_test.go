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

func TestPlaceBidHoldsFunds(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	a := newActiveAuction(t, m, clock, singleRound(1, 600), nil)
	deposit(t, m, 1, "500")

	res, err := m.PlaceBid(context.Background(), a.ID, 1, dec("100"))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.Rank)
	assert.True(t, res.Bid.Amount.Equal(dec("100")))

	requireWallet(t, m, 1, "400", "100")

	view, err := m.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Auction.UniqueBidders)
	assert.True(t, view.Auction.HighestBid.Equal(dec("100")))
}

func TestPlaceBidIdempotentResubmit(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	a := newActiveAuction(t, m, clock, singleRound(1, 600), nil)
	deposit(t, m, 1, "500")

	_, err := m.PlaceBid(context.Background(), a.ID, 1, dec("100"))
	require.NoError(t, err)

	history, err := m.WalletHistory(context.Background(), 1, 0)
	require.NoError(t, err)
	entriesBefore := len(history)

	res, err := m.PlaceBid(context.Background(), a.ID, 1, dec("100"))
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, 1, res.Rank)

	requireWallet(t, m, 1, "400", "100")

	history, err = m.WalletHistory(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, entriesBefore, len(history), "resubmission must not write ledger entries")
}

func TestPlaceBidIncreaseHoldsDelta(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	a := newActiveAuction(t, m, clock, singleRound(1, 600), nil)
	deposit(t, m, 1, "500")

	_, err := m.PlaceBid(context.Background(), a.ID, 1, dec("100"))
	require.NoError(t, err)

	res, err := m.PlaceBid(context.Background(), a.ID, 1, dec("150"))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.True(t, res.Bid.Amount.Equal(dec("150")))

	// Only the 50 delta moved: not a second full hold.
	requireWallet(t, m, 1, "350", "150")

	// Still a single bid row.
	bids, err := m.store.ListActiveBidsByRound(context.Background(), res.Round.ID)
	require.NoError(t, err)
	assert.Len(t, bids, 1)
}

func TestPlaceBidDecreaseRejected(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	a := newActiveAuction(t, m, clock, singleRound(1, 600), nil)
	deposit(t, m, 1, "500")

	_, err := m.PlaceBid(context.Background(), a.ID, 1, dec("150"))
	require.NoError(t, err)

	_, err = m.PlaceBid(context.Background(), a.ID, 1, dec("110"))
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeBidTooLow, ce.Code)

	requireWallet(t, m, 1, "350", "150")
}

func TestPlaceBidAmountValidation(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	a := newActiveAuction(t, m, clock, singleRound(1, 600), nil)
	deposit(t, m, 1, "1000")

	// min 100 step 10: 105 is off-grid, 110 is fine.
	for _, amount := range []string{"105", "99", "0", "-10", "100.5"} {
		_, err := m.PlaceBid(context.Background(), a.ID, 1, dec(amount))
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "amount %s", amount)
		assert.Equal(t, CodeInvalidAmount, ve.Code)
	}

	res, err := m.PlaceBid(context.Background(), a.ID, 1, dec("110"))
	require.NoError(t, err)
	assert.True(t, res.Bid.Amount.Equal(dec("110")))
}

func TestPlaceBidInsufficientFunds(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	a := newActiveAuction(t, m, clock, singleRound(1, 600), nil)
	deposit(t, m, 1, "50")

	_, err := m.PlaceBid(context.Background(), a.ID, 1, dec("100"))
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeInsufficientFunds, ce.Code)

	// The whole transaction rolled back: no bid, wallet untouched.
	requireWallet(t, m, 1, "50", "0")
	_, err = m.store.GetActiveBidByUser(context.Background(), a.ID, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPlaceBidRoundEnded(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	a := newActiveAuction(t, m, clock, singleRound(1, 600), nil)
	deposit(t, m, 1, "500")

	clock.Advance(600 * time.Second)

	_, err := m.PlaceBid(context.Background(), a.ID, 1, dec("100"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, CodeRoundEnded, ve.Code)
}

func TestPlaceBidAuctionNotActive(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	deposit(t, m, 1, "500")

	// Draft auction: created without a start time.
	a, err := m.CreateAuction(context.Background(), 99, CreateAuctionParams{
		Name:    "Draft Drop",
		Rounds:  singleRound(1, 600),
		MinBid:  dec("100"),
		BidStep: dec("10"),
	})
	require.NoError(t, err)
	require.Equal(t, models.AuctionStatusDraft, a.Status)

	_, err = m.PlaceBid(context.Background(), a.ID, 1, dec("100"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, CodeAuctionNotActive, ve.Code)

	_, err = m.PlaceBid(context.Background(), a.ID+1000, 1, dec("100"))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, CodeAuctionNotFound, ve.Code)
}

func TestPlaceBidRankingAndOutbid(t *testing.T) {
	m, _, rec, clock := newTestManager(t)
	a := newActiveAuction(t, m, clock, singleRound(2, 600), nil)
	for uid := int64(1); uid <= 3; uid++ {
		deposit(t, m, uid, "1000")
	}

	r1, err := m.PlaceBid(context.Background(), a.ID, 1, dec("300"))
	require.NoError(t, err)
	clock.Advance(time.Second)
	r2, err := m.PlaceBid(context.Background(), a.ID, 2, dec("200"))
	require.NoError(t, err)
	clock.Advance(time.Second)
	r3, err := m.PlaceBid(context.Background(), a.ID, 3, dec("100"))
	require.NoError(t, err)

	assert.Equal(t, 1, r1.Rank)
	assert.Equal(t, 2, r2.Rank)
	assert.Equal(t, 3, r3.Rank)
	assert.Empty(t, rec.outbids)

	// User 3 jumps over user 2, pushing them out of the top 2.
	clock.Advance(time.Second)
	r3b, err := m.PlaceBid(context.Background(), a.ID, 3, dec("400"))
	require.NoError(t, err)
	assert.Equal(t, 1, r3b.Rank)

	require.Len(t, rec.outbids, 1)
	assert.Equal(t, int64(2), rec.outbids[0].userID)

	lb, err := m.GetLeaderboard(context.Background(), a.ID, 2)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 3)
	assert.True(t, lb.Entries[0].IsWinner)
	assert.True(t, lb.Entries[1].IsWinner)
	assert.False(t, lb.Entries[2].IsWinner)
	assert.True(t, lb.Entries[0].Amount.Equal(dec("400")))
	require.NotNil(t, lb.MyBid)
	assert.True(t, lb.MyBid.Amount.Equal(dec("200")))
}

func TestPlaceBidEqualAmountsEarlierWins(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	a := newActiveAuction(t, m, clock, singleRound(1, 600), nil)
	deposit(t, m, 1, "500")
	deposit(t, m, 2, "500")

	r1, err := m.PlaceBid(context.Background(), a.ID, 1, dec("100"))
	require.NoError(t, err)
	clock.Advance(time.Second)
	r2, err := m.PlaceBid(context.Background(), a.ID, 2, dec("100"))
	require.NoError(t, err)

	assert.Equal(t, 1, r1.Rank)
	assert.Equal(t, 2, r2.Rank)
}

func TestAntiSnipingExtension(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	as := &models.AntiSniping{Enabled: true, ThresholdSeconds: 30, ExtensionSeconds: 30, MaxExtensions: 1}
	a := newActiveAuction(t, m, clock, singleRound(1, 600), as)
	deposit(t, m, 1, "1000")

	originalEnd := clock.Now().Add(600 * time.Second)

	// 20 seconds before the deadline: a winning bid extends it.
	clock.Advance(580 * time.Second)
	res, err := m.PlaceBid(context.Background(), a.ID, 1, dec("100"))
	require.NoError(t, err)
	assert.True(t, res.Extended)
	assert.Equal(t, originalEnd.Add(30*time.Second), res.Round.EndAt)
	assert.Equal(t, 1, res.Round.ExtensionsCount)

	// Cap of one extension reached: the next qualifying bid does not extend.
	clock.Advance(30 * time.Second)
	res, err = m.PlaceBid(context.Background(), a.ID, 1, dec("110"))
	require.NoError(t, err)
	assert.False(t, res.Extended)
	assert.Equal(t, originalEnd.Add(30*time.Second), res.Round.EndAt)
}

func TestAntiSnipingOnlyForWinningBids(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	as := &models.AntiSniping{Enabled: true, ThresholdSeconds: 30, ExtensionSeconds: 30}
	a := newActiveAuction(t, m, clock, singleRound(1, 600), as)
	deposit(t, m, 1, "1000")
	deposit(t, m, 2, "1000")

	_, err := m.PlaceBid(context.Background(), a.ID, 1, dec("500"))
	require.NoError(t, err)

	// A losing bid inside the window must not move the deadline.
	clock.Advance(580 * time.Second)
	res, err := m.PlaceBid(context.Background(), a.ID, 2, dec("100"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rank)
	assert.False(t, res.Extended)
}

func TestAntiSnipingDisabled(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	as := &models.AntiSniping{Enabled: false, ThresholdSeconds: 30, ExtensionSeconds: 30}
	a := newActiveAuction(t, m, clock, singleRound(1, 600), as)
	deposit(t, m, 1, "1000")

	clock.Advance(580 * time.Second)
	res, err := m.PlaceBid(context.Background(), a.ID, 1, dec("100"))
	require.NoError(t, err)
	assert.False(t, res.Extended)
}

func TestDepositValidation(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	for _, amount := range []string{"0", "-5", "10.5"} {
		_, err := m.Deposit(context.Background(), 1, dec(amount))
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "amount %s", amount)
	}

	w, err := m.Deposit(context.Background(), 1, dec("250"))
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(dec("250")))
}
