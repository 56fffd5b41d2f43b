package auction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/starbids/starbids/starbids/database/models"
	"github.com/starbids/starbids/starbids/store"
	"github.com/starbids/starbids/starbids/store/memstore"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// testClock is an injectable clock so deadline behavior is exact.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type winNote struct {
	userID     int64
	giftNumber int
}

type refundNote struct {
	userID int64
	amount decimal.Decimal
}

type transferNote struct {
	userID    int64
	fromRound int
	toRound   int
}

type outbidNote struct {
	userID int64
	amount decimal.Decimal
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	wins      []winNote
	refunds   []refundNote
	transfers []transferNote
	outbids   []outbidNote
}

func (n *recordingNotifier) NotifyWin(userID int64, giftNumber int, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.wins = append(n.wins, winNote{userID: userID, giftNumber: giftNumber})
}

func (n *recordingNotifier) NotifyRefund(userID int64, amount decimal.Decimal, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refunds = append(n.refunds, refundNote{userID: userID, amount: amount})
}

func (n *recordingNotifier) NotifyTransferred(userID int64, fromRound, toRound int, _ int64, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transfers = append(n.transfers, transferNote{userID: userID, fromRound: fromRound, toRound: toRound})
}

func (n *recordingNotifier) NotifyOutbid(userID int64, amount decimal.Decimal, _ int, _ int64, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outbids = append(n.outbids, outbidNote{userID: userID, amount: amount})
}

func newTestManager(t *testing.T) (*Manager, *memstore.MemStore, *recordingNotifier, *testClock) {
	t.Helper()
	st := memstore.New()
	rec := &recordingNotifier{}
	clock := newTestClock()
	m := NewManager(st, rec, nil)
	m.now = clock.Now
	return m, st, rec, clock
}

// newActiveAuction creates an immediately started auction with min bid 100
// and step 10.
func newActiveAuction(t *testing.T, m *Manager, clock *testClock, rounds []models.RoundConfig, as *models.AntiSniping) *models.Auction {
	t.Helper()
	startAt := clock.Now()
	a, err := m.CreateAuction(context.Background(), 99, CreateAuctionParams{
		Name:        "Star Drop",
		Rounds:      rounds,
		MinBid:      dec("100"),
		BidStep:     dec("10"),
		AntiSniping: as,
		StartAt:     &startAt,
	})
	require.NoError(t, err)
	require.Equal(t, models.AuctionStatusActive, a.Status)
	return a
}

func singleRound(items, durationSeconds int) []models.RoundConfig {
	return []models.RoundConfig{
		{RoundNumber: 1, DurationSeconds: durationSeconds, ItemsCount: items},
	}
}

func deposit(t *testing.T, m *Manager, userID int64, amount string) {
	t.Helper()
	_, err := m.Deposit(context.Background(), userID, dec(amount))
	require.NoError(t, err)
}

// requireWallet asserts the wallet state and reconciles the user's ledger
// and active bids against it, so every money-moving scenario also proves
// conservation held.
func requireWallet(t *testing.T, m *Manager, userID int64, balance, hold string) {
	t.Helper()
	w, err := m.GetWallet(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(dec(balance)),
		"balance of user %d: got %s want %s", userID, w.Balance, balance)
	require.True(t, w.Hold.Equal(dec(hold)),
		"hold of user %d: got %s want %s", userID, w.Hold, hold)
	require.NoError(t, store.AuditUser(context.Background(), m.store, userID))
}
