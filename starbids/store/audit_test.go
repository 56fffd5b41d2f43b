package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbids/starbids/starbids/database/models"
	"github.com/starbids/starbids/starbids/store"
	"github.com/starbids/starbids/starbids/store/memstore"
	"github.com/starbids/starbids/starbids/wallet"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedUser runs a deposit and a held bid so the user has a wallet, an active
// bid, and a consistent ledger behind them.
func seedUser(t *testing.T, st *memstore.MemStore, userID int64) *models.Bid {
	t.Helper()
	ctx := context.Background()
	var l wallet.Ledger
	bid := &models.Bid{
		AuctionID:       1,
		RoundID:         1,
		UserID:          userID,
		Amount:          dec("100"),
		AmountReachedAt: time.Now(),
		Status:          models.BidStatusActive,
	}
	err := st.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := l.Deposit(ctx, tx, userID, dec("500")); err != nil {
			return err
		}
		if err := tx.InsertBid(ctx, bid); err != nil {
			return err
		}
		_, err := l.Hold(ctx, tx, userID, bid.Amount, wallet.Ref{Type: models.LedgerRefBid, ID: bid.ID})
		return err
	})
	require.NoError(t, err)
	return bid
}

func TestAuditUserCleanState(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	seedUser(t, st, 1)

	require.NoError(t, store.AuditUser(ctx, st, 1))
	// A user with no wallet and no bids is trivially consistent.
	require.NoError(t, store.AuditUser(ctx, st, 42))
}

func TestAuditUserDetectsLostHold(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	seedUser(t, st, 1)

	// A lost update on the wallet: the hold vanishes while the bid stays
	// active.
	_, err := st.SetWalletFunds(ctx, 1, dec("400"), dec("0"))
	require.NoError(t, err)

	err = store.AuditUser(ctx, st, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "active bid sum")
}

func TestAuditUserDetectsBrokenLedgerChain(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	seedUser(t, st, 1)

	// An entry whose recorded after-state disagrees with the replay.
	require.NoError(t, st.InsertLedgerEntry(ctx, &models.LedgerEntry{
		UserID:       1,
		Type:         models.LedgerTypeDeposit,
		Amount:       dec("100"),
		BalanceAfter: dec("999"),
		HoldAfter:    dec("100"),
		RefType:      models.LedgerRefManual,
	}))

	err := store.AuditUser(ctx, st, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replay")
}

func TestAuditUserDetectsWalletDrift(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	seedUser(t, st, 1)

	// Balance mutated without a ledger entry.
	_, err := st.SetWalletFunds(ctx, 1, dec("390"), dec("100"))
	require.NoError(t, err)

	err = store.AuditUser(ctx, st, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger replay")
}
