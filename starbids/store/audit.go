package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/starbids/starbids/starbids/database/models"
)

// AuditUser reconciles one user's money state against the invariants the
// engines rely on: the wallet hold must equal the sum of the user's active
// bid amounts, and replaying the ledger from zero must reproduce the wallet
// exactly, with every entry's balance_after/hold_after consistent along the
// way. Tests call it after every money-moving scenario; operators can run it
// against a live store for reconciliation.
func AuditUser(ctx context.Context, tx Tx, userID int64) error {
	wallet, err := tx.GetWallet(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		wallet = nil
	} else if err != nil {
		return fmt.Errorf("audit user %d: load wallet: %w", userID, err)
	}

	bids, err := tx.ListActiveBidsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("audit user %d: load active bids: %w", userID, err)
	}
	activeSum := decimal.Zero
	for _, b := range bids {
		activeSum = activeSum.Add(b.Amount)
	}

	if wallet == nil {
		if !activeSum.IsZero() {
			return fmt.Errorf("audit user %d: %s in active bids but no wallet", userID, activeSum)
		}
		return nil
	}

	if !wallet.Hold.Equal(activeSum) {
		return fmt.Errorf("audit user %d: hold %s != active bid sum %s",
			userID, wallet.Hold, activeSum)
	}

	entries, err := tx.ListLedgerEntries(ctx, userID, 0)
	if err != nil {
		return fmt.Errorf("audit user %d: load ledger: %w", userID, err)
	}

	// Entries come newest first; replay oldest first from a zero wallet.
	balance, hold := decimal.Zero, decimal.Zero
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		switch e.Type {
		case models.LedgerTypeDeposit:
			balance = balance.Add(e.Amount)
		case models.LedgerTypeHold:
			balance = balance.Sub(e.Amount)
			hold = hold.Add(e.Amount)
		case models.LedgerTypeRelease:
			balance = balance.Add(e.Amount)
			hold = hold.Sub(e.Amount)
		case models.LedgerTypeCapture:
			hold = hold.Sub(e.Amount)
		default:
			return fmt.Errorf("audit user %d: ledger entry %d has unknown type %q",
				userID, e.ID, e.Type)
		}

		if !balance.Equal(e.BalanceAfter) || !hold.Equal(e.HoldAfter) {
			return fmt.Errorf("audit user %d: ledger entry %d recorded %s/%s, replay gives %s/%s",
				userID, e.ID, e.BalanceAfter, e.HoldAfter, balance, hold)
		}
		if balance.IsNegative() || hold.IsNegative() {
			return fmt.Errorf("audit user %d: ledger entry %d drives wallet negative (%s/%s)",
				userID, e.ID, balance, hold)
		}
	}

	if !balance.Equal(wallet.Balance) || !hold.Equal(wallet.Hold) {
		return fmt.Errorf("audit user %d: wallet %s/%s != ledger replay %s/%s",
			userID, wallet.Balance, wallet.Hold, balance, hold)
	}
	return nil
}
