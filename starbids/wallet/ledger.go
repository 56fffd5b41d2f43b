package wallet

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/starbids/starbids/starbids/database/models"
	"github.com/starbids/starbids/starbids/store"
)

// Ref identifies the business event behind a money movement.
type Ref struct {
	Type models.LedgerRefType
	ID   int64
	Note string
}

// Ledger performs wallet mutations inside a caller-provided store
// transaction. Every operation updates the wallet and appends exactly one
// ledger entry carrying the resulting balance/hold; that entry is the sole
// durable evidence of the movement.
type Ledger struct{}

// Hold freezes delta from balance into hold. Fails with
// ErrInsufficientFunds when the balance cannot cover delta.
func (Ledger) Hold(ctx context.Context, tx store.Tx, userID int64, delta decimal.Decimal, ref Ref) (*models.Wallet, error) {
	w, err := tx.GetWallet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wallet for hold: %w", err)
	}

	state := State{Balance: w.Balance, Hold: w.Hold}
	if !state.CanHold(delta) {
		return nil, ErrInsufficientFunds
	}

	next := state.ApplyHold(delta)
	updated, err := tx.SetWalletFunds(ctx, userID, next.Balance, next.Hold)
	if err != nil {
		return nil, fmt.Errorf("apply hold: %w", err)
	}

	if err := appendEntry(ctx, tx, updated, models.LedgerTypeHold, delta, ref); err != nil {
		return nil, err
	}
	return updated, nil
}

// Release returns amount from hold to balance (losing bid refund).
func (Ledger) Release(ctx context.Context, tx store.Tx, userID int64, amount decimal.Decimal, ref Ref) (*models.Wallet, error) {
	w, err := tx.GetWallet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wallet for release: %w", err)
	}

	if w.Hold.LessThan(amount) {
		return nil, fmt.Errorf("release %s for user %d with hold %s: %w",
			amount, userID, w.Hold, ErrInsufficientHold)
	}

	next := State{Balance: w.Balance, Hold: w.Hold}.ApplyRelease(amount)
	updated, err := tx.SetWalletFunds(ctx, userID, next.Balance, next.Hold)
	if err != nil {
		return nil, fmt.Errorf("apply release: %w", err)
	}

	if err := appendEntry(ctx, tx, updated, models.LedgerTypeRelease, amount, ref); err != nil {
		return nil, err
	}
	return updated, nil
}

// Capture permanently spends amount out of hold (winning bid). The balance
// already reflects the spend, so only hold decreases.
func (Ledger) Capture(ctx context.Context, tx store.Tx, userID int64, amount decimal.Decimal, ref Ref) (*models.Wallet, error) {
	w, err := tx.GetWallet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wallet for capture: %w", err)
	}

	if w.Hold.LessThan(amount) {
		return nil, fmt.Errorf("capture %s for user %d with hold %s: %w",
			amount, userID, w.Hold, ErrInsufficientHold)
	}

	next := State{Balance: w.Balance, Hold: w.Hold}.ApplyCapture(amount)
	updated, err := tx.SetWalletFunds(ctx, userID, next.Balance, next.Hold)
	if err != nil {
		return nil, fmt.Errorf("apply capture: %w", err)
	}

	if err := appendEntry(ctx, tx, updated, models.LedgerTypeCapture, amount, ref); err != nil {
		return nil, err
	}
	return updated, nil
}

// Deposit adds amount to the spendable balance, creating the wallet if the
// user has none yet.
func (Ledger) Deposit(ctx context.Context, tx store.Tx, userID int64, amount decimal.Decimal) (*models.Wallet, error) {
	w, err := tx.UpsertWallet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("upsert wallet for deposit: %w", err)
	}

	next := State{Balance: w.Balance, Hold: w.Hold}.ApplyDeposit(amount)
	updated, err := tx.SetWalletFunds(ctx, userID, next.Balance, next.Hold)
	if err != nil {
		return nil, fmt.Errorf("apply deposit: %w", err)
	}

	if err := appendEntry(ctx, tx, updated, models.LedgerTypeDeposit, amount, Ref{Type: models.LedgerRefManual}); err != nil {
		return nil, err
	}
	return updated, nil
}

func appendEntry(ctx context.Context, tx store.Tx, w *models.Wallet, typ models.LedgerType, amount decimal.Decimal, ref Ref) error {
	refType := ref.Type
	if refType == "" {
		refType = models.LedgerRefManual
	}

	entry := &models.LedgerEntry{
		UserID:       w.UserID,
		Type:         typ,
		Amount:       amount,
		BalanceAfter: w.Balance,
		HoldAfter:    w.Hold,
		RefType:      refType,
		RefID:        ref.ID,
		Note:         ref.Note,
	}
	if err := tx.InsertLedgerEntry(ctx, entry); err != nil {
		return fmt.Errorf("append %s ledger entry: %w", typ, err)
	}
	return nil
}
