package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/starbids/starbids/starbids/database/models"
)

func (o ops) UpsertWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	w := &models.Wallet{
		UserID:  userID,
		Balance: decimal.Zero,
		Hold:    decimal.Zero,
	}
	// Insert-if-absent keeps existing funds untouched; the follow-up select
	// returns the authoritative row either way.
	_, err := o.db.NewInsert().Model(w).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert wallet of user %d: %w", userID, translate(err))
	}
	return o.GetWallet(ctx, userID)
}

func (o ops) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	w := new(models.Wallet)
	err := o.db.NewSelect().Model(w).Where("w.user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet of user %d: %w", userID, translate(err))
	}
	return w, nil
}

func (o ops) SetWalletFunds(ctx context.Context, userID int64, balance, hold decimal.Decimal) (*models.Wallet, error) {
	w := new(models.Wallet)
	_, err := o.db.NewUpdate().Model((*models.Wallet)(nil)).
		Set("balance = ?", balance).
		Set("hold = ?", hold).
		Set("updated_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Returning("*").
		Exec(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("failed to set funds of user %d: %w", userID, translate(err))
	}
	return w, nil
}

func (o ops) InsertLedgerEntry(ctx context.Context, e *models.LedgerEntry) error {
	if _, err := o.db.NewInsert().Model(e).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", translate(err))
	}
	return nil
}

func (o ops) ListLedgerEntries(ctx context.Context, userID int64, limit int) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	q := o.db.NewSelect().Model(&entries).
		Where("le.user_id = ?", userID).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list ledger entries of user %d: %w", userID, translate(err))
	}
	return entries, nil
}
