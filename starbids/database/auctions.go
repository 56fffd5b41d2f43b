package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/starbids/starbids/starbids/database/models"
	"github.com/starbids/starbids/starbids/store"
)

func (o ops) InsertAuction(ctx context.Context, a *models.Auction) error {
	if _, err := o.db.NewInsert().Model(a).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert auction: %w", translate(err))
	}
	return nil
}

func (o ops) GetAuction(ctx context.Context, id int64) (*models.Auction, error) {
	a := new(models.Auction)
	err := o.db.NewSelect().Model(a).Where("a.id = ?", id).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction %d: %w", id, translate(err))
	}
	return a, nil
}

func (o ops) ListAuctions(ctx context.Context, statuses []models.AuctionStatus, limit int) ([]*models.Auction, error) {
	var auctions []*models.Auction
	q := o.db.NewSelect().Model(&auctions).Order("id DESC")
	if len(statuses) > 0 {
		q = q.Where("a.status IN (?)", bun.In(statuses))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", translate(err))
	}
	return auctions, nil
}

func (o ops) ListDueAuctions(ctx context.Context, now time.Time, limit int) ([]*models.Auction, error) {
	var auctions []*models.Auction
	q := o.db.NewSelect().Model(&auctions).
		Where("a.status = ?", models.AuctionStatusUpcoming).
		Where("a.start_at <= ?", now).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list due auctions: %w", translate(err))
	}
	return auctions, nil
}

func (o ops) MarkAuctionActive(ctx context.Context, id int64, from []models.AuctionStatus, startAt time.Time) (bool, error) {
	res, err := o.db.NewUpdate().Model((*models.Auction)(nil)).
		Set("status = ?", models.AuctionStatusActive).
		Set("current_round = 1").
		Set("start_at = ?", startAt).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status IN (?)", bun.In(from)).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to activate auction %d: %w", id, translate(err))
	}
	return affected(res), nil
}

func (o ops) MarkAuctionCompleted(ctx context.Context, id int64) error {
	_, err := o.db.NewUpdate().Model((*models.Auction)(nil)).
		Set("status = ?", models.AuctionStatusCompleted).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to complete auction %d: %w", id, translate(err))
	}
	return nil
}

func (o ops) SetCurrentRound(ctx context.Context, id int64, round int) error {
	_, err := o.db.NewUpdate().Model((*models.Auction)(nil)).
		Set("current_round = ?", round).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set current round of auction %d: %w", id, translate(err))
	}
	return nil
}

func (o ops) SetHighestBid(ctx context.Context, id int64, amount decimal.Decimal) error {
	_, err := o.db.NewUpdate().Model((*models.Auction)(nil)).
		Set("highest_bid = ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set highest bid of auction %d: %w", id, translate(err))
	}
	return nil
}

func (o ops) IncUniqueBidders(ctx context.Context, id int64) error {
	_, err := o.db.NewUpdate().Model((*models.Auction)(nil)).
		Set("unique_bidders = unique_bidders + 1").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to count bidder of auction %d: %w", id, translate(err))
	}
	return nil
}

func (o ops) ClaimGiftNumber(ctx context.Context, id int64) (int, bool, error) {
	var number int
	_, err := o.db.NewUpdate().Model((*models.Auction)(nil)).
		Set("issued_gifts = issued_gifts + 1").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("issued_gifts < total_items").
		Returning("issued_gifts").
		Exec(ctx, &number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to claim gift number of auction %d: %w", id, translate(err))
	}
	return number, true, nil
}

func affected(res sql.Result) bool {
	n, err := res.RowsAffected()
	return err == nil && n > 0
}

var _ store.Tx = ops{}
