package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/starbids/starbids/starbids/database/models"
)

func (o ops) InsertBid(ctx context.Context, b *models.Bid) error {
	if _, err := o.db.NewInsert().Model(b).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert bid: %w", translate(err))
	}
	return nil
}

func (o ops) GetBid(ctx context.Context, id int64) (*models.Bid, error) {
	b := new(models.Bid)
	err := o.db.NewSelect().Model(b).Where("b.id = ?", id).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bid %d: %w", id, translate(err))
	}
	return b, nil
}

func (o ops) GetActiveBidByUser(ctx context.Context, auctionID, userID int64) (*models.Bid, error) {
	b := new(models.Bid)
	err := o.db.NewSelect().Model(b).
		Where("b.auction_id = ?", auctionID).
		Where("b.user_id = ?", userID).
		Where("b.status = ?", models.BidStatusActive).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active bid of user %d: %w", userID, translate(err))
	}
	return b, nil
}

func (o ops) HasBid(ctx context.Context, auctionID, userID int64) (bool, error) {
	exists, err := o.db.NewSelect().Model((*models.Bid)(nil)).
		Where("b.auction_id = ?", auctionID).
		Where("b.user_id = ?", userID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check bid existence: %w", translate(err))
	}
	return exists, nil
}

func (o ops) ListBidsByRound(ctx context.Context, roundID int64) ([]*models.Bid, error) {
	var bids []*models.Bid
	err := o.db.NewSelect().Model(&bids).
		Where("b.round_id = ?", roundID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids of round %d: %w", roundID, translate(err))
	}
	return bids, nil
}

func (o ops) ListActiveBidsByRound(ctx context.Context, roundID int64) ([]*models.Bid, error) {
	var bids []*models.Bid
	err := o.db.NewSelect().Model(&bids).
		Where("b.round_id = ?", roundID).
		Where("b.status = ?", models.BidStatusActive).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active bids of round %d: %w", roundID, translate(err))
	}
	return bids, nil
}

func (o ops) ListActiveBidsByUser(ctx context.Context, userID int64) ([]*models.Bid, error) {
	var bids []*models.Bid
	err := o.db.NewSelect().Model(&bids).
		Where("b.user_id = ?", userID).
		Where("b.status = ?", models.BidStatusActive).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active bids of user %d: %w", userID, translate(err))
	}
	return bids, nil
}

func (o ops) UpdateBidAmount(ctx context.Context, id int64, amount decimal.Decimal, reachedAt time.Time, roundID int64) (bool, error) {
	res, err := o.db.NewUpdate().Model((*models.Bid)(nil)).
		Set("amount = ?", amount).
		Set("amount_reached_at = ?", reachedAt).
		Set("round_id = ?", roundID).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status = ?", models.BidStatusActive).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to update bid %d: %w", id, translate(err))
	}
	return affected(res), nil
}

func (o ops) SetBidRank(ctx context.Context, id int64, rank int) error {
	_, err := o.db.NewUpdate().Model((*models.Bid)(nil)).
		Set("rank = ?", rank).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set rank of bid %d: %w", id, translate(err))
	}
	return nil
}

func (o ops) MarkBidWon(ctx context.Context, id int64, awardNumber int, at time.Time) (bool, error) {
	res, err := o.db.NewUpdate().Model((*models.Bid)(nil)).
		Set("status = ?", models.BidStatusWon).
		Set("award_number = ?", awardNumber).
		Set("won_at = ?", at).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status = ?", models.BidStatusActive).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mark bid %d won: %w", id, translate(err))
	}
	return affected(res), nil
}

func (o ops) MarkBidTransferred(ctx context.Context, id, toRoundID int64, at time.Time) (bool, error) {
	res, err := o.db.NewUpdate().Model((*models.Bid)(nil)).
		Set("status = ?", models.BidStatusTransferred).
		Set("transferred_to_round_id = ?", toRoundID).
		Set("transferred_at = ?", at).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status = ?", models.BidStatusActive).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mark bid %d transferred: %w", id, translate(err))
	}
	return affected(res), nil
}

func (o ops) MarkBidRefunded(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := o.db.NewUpdate().Model((*models.Bid)(nil)).
		Set("status = ?", models.BidStatusRefunded).
		Set("refunded_at = ?", at).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status = ?", models.BidStatusActive).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mark bid %d refunded: %w", id, translate(err))
	}
	return affected(res), nil
}
