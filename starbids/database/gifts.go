package database

import (
	"context"
	"fmt"
	"time"

	"github.com/starbids/starbids/starbids/database/models"
)

func (o ops) InsertGift(ctx context.Context, g *models.Gift) error {
	if _, err := o.db.NewInsert().Model(g).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert gift: %w", translate(err))
	}
	return nil
}

func (o ops) GetGift(ctx context.Context, id int64) (*models.Gift, error) {
	g := new(models.Gift)
	err := o.db.NewSelect().Model(g).Where("g.id = ?", id).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gift %d: %w", id, translate(err))
	}
	return g, nil
}

func (o ops) GetGiftByBid(ctx context.Context, auctionID, bidID int64) (*models.Gift, error) {
	g := new(models.Gift)
	err := o.db.NewSelect().Model(g).
		Where("g.auction_id = ?", auctionID).
		Where("g.bid_id = ?", bidID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gift of bid %d: %w", bidID, translate(err))
	}
	return g, nil
}

func (o ops) ClaimUnassignedGift(ctx context.Context, auctionID, ownerID, roundID, bidID int64, at time.Time) (*models.Gift, error) {
	sub := o.db.NewSelect().Model((*models.Gift)(nil)).
		Column("id").
		Where("auction_id = ?", auctionID).
		Where("owner_id IS NULL").
		Order("gift_number ASC").
		Limit(1)

	g := new(models.Gift)
	_, err := o.db.NewUpdate().Model((*models.Gift)(nil)).
		Set("owner_id = ?", ownerID).
		Set("round_id = ?", roundID).
		Set("bid_id = ?", bidID).
		Set("claimed_at = ?", at).
		Set("updated_at = ?", time.Now()).
		Where("id = (?)", sub).
		Returning("*").
		Exec(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("failed to claim unassigned gift of auction %d: %w", auctionID, translate(err))
	}
	return g, nil
}

func (o ops) ListGiftsByOwner(ctx context.Context, ownerID int64, limit int) ([]*models.Gift, error) {
	var gifts []*models.Gift
	q := o.db.NewSelect().Model(&gifts).
		Where("g.owner_id = ?", ownerID).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list gifts of user %d: %w", ownerID, translate(err))
	}
	return gifts, nil
}

func (o ops) CountAssignedGifts(ctx context.Context, auctionID int64) (int, error) {
	n, err := o.db.NewSelect().Model((*models.Gift)(nil)).
		Where("g.auction_id = ?", auctionID).
		Where("g.owner_id IS NOT NULL").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count assigned gifts of auction %d: %w", auctionID, translate(err))
	}
	return n, nil
}
