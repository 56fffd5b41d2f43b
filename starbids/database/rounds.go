package database

import (
	"context"
	"fmt"
	"time"

	"github.com/starbids/starbids/starbids/database/models"
)

func (o ops) InsertRound(ctx context.Context, r *models.Round) error {
	if _, err := o.db.NewInsert().Model(r).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert round: %w", translate(err))
	}
	return nil
}

func (o ops) GetRoundByID(ctx context.Context, id int64) (*models.Round, error) {
	r := new(models.Round)
	err := o.db.NewSelect().Model(r).Where("r.id = ?", id).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get round %d: %w", id, translate(err))
	}
	return r, nil
}

func (o ops) GetRound(ctx context.Context, auctionID int64, number int) (*models.Round, error) {
	r := new(models.Round)
	err := o.db.NewSelect().Model(r).
		Where("r.auction_id = ?", auctionID).
		Where("r.round_number = ?", number).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get round %d of auction %d: %w", number, auctionID, translate(err))
	}
	return r, nil
}

func (o ops) GetActiveRound(ctx context.Context, auctionID int64, number int) (*models.Round, error) {
	r := new(models.Round)
	err := o.db.NewSelect().Model(r).
		Where("r.auction_id = ?", auctionID).
		Where("r.round_number = ?", number).
		Where("r.status = ?", models.RoundStatusActive).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active round %d of auction %d: %w", number, auctionID, translate(err))
	}
	return r, nil
}

func (o ops) MarkRoundFinalizing(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := o.db.NewUpdate().Model((*models.Round)(nil)).
		Set("status = ?", models.RoundStatusFinalizing).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status = ?", models.RoundStatusActive).
		Where("end_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to claim round %d: %w", id, translate(err))
	}
	return affected(res), nil
}

func (o ops) ExtendRound(ctx context.Context, id int64, prevEndAt, newEndAt time.Time, maxExtensions int) (bool, error) {
	q := o.db.NewUpdate().Model((*models.Round)(nil)).
		Set("end_at = ?", newEndAt).
		Set("extensions_count = extensions_count + 1").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status = ?", models.RoundStatusActive).
		Where("end_at = ?", prevEndAt)
	if maxExtensions > 0 {
		q = q.Where("extensions_count < ?", maxExtensions)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to extend round %d: %w", id, translate(err))
	}
	return affected(res), nil
}

func (o ops) CompleteRound(ctx context.Context, id int64, winnersCount, transferredCount int) error {
	_, err := o.db.NewUpdate().Model((*models.Round)(nil)).
		Set("status = ?", models.RoundStatusCompleted).
		Set("winners_count = ?", winnersCount).
		Set("transferred_count = ?", transferredCount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to complete round %d: %w", id, translate(err))
	}
	return nil
}

func (o ops) ListExpiredRounds(ctx context.Context, now time.Time, limit int) ([]*models.Round, error) {
	var rounds []*models.Round
	q := o.db.NewSelect().Model(&rounds).
		Where("(r.status = ? AND r.end_at <= ?) OR r.status = ?",
			models.RoundStatusActive, now, models.RoundStatusFinalizing).
		Order("end_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list expired rounds: %w", translate(err))
	}
	return rounds, nil
}
