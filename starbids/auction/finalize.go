package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starbids/starbids/starbids/database/models"
	"github.com/starbids/starbids/starbids/store"
	"github.com/starbids/starbids/starbids/wallet"
)

// FinalizeRound settles a round whose deadline has passed: captures winner
// funds, carries losers into the next round or refunds them in the final
// one, and advances the auction. Idempotent — safe to call repeatedly,
// concurrently, or after a crash mid-way. Every per-bid unit checks the
// bid's current status before acting, so re-invocation never double-spends.
func (m *Manager) FinalizeRound(ctx context.Context, round *models.Round) error {
	now := m.now()

	switch round.Status {
	case models.RoundStatusActive:
		matched, err := m.store.MarkRoundFinalizing(ctx, round.ID, now)
		if err != nil {
			return fmt.Errorf("claim round %d for finalization: %w", round.ID, err)
		}
		if !matched {
			// Another worker may have claimed it; proceed only if the round
			// is mid-finalization, otherwise there is nothing to do.
			fresh, err := m.store.GetRoundByID(ctx, round.ID)
			if err != nil {
				return fmt.Errorf("re-read round %d: %w", round.ID, err)
			}
			if fresh.Status != models.RoundStatusFinalizing {
				return nil
			}
			round = fresh
		}
	case models.RoundStatusFinalizing:
		// Crash-recovery resumption.
	default:
		return nil
	}

	auction, err := m.store.GetAuction(ctx, round.AuctionID)
	if err != nil {
		return fmt.Errorf("load auction %d: %w", round.AuctionID, err)
	}

	bids, err := m.store.ListBidsByRound(ctx, round.ID)
	if err != nil {
		return fmt.Errorf("load bids of round %d: %w", round.ID, err)
	}
	winners, rest := TopK(RankBids(bids), round.ItemsCount)

	winnersOK := true
	for _, w := range winners {
		if err := m.settleWinner(ctx, auction, round, w); err != nil {
			slog.Error("Winner settlement failed",
				slog.Int64("round_id", round.ID),
				slog.Int64("bid_id", w.ID),
				slog.Int64("user_id", w.UserID),
				slog.String("error", err.Error()))
			winnersOK = false
		}
	}
	if !winnersOK {
		// Do not progress the round on an inconsistent base; the scheduler
		// retries on the next tick.
		return fmt.Errorf("round %d: winner settlement incomplete", round.ID)
	}

	next := auction.NextRoundConfig(round.RoundNumber)

	if next != nil && len(rest) == 0 {
		// No one left to transfer: the auction completes early.
		if err := m.completeAuctionAndRound(ctx, auction.ID, round.ID, len(winners), 0); err != nil {
			return err
		}
		slog.Info("Auction completed early, no bidders to transfer",
			slog.Int64("auction_id", auction.ID),
			slog.Int("round_number", round.RoundNumber),
			slog.Int("winners", len(winners)))
		return nil
	}

	if next != nil {
		nextRound, err := m.ensureNextRound(ctx, auction, next, now)
		if err != nil {
			return err
		}

		transferOK := true
		for _, b := range rest {
			if err := m.transferBid(ctx, auction, round, nextRound, b); err != nil {
				slog.Error("Bid transfer failed",
					slog.Int64("round_id", round.ID),
					slog.Int64("bid_id", b.ID),
					slog.Int64("user_id", b.UserID),
					slog.String("error", err.Error()))
				transferOK = false
			}
		}
		if !transferOK {
			return fmt.Errorf("round %d: transfers incomplete", round.ID)
		}

		if err := m.store.SetCurrentRound(ctx, auction.ID, next.RoundNumber); err != nil {
			return fmt.Errorf("advance auction %d to round %d: %w", auction.ID, next.RoundNumber, err)
		}
		if err := m.store.CompleteRound(ctx, round.ID, len(winners), len(rest)); err != nil {
			return fmt.Errorf("complete round %d: %w", round.ID, err)
		}

		slog.Info("Round completed",
			slog.Int64("auction_id", auction.ID),
			slog.Int("round_number", round.RoundNumber),
			slog.Int("winners", len(winners)),
			slog.Int("transferred", len(rest)),
			slog.Int("next_round", next.RoundNumber))
		return nil
	}

	// Last configured round: losers are refunded.
	refundsOK := true
	for _, b := range rest {
		if err := m.refundBid(ctx, auction, b); err != nil {
			slog.Error("Bid refund failed",
				slog.Int64("round_id", round.ID),
				slog.Int64("bid_id", b.ID),
				slog.Int64("user_id", b.UserID),
				slog.String("error", err.Error()))
			refundsOK = false
		}
	}
	if !refundsOK {
		return fmt.Errorf("round %d: refunds incomplete", round.ID)
	}

	if err := m.completeAuctionAndRound(ctx, auction.ID, round.ID, len(winners), 0); err != nil {
		return err
	}

	slog.Info("Auction completed",
		slog.Int64("auction_id", auction.ID),
		slog.Int("winners", len(winners)),
		slog.Int("refunded", len(rest)))
	return nil
}

// settleWinner runs one winner's settlement as its own atomic unit so one
// failure does not block the others. Already-won bids short-circuit; any
// other non-active status is an invariant violation surfaced to the caller.
func (m *Manager) settleWinner(ctx context.Context, auction *models.Auction, round *models.Round, winner *models.Bid) error {
	giftNumber := 0
	settled := false

	err := m.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		now := m.now()

		b, err := tx.GetBid(ctx, winner.ID)
		if err != nil {
			return fmt.Errorf("load bid: %w", err)
		}

		if b.Status == models.BidStatusWon {
			return nil
		}
		if b.Status != models.BidStatusActive {
			return fmt.Errorf("winner bid %d has unexpected status %s", b.ID, b.Status)
		}

		gift, err := m.claimGift(ctx, tx, auction, round, b, now)
		if err != nil {
			return err
		}

		if _, err := m.ledger.Capture(ctx, tx, b.UserID, b.Amount, wallet.Ref{
			Type: models.LedgerRefGift,
			ID:   gift.ID,
			Note: fmt.Sprintf("%s Gift #%d", auction.Name, gift.GiftNumber),
		}); err != nil {
			return err
		}

		matched, err := tx.MarkBidWon(ctx, b.ID, gift.GiftNumber, now)
		if err != nil {
			return fmt.Errorf("mark bid won: %w", err)
		}
		if !matched {
			return fmt.Errorf("bid %d was not active during win transition", b.ID)
		}

		giftNumber = gift.GiftNumber
		settled = true
		return nil
	})
	if err != nil {
		return err
	}

	if settled {
		m.notifier.NotifyWin(winner.UserID, giftNumber, auction.Name)
	}
	return nil
}

// claimGift resolves the gift for a winning bid: the one already linked to
// the bid (recovery path), else any unassigned gift of the auction, else a
// freshly minted one numbered by the issued_gifts counter.
func (m *Manager) claimGift(ctx context.Context, tx store.Tx, auction *models.Auction, round *models.Round, b *models.Bid, now time.Time) (*models.Gift, error) {
	gift, err := tx.GetGiftByBid(ctx, auction.ID, b.ID)
	if err == nil {
		return gift, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("look up gift by bid: %w", err)
	}

	gift, err = tx.ClaimUnassignedGift(ctx, auction.ID, b.UserID, round.ID, b.ID, now)
	if err == nil {
		return gift, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("claim unassigned gift: %w", err)
	}

	number, matched, err := tx.ClaimGiftNumber(ctx, auction.ID)
	if err != nil {
		return nil, fmt.Errorf("claim gift number: %w", err)
	}
	if !matched {
		return nil, fmt.Errorf("no gift slots left for auction %d", auction.ID)
	}

	gift = &models.Gift{
		AuctionID:  auction.ID,
		GiftNumber: number,
		OwnerID:    b.UserID,
		RoundID:    round.ID,
		BidID:      b.ID,
		ClaimedAt:  &now,
	}
	if err := tx.InsertGift(ctx, gift); err != nil {
		return nil, fmt.Errorf("insert gift: %w", err)
	}
	return gift, nil
}

// ensureNextRound looks up or creates the next round. Two finalization
// attempts racing on the create resolve through the unique
// (auction, round_number) constraint.
func (m *Manager) ensureNextRound(ctx context.Context, auction *models.Auction, cfg *models.RoundConfig, now time.Time) (*models.Round, error) {
	round, err := m.store.GetRound(ctx, auction.ID, cfg.RoundNumber)
	if err == nil {
		return round, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("look up round %d: %w", cfg.RoundNumber, err)
	}

	round = &models.Round{
		AuctionID:   auction.ID,
		RoundNumber: cfg.RoundNumber,
		ItemsCount:  cfg.ItemsCount,
		StartAt:     now,
		EndAt:       now.Add(time.Duration(cfg.DurationSeconds) * time.Second),
		Status:      models.RoundStatusActive,
	}
	if err := m.store.InsertRound(ctx, round); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return m.store.GetRound(ctx, auction.ID, cfg.RoundNumber)
		}
		return nil, fmt.Errorf("create round %d: %w", cfg.RoundNumber, err)
	}
	return round, nil
}

// transferBid carries a losing bid into the next round: the old bid becomes
// transferred and a fresh active bid keeps the same amount and tie-break
// timestamp, so the user keeps their standing without re-holding funds.
func (m *Manager) transferBid(ctx context.Context, auction *models.Auction, round, nextRound *models.Round, b *models.Bid) error {
	transferred := false

	err := m.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		now := m.now()

		// matched=false means a previous attempt already moved it; the
		// carried bid insert below is still checked for the same reason.
		matched, err := tx.MarkBidTransferred(ctx, b.ID, nextRound.ID, now)
		if err != nil {
			return fmt.Errorf("mark bid transferred: %w", err)
		}
		transferred = matched

		carried := &models.Bid{
			AuctionID:       auction.ID,
			RoundID:         nextRound.ID,
			UserID:          b.UserID,
			Amount:          b.Amount,
			AmountReachedAt: b.AmountReachedAt,
			Status:          models.BidStatusActive,
		}
		if err := tx.InsertBid(ctx, carried); err != nil && !errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("insert carried bid: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if transferred {
		m.notifier.NotifyTransferred(b.UserID, round.RoundNumber, nextRound.RoundNumber, auction.ID, auction.Name)
	}
	return nil
}

// refundBid releases a losing bid's hold in the final round. Idempotent via
// the bid's status.
func (m *Manager) refundBid(ctx context.Context, auction *models.Auction, b *models.Bid) error {
	refunded := false

	err := m.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		now := m.now()

		bid, err := tx.GetBid(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("load bid: %w", err)
		}

		if bid.Status == models.BidStatusRefunded {
			return nil
		}
		if bid.Status != models.BidStatusActive {
			return fmt.Errorf("refund bid %d has unexpected status %s", bid.ID, bid.Status)
		}

		if _, err := m.ledger.Release(ctx, tx, bid.UserID, bid.Amount, wallet.Ref{
			Type: models.LedgerRefBid,
			ID:   bid.ID,
			Note: "Bid refunded - auction ended",
		}); err != nil {
			return err
		}

		matched, err := tx.MarkBidRefunded(ctx, bid.ID, now)
		if err != nil {
			return fmt.Errorf("mark bid refunded: %w", err)
		}
		if !matched {
			return fmt.Errorf("bid %d was not active during refund", bid.ID)
		}

		refunded = true
		return nil
	})
	if err != nil {
		return err
	}

	if refunded {
		m.notifier.NotifyRefund(b.UserID, b.Amount, auction.Name)
	}
	return nil
}

func (m *Manager) completeAuctionAndRound(ctx context.Context, auctionID, roundID int64, winners, transferred int) error {
	if err := m.store.MarkAuctionCompleted(ctx, auctionID); err != nil {
		return fmt.Errorf("complete auction %d: %w", auctionID, err)
	}
	if err := m.store.CompleteRound(ctx, roundID, winners, transferred); err != nil {
		return fmt.Errorf("complete round %d: %w", roundID, err)
	}
	return nil
}
