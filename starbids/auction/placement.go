package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/starbids/starbids/starbids/database/models"
	"github.com/starbids/starbids/starbids/store"
	"github.com/starbids/starbids/starbids/wallet"
)

// PlaceBidResult is what the request layer returns to the bidder.
type PlaceBidResult struct {
	Bid         *models.Bid
	Round       *models.Round
	Leaderboard []LeaderboardEntry
	Rank        int
	Extended    bool
	Changed     bool
}

// PlaceBid validates and commits a bid for the auction's current round,
// adjusting the bidder's wallet hold, recomputing rank, and running the
// anti-sniping check. The whole state transition is one atomic transaction,
// retried up to maxAttempts on transient store conflicts. Resubmitting an
// unchanged amount is an idempotent no-op success. Validation and business
// conflicts are never retried.
func (m *Manager) PlaceBid(ctx context.Context, auctionID, userID int64, amount decimal.Decimal) (*PlaceBidResult, error) {
	now := m.now()

	auction, err := m.store.GetAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errValidation(CodeAuctionNotFound, "auction %d not found", auctionID)
		}
		return nil, fmt.Errorf("load auction: %w", err)
	}

	// Winning slice before this bid, for outbid notifications after commit.
	prevTop := m.winningUserIDs(ctx, auction)

	type txOut struct {
		bid      *models.Bid
		round    *models.Round
		rank     int
		extended bool
		changed  bool
	}
	var out *txOut
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out = nil
		err := m.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			a, err := tx.GetAuction(ctx, auctionID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return errValidation(CodeAuctionNotFound, "auction %d not found", auctionID)
				}
				return err
			}
			if a.Status != models.AuctionStatusActive {
				return errValidation(CodeAuctionNotActive, "auction is not active")
			}

			round, err := tx.GetActiveRound(ctx, a.ID, a.CurrentRound)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return errValidation(CodeNoActiveRound, "no active round")
				}
				return err
			}
			if !now.Before(round.EndAt) {
				return errValidation(CodeRoundEnded, "round ended")
			}

			if !ValidBidAmount(amount, a.MinBid, a.BidStep) {
				return errValidation(CodeInvalidAmount,
					"amount must be an integer >= %s aligned to step %s", a.MinBid, a.BidStep)
			}

			if _, err := tx.UpsertWallet(ctx, userID); err != nil {
				return fmt.Errorf("upsert wallet: %w", err)
			}

			existing, err := tx.GetActiveBidByUser(ctx, a.ID, userID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("load existing bid: %w", err)
			}

			var bid *models.Bid
			changed := false

			switch {
			case existing != nil && amount.Equal(existing.Amount):
				// Idempotent retry of an unchanged bid: no wallet or ledger
				// mutation, the existing bid is returned as-is.
				bid = existing

			case existing != nil:
				if !ValidBidIncrease(existing.Amount, amount, a.BidStep) {
					return errConflict(CodeBidTooLow,
						"bid must exceed %s by at least %s", existing.Amount, a.BidStep)
				}

				delta := amount.Sub(existing.Amount)
				if _, err := m.ledger.Hold(ctx, tx, userID, delta,
					wallet.Ref{Type: models.LedgerRefBid, ID: existing.ID}); err != nil {
					if errors.Is(err, wallet.ErrInsufficientFunds) {
						return errConflict(CodeInsufficientFunds, "insufficient balance for increase of %s", delta)
					}
					return err
				}

				matched, err := tx.UpdateBidAmount(ctx, existing.ID, amount, now, round.ID)
				if err != nil {
					return fmt.Errorf("update bid: %w", err)
				}
				if !matched {
					// The bid left active state under us; retry from validation.
					return fmt.Errorf("bid %d changed concurrently: %w", existing.ID, store.ErrTxConflict)
				}

				existing.Amount = amount
				existing.AmountReachedAt = now
				existing.RoundID = round.ID
				bid = existing
				changed = true

			default:
				hadAny, err := tx.HasBid(ctx, a.ID, userID)
				if err != nil {
					return fmt.Errorf("check prior bids: %w", err)
				}

				b := &models.Bid{
					AuctionID:       a.ID,
					RoundID:         round.ID,
					UserID:          userID,
					Amount:          amount,
					AmountReachedAt: now,
					Status:          models.BidStatusActive,
				}
				if err := tx.InsertBid(ctx, b); err != nil {
					// ErrDuplicate: concurrent first bid from the same user;
					// the retry loop re-enters as an increase.
					return fmt.Errorf("insert bid: %w", err)
				}

				if _, err := m.ledger.Hold(ctx, tx, userID, amount,
					wallet.Ref{Type: models.LedgerRefBid, ID: b.ID}); err != nil {
					if errors.Is(err, wallet.ErrInsufficientFunds) {
						return errConflict(CodeInsufficientFunds, "insufficient balance for bid of %s", amount)
					}
					return err
				}

				if !hadAny {
					if err := tx.IncUniqueBidders(ctx, a.ID); err != nil {
						return fmt.Errorf("count unique bidder: %w", err)
					}
				}

				bid = b
				changed = true
			}

			if changed && amount.GreaterThan(a.HighestBid) {
				if err := tx.SetHighestBid(ctx, a.ID, amount); err != nil {
					return fmt.Errorf("raise highest bid: %w", err)
				}
			}

			active, err := tx.ListActiveBidsByRound(ctx, round.ID)
			if err != nil {
				return fmt.Errorf("load round bids: %w", err)
			}
			ranked := RankBids(active)

			rank := 0
			for i, rb := range ranked {
				if rb.ID == bid.ID {
					rank = i + 1
					break
				}
			}
			if rank == 0 {
				return fmt.Errorf("bid %d missing from recomputed rank", bid.ID)
			}

			extended := false
			// Anti-sniping fires only on an actual amount change that lands
			// inside the winning slice.
			if changed && rank <= round.ItemsCount && a.AntiSniping.Enabled {
				extended = m.tryExtendRound(ctx, tx, a, round, now)
			}

			if err := tx.SetBidRank(ctx, bid.ID, rank); err != nil {
				return fmt.Errorf("persist rank: %w", err)
			}
			bid.Rank = rank

			out = &txOut{bid: bid, round: round, rank: rank, extended: extended, changed: changed}
			return nil
		})
		if err == nil {
			break
		}

		var vErr *ValidationError
		var cErr *ConflictError
		if errors.As(err, &vErr) || errors.As(err, &cErr) {
			return nil, err
		}

		lastErr = err
		if attempt < maxAttempts && store.IsRetryable(err) {
			continue
		}
		return nil, fmt.Errorf("place bid: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("place bid: %w", lastErr)
	}

	leaderboard, err := m.BuildLeaderboard(ctx, out.round.ID, out.round.ItemsCount)
	if err != nil {
		slog.Error("Failed to build leaderboard after bid",
			slog.Int64("round_id", out.round.ID),
			slog.String("error", err.Error()))
	}

	if out.changed {
		m.announceBid(ctx, auction, out.bid, out.rank, out.round.ItemsCount, leaderboard, prevTop)
	}
	if out.extended {
		m.broadcaster.BroadcastRoundExtended(auctionID, RoundEvent{
			RoundID:         out.round.ID,
			EndAt:           out.round.EndAt,
			ExtensionsCount: out.round.ExtensionsCount,
		})
	}

	return &PlaceBidResult{
		Bid:         out.bid,
		Round:       out.round,
		Leaderboard: leaderboard,
		Rank:        out.rank,
		Extended:    out.extended,
		Changed:     out.changed,
	}, nil
}

// tryExtendRound applies an anti-sniping extension via an optimistic
// conditional update keyed on the round's previously-read end_at. When a
// concurrent bid already advanced it, the round is re-read and the check is
// retried once; losing the extension is acceptable, losing the bid is not.
func (m *Manager) tryExtendRound(ctx context.Context, tx store.Tx, a *models.Auction, round *models.Round, now time.Time) bool {
	as := a.AntiSniping

	apply := func(r *models.Round) (extended, raced bool) {
		if !ShouldExtendRound(r.EndAt, now, as.ThresholdSeconds, r.ExtensionsCount, as.MaxExtensions) {
			return false, false
		}

		newEnd := r.EndAt.Add(time.Duration(as.ExtensionSeconds) * time.Second)
		matched, err := tx.ExtendRound(ctx, r.ID, r.EndAt, newEnd, as.MaxExtensions)
		if err != nil {
			slog.Error("Round extension failed",
				slog.Int64("round_id", r.ID),
				slog.String("error", err.Error()))
			return false, false
		}
		if !matched {
			return false, true
		}

		r.EndAt = newEnd
		r.ExtensionsCount++
		return true, false
	}

	extended, raced := apply(round)
	if extended {
		return true
	}
	if !raced {
		return false
	}

	fresh, err := tx.GetRoundByID(ctx, round.ID)
	if err != nil {
		return false
	}
	if extended, _ = apply(fresh); extended {
		*round = *fresh
		return true
	}
	return false
}

// winningUserIDs returns the users currently inside the winning slice of the
// auction's active round. Used to detect who a new bid knocked out.
func (m *Manager) winningUserIDs(ctx context.Context, auction *models.Auction) []int64 {
	round, err := m.store.GetActiveRound(ctx, auction.ID, auction.CurrentRound)
	if err != nil {
		return nil
	}

	bids, err := m.store.ListActiveBidsByRound(ctx, round.ID)
	if err != nil {
		return nil
	}

	winners, _ := TopK(RankBids(bids), round.ItemsCount)
	ids := make([]int64, 0, len(winners))
	for _, b := range winners {
		ids = append(ids, b.UserID)
	}
	return ids
}

// announceBid fans the committed bid out to live viewers and notifies users
// it pushed out of the winning slice. Best-effort only.
func (m *Manager) announceBid(ctx context.Context, auction *models.Auction, bid *models.Bid, rank, itemsCount int, leaderboard []LeaderboardEntry, prevTop []int64) {
	display := m.displayInfo(ctx, bid.UserID)

	event := BidEvent{
		DisplayName:  display.Name,
		DisplayPhoto: display.Photo,
		IsAnonymous:  display.Anonymous,
		Amount:       bid.Amount,
		Rank:         rank,
	}
	if !display.Anonymous {
		event.UserID = bid.UserID
	}
	m.broadcaster.BroadcastBid(auction.ID, event, leaderboard)

	inNewTop := make(map[int64]bool)
	for _, e := range leaderboard {
		if e.IsWinner {
			inNewTop[e.userID] = true
		}
	}

	for _, uid := range prevTop {
		if uid == bid.UserID || inNewTop[uid] {
			continue
		}
		var amount decimal.Decimal
		for _, e := range leaderboard {
			if e.userID == uid {
				amount = e.Amount
				break
			}
		}
		m.notifier.NotifyOutbid(uid, amount, itemsCount, auction.ID, auction.Name)
	}
}
