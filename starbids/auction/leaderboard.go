package auction

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/starbids/starbids/starbids/database/models"
	"github.com/starbids/starbids/starbids/store"
)

// LeaderboardEntry is one ranked row of a round's leaderboard. For anonymous
// bidders the numeric identity is withheld: UserID stays zero and only the
// anon display name/photo are exposed.
type LeaderboardEntry struct {
	Rank         int             `json:"rank"`
	UserID       int64           `json:"user_id,omitempty"`
	DisplayName  string          `json:"display_name"`
	DisplayPhoto string          `json:"display_photo"`
	IsAnonymous  bool            `json:"is_anonymous"`
	Amount       decimal.Decimal `json:"amount"`
	IsWinner     bool            `json:"is_winner"`

	// userID is the real identity, kept for internal outbid detection and
	// never serialized.
	userID int64
}

// LeaderboardResult bundles the ranked entries with the viewer's own bid.
type LeaderboardResult struct {
	Entries []LeaderboardEntry
	MyBid   *models.Bid
}

type displayInfo struct {
	Name      string
	Photo     string
	Anonymous bool
}

// BuildLeaderboard ranks the round's active bids and applies the visibility
// mask.
func (m *Manager) BuildLeaderboard(ctx context.Context, roundID int64, itemsCount int) ([]LeaderboardEntry, error) {
	bids, err := m.store.ListActiveBidsByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load round bids: %w", err)
	}
	ranked := RankBids(bids)

	entries := make([]LeaderboardEntry, 0, len(ranked))
	for i, b := range ranked {
		info := m.displayInfo(ctx, b.UserID)

		entry := LeaderboardEntry{
			Rank:         i + 1,
			DisplayName:  info.Name,
			DisplayPhoto: info.Photo,
			IsAnonymous:  info.Anonymous,
			Amount:       b.Amount,
			IsWinner:     i < itemsCount,
			userID:       b.UserID,
		}
		if !info.Anonymous {
			entry.UserID = b.UserID
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetLeaderboard returns the current round's leaderboard and the viewer's
// active bid, if any.
func (m *Manager) GetLeaderboard(ctx context.Context, auctionID, viewerID int64) (*LeaderboardResult, error) {
	auction, err := m.store.GetAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errValidation(CodeAuctionNotFound, "auction %d not found", auctionID)
		}
		return nil, err
	}

	number := auction.CurrentRound
	if number == 0 {
		number = 1
	}

	round, err := m.store.GetRound(ctx, auction.ID, number)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &LeaderboardResult{}, nil
		}
		return nil, err
	}

	entries, err := m.BuildLeaderboard(ctx, round.ID, round.ItemsCount)
	if err != nil {
		return nil, err
	}

	myBid, err := m.store.GetActiveBidByUser(ctx, auction.ID, viewerID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return &LeaderboardResult{Entries: entries, MyBid: myBid}, nil
}

// displayInfo resolves a user's leaderboard identity through the LRU cache.
// Unknown users fall back to a generic label so a missing profile never
// hides a bid.
func (m *Manager) displayInfo(ctx context.Context, userID int64) displayInfo {
	if v, ok := m.displayCache.Get(userID); ok {
		if info, ok := v.(displayInfo); ok {
			return info
		}
	}

	u, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return displayInfo{Name: fmt.Sprintf("User %d", userID)}
	}

	info := displayInfo{
		Name:      u.DisplayName(),
		Photo:     u.DisplayPhoto(),
		Anonymous: u.IsAnonymous,
	}
	if info.Name == "" {
		info.Name = fmt.Sprintf("User %d", userID)
	}

	m.displayCache.Add(userID, info)
	return info
}
