package auction

import (
	"sort"

	"github.com/starbids/starbids/starbids/database/models"
)

// CompareBids orders two bids: amount descending, then amount_reached_at
// ascending (earlier wins), then id ascending. The order is total — no two
// distinct bids compare equal.
func CompareBids(a, b *models.Bid) int {
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return -c
	}

	if a.AmountReachedAt.Before(b.AmountReachedAt) {
		return -1
	}
	if a.AmountReachedAt.After(b.AmountReachedAt) {
		return 1
	}

	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

// RankBids returns a new slice with the bids in rank order. Always re-derived
// from scratch, never incrementally patched, so rank cannot drift under
// concurrent writers.
func RankBids(bids []*models.Bid) []*models.Bid {
	ranked := make([]*models.Bid, len(bids))
	copy(ranked, bids)
	sort.SliceStable(ranked, func(i, j int) bool {
		return CompareBids(ranked[i], ranked[j]) < 0
	})
	return ranked
}

// TopK splits a ranked slice into the winning top k and the remainder.
func TopK(ranked []*models.Bid, k int) (winners, rest []*models.Bid) {
	if k > len(ranked) {
		k = len(ranked)
	}
	if k < 0 {
		k = 0
	}
	return ranked[:k], ranked[k:]
}
