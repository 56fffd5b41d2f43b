package auction

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/starbids/starbids/starbids/database/models"
	"github.com/starbids/starbids/starbids/wallet"
)

// DefaultAntiSniping is applied when an auction is created without explicit
// anti-sniping parameters. MaxExtensions 0 means unlimited.
var DefaultAntiSniping = models.AntiSniping{
	Enabled:          true,
	ThresholdSeconds: 30,
	ExtensionSeconds: 30,
	MaxExtensions:    0,
}

// ValidateRoundsConfig checks that round numbers are contiguous starting at
// 1 and every round has a positive duration and item count.
func ValidateRoundsConfig(rounds []models.RoundConfig) error {
	if len(rounds) == 0 {
		return fmt.Errorf("at least one round required")
	}

	for i, r := range rounds {
		if r.RoundNumber != i+1 {
			return fmt.Errorf("round %d has wrong round_number %d", i+1, r.RoundNumber)
		}
		if r.DurationSeconds < 1 {
			return fmt.Errorf("round %d duration must be at least 1 second", i+1)
		}
		if r.ItemsCount < 1 {
			return fmt.Errorf("round %d must have at least 1 item", i+1)
		}
	}

	return nil
}

// TotalItems sums item counts across all configured rounds.
func TotalItems(rounds []models.RoundConfig) int {
	total := 0
	for _, r := range rounds {
		total += r.ItemsCount
	}
	return total
}

// ValidBidAmount reports whether amount is a positive integer, at least
// minBid, and aligned to bidStep above minBid.
func ValidBidAmount(amount, minBid, bidStep decimal.Decimal) bool {
	if !wallet.IsPositiveInteger(amount) {
		return false
	}
	if amount.LessThan(minBid) {
		return false
	}
	return amount.Sub(minBid).Mod(bidStep).IsZero()
}

// ValidBidIncrease reports whether next exceeds current by at least bidStep.
func ValidBidIncrease(current, next, bidStep decimal.Decimal) bool {
	return next.Sub(current).GreaterThanOrEqual(bidStep)
}

// ShouldExtendRound reports whether a qualifying bid at now warrants an
// anti-sniping extension: the round must still be running, within threshold
// seconds of its deadline (inclusive), and under the extension cap.
// maxExtensions <= 0 means unlimited.
func ShouldExtendRound(endAt, now time.Time, thresholdSeconds, currentExtensions, maxExtensions int) bool {
	if maxExtensions > 0 && currentExtensions >= maxExtensions {
		return false
	}

	toEnd := endAt.Sub(now)
	return toEnd > 0 && toEnd <= time.Duration(thresholdSeconds)*time.Second
}
