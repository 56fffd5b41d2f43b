package auction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Notifier delivers user-facing messages after a state transition durably
// commits. All sends are best-effort: implementations must swallow delivery
// failures — a blocked recipient never fails the underlying transaction.
type Notifier interface {
	NotifyWin(userID int64, giftNumber int, auctionName string)
	NotifyRefund(userID int64, amount decimal.Decimal, auctionName string)
	NotifyTransferred(userID int64, fromRound, toRound int, auctionID int64, auctionName string)
	NotifyOutbid(userID int64, amount decimal.Decimal, itemsCount int, auctionID int64, auctionName string)
}

// NopNotifier drops every notification. Used in tests and when no messaging
// backend is configured.
type NopNotifier struct{}

func (NopNotifier) NotifyWin(int64, int, string)                        {}
func (NopNotifier) NotifyRefund(int64, decimal.Decimal, string)         {}
func (NopNotifier) NotifyTransferred(int64, int, int, int64, string)    {}
func (NopNotifier) NotifyOutbid(int64, decimal.Decimal, int, int64, string) {}

// BidEvent is the live broadcast payload for a changed bid.
type BidEvent struct {
	UserID       int64           `json:"user_id,omitempty"`
	DisplayName  string          `json:"display_name"`
	DisplayPhoto string          `json:"display_photo"`
	IsAnonymous  bool            `json:"is_anonymous"`
	Amount       decimal.Decimal `json:"amount"`
	Rank         int             `json:"rank"`
}

// RoundEvent is the live broadcast payload for a round extension.
type RoundEvent struct {
	RoundID         int64     `json:"round_id"`
	EndAt           time.Time `json:"end_at"`
	ExtensionsCount int       `json:"extensions_count"`
}

// Broadcaster fans events out to live viewers of an auction. Fire-and-forget
// after commit; the engine never touches delivery state.
type Broadcaster interface {
	BroadcastBid(auctionID int64, bid BidEvent, leaderboard []LeaderboardEntry)
	BroadcastRoundExtended(auctionID int64, round RoundEvent)
}

// NopBroadcaster drops every event.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastBid(int64, BidEvent, []LeaderboardEntry) {}
func (NopBroadcaster) BroadcastRoundExtended(int64, RoundEvent)         {}
