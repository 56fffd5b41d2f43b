package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type BidStatus string

const (
	BidStatusActive      BidStatus = "active"
	BidStatusWon         BidStatus = "won"
	BidStatusTransferred BidStatus = "transferred"
	BidStatusRefunded    BidStatus = "refunded"
)

// Bid is unique per (round_id, user_id): a user holds at most one active bid
// per round. Increases mutate the row in place, never duplicate it.
type Bid struct {
	bun.BaseModel `bun:"table:bids,alias:b"`

	ID        int64 `bun:"id,pk,autoincrement"`
	AuctionID int64 `bun:"auction_id,notnull"`
	RoundID   int64 `bun:"round_id,notnull"`
	UserID    int64 `bun:"user_id,notnull"`

	Amount decimal.Decimal `bun:"amount,notnull,type:numeric"`
	// AmountReachedAt breaks ties between equal amounts; reset whenever the
	// amount increases.
	AmountReachedAt time.Time `bun:"amount_reached_at,notnull"`
	Rank            int       `bun:"rank,notnull,default:0"`

	Status      BidStatus `bun:"status,notnull,default:'active'"`
	AwardNumber int       `bun:"award_number,nullzero"`

	WonAt                *time.Time `bun:"won_at"`
	TransferredToRoundID int64      `bun:"transferred_to_round_id,nullzero"`
	TransferredAt        *time.Time `bun:"transferred_at"`
	RefundedAt           *time.Time `bun:"refunded_at"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
