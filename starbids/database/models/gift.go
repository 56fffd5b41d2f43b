package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Gift is a numbered award slot, created lazily the first time a winning bid
// needs one. GiftNumber is dense and monotonic per auction (1..TotalItems).
// Once bound to a bid it is never reassigned or renumbered.
type Gift struct {
	bun.BaseModel `bun:"table:gifts,alias:g"`

	ID         int64 `bun:"id,pk,autoincrement"`
	AuctionID  int64 `bun:"auction_id,notnull"`
	GiftNumber int   `bun:"gift_number,notnull"`

	OwnerID int64 `bun:"owner_id,nullzero"`
	RoundID int64 `bun:"round_id,nullzero"`
	BidID   int64 `bun:"bid_id,nullzero"`

	ClaimedAt *time.Time `bun:"claimed_at"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
