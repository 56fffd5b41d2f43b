package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type AuctionStatus string

const (
	AuctionStatusDraft     AuctionStatus = "draft"
	AuctionStatusUpcoming  AuctionStatus = "upcoming"
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusCompleted AuctionStatus = "completed"
	AuctionStatusCancelled AuctionStatus = "cancelled"
)

// RoundConfig is one entry of an auction's round plan. Round numbers are
// contiguous starting at 1.
type RoundConfig struct {
	RoundNumber     int `json:"round_number"`
	DurationSeconds int `json:"duration_seconds"`
	ItemsCount      int `json:"items_count"`
}

// AntiSniping controls the deadline-extension protocol. MaxExtensions = 0
// means unlimited extensions.
type AntiSniping struct {
	Enabled          bool `json:"enabled"`
	ThresholdSeconds int  `json:"threshold_seconds"`
	ExtensionSeconds int  `json:"extension_seconds"`
	MaxExtensions    int  `json:"max_extensions"`
}

type Auction struct {
	bun.BaseModel `bun:"table:auctions,alias:a"`

	ID        int64  `bun:"id,pk,autoincrement"`
	CreatorID int64  `bun:"creator_id,notnull"`
	Name      string `bun:"name,notnull"`
	Photo     string `bun:"photo"`

	TotalItems int `bun:"total_items,notnull"`
	// IssuedGifts drives lazy gift numbering; never exceeds TotalItems.
	IssuedGifts int `bun:"issued_gifts,notnull,default:0"`

	RoundsConfig []RoundConfig `bun:"rounds_config,type:jsonb,notnull"`

	MinBid  decimal.Decimal `bun:"min_bid,notnull,type:numeric"`
	BidStep decimal.Decimal `bun:"bid_step,notnull,type:numeric"`

	AntiSniping AntiSniping `bun:"anti_sniping,type:jsonb,notnull"`

	Status       AuctionStatus `bun:"status,notnull,default:'draft'"`
	StartAt      *time.Time    `bun:"start_at"`
	CurrentRound int           `bun:"current_round,notnull,default:0"`

	UniqueBidders int             `bun:"unique_bidders,notnull,default:0"`
	HighestBid    decimal.Decimal `bun:"highest_bid,notnull,type:numeric,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// NextRoundConfig returns the config for the round after n, or nil if n was
// the last configured round.
func (a *Auction) NextRoundConfig(n int) *RoundConfig {
	for i := range a.RoundsConfig {
		if a.RoundsConfig[i].RoundNumber == n+1 {
			return &a.RoundsConfig[i]
		}
	}
	return nil
}
