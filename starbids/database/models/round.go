package models

import (
	"time"

	"github.com/uptrace/bun"
)

type RoundStatus string

const (
	RoundStatusPending RoundStatus = "pending"
	RoundStatusActive  RoundStatus = "active"
	// RoundStatusFinalizing is a transient lock state claimed by the
	// finalization engine. It must always resolve to completed, possibly
	// after a crash-recovery retry.
	RoundStatusFinalizing RoundStatus = "finalizing"
	RoundStatusCompleted  RoundStatus = "completed"
)

type Round struct {
	bun.BaseModel `bun:"table:rounds,alias:r"`

	ID          int64 `bun:"id,pk,autoincrement"`
	AuctionID   int64 `bun:"auction_id,notnull"`
	RoundNumber int   `bun:"round_number,notnull"`
	ItemsCount  int   `bun:"items_count,notnull"`

	StartAt time.Time `bun:"start_at,notnull"`
	// EndAt only ever increases (anti-sniping extension).
	EndAt           time.Time `bun:"end_at,notnull"`
	ExtensionsCount int       `bun:"extensions_count,notnull,default:0"`

	Status RoundStatus `bun:"status,notnull,default:'pending'"`

	WinnersCount     int `bun:"winners_count,notnull,default:0"`
	TransferredCount int `bun:"transferred_count,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
