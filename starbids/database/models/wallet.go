package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Wallet holds a user's prepaid funds. Balance is spendable, Hold is frozen
// against active bids. Invariant: Hold equals the sum of the user's
// currently-active bid amounts across all rounds.
type Wallet struct {
	bun.BaseModel `bun:"table:wallets,alias:w"`

	ID     int64 `bun:"id,pk,autoincrement"`
	UserID int64 `bun:"user_id,notnull,unique"`

	Balance decimal.Decimal `bun:"balance,notnull,type:numeric,default:0"`
	Hold    decimal.Decimal `bun:"hold,notnull,type:numeric,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
