package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type LedgerType string

const (
	LedgerTypeDeposit LedgerType = "deposit"
	LedgerTypeHold    LedgerType = "hold"
	LedgerTypeRelease LedgerType = "release"
	LedgerTypeCapture LedgerType = "capture"
)

type LedgerRefType string

const (
	LedgerRefBid    LedgerRefType = "bid"
	LedgerRefGift   LedgerRefType = "gift"
	LedgerRefManual LedgerRefType = "manual"
)

// LedgerEntry is append-only: one row per money movement, never mutated or
// deleted. BalanceAfter/HoldAfter are the wallet values after the movement
// and are the audit trail for reconciling wallet state.
type LedgerEntry struct {
	bun.BaseModel `bun:"table:ledger_entries,alias:le"`

	ID     int64 `bun:"id,pk,autoincrement"`
	UserID int64 `bun:"user_id,notnull"`

	Type   LedgerType      `bun:"type,notnull"`
	Amount decimal.Decimal `bun:"amount,notnull,type:numeric"`

	BalanceAfter decimal.Decimal `bun:"balance_after,notnull,type:numeric"`
	HoldAfter    decimal.Decimal `bun:"hold_after,notnull,type:numeric"`

	RefType LedgerRefType `bun:"ref_type,notnull,default:'manual'"`
	RefID   int64         `bun:"ref_id,nullzero"`
	Note    string        `bun:"note"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
