// Package wallet implements the per-user money model: a spendable balance
// and a hold frozen against active bids, moved between each other by
// hold/release/capture/deposit operations that each leave exactly one
// append-only ledger entry. Amounts are exact decimals; floating point never
// touches them.
package wallet

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds means the balance cannot cover a requested hold.
	// A business conflict, never retried.
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
	// ErrInsufficientHold means a capture or release found less hold than
	// the amount it was asked to move. An invariant violation: the hold must
	// equal the sum of the user's active bids.
	ErrInsufficientHold = errors.New("wallet: insufficient hold")
)

// State is a wallet snapshot used by the pure transition functions.
type State struct {
	Balance decimal.Decimal
	Hold    decimal.Decimal
}

// Total returns balance + hold.
func (s State) Total() decimal.Decimal {
	return s.Balance.Add(s.Hold)
}

// CanHold reports whether the balance covers amount.
func (s State) CanHold(amount decimal.Decimal) bool {
	return s.Balance.GreaterThanOrEqual(amount)
}

// ApplyHold moves amount from balance to hold. Balance is clamped at zero
// defensively; callers must check CanHold first.
func (s State) ApplyHold(amount decimal.Decimal) State {
	balance := s.Balance.Sub(amount)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return State{Balance: balance, Hold: s.Hold.Add(amount)}
}

// ApplyRelease moves amount from hold back to balance. Hold is clamped at
// zero defensively; callers must guarantee hold >= amount via the
// active-bid invariant.
func (s State) ApplyRelease(amount decimal.Decimal) State {
	hold := s.Hold.Sub(amount)
	if hold.IsNegative() {
		hold = decimal.Zero
	}
	return State{Balance: s.Balance.Add(amount), Hold: hold}
}

// ApplyCapture removes amount from hold only; the balance already reflects
// the spend.
func (s State) ApplyCapture(amount decimal.Decimal) State {
	hold := s.Hold.Sub(amount)
	if hold.IsNegative() {
		hold = decimal.Zero
	}
	return State{Balance: s.Balance, Hold: hold}
}

// ApplyDeposit adds amount to balance.
func (s State) ApplyDeposit(amount decimal.Decimal) State {
	return State{Balance: s.Balance.Add(amount), Hold: s.Hold}
}

// IsPositiveInteger reports whether d is a whole number greater than zero.
// All wallet and bid amounts must satisfy this.
func IsPositiveInteger(d decimal.Decimal) bool {
	return d.IsInteger() && d.IsPositive()
}
