package auction

import "fmt"

// ValidationError reports bad input or a request against an auction/round in
// the wrong state. Reported immediately, never retried, no state mutated.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Code, e.Message)
}

// ConflictError reports a business conflict the caller can act on, e.g.
// insufficient funds or a bid increase below the step. Distinct from
// validation so callers can render "increase your bid" vs "fix your input".
// Never retried.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict (%s): %s", e.Code, e.Message)
}

func errValidation(code, format string, args ...any) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func errConflict(code, format string, args ...any) error {
	return &ConflictError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error codes crossing the service boundary.
const (
	CodeAuctionNotFound   = "auction_not_found"
	CodeAuctionNotActive  = "auction_not_active"
	CodeNoActiveRound     = "no_active_round"
	CodeRoundEnded        = "round_ended"
	CodeInvalidAmount     = "invalid_amount"
	CodeInvalidConfig     = "invalid_config"
	CodeNotAuthorized     = "not_authorized"
	CodeAlreadyStarted    = "already_started"
	CodeInsufficientFunds = "insufficient_funds"
	CodeBidTooLow         = "bid_too_low"
)
