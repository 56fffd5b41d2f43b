// Package store defines the transactional storage contract the auction
// engines run against. The contract is store-agnostic: any backend offering
// atomic multi-record transactions plus conditional updates that report
// whether they matched satisfies it.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/starbids/starbids/starbids/database/models"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when an insert hits a unique constraint,
	// e.g. two concurrent first-time bids for the same round and user.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrTxConflict is returned when a transaction loses a write conflict
	// and should be retried by the caller.
	ErrTxConflict = errors.New("store: transaction conflict")
)

// IsRetryable reports whether the error is a transient store conflict that a
// bounded retry loop may resolve.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDuplicate) || errors.Is(err, ErrTxConflict)
}

// Tx is the set of record operations available inside a transaction. The
// same operations are usable on a Store directly, in which case each one is
// its own atomic unit.
//
// Conditional updates return a matched flag instead of an error when the
// optimistic predicate did not hold; callers re-read and decide.
type Tx interface {
	// Auctions.
	InsertAuction(ctx context.Context, a *models.Auction) error
	GetAuction(ctx context.Context, id int64) (*models.Auction, error)
	ListAuctions(ctx context.Context, statuses []models.AuctionStatus, limit int) ([]*models.Auction, error)
	ListDueAuctions(ctx context.Context, now time.Time, limit int) ([]*models.Auction, error)
	// MarkAuctionActive transitions the auction to active with
	// current_round = 1, conditional on its status being one of from.
	MarkAuctionActive(ctx context.Context, id int64, from []models.AuctionStatus, startAt time.Time) (bool, error)
	MarkAuctionCompleted(ctx context.Context, id int64) error
	SetCurrentRound(ctx context.Context, id int64, round int) error
	SetHighestBid(ctx context.Context, id int64, amount decimal.Decimal) error
	IncUniqueBidders(ctx context.Context, id int64) error
	// ClaimGiftNumber atomically increments issued_gifts while it is below
	// total_items and returns the claimed number. matched is false when the
	// auction has no slots left.
	ClaimGiftNumber(ctx context.Context, id int64) (number int, matched bool, err error)

	// Rounds.
	InsertRound(ctx context.Context, r *models.Round) error
	GetRoundByID(ctx context.Context, id int64) (*models.Round, error)
	GetRound(ctx context.Context, auctionID int64, number int) (*models.Round, error)
	GetActiveRound(ctx context.Context, auctionID int64, number int) (*models.Round, error)
	// MarkRoundFinalizing claims the round for finalization, conditional on
	// (status = active, end_at <= now).
	MarkRoundFinalizing(ctx context.Context, id int64, now time.Time) (bool, error)
	// ExtendRound pushes end_at forward, conditional on end_at still being
	// prevEndAt and, when maxExtensions > 0, extensions_count being below it.
	ExtendRound(ctx context.Context, id int64, prevEndAt, newEndAt time.Time, maxExtensions int) (bool, error)
	CompleteRound(ctx context.Context, id int64, winnersCount, transferredCount int) error
	// ListExpiredRounds returns rounds due for finalization: active past
	// end_at, or stuck in finalizing from a previous crash.
	ListExpiredRounds(ctx context.Context, now time.Time, limit int) ([]*models.Round, error)

	// Bids.
	InsertBid(ctx context.Context, b *models.Bid) error
	GetBid(ctx context.Context, id int64) (*models.Bid, error)
	GetActiveBidByUser(ctx context.Context, auctionID, userID int64) (*models.Bid, error)
	HasBid(ctx context.Context, auctionID, userID int64) (bool, error)
	ListBidsByRound(ctx context.Context, roundID int64) ([]*models.Bid, error)
	ListActiveBidsByRound(ctx context.Context, roundID int64) ([]*models.Bid, error)
	ListActiveBidsByUser(ctx context.Context, userID int64) ([]*models.Bid, error)
	// UpdateBidAmount mutates the bid in place, conditional on it still
	// being active. The bid follows the caller into roundID.
	UpdateBidAmount(ctx context.Context, id int64, amount decimal.Decimal, reachedAt time.Time, roundID int64) (bool, error)
	SetBidRank(ctx context.Context, id int64, rank int) error
	MarkBidWon(ctx context.Context, id int64, awardNumber int, at time.Time) (bool, error)
	MarkBidTransferred(ctx context.Context, id, toRoundID int64, at time.Time) (bool, error)
	MarkBidRefunded(ctx context.Context, id int64, at time.Time) (bool, error)

	// Wallets and ledger.
	UpsertWallet(ctx context.Context, userID int64) (*models.Wallet, error)
	GetWallet(ctx context.Context, userID int64) (*models.Wallet, error)
	SetWalletFunds(ctx context.Context, userID int64, balance, hold decimal.Decimal) (*models.Wallet, error)
	InsertLedgerEntry(ctx context.Context, e *models.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, userID int64, limit int) ([]*models.LedgerEntry, error)

	// Gifts.
	InsertGift(ctx context.Context, g *models.Gift) error
	GetGift(ctx context.Context, id int64) (*models.Gift, error)
	GetGiftByBid(ctx context.Context, auctionID, bidID int64) (*models.Gift, error)
	// ClaimUnassignedGift binds the lowest-numbered free gift of the auction
	// to the given bid. ErrNotFound when every minted gift is taken.
	ClaimUnassignedGift(ctx context.Context, auctionID, ownerID, roundID, bidID int64, at time.Time) (*models.Gift, error)
	ListGiftsByOwner(ctx context.Context, ownerID int64, limit int) ([]*models.Gift, error)
	CountAssignedGifts(ctx context.Context, auctionID int64) (int, error)

	// Users.
	UpsertUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

// Store is a Tx whose operations auto-commit, plus the ability to group
// operations into one atomic transaction.
type Store interface {
	Tx

	// RunInTx executes fn inside a single transaction. A non-nil error from
	// fn rolls everything back and is returned unchanged; commit failures
	// surface as ErrTxConflict when retryable.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
