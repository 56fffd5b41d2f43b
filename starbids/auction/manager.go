package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/shopspring/decimal"

	"github.com/starbids/starbids/starbids/database/models"
	"github.com/starbids/starbids/starbids/store"
	"github.com/starbids/starbids/starbids/wallet"
)

const (
	// maxAttempts bounds the automatic retry of transient store conflicts.
	// Bid placement is latency-sensitive, so no unbounded backoff.
	maxAttempts = 3

	displayCacheSize = 1024

	dueAuctionsBatch   = 10
	expiredRoundsBatch = 10
)

// Manager runs the auction engines against a transactional store. All mutual
// exclusion is expressed through the store's transactions and conditional
// updates; there is no in-process global lock.
type Manager struct {
	store       store.Store
	ledger      wallet.Ledger
	notifier    Notifier
	broadcaster Broadcaster

	displayCache *lru.Cache

	now func() time.Time
}

func NewManager(st store.Store, notifier Notifier, broadcaster Broadcaster) *Manager {
	if st == nil {
		panic("auction store cannot be nil")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}

	cache, _ := lru.New(displayCacheSize)

	return &Manager{
		store:        st,
		notifier:     notifier,
		broadcaster:  broadcaster,
		displayCache: cache,
		now:          time.Now,
	}
}

// CreateAuctionParams carries the auction definition from the request layer.
type CreateAuctionParams struct {
	Name        string
	Photo       string
	Rounds      []models.RoundConfig
	MinBid      decimal.Decimal
	BidStep     decimal.Decimal
	AntiSniping *models.AntiSniping
	StartAt     *time.Time
}

const (
	maxRounds        = 100
	maxItemsPerRound = 1000
	maxWindowSeconds = 3600
	maxExtensionsCap = 100
)

// CreateAuction validates the definition and persists the auction. When
// start_at is in the past or now, the auction starts immediately with its
// first round active.
func (m *Manager) CreateAuction(ctx context.Context, creatorID int64, p CreateAuctionParams) (*models.Auction, error) {
	if p.Name == "" {
		return nil, errValidation(CodeInvalidConfig, "auction name required")
	}

	if err := ValidateRoundsConfig(p.Rounds); err != nil {
		return nil, errValidation(CodeInvalidConfig, "%s", err)
	}
	if len(p.Rounds) > maxRounds {
		return nil, errValidation(CodeInvalidConfig, "at most %d rounds allowed", maxRounds)
	}
	for _, r := range p.Rounds {
		if r.ItemsCount > maxItemsPerRound {
			return nil, errValidation(CodeInvalidConfig, "round %d exceeds %d items", r.RoundNumber, maxItemsPerRound)
		}
	}

	if !wallet.IsPositiveInteger(p.MinBid) {
		return nil, errValidation(CodeInvalidConfig, "min_bid must be a positive integer")
	}
	if !wallet.IsPositiveInteger(p.BidStep) {
		return nil, errValidation(CodeInvalidConfig, "bid_step must be a positive integer")
	}

	antiSniping := DefaultAntiSniping
	if p.AntiSniping != nil {
		antiSniping = *p.AntiSniping
	}
	if antiSniping.ThresholdSeconds < 0 || antiSniping.ThresholdSeconds > maxWindowSeconds {
		return nil, errValidation(CodeInvalidConfig, "threshold_seconds must be between 0 and %d", maxWindowSeconds)
	}
	if antiSniping.ExtensionSeconds < 0 || antiSniping.ExtensionSeconds > maxWindowSeconds {
		return nil, errValidation(CodeInvalidConfig, "extension_seconds must be between 0 and %d", maxWindowSeconds)
	}
	if antiSniping.MaxExtensions < 0 || antiSniping.MaxExtensions > maxExtensionsCap {
		return nil, errValidation(CodeInvalidConfig, "max_extensions must be between 0 and %d", maxExtensionsCap)
	}

	now := m.now()
	startNow := p.StartAt != nil && !p.StartAt.After(now)

	status := models.AuctionStatusDraft
	var startAt *time.Time
	currentRound := 0
	switch {
	case startNow:
		status = models.AuctionStatusActive
		startAt = &now
		currentRound = 1
	case p.StartAt != nil:
		status = models.AuctionStatusUpcoming
		startAt = p.StartAt
	}

	auction := &models.Auction{
		CreatorID:    creatorID,
		Name:         p.Name,
		Photo:        p.Photo,
		TotalItems:   TotalItems(p.Rounds),
		RoundsConfig: p.Rounds,
		MinBid:       p.MinBid,
		BidStep:      p.BidStep,
		AntiSniping:  antiSniping,
		Status:       status,
		StartAt:      startAt,
		CurrentRound: currentRound,
		HighestBid:   decimal.Zero,
	}

	err := m.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertAuction(ctx, auction); err != nil {
			return fmt.Errorf("insert auction: %w", err)
		}

		if startNow {
			first := p.Rounds[0]
			round := &models.Round{
				AuctionID:   auction.ID,
				RoundNumber: 1,
				ItemsCount:  first.ItemsCount,
				StartAt:     now,
				EndAt:       now.Add(time.Duration(first.DurationSeconds) * time.Second),
				Status:      models.RoundStatusActive,
			}
			if err := tx.InsertRound(ctx, round); err != nil {
				return fmt.Errorf("insert first round: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Auction created",
		slog.Int64("auction_id", auction.ID),
		slog.Int64("creator_id", creatorID),
		slog.String("status", string(auction.Status)),
		slog.Int("total_items", auction.TotalItems))

	return auction, nil
}

// StartAuction activates a draft/upcoming auction on behalf of its creator
// and opens round 1.
func (m *Manager) StartAuction(ctx context.Context, auctionID, callerID int64) (*models.Auction, *models.Round, error) {
	auction, err := m.store.GetAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, errValidation(CodeAuctionNotFound, "auction %d not found", auctionID)
		}
		return nil, nil, fmt.Errorf("load auction: %w", err)
	}

	if auction.CreatorID != callerID {
		return nil, nil, errValidation(CodeNotAuthorized, "only the creator can start the auction")
	}
	if auction.Status != models.AuctionStatusDraft && auction.Status != models.AuctionStatusUpcoming {
		return nil, nil, errValidation(CodeAlreadyStarted, "auction already started")
	}

	now := m.now()
	first := auction.RoundsConfig[0]

	var round *models.Round
	err = m.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		round = &models.Round{
			AuctionID:   auction.ID,
			RoundNumber: 1,
			ItemsCount:  first.ItemsCount,
			StartAt:     now,
			EndAt:       now.Add(time.Duration(first.DurationSeconds) * time.Second),
			Status:      models.RoundStatusActive,
		}
		if err := tx.InsertRound(ctx, round); err != nil {
			return fmt.Errorf("insert first round: %w", err)
		}

		matched, err := tx.MarkAuctionActive(ctx, auction.ID,
			[]models.AuctionStatus{models.AuctionStatusDraft, models.AuctionStatusUpcoming}, now)
		if err != nil {
			return fmt.Errorf("activate auction: %w", err)
		}
		if !matched {
			return fmt.Errorf("auction %d status changed concurrently: %w", auction.ID, store.ErrTxConflict)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	auction.Status = models.AuctionStatusActive
	auction.StartAt = &now
	auction.CurrentRound = 1

	slog.Info("Auction started",
		slog.Int64("auction_id", auction.ID),
		slog.Int64("round_id", round.ID),
		slog.Time("end_at", round.EndAt))

	return auction, round, nil
}

// StartDueAuctions activates upcoming auctions whose start time has passed.
// Invoked by the scheduler on every tick.
func (m *Manager) StartDueAuctions(ctx context.Context, now time.Time) {
	due, err := m.store.ListDueAuctions(ctx, now, dueAuctionsBatch)
	if err != nil {
		slog.Error("Failed to list due auctions", slog.String("error", err.Error()))
		return
	}

	for _, a := range due {
		auctionID := a.ID
		err := m.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			auction, err := tx.GetAuction(ctx, auctionID)
			if err != nil {
				return err
			}
			if auction.Status != models.AuctionStatusUpcoming {
				return nil
			}
			if auction.StartAt == nil || auction.StartAt.After(now) {
				return nil
			}

			first := auction.RoundsConfig[0]
			if _, err := tx.GetRound(ctx, auction.ID, 1); errors.Is(err, store.ErrNotFound) {
				round := &models.Round{
					AuctionID:   auction.ID,
					RoundNumber: 1,
					ItemsCount:  first.ItemsCount,
					StartAt:     now,
					EndAt:       now.Add(time.Duration(first.DurationSeconds) * time.Second),
					Status:      models.RoundStatusActive,
				}
				if err := tx.InsertRound(ctx, round); err != nil {
					return fmt.Errorf("insert first round: %w", err)
				}
			} else if err != nil {
				return err
			}

			if _, err := tx.MarkAuctionActive(ctx, auction.ID,
				[]models.AuctionStatus{models.AuctionStatusUpcoming}, now); err != nil {
				return fmt.Errorf("activate auction: %w", err)
			}
			return nil
		})
		if err != nil {
			slog.Error("Failed to start scheduled auction",
				slog.Int64("auction_id", auctionID),
				slog.String("error", err.Error()))
			continue
		}

		slog.Info("Auction started by schedule", slog.Int64("auction_id", auctionID))
	}
}

// Deposit adds funds to the user's wallet, creating it on first use.
func (m *Manager) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (*models.Wallet, error) {
	if !wallet.IsPositiveInteger(amount) {
		return nil, errValidation(CodeInvalidAmount, "deposit amount must be a positive integer")
	}

	var updated *models.Wallet
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := m.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			w, err := m.ledger.Deposit(ctx, tx, userID, amount)
			if err != nil {
				return err
			}
			updated = w
			return nil
		})
		if err == nil {
			return updated, nil
		}
		lastErr = err
		if attempt < maxAttempts && store.IsRetryable(err) {
			continue
		}
		break
	}
	return nil, fmt.Errorf("deposit: %w", lastErr)
}

// GetWallet returns the user's wallet, creating an empty one on first use.
func (m *Manager) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	return m.store.UpsertWallet(ctx, userID)
}

// WalletHistory returns the most recent ledger entries for the user.
func (m *Manager) WalletHistory(ctx context.Context, userID int64, limit int) ([]*models.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return m.store.ListLedgerEntries(ctx, userID, limit)
}

// AuctionView is an auction plus the count of gifts already distributed.
type AuctionView struct {
	Auction          *models.Auction
	DistributedItems int
}

// GetAuction returns a single auction with its distributed-gift count.
func (m *Manager) GetAuction(ctx context.Context, auctionID int64) (*AuctionView, error) {
	auction, err := m.store.GetAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errValidation(CodeAuctionNotFound, "auction %d not found", auctionID)
		}
		return nil, err
	}

	distributed, err := m.store.CountAssignedGifts(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return &AuctionView{Auction: auction, DistributedItems: distributed}, nil
}

// ListAuctions returns auctions visible in listings, newest first.
func (m *Manager) ListAuctions(ctx context.Context, statuses []models.AuctionStatus, limit int) ([]*AuctionView, error) {
	if len(statuses) == 0 {
		statuses = []models.AuctionStatus{
			models.AuctionStatusUpcoming,
			models.AuctionStatusActive,
			models.AuctionStatusCompleted,
		}
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	auctions, err := m.store.ListAuctions(ctx, statuses, limit)
	if err != nil {
		return nil, err
	}

	views := make([]*AuctionView, 0, len(auctions))
	for _, a := range auctions {
		distributed, err := m.store.CountAssignedGifts(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, &AuctionView{Auction: a, DistributedItems: distributed})
	}
	return views, nil
}

// CurrentRound returns the auction's current round.
func (m *Manager) CurrentRound(ctx context.Context, auctionID int64) (*models.Round, error) {
	auction, err := m.store.GetAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errValidation(CodeAuctionNotFound, "auction %d not found", auctionID)
		}
		return nil, err
	}
	if auction.CurrentRound == 0 {
		return nil, errValidation(CodeNoActiveRound, "auction not started")
	}

	round, err := m.store.GetRound(ctx, auction.ID, auction.CurrentRound)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errValidation(CodeNoActiveRound, "round not found")
		}
		return nil, err
	}
	return round, nil
}

// MyBid returns the user's active bid in the auction, or nil when none.
func (m *Manager) MyBid(ctx context.Context, auctionID, userID int64) (*models.Bid, error) {
	bid, err := m.store.GetActiveBidByUser(ctx, auctionID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return bid, err
}

// MyGifts returns gifts owned by the user, most recently claimed first.
func (m *Manager) MyGifts(ctx context.Context, userID int64, limit int) ([]*models.Gift, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return m.store.ListGiftsByOwner(ctx, userID, limit)
}

// GetGift returns one gift by id.
func (m *Manager) GetGift(ctx context.Context, giftID int64) (*models.Gift, error) {
	return m.store.GetGift(ctx, giftID)
}
