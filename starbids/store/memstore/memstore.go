// Package memstore is an in-memory store.Store backed by maps and a single
// mutex. It exists for tests and local development: one process, full
// transactional semantics via snapshot-and-restore, the same unique
// constraints the Postgres schema enforces.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/starbids/starbids/starbids/database/models"
	"github.com/starbids/starbids/starbids/store"
)

type tables struct {
	auctions map[int64]*models.Auction
	rounds   map[int64]*models.Round
	bids     map[int64]*models.Bid
	wallets  map[int64]*models.Wallet // keyed by user_id
	ledger   []*models.LedgerEntry
	gifts    map[int64]*models.Gift
	users    map[int64]*models.User // keyed by user_id
	seq      int64
}

func newTables() *tables {
	return &tables{
		auctions: make(map[int64]*models.Auction),
		rounds:   make(map[int64]*models.Round),
		bids:     make(map[int64]*models.Bid),
		wallets:  make(map[int64]*models.Wallet),
		gifts:    make(map[int64]*models.Gift),
		users:    make(map[int64]*models.User),
	}
}

// clone deep-copies every record. Nested slices (rounds config) are shared:
// nothing mutates them after insert.
func (t *tables) clone() *tables {
	c := newTables()
	c.seq = t.seq
	for id, a := range t.auctions {
		v := *a
		c.auctions[id] = &v
	}
	for id, r := range t.rounds {
		v := *r
		c.rounds[id] = &v
	}
	for id, b := range t.bids {
		v := *b
		c.bids[id] = &v
	}
	for id, w := range t.wallets {
		v := *w
		c.wallets[id] = &v
	}
	c.ledger = append([]*models.LedgerEntry(nil), t.ledger...)
	for id, g := range t.gifts {
		v := *g
		c.gifts[id] = &v
	}
	for id, u := range t.users {
		v := *u
		c.users[id] = &v
	}
	return c
}

// MemStore satisfies store.Store. Zero value is not usable; call New.
type MemStore struct {
	mu   sync.Mutex
	data *tables
}

func New() *MemStore {
	return &MemStore{data: newTables()}
}

// RunInTx serializes all transactions behind one mutex. On error the whole
// table set is restored from a snapshot taken at entry, which gives exact
// rollback semantics without any versioning machinery.
func (s *MemStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// memTx runs against the store's live tables; the store mutex is already
// held for the duration of the transaction.
type memTx struct {
	s *MemStore
}

func (s *MemStore) nextID() int64 {
	s.data.seq++
	return s.data.seq
}

// --- auctions ---

func (s *MemStore) insertAuction(a *models.Auction) error {
	a.ID = s.nextID()
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	v := *a
	s.data.auctions[a.ID] = &v
	return nil
}

func (s *MemStore) getAuction(id int64) (*models.Auction, error) {
	a, ok := s.data.auctions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	v := *a
	return &v, nil
}

func (s *MemStore) listAuctions(statuses []models.AuctionStatus, limit int) ([]*models.Auction, error) {
	var out []*models.Auction
	for _, a := range s.data.auctions {
		if len(statuses) > 0 && !hasStatus(statuses, a.Status) {
			continue
		}
		v := *a
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return clip(out, limit), nil
}

func (s *MemStore) listDueAuctions(now time.Time, limit int) ([]*models.Auction, error) {
	var out []*models.Auction
	for _, a := range s.data.auctions {
		if a.Status != models.AuctionStatusUpcoming || a.StartAt == nil || a.StartAt.After(now) {
			continue
		}
		v := *a
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return clip(out, limit), nil
}

func (s *MemStore) markAuctionActive(id int64, from []models.AuctionStatus, startAt time.Time) (bool, error) {
	a, ok := s.data.auctions[id]
	if !ok || !hasStatus(from, a.Status) {
		return false, nil
	}
	a.Status = models.AuctionStatusActive
	a.CurrentRound = 1
	a.StartAt = &startAt
	a.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) markAuctionCompleted(id int64) error {
	a, ok := s.data.auctions[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Status = models.AuctionStatusCompleted
	a.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) setCurrentRound(id int64, round int) error {
	a, ok := s.data.auctions[id]
	if !ok {
		return store.ErrNotFound
	}
	a.CurrentRound = round
	a.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) setHighestBid(id int64, amount decimal.Decimal) error {
	a, ok := s.data.auctions[id]
	if !ok {
		return store.ErrNotFound
	}
	a.HighestBid = amount
	a.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) incUniqueBidders(id int64) error {
	a, ok := s.data.auctions[id]
	if !ok {
		return store.ErrNotFound
	}
	a.UniqueBidders++
	a.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) claimGiftNumber(id int64) (int, bool, error) {
	a, ok := s.data.auctions[id]
	if !ok {
		return 0, false, store.ErrNotFound
	}
	if a.IssuedGifts >= a.TotalItems {
		return 0, false, nil
	}
	a.IssuedGifts++
	a.UpdatedAt = time.Now()
	return a.IssuedGifts, true, nil
}

// --- rounds ---

func (s *MemStore) insertRound(r *models.Round) error {
	for _, existing := range s.data.rounds {
		if existing.AuctionID == r.AuctionID && existing.RoundNumber == r.RoundNumber {
			return store.ErrDuplicate
		}
	}
	r.ID = s.nextID()
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	v := *r
	s.data.rounds[r.ID] = &v
	return nil
}

func (s *MemStore) getRoundByID(id int64) (*models.Round, error) {
	r, ok := s.data.rounds[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	v := *r
	return &v, nil
}

func (s *MemStore) getRound(auctionID int64, number int) (*models.Round, error) {
	for _, r := range s.data.rounds {
		if r.AuctionID == auctionID && r.RoundNumber == number {
			v := *r
			return &v, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemStore) getActiveRound(auctionID int64, number int) (*models.Round, error) {
	for _, r := range s.data.rounds {
		if r.AuctionID == auctionID && r.RoundNumber == number && r.Status == models.RoundStatusActive {
			v := *r
			return &v, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemStore) markRoundFinalizing(id int64, now time.Time) (bool, error) {
	r, ok := s.data.rounds[id]
	if !ok || r.Status != models.RoundStatusActive || r.EndAt.After(now) {
		return false, nil
	}
	r.Status = models.RoundStatusFinalizing
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) extendRound(id int64, prevEndAt, newEndAt time.Time, maxExtensions int) (bool, error) {
	r, ok := s.data.rounds[id]
	if !ok || r.Status != models.RoundStatusActive || !r.EndAt.Equal(prevEndAt) {
		return false, nil
	}
	if maxExtensions > 0 && r.ExtensionsCount >= maxExtensions {
		return false, nil
	}
	r.EndAt = newEndAt
	r.ExtensionsCount++
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) completeRound(id int64, winnersCount, transferredCount int) error {
	r, ok := s.data.rounds[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = models.RoundStatusCompleted
	r.WinnersCount = winnersCount
	r.TransferredCount = transferredCount
	r.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) listExpiredRounds(now time.Time, limit int) ([]*models.Round, error) {
	var out []*models.Round
	for _, r := range s.data.rounds {
		expired := r.Status == models.RoundStatusActive && !r.EndAt.After(now)
		stuck := r.Status == models.RoundStatusFinalizing
		if !expired && !stuck {
			continue
		}
		v := *r
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndAt.Before(out[j].EndAt) })
	return clip(out, limit), nil
}

// --- bids ---

func (s *MemStore) insertBid(b *models.Bid) error {
	for _, existing := range s.data.bids {
		if existing.RoundID == b.RoundID && existing.UserID == b.UserID {
			return store.ErrDuplicate
		}
	}
	b.ID = s.nextID()
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	v := *b
	s.data.bids[b.ID] = &v
	return nil
}

func (s *MemStore) getBid(id int64) (*models.Bid, error) {
	b, ok := s.data.bids[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	v := *b
	return &v, nil
}

func (s *MemStore) getActiveBidByUser(auctionID, userID int64) (*models.Bid, error) {
	for _, b := range s.data.bids {
		if b.AuctionID == auctionID && b.UserID == userID && b.Status == models.BidStatusActive {
			v := *b
			return &v, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemStore) hasBid(auctionID, userID int64) (bool, error) {
	for _, b := range s.data.bids {
		if b.AuctionID == auctionID && b.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) listBidsByRound(roundID int64) ([]*models.Bid, error) {
	var out []*models.Bid
	for _, b := range s.data.bids {
		if b.RoundID == roundID {
			v := *b
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) listActiveBidsByRound(roundID int64) ([]*models.Bid, error) {
	var out []*models.Bid
	for _, b := range s.data.bids {
		if b.RoundID == roundID && b.Status == models.BidStatusActive {
			v := *b
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) listActiveBidsByUser(userID int64) ([]*models.Bid, error) {
	var out []*models.Bid
	for _, b := range s.data.bids {
		if b.UserID == userID && b.Status == models.BidStatusActive {
			v := *b
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) updateBidAmount(id int64, amount decimal.Decimal, reachedAt time.Time, roundID int64) (bool, error) {
	b, ok := s.data.bids[id]
	if !ok || b.Status != models.BidStatusActive {
		return false, nil
	}
	b.Amount = amount
	b.AmountReachedAt = reachedAt
	b.RoundID = roundID
	b.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) setBidRank(id int64, rank int) error {
	b, ok := s.data.bids[id]
	if !ok {
		return store.ErrNotFound
	}
	b.Rank = rank
	b.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) markBidWon(id int64, awardNumber int, at time.Time) (bool, error) {
	b, ok := s.data.bids[id]
	if !ok || b.Status != models.BidStatusActive {
		return false, nil
	}
	b.Status = models.BidStatusWon
	b.AwardNumber = awardNumber
	b.WonAt = &at
	b.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) markBidTransferred(id, toRoundID int64, at time.Time) (bool, error) {
	b, ok := s.data.bids[id]
	if !ok || b.Status != models.BidStatusActive {
		return false, nil
	}
	b.Status = models.BidStatusTransferred
	b.TransferredToRoundID = toRoundID
	b.TransferredAt = &at
	b.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) markBidRefunded(id int64, at time.Time) (bool, error) {
	b, ok := s.data.bids[id]
	if !ok || b.Status != models.BidStatusActive {
		return false, nil
	}
	b.Status = models.BidStatusRefunded
	b.RefundedAt = &at
	b.UpdatedAt = time.Now()
	return true, nil
}

// --- wallets and ledger ---

func (s *MemStore) upsertWallet(userID int64) (*models.Wallet, error) {
	if w, ok := s.data.wallets[userID]; ok {
		v := *w
		return &v, nil
	}
	now := time.Now()
	w := &models.Wallet{
		ID:        s.nextID(),
		UserID:    userID,
		Balance:   decimal.Zero,
		Hold:      decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.data.wallets[userID] = w
	v := *w
	return &v, nil
}

func (s *MemStore) getWallet(userID int64) (*models.Wallet, error) {
	w, ok := s.data.wallets[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	v := *w
	return &v, nil
}

func (s *MemStore) setWalletFunds(userID int64, balance, hold decimal.Decimal) (*models.Wallet, error) {
	w, ok := s.data.wallets[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	w.Balance = balance
	w.Hold = hold
	w.UpdatedAt = time.Now()
	v := *w
	return &v, nil
}

func (s *MemStore) insertLedgerEntry(e *models.LedgerEntry) error {
	e.ID = s.nextID()
	e.CreatedAt = time.Now()
	v := *e
	s.data.ledger = append(s.data.ledger, &v)
	return nil
}

func (s *MemStore) listLedgerEntries(userID int64, limit int) ([]*models.LedgerEntry, error) {
	var out []*models.LedgerEntry
	for i := len(s.data.ledger) - 1; i >= 0; i-- {
		e := s.data.ledger[i]
		if e.UserID != userID {
			continue
		}
		v := *e
		out = append(out, &v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// --- gifts ---

func (s *MemStore) insertGift(g *models.Gift) error {
	for _, existing := range s.data.gifts {
		if existing.AuctionID == g.AuctionID && existing.GiftNumber == g.GiftNumber {
			return store.ErrDuplicate
		}
	}
	g.ID = s.nextID()
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now
	v := *g
	s.data.gifts[g.ID] = &v
	return nil
}

func (s *MemStore) getGift(id int64) (*models.Gift, error) {
	g, ok := s.data.gifts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	v := *g
	return &v, nil
}

func (s *MemStore) getGiftByBid(auctionID, bidID int64) (*models.Gift, error) {
	for _, g := range s.data.gifts {
		if g.AuctionID == auctionID && g.BidID == bidID && bidID != 0 {
			v := *g
			return &v, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemStore) claimUnassignedGift(auctionID, ownerID, roundID, bidID int64, at time.Time) (*models.Gift, error) {
	var free *models.Gift
	for _, g := range s.data.gifts {
		if g.AuctionID != auctionID || g.OwnerID != 0 {
			continue
		}
		if free == nil || g.GiftNumber < free.GiftNumber {
			free = g
		}
	}
	if free == nil {
		return nil, store.ErrNotFound
	}
	free.OwnerID = ownerID
	free.RoundID = roundID
	free.BidID = bidID
	free.ClaimedAt = &at
	free.UpdatedAt = time.Now()
	v := *free
	return &v, nil
}

func (s *MemStore) listGiftsByOwner(ownerID int64, limit int) ([]*models.Gift, error) {
	var out []*models.Gift
	for _, g := range s.data.gifts {
		if g.OwnerID == ownerID {
			v := *g
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return clip(out, limit), nil
}

func (s *MemStore) countAssignedGifts(auctionID int64) (int, error) {
	n := 0
	for _, g := range s.data.gifts {
		if g.AuctionID == auctionID && g.OwnerID != 0 {
			n++
		}
	}
	return n, nil
}

// --- users ---

func (s *MemStore) upsertUser(u *models.User) error {
	now := time.Now()
	if existing, ok := s.data.users[u.UserID]; ok {
		existing.PublicName = u.PublicName
		existing.PublicPhoto = u.PublicPhoto
		existing.IsAnonymous = u.IsAnonymous
		existing.AnonName = u.AnonName
		existing.AnonPhoto = u.AnonPhoto
		existing.UpdatedAt = now
		u.ID = existing.ID
		return nil
	}
	u.ID = s.nextID()
	u.CreatedAt = now
	u.UpdatedAt = now
	v := *u
	s.data.users[u.UserID] = &v
	return nil
}

func (s *MemStore) getUser(userID int64) (*models.User, error) {
	u, ok := s.data.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	v := *u
	return &v, nil
}

// --- helpers ---

func hasStatus(set []models.AuctionStatus, st models.AuctionStatus) bool {
	for _, s := range set {
		if s == st {
			return true
		}
	}
	return false
}

func clip[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}
