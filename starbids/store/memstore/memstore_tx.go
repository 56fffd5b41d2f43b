package memstore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/starbids/starbids/starbids/database/models"
	"github.com/starbids/starbids/starbids/store"
)

var (
	_ store.Store = (*MemStore)(nil)
	_ store.Tx    = (*memTx)(nil)
)

// Auto-commit surface: each call takes the store mutex on its own.

func (s *MemStore) InsertAuction(_ context.Context, a *models.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertAuction(a)
}

func (s *MemStore) GetAuction(_ context.Context, id int64) (*models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAuction(id)
}

func (s *MemStore) ListAuctions(_ context.Context, statuses []models.AuctionStatus, limit int) ([]*models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listAuctions(statuses, limit)
}

func (s *MemStore) ListDueAuctions(_ context.Context, now time.Time, limit int) ([]*models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listDueAuctions(now, limit)
}

func (s *MemStore) MarkAuctionActive(_ context.Context, id int64, from []models.AuctionStatus, startAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markAuctionActive(id, from, startAt)
}

func (s *MemStore) MarkAuctionCompleted(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markAuctionCompleted(id)
}

func (s *MemStore) SetCurrentRound(_ context.Context, id int64, round int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCurrentRound(id, round)
}

func (s *MemStore) SetHighestBid(_ context.Context, id int64, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setHighestBid(id, amount)
}

func (s *MemStore) IncUniqueBidders(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incUniqueBidders(id)
}

func (s *MemStore) ClaimGiftNumber(_ context.Context, id int64) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimGiftNumber(id)
}

func (s *MemStore) InsertRound(_ context.Context, r *models.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertRound(r)
}

func (s *MemStore) GetRoundByID(_ context.Context, id int64) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getRoundByID(id)
}

func (s *MemStore) GetRound(_ context.Context, auctionID int64, number int) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getRound(auctionID, number)
}

func (s *MemStore) GetActiveRound(_ context.Context, auctionID int64, number int) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getActiveRound(auctionID, number)
}

func (s *MemStore) MarkRoundFinalizing(_ context.Context, id int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markRoundFinalizing(id, now)
}

func (s *MemStore) ExtendRound(_ context.Context, id int64, prevEndAt, newEndAt time.Time, maxExtensions int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extendRound(id, prevEndAt, newEndAt, maxExtensions)
}

func (s *MemStore) CompleteRound(_ context.Context, id int64, winnersCount, transferredCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeRound(id, winnersCount, transferredCount)
}

func (s *MemStore) ListExpiredRounds(_ context.Context, now time.Time, limit int) ([]*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listExpiredRounds(now, limit)
}

func (s *MemStore) InsertBid(_ context.Context, b *models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertBid(b)
}

func (s *MemStore) GetBid(_ context.Context, id int64) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getBid(id)
}

func (s *MemStore) GetActiveBidByUser(_ context.Context, auctionID, userID int64) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getActiveBidByUser(auctionID, userID)
}

func (s *MemStore) HasBid(_ context.Context, auctionID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasBid(auctionID, userID)
}

func (s *MemStore) ListBidsByRound(_ context.Context, roundID int64) ([]*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listBidsByRound(roundID)
}

func (s *MemStore) ListActiveBidsByRound(_ context.Context, roundID int64) ([]*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listActiveBidsByRound(roundID)
}

func (s *MemStore) ListActiveBidsByUser(_ context.Context, userID int64) ([]*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listActiveBidsByUser(userID)
}

func (s *MemStore) UpdateBidAmount(_ context.Context, id int64, amount decimal.Decimal, reachedAt time.Time, roundID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateBidAmount(id, amount, reachedAt, roundID)
}

func (s *MemStore) SetBidRank(_ context.Context, id int64, rank int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setBidRank(id, rank)
}

func (s *MemStore) MarkBidWon(_ context.Context, id int64, awardNumber int, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markBidWon(id, awardNumber, at)
}

func (s *MemStore) MarkBidTransferred(_ context.Context, id, toRoundID int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markBidTransferred(id, toRoundID, at)
}

func (s *MemStore) MarkBidRefunded(_ context.Context, id int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markBidRefunded(id, at)
}

func (s *MemStore) UpsertWallet(_ context.Context, userID int64) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertWallet(userID)
}

func (s *MemStore) GetWallet(_ context.Context, userID int64) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getWallet(userID)
}

func (s *MemStore) SetWalletFunds(_ context.Context, userID int64, balance, hold decimal.Decimal) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setWalletFunds(userID, balance, hold)
}

func (s *MemStore) InsertLedgerEntry(_ context.Context, e *models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLedgerEntry(e)
}

func (s *MemStore) ListLedgerEntries(_ context.Context, userID int64, limit int) ([]*models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLedgerEntries(userID, limit)
}

func (s *MemStore) InsertGift(_ context.Context, g *models.Gift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertGift(g)
}

func (s *MemStore) GetGift(_ context.Context, id int64) (*models.Gift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getGift(id)
}

func (s *MemStore) GetGiftByBid(_ context.Context, auctionID, bidID int64) (*models.Gift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getGiftByBid(auctionID, bidID)
}

func (s *MemStore) ClaimUnassignedGift(_ context.Context, auctionID, ownerID, roundID, bidID int64, at time.Time) (*models.Gift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimUnassignedGift(auctionID, ownerID, roundID, bidID, at)
}

func (s *MemStore) ListGiftsByOwner(_ context.Context, ownerID int64, limit int) ([]*models.Gift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listGiftsByOwner(ownerID, limit)
}

func (s *MemStore) CountAssignedGifts(_ context.Context, auctionID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countAssignedGifts(auctionID)
}

func (s *MemStore) UpsertUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertUser(u)
}

func (s *MemStore) GetUser(_ context.Context, userID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getUser(userID)
}

// Transactional surface: RunInTx already holds the mutex.

func (t *memTx) InsertAuction(_ context.Context, a *models.Auction) error { return t.s.insertAuction(a) }
func (t *memTx) GetAuction(_ context.Context, id int64) (*models.Auction, error) {
	return t.s.getAuction(id)
}
func (t *memTx) ListAuctions(_ context.Context, statuses []models.AuctionStatus, limit int) ([]*models.Auction, error) {
	return t.s.listAuctions(statuses, limit)
}
func (t *memTx) ListDueAuctions(_ context.Context, now time.Time, limit int) ([]*models.Auction, error) {
	return t.s.listDueAuctions(now, limit)
}
func (t *memTx) MarkAuctionActive(_ context.Context, id int64, from []models.AuctionStatus, startAt time.Time) (bool, error) {
	return t.s.markAuctionActive(id, from, startAt)
}
func (t *memTx) MarkAuctionCompleted(_ context.Context, id int64) error {
	return t.s.markAuctionCompleted(id)
}
func (t *memTx) SetCurrentRound(_ context.Context, id int64, round int) error {
	return t.s.setCurrentRound(id, round)
}
func (t *memTx) SetHighestBid(_ context.Context, id int64, amount decimal.Decimal) error {
	return t.s.setHighestBid(id, amount)
}
func (t *memTx) IncUniqueBidders(_ context.Context, id int64) error {
	return t.s.incUniqueBidders(id)
}
func (t *memTx) ClaimGiftNumber(_ context.Context, id int64) (int, bool, error) {
	return t.s.claimGiftNumber(id)
}

func (t *memTx) InsertRound(_ context.Context, r *models.Round) error { return t.s.insertRound(r) }
func (t *memTx) GetRoundByID(_ context.Context, id int64) (*models.Round, error) {
	return t.s.getRoundByID(id)
}
func (t *memTx) GetRound(_ context.Context, auctionID int64, number int) (*models.Round, error) {
	return t.s.getRound(auctionID, number)
}
func (t *memTx) GetActiveRound(_ context.Context, auctionID int64, number int) (*models.Round, error) {
	return t.s.getActiveRound(auctionID, number)
}
func (t *memTx) MarkRoundFinalizing(_ context.Context, id int64, now time.Time) (bool, error) {
	return t.s.markRoundFinalizing(id, now)
}
func (t *memTx) ExtendRound(_ context.Context, id int64, prevEndAt, newEndAt time.Time, maxExtensions int) (bool, error) {
	return t.s.extendRound(id, prevEndAt, newEndAt, maxExtensions)
}
func (t *memTx) CompleteRound(_ context.Context, id int64, winnersCount, transferredCount int) error {
	return t.s.completeRound(id, winnersCount, transferredCount)
}
func (t *memTx) ListExpiredRounds(_ context.Context, now time.Time, limit int) ([]*models.Round, error) {
	return t.s.listExpiredRounds(now, limit)
}

func (t *memTx) InsertBid(_ context.Context, b *models.Bid) error { return t.s.insertBid(b) }
func (t *memTx) GetBid(_ context.Context, id int64) (*models.Bid, error) {
	return t.s.getBid(id)
}
func (t *memTx) GetActiveBidByUser(_ context.Context, auctionID, userID int64) (*models.Bid, error) {
	return t.s.getActiveBidByUser(auctionID, userID)
}
func (t *memTx) HasBid(_ context.Context, auctionID, userID int64) (bool, error) {
	return t.s.hasBid(auctionID, userID)
}
func (t *memTx) ListBidsByRound(_ context.Context, roundID int64) ([]*models.Bid, error) {
	return t.s.listBidsByRound(roundID)
}
func (t *memTx) ListActiveBidsByRound(_ context.Context, roundID int64) ([]*models.Bid, error) {
	return t.s.listActiveBidsByRound(roundID)
}
func (t *memTx) ListActiveBidsByUser(_ context.Context, userID int64) ([]*models.Bid, error) {
	return t.s.listActiveBidsByUser(userID)
}
func (t *memTx) UpdateBidAmount(_ context.Context, id int64, amount decimal.Decimal, reachedAt time.Time, roundID int64) (bool, error) {
	return t.s.updateBidAmount(id, amount, reachedAt, roundID)
}
func (t *memTx) SetBidRank(_ context.Context, id int64, rank int) error {
	return t.s.setBidRank(id, rank)
}
func (t *memTx) MarkBidWon(_ context.Context, id int64, awardNumber int, at time.Time) (bool, error) {
	return t.s.markBidWon(id, awardNumber, at)
}
func (t *memTx) MarkBidTransferred(_ context.Context, id, toRoundID int64, at time.Time) (bool, error) {
	return t.s.markBidTransferred(id, toRoundID, at)
}
func (t *memTx) MarkBidRefunded(_ context.Context, id int64, at time.Time) (bool, error) {
	return t.s.markBidRefunded(id, at)
}

func (t *memTx) UpsertWallet(_ context.Context, userID int64) (*models.Wallet, error) {
	return t.s.upsertWallet(userID)
}
func (t *memTx) GetWallet(_ context.Context, userID int64) (*models.Wallet, error) {
	return t.s.getWallet(userID)
}
func (t *memTx) SetWalletFunds(_ context.Context, userID int64, balance, hold decimal.Decimal) (*models.Wallet, error) {
	return t.s.setWalletFunds(userID, balance, hold)
}
func (t *memTx) InsertLedgerEntry(_ context.Context, e *models.LedgerEntry) error {
	return t.s.insertLedgerEntry(e)
}
func (t *memTx) ListLedgerEntries(_ context.Context, userID int64, limit int) ([]*models.LedgerEntry, error) {
	return t.s.listLedgerEntries(userID, limit)
}

func (t *memTx) InsertGift(_ context.Context, g *models.Gift) error { return t.s.insertGift(g) }
func (t *memTx) GetGift(_ context.Context, id int64) (*models.Gift, error) {
	return t.s.getGift(id)
}
func (t *memTx) GetGiftByBid(_ context.Context, auctionID, bidID int64) (*models.Gift, error) {
	return t.s.getGiftByBid(auctionID, bidID)
}
func (t *memTx) ClaimUnassignedGift(_ context.Context, auctionID, ownerID, roundID, bidID int64, at time.Time) (*models.Gift, error) {
	return t.s.claimUnassignedGift(auctionID, ownerID, roundID, bidID, at)
}
func (t *memTx) ListGiftsByOwner(_ context.Context, ownerID int64, limit int) ([]*models.Gift, error) {
	return t.s.listGiftsByOwner(ownerID, limit)
}
func (t *memTx) CountAssignedGifts(_ context.Context, auctionID int64) (int, error) {
	return t.s.countAssignedGifts(auctionID)
}

func (t *memTx) UpsertUser(_ context.Context, u *models.User) error { return t.s.upsertUser(u) }
func (t *memTx) GetUser(_ context.Context, userID int64) (*models.User, error) {
	return t.s.getUser(userID)
}
