package auction

import (
	"context"
	"log/slog"
	"time"
)

const finalizeTimeout = 30 * time.Second

// Scheduler drives the time-based transitions: starting auctions whose
// scheduled time has arrived and finalizing rounds whose deadline has
// passed. It is a polling loop, not a timer per round — a crashed process
// picks everything up again on the next tick after restart.
type Scheduler struct {
	manager  *Manager
	interval time.Duration
	shutdown chan struct{}
	done     chan struct{}
}

// NewScheduler creates a scheduler ticking at the given interval.
func NewScheduler(manager *Manager, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Scheduler{
		manager:  manager,
		interval: interval,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the background loop.
func (s *Scheduler) Start() {
	go s.run()
}

func (s *Scheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(context.Background())
		case <-s.shutdown:
			return
		}
	}
}

// Tick runs one scheduler pass. Exported so tests and admin tooling can
// drive the loop synchronously.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.manager.now()

	startCtx, cancel := context.WithTimeout(ctx, finalizeTimeout)
	s.manager.StartDueAuctions(startCtx, now)
	cancel()

	expired, err := s.manager.store.ListExpiredRounds(ctx, now, expiredRoundsBatch)
	if err != nil {
		slog.Error("Failed to list expired rounds",
			slog.String("error", err.Error()))
		return
	}

	for _, round := range expired {
		roundCtx, cancel := context.WithTimeout(ctx, finalizeTimeout)
		if err := s.manager.FinalizeRound(roundCtx, round); err != nil {
			slog.Error("Failed to finalize round",
				slog.Int64("round_id", round.ID),
				slog.Int64("auction_id", round.AuctionID),
				slog.String("error", err.Error()))
		}
		cancel()
	}
}

// Shutdown stops the loop and waits for an in-flight tick to finish.
func (s *Scheduler) Shutdown() {
	close(s.shutdown)
	<-s.done
	slog.Info("Auction scheduler shutdown completed")
}
