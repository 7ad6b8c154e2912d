package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/robotd/internal/config"
	"github.com/dokzlo13/robotd/internal/ledger"
	"github.com/dokzlo13/robotd/internal/loop"
)

// LoopService runs the control loop and the ledger retention task.
type LoopService struct {
	cfg       *config.Config
	driver    *loop.Driver
	startMode loop.Mode
	ledger    *ledger.Ledger
	running   atomic.Bool
}

// NewLoopService creates a new LoopService.
func NewLoopService(cfg *config.Config, driver *loop.Driver, startMode loop.Mode, l *ledger.Ledger) *LoopService {
	return &LoopService{
		cfg:       cfg,
		driver:    driver,
		startMode: startMode,
		ledger:    l,
	}
}

// Running reports whether the control loop is running.
func (s *LoopService) Running() bool {
	return s.running.Load()
}

// Run enters the start mode and drives the loop until ctx is cancelled.
func (s *LoopService) Run(ctx context.Context) error {
	s.driver.SetMode(s.startMode)

	s.running.Store(true)
	defer s.running.Store(false)

	return s.driver.Run(ctx)
}

// RunLedgerCleanup periodically cleans up old ledger entries.
func (s *LoopService) RunLedgerCleanup(ctx context.Context) error {
	if s.ledger == nil {
		return nil
	}

	retention := s.cfg.Ledger.Retention()
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			deleted, err := s.ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
			}
		}
	}
}
