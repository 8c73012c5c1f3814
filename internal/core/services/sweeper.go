package services

import (
	"context"
	"time"

	"streamgate/internal/core/ports"
	"streamgate/pkg/distributed"

	"go.uber.org/zap"
)

// Sweeper drives the periodic session sweep. When a lock manager is
// present (Redis-backed deployments with several instances) the sweep
// only runs on the instance holding the lock, so sessions are not
// swept twice.
type Sweeper struct {
	sessions ports.SessionService
	interval time.Duration
	locks    *distributed.LockManager
	logger   *zap.SugaredLogger
}

func NewSweeper(sessions ports.SessionService, interval time.Duration, locks *distributed.LockManager, logger *zap.SugaredLogger) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		interval: interval,
		locks:    locks,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Infow("session sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	if s.locks != nil {
		lock := s.locks.AcquireLock("session-sweep", s.interval)
		held, err := lock.TryLock(ctx)
		if err != nil {
			s.logger.Warnw("sweep lock unavailable", "error", err)
			return
		}
		if !held {
			return
		}
		defer func() {
			if err := lock.Unlock(ctx); err != nil {
				s.logger.Debugw("sweep lock release", "error", err)
			}
		}()
	}

	if err := s.sessions.Sweep(ctx); err != nil {
		s.logger.Errorw("session sweep failed", "error", err)
	}
}
