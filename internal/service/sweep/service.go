// Package sweep periodically writes derived expiry back to storage.
// Every read path already treats expiry as derived from the clock, so the
// sweeper is pure housekeeping: it frees the one-live-code-per-account
// index slot and keeps Pending counts honest for reporting.
package sweep

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jiralite/api/internal/pkg/clock"
)

const (
	lockKey = "sweep:expired:lock"
	lockTTL = 5 * time.Minute
)

// ResetCodeSweeper marks expired reset codes superseded
type ResetCodeSweeper interface {
	SupersedeExpired(ctx context.Context, now time.Time) (int64, error)
}

// InvitationSweeper marks expired pending invitations
type InvitationSweeper interface {
	MarkAllExpired(ctx context.Context, now time.Time) (int64, error)
}

// Locker provides the cross-process leader lock so only one replica sweeps
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Service runs the periodic expiry sweep.
type Service struct {
	resetRepo  ResetCodeSweeper
	inviteRepo InvitationSweeper
	locker     Locker
	clk        clock.Clock
	interval   time.Duration
	logger     *zap.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewService creates a new sweep service
func NewService(
	resetRepo ResetCodeSweeper,
	inviteRepo InvitationSweeper,
	locker Locker,
	clk clock.Clock,
	interval time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		resetRepo:  resetRepo,
		inviteRepo: inviteRepo,
		locker:     locker,
		clk:        clk,
		interval:   interval,
		stopCh:     make(chan struct{}),
		logger:     logger,
	}
}

// Start launches the sweep loop in a goroutine.
func (s *Service) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
	s.logger.Info("Expiry sweeper started", zap.Duration("interval", s.interval))
}

// Stop terminates the sweep loop.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// RunOnce executes a single guarded sweep. Returns false when another
// replica holds the lock.
func (s *Service) RunOnce(ctx context.Context) bool {
	acquired, err := s.locker.SetNX(ctx, lockKey, s.clk.Now().Unix(), lockTTL)
	if err != nil {
		s.logger.Warn("Sweep lock unavailable", zap.Error(err))
		return false
	}
	if !acquired {
		return false
	}
	defer func() {
		if err := s.locker.Delete(ctx, lockKey); err != nil {
			s.logger.Warn("Failed to release sweep lock", zap.Error(err))
		}
	}()

	now := s.clk.Now()

	codes, err := s.resetRepo.SupersedeExpired(ctx, now)
	if err != nil {
		s.logger.Error("Reset code sweep failed", zap.Error(err))
	}

	invites, err := s.inviteRepo.MarkAllExpired(ctx, now)
	if err != nil {
		s.logger.Error("Invitation sweep failed", zap.Error(err))
	}

	if codes > 0 || invites > 0 {
		sweptResetCodesTotal.Add(float64(codes))
		sweptInvitationsTotal.Add(float64(invites))
		s.logger.Info("Expiry sweep completed",
			zap.Int64("reset_codes", codes),
			zap.Int64("invitations", invites))
	}
	return true
}
