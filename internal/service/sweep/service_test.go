package sweep_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/jiralite/api/internal/service/sweep"
)

type MockResetCodeSweeper struct {
	mock.Mock
}

func (m *MockResetCodeSweeper) SupersedeExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockInvitationSweeper struct {
	mock.Mock
}

func (m *MockInvitationSweeper) MarkAllExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func TestRunOnce_SweepsWithLockHeld(t *testing.T) {
	resetRepo := new(MockResetCodeSweeper)
	inviteRepo := new(MockInvitationSweeper)
	locker := new(MockLocker)
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	service := sweep.NewService(resetRepo, inviteRepo, locker, clk, time.Minute, zap.NewNop())

	locker.On("SetNX", mock.Anything, "sweep:expired:lock", mock.Anything, 5*time.Minute).Return(true, nil)
	locker.On("Delete", mock.Anything, "sweep:expired:lock").Return(nil)
	resetRepo.On("SupersedeExpired", mock.Anything, clk.Now()).Return(int64(3), nil)
	inviteRepo.On("MarkAllExpired", mock.Anything, clk.Now()).Return(int64(2), nil)

	ran := service.RunOnce(context.Background())

	assert.True(t, ran)
	resetRepo.AssertExpectations(t)
	inviteRepo.AssertExpectations(t)
	locker.AssertExpectations(t)
}

func TestRunOnce_SkipsWhenAnotherReplicaHoldsLock(t *testing.T) {
	resetRepo := new(MockResetCodeSweeper)
	inviteRepo := new(MockInvitationSweeper)
	locker := new(MockLocker)
	clk := &fakeClock{now: time.Now().UTC()}

	service := sweep.NewService(resetRepo, inviteRepo, locker, clk, time.Minute, zap.NewNop())

	locker.On("SetNX", mock.Anything, "sweep:expired:lock", mock.Anything, mock.Anything).Return(false, nil)

	ran := service.RunOnce(context.Background())

	assert.False(t, ran)
	resetRepo.AssertNotCalled(t, "SupersedeExpired", mock.Anything, mock.Anything)
	inviteRepo.AssertNotCalled(t, "MarkAllExpired", mock.Anything, mock.Anything)
	locker.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRunOnce_LockErrorFailsClosed(t *testing.T) {
	resetRepo := new(MockResetCodeSweeper)
	inviteRepo := new(MockInvitationSweeper)
	locker := new(MockLocker)
	clk := &fakeClock{now: time.Now().UTC()}

	service := sweep.NewService(resetRepo, inviteRepo, locker, clk, time.Minute, zap.NewNop())

	locker.On("SetNX", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(false, assert.AnError)

	assert.False(t, service.RunOnce(context.Background()))
	resetRepo.AssertNotCalled(t, "SupersedeExpired", mock.Anything, mock.Anything)
}

func TestRunOnce_ContinuesPastResetSweepError(t *testing.T) {
	resetRepo := new(MockResetCodeSweeper)
	inviteRepo := new(MockInvitationSweeper)
	locker := new(MockLocker)
	clk := &fakeClock{now: time.Now().UTC()}

	service := sweep.NewService(resetRepo, inviteRepo, locker, clk, time.Minute, zap.NewNop())

	locker.On("SetNX", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	locker.On("Delete", mock.Anything, mock.Anything).Return(nil)
	resetRepo.On("SupersedeExpired", mock.Anything, mock.Anything).Return(int64(0), assert.AnError)
	inviteRepo.On("MarkAllExpired", mock.Anything, mock.Anything).Return(int64(1), nil)

	assert.True(t, service.RunOnce(context.Background()))
	inviteRepo.AssertCalled(t, "MarkAllExpired", mock.Anything, mock.Anything)
}

func TestStop_IsIdempotent(t *testing.T) {
	service := sweep.NewService(new(MockResetCodeSweeper), new(MockInvitationSweeper), new(MockLocker), &fakeClock{now: time.Now().UTC()}, time.Minute, zap.NewNop())

	service.Start(context.Background())
	service.Stop()
	service.Stop()
}
