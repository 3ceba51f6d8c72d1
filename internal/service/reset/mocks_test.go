package reset_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/jiralite/api/internal/domain"
	"github.com/jiralite/api/internal/repository"
)

// MockResetCodeRepository mocks ResetCodeRepository interface
type MockResetCodeRepository struct {
	mock.Mock
}

func (m *MockResetCodeRepository) CreateSuperseding(ctx context.Context, code *domain.ResetCode) (int64, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockResetCodeRepository) GetLiveByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.ResetCode, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResetCode), args.Error(1)
}

func (m *MockResetCodeRepository) IncrementAttempts(ctx context.Context, codeID uuid.UUID, maxAttempts int) (int, bool, error) {
	args := m.Called(ctx, codeID, maxAttempts)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *MockResetCodeRepository) Consume(ctx context.Context, codeID uuid.UUID, maxAttempts int, now time.Time) (bool, error) {
	args := m.Called(ctx, codeID, maxAttempts, now)
	return args.Bool(0), args.Error(1)
}

// MockAuditRepository mocks AuditRepository interface
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) LogEvent(ctx context.Context, event repository.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockEmailSender mocks EmailSender interface
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

// MockRedisClient mocks RedisClient interface
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	args := m.Called(ctx, key, expiration)
	return args.Error(0)
}

// fakeClock is an advanceable clock for TTL tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memResetCodeRepository is an in-memory ResetCodeRepository with the same
// conditional-transition semantics as the SQL implementation, for
// full-lifecycle and concurrency tests.
type memResetCodeRepository struct {
	mu    sync.Mutex
	codes map[uuid.UUID]*domain.ResetCode
}

func newMemResetCodeRepository() *memResetCodeRepository {
	return &memResetCodeRepository{codes: make(map[uuid.UUID]*domain.ResetCode)}
}

func (r *memResetCodeRepository) CreateSuperseding(_ context.Context, code *domain.ResetCode) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var superseded int64
	for _, c := range r.codes {
		if c.AccountID == code.AccountID && c.ConsumedAt == nil && c.SupersededAt == nil {
			ts := code.CreatedAt
			c.SupersededAt = &ts
			superseded++
		}
	}
	cp := *code
	r.codes[code.ID] = &cp
	return superseded, nil
}

// liveCount mirrors what ux_reset_codes_active constrains.
func (r *memResetCodeRepository) liveCount(accountID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.codes {
		if c.AccountID == accountID && c.ConsumedAt == nil && c.SupersededAt == nil {
			n++
		}
	}
	return n
}

func (r *memResetCodeRepository) GetLiveByAccountID(_ context.Context, accountID uuid.UUID) (*domain.ResetCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.ResetCode
	for _, c := range r.codes {
		if c.AccountID == accountID && c.ConsumedAt == nil && c.SupersededAt == nil {
			if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
				latest = c
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *memResetCodeRepository) IncrementAttempts(_ context.Context, codeID uuid.UUID, maxAttempts int) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[codeID]
	if !ok || c.ConsumedAt != nil || c.Attempts >= maxAttempts {
		return 0, false, nil
	}
	c.Attempts++
	return c.Attempts, true, nil
}

func (r *memResetCodeRepository) Consume(_ context.Context, codeID uuid.UUID, maxAttempts int, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[codeID]
	if !ok || c.ConsumedAt != nil || c.SupersededAt != nil ||
		c.Attempts >= maxAttempts || !now.Before(c.ExpiresAt) {
		return false, nil
	}
	ts := now
	c.ConsumedAt = &ts
	return true, nil
}
