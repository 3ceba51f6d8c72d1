package invite_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/jiralite/api/internal/domain"
	"github.com/jiralite/api/internal/repository"
)

// MockInvitationRepository mocks InvitationRepository interface
type MockInvitationRepository struct {
	mock.Mock
}

func (m *MockInvitationRepository) CreateSuperseding(ctx context.Context, inv *domain.Invitation) (int64, error) {
	args := m.Called(ctx, inv)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvitationRepository) GetByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invitation), args.Error(1)
}

func (m *MockInvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invitation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invitation), args.Error(1)
}

func (m *MockInvitationRepository) Accept(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvitationRepository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvitationRepository) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
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

// MockProjectAuthorizer mocks ProjectAuthorizer interface
type MockProjectAuthorizer struct {
	mock.Mock
}

func (m *MockProjectAuthorizer) CanManageInvites(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Bool(0), args.Error(1)
}

// MockEmailSender mocks EmailSender interface
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
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

// memInvitationRepository is an in-memory InvitationRepository with the
// same conditional-transition semantics as the SQL implementation, for
// full-lifecycle and concurrency tests.
type memInvitationRepository struct {
	mu          sync.Mutex
	invitations map[uuid.UUID]*domain.Invitation
}

func newMemInvitationRepository() *memInvitationRepository {
	return &memInvitationRepository{invitations: make(map[uuid.UUID]*domain.Invitation)}
}

func (r *memInvitationRepository) CreateSuperseding(_ context.Context, inv *domain.Invitation) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var superseded int64
	for _, existing := range r.invitations {
		if existing.ProjectID == inv.ProjectID && existing.Email == inv.Email &&
			existing.Status == domain.InvitationPending {
			existing.Status = domain.InvitationCancelled
			superseded++
		}
	}
	cp := *inv
	r.invitations[inv.ID] = &cp
	return superseded, nil
}

// pendingCount mirrors what ux_invitations_pending constrains.
func (r *memInvitationRepository) pendingCount(projectID uuid.UUID, email string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, inv := range r.invitations {
		if inv.ProjectID == projectID && inv.Email == email && inv.Status == domain.InvitationPending {
			n++
		}
	}
	return n
}

func (r *memInvitationRepository) GetByToken(_ context.Context, token string) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invitations {
		if inv.Token == token {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memInvitationRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invitations[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvitationRepository) Accept(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invitations[id]
	if !ok || inv.Status != domain.InvitationPending || !now.Before(inv.ExpiresAt) {
		return false, nil
	}
	ts := now
	inv.Status = domain.InvitationAccepted
	inv.AcceptedAt = &ts
	return true, nil
}

func (r *memInvitationRepository) Cancel(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invitations[id]
	if !ok || inv.Status != domain.InvitationPending {
		return false, nil
	}
	inv.Status = domain.InvitationCancelled
	return true, nil
}

func (r *memInvitationRepository) MarkExpired(_ context.Context, id uuid.UUID, _ time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invitations[id]
	if !ok || inv.Status != domain.InvitationPending {
		return false, nil
	}
	inv.Status = domain.InvitationExpired
	return true, nil
}
