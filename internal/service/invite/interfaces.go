package invite

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jiralite/api/internal/domain"
	"github.com/jiralite/api/internal/repository"
)

// InvitationRepository defines the invitation data operations this service
// needs. Accept and Cancel must be conditional on the Pending status so a
// token can only ever be redeemed once.
type InvitationRepository interface {
	// CreateSuperseding atomically cancels every prior Pending invitation
	// for the new invitation's (project, email) pair and stores it,
	// returning how many rows were cancelled. A lost uniqueness race is
	// repository.ErrConflict.
	CreateSuperseding(ctx context.Context, inv *domain.Invitation) (int64, error)
	GetByToken(ctx context.Context, token string) (*domain.Invitation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invitation, error)
	Accept(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
	MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

// AuditRepository defines audit logging operations
type AuditRepository interface {
	LogEvent(ctx context.Context, event repository.AuditEvent) error
}

// ProjectAuthorizer is the caller-supplied capability check for inviter
// actions. Membership itself lives outside this service.
type ProjectAuthorizer interface {
	CanManageInvites(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
}

// EmailSender delivers the invitation link to the invitee
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
