package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jiralite/api/internal/domain"
)

// InvitationRepository defines project invitation data operations. The
// Pending -> terminal transitions are conditional UPDATEs guarded on the
// current status, so concurrent redemptions of one token serialize in the
// database and at most one succeeds.
type InvitationRepository interface {
	// CreateSuperseding cancels every Pending invitation for the new
	// invitation's (project, email) pair and inserts it as a single
	// transaction, returning how many rows were cancelled. Losing the
	// one-pending uniqueness race to a concurrent invite surfaces as
	// ErrConflict; neither statement is left applied on its own.
	CreateSuperseding(ctx context.Context, inv *domain.Invitation) (int64, error)
	GetByToken(ctx context.Context, token string) (*domain.Invitation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invitation, error)
	// Accept transitions Pending -> Accepted iff the row is still Pending
	// and inside its validity window at the given instant.
	Accept(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// Cancel transitions Pending -> Cancelled.
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkExpired writes the derived Expired status back to a Pending row
	// whose window has passed.
	MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// MarkAllExpired sweeps every Pending row past its window.
	MarkAllExpired(ctx context.Context, now time.Time) (int64, error)
}

type invitationRepository struct {
	pool *pgxpool.Pool
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(pool *pgxpool.Pool) InvitationRepository {
	return &invitationRepository{pool: pool}
}

func (r *invitationRepository) CreateSuperseding(ctx context.Context, inv *domain.Invitation) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE project_invitations
		SET status = $3
		WHERE project_id = $1 AND email = $2 AND status = $4`,
		uuidToPgtype(inv.ProjectID),
		inv.Email,
		string(domain.InvitationCancelled),
		string(domain.InvitationPending),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel pending invitations: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO project_invitations (id, project_id, invited_by, email, token, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuidToPgtype(inv.ID),
		uuidToPgtype(inv.ProjectID),
		uuidToPgtype(inv.InvitedBy),
		inv.Email,
		inv.Token,
		string(inv.Status),
		inv.ExpiresAt,
		inv.CreatedAt,
	)
	if err != nil {
		// ux_invitations_pending: a concurrent invite inserted its
		// Pending row between our cancel and our insert.
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("failed to create invitation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit invitation: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	return r.getOne(ctx, `
		SELECT id, project_id, invited_by, email, token, status, expires_at, accepted_at, created_at
		FROM project_invitations
		WHERE token = $1`,
		token,
	)
}

func (r *invitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invitation, error) {
	return r.getOne(ctx, `
		SELECT id, project_id, invited_by, email, token, status, expires_at, accepted_at, created_at
		FROM project_invitations
		WHERE id = $1`,
		uuidToPgtype(id),
	)
}

func (r *invitationRepository) Accept(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE project_invitations
		SET status = $2, accepted_at = $3
		WHERE id = $1 AND status = $4 AND expires_at > $3`,
		uuidToPgtype(id),
		string(domain.InvitationAccepted),
		now,
		string(domain.InvitationPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to accept invitation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *invitationRepository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE project_invitations
		SET status = $2
		WHERE id = $1 AND status = $3`,
		uuidToPgtype(id),
		string(domain.InvitationCancelled),
		string(domain.InvitationPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to cancel invitation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *invitationRepository) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE project_invitations
		SET status = $2
		WHERE id = $1 AND status = $3 AND expires_at <= $4`,
		uuidToPgtype(id),
		string(domain.InvitationExpired),
		string(domain.InvitationPending),
		now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark invitation expired: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *invitationRepository) MarkAllExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE project_invitations
		SET status = $1
		WHERE status = $2 AND expires_at <= $3`,
		string(domain.InvitationExpired),
		string(domain.InvitationPending),
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired invitations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *invitationRepository) getOne(ctx context.Context, query string, arg interface{}) (*domain.Invitation, error) {
	var (
		id         pgtype.UUID
		projectID  pgtype.UUID
		invitedBy  pgtype.UUID
		status     string
		acceptedAt pgtype.Timestamptz
		inv        domain.Invitation
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(&id, &projectID, &invitedBy,
		&inv.Email, &inv.Token, &status, &inv.ExpiresAt, &acceptedAt, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	inv.ID = pgtypeToUUID(id)
	inv.ProjectID = pgtypeToUUID(projectID)
	inv.InvitedBy = pgtypeToUUID(invitedBy)
	inv.Status = domain.InvitationStatus(status)
	inv.AcceptedAt = timestamptzToPtr(acceptedAt)
	return &inv, nil
}
