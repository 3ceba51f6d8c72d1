package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEvent represents a credential lifecycle event worth keeping:
// code issued, verification failed, invitation accepted, and so on.
type AuditEvent struct {
	EventType     string                 // reset_code_issued, reset_verify_failed, invite_accepted, ...
	ActorID       *uuid.UUID             // Account the event concerns, if known
	Email         string                 // Recipient/invitee address
	ClientIP      string                 // Client IP address
	UserAgent     string                 // Browser/client UA
	Success       bool                   // Event succeeded?
	FailureReason string                 // Reason for failure (if any)
	Metadata      map[string]interface{} // Additional data (attempts, project id, ...)
}

// AuditRepository defines audit logging operations
type AuditRepository interface {
	LogEvent(ctx context.Context, event AuditEvent) error
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) LogEvent(ctx context.Context, event AuditEvent) error {
	details, _ := json.Marshal(event.Metadata)

	var clientIP *netip.Addr
	if ip, err := netip.ParseAddr(event.ClientIP); err == nil {
		clientIP = &ip
	}

	var actorID pgtype.UUID
	if event.ActorID != nil {
		actorID = pgtype.UUID{Bytes: *event.ActorID, Valid: true}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (event_type, actor_id, email, success, failure_reason, details, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.EventType,
		actorID,
		event.Email,
		event.Success,
		event.FailureReason,
		details,
		clientIP,
		event.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}
	return nil
}
