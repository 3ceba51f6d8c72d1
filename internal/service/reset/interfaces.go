package reset

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jiralite/api/internal/domain"
	"github.com/jiralite/api/internal/repository"
)

// ResetCodeRepository defines the reset code data operations this service
// needs. Transitions must be conditional: of N concurrent verifications of
// one record, at most one may consume it.
type ResetCodeRepository interface {
	// CreateSuperseding atomically invalidates any live code for the
	// account and stores the new one, returning how many rows were
	// superseded. A lost uniqueness race is repository.ErrConflict.
	CreateSuperseding(ctx context.Context, code *domain.ResetCode) (int64, error)
	GetLiveByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.ResetCode, error)
	IncrementAttempts(ctx context.Context, codeID uuid.UUID, maxAttempts int) (int, bool, error)
	Consume(ctx context.Context, codeID uuid.UUID, maxAttempts int, now time.Time) (bool, error)
}

// AuditRepository defines audit logging operations
type AuditRepository interface {
	LogEvent(ctx context.Context, event repository.AuditEvent) error
}

// SecretHasher defines one-way hashing for stored codes
type SecretHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) (bool, error)
}

// EmailSender delivers the plaintext code to the account owner. Failure is
// reported to the caller but never rolls back the issued code.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// RedisClient defines the counter operations used for re-issue throttling
type RedisClient interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
}
