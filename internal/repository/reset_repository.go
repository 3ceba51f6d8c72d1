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

// ResetCodeRepository defines password reset code data operations. Every
// state transition is a conditional UPDATE so concurrent verifications
// serialize per record inside the database.
type ResetCodeRepository interface {
	// CreateSuperseding invalidates any live code for the account and
	// inserts the new one as a single transaction, returning how many
	// rows were superseded. Losing the one-live-code uniqueness race to
	// a concurrent issue surfaces as ErrConflict; neither statement is
	// left applied on its own.
	CreateSuperseding(ctx context.Context, code *domain.ResetCode) (int64, error)
	// GetLiveByAccountID returns the single not-consumed, not-superseded
	// code for an account. Expiry and exhaustion are not filtered here;
	// the service derives those states so it can report them distinctly.
	GetLiveByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.ResetCode, error)
	// IncrementAttempts bumps the guess counter while it is below max.
	// Returns the new count and whether the guarded update applied.
	IncrementAttempts(ctx context.Context, codeID uuid.UUID, maxAttempts int) (int, bool, error)
	// Consume marks the code redeemed iff it is still live, under budget
	// and inside its validity window at the given instant.
	Consume(ctx context.Context, codeID uuid.UUID, maxAttempts int, now time.Time) (bool, error)
	// SupersedeExpired releases live rows whose window has passed, for
	// index hygiene. Correctness never depends on it running.
	SupersedeExpired(ctx context.Context, now time.Time) (int64, error)
}

type resetCodeRepository struct {
	pool *pgxpool.Pool
}

// NewResetCodeRepository creates a new reset code repository
func NewResetCodeRepository(pool *pgxpool.Pool) ResetCodeRepository {
	return &resetCodeRepository{pool: pool}
}

func (r *resetCodeRepository) CreateSuperseding(ctx context.Context, code *domain.ResetCode) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE password_reset_codes
		SET superseded_at = $2
		WHERE account_id = $1 AND consumed_at IS NULL AND superseded_at IS NULL`,
		uuidToPgtype(code.AccountID),
		code.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to supersede reset codes: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO password_reset_codes (id, account_id, code_hash, expires_at, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuidToPgtype(code.ID),
		uuidToPgtype(code.AccountID),
		code.CodeHash,
		code.ExpiresAt,
		code.Attempts,
		code.CreatedAt,
	)
	if err != nil {
		// ux_reset_codes_active: a concurrent issue inserted its live
		// code between our supersede and our insert.
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("failed to create reset code: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit reset code: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *resetCodeRepository) GetLiveByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.ResetCode, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, account_id, code_hash, expires_at, attempts, consumed_at, superseded_at, created_at
		FROM password_reset_codes
		WHERE account_id = $1 AND consumed_at IS NULL AND superseded_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`,
		uuidToPgtype(accountID),
	)

	code, err := scanResetCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get live reset code: %w", err)
	}
	return code, nil
}

func (r *resetCodeRepository) IncrementAttempts(ctx context.Context, codeID uuid.UUID, maxAttempts int) (int, bool, error) {
	var attempts int
	err := r.pool.QueryRow(ctx, `
		UPDATE password_reset_codes
		SET attempts = attempts + 1
		WHERE id = $1 AND consumed_at IS NULL AND attempts < $2
		RETURNING attempts`,
		uuidToPgtype(codeID),
		maxAttempts,
	).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Budget spent (or consumed) by a concurrent caller.
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to increment attempts: %w", err)
	}
	return attempts, true, nil
}

func (r *resetCodeRepository) Consume(ctx context.Context, codeID uuid.UUID, maxAttempts int, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE password_reset_codes
		SET consumed_at = $3
		WHERE id = $1
		  AND consumed_at IS NULL AND superseded_at IS NULL
		  AND attempts < $2 AND expires_at > $3`,
		uuidToPgtype(codeID),
		maxAttempts,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to consume reset code: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *resetCodeRepository) SupersedeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE password_reset_codes
		SET superseded_at = $1
		WHERE consumed_at IS NULL AND superseded_at IS NULL AND expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to supersede expired reset codes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanResetCode(row pgx.Row) (*domain.ResetCode, error) {
	var (
		id           pgtype.UUID
		accountID    pgtype.UUID
		consumedAt   pgtype.Timestamptz
		supersededAt pgtype.Timestamptz
		code         domain.ResetCode
	)
	err := row.Scan(&id, &accountID, &code.CodeHash, &code.ExpiresAt,
		&code.Attempts, &consumedAt, &supersededAt, &code.CreatedAt)
	if err != nil {
		return nil, err
	}
	code.ID = pgtypeToUUID(id)
	code.AccountID = pgtypeToUUID(accountID)
	code.ConsumedAt = timestamptzToPtr(consumedAt)
	code.SupersededAt = timestamptzToPtr(supersededAt)
	return &code, nil
}
