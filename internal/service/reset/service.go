package reset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jiralite/api/internal/config"
	"github.com/jiralite/api/internal/domain"
	"github.com/jiralite/api/internal/infrastructure/secret"
	"github.com/jiralite/api/internal/pkg/apperror"
	"github.com/jiralite/api/internal/pkg/clock"
	"github.com/jiralite/api/internal/repository"
)

const issueKeyPattern = "reset_issue:%s"

// Service owns the password reset code lifecycle: unguessable codes,
// hashed at rest, one live code per account, bounded in time and guesses.
type Service struct {
	repo      ResetCodeRepository
	auditRepo AuditRepository
	hasher    SecretHasher
	sender    EmailSender
	redis     RedisClient
	clk       clock.Clock
	cfg       config.RecoveryConfig
}

// NewService creates a new reset code service
func NewService(
	repo ResetCodeRepository,
	auditRepo AuditRepository,
	hasher SecretHasher,
	sender EmailSender,
	redis RedisClient,
	clk clock.Clock,
	cfg config.RecoveryConfig,
) *Service {
	return &Service{
		repo:      repo,
		auditRepo: auditRepo,
		hasher:    hasher,
		sender:    sender,
		redis:     redis,
		clk:       clk,
		cfg:       cfg,
	}
}

// IssueResponse describes a freshly issued code. Code holds the plaintext
// for the delivery path only; it is never persisted or logged.
type IssueResponse struct {
	Code      string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Delivered bool      `json:"delivered"`
}

// VerifyResponse for a successful redemption
type VerifyResponse struct {
	Status    string `json:"status"`
	AccountID string `json:"account_id"`
}

// Issue creates a new reset code for the account, invalidating any prior
// live code, and emails the plaintext to the given address.
//
// A delivery failure returns both a non-nil response and a DeliveryFailed
// error: the stored code stays valid and the caller may offer a resend,
// which goes through Issue again and supersedes this one.
func (s *Service) Issue(ctx context.Context, accountID uuid.UUID, email, clientIP, userAgent string) (*IssueResponse, error) {
	if err := s.checkIssueThrottle(ctx, accountID); err != nil {
		return nil, err
	}

	now := s.clk.Now()

	code, err := secret.NumericCode(s.cfg.CodeLength)
	if err != nil {
		return nil, apperror.InternalError("Could not generate a reset code", "Try again later").WithError(err)
	}

	digest, err := s.hasher.Hash(code)
	if err != nil {
		return nil, apperror.InternalError("Could not protect the reset code", "Try again later").WithError(err)
	}

	rec := &domain.ResetCode{
		ID:        uuid.New(),
		AccountID: accountID,
		CodeHash:  digest,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
	}
	superseded, err := s.repo.CreateSuperseding(ctx, rec)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// A concurrent issue for this account won the one-live-code
			// race; its code is the valid one.
			return nil, apperror.StorageConflictError("A reset code was issued concurrently for this account")
		}
		return nil, apperror.InternalError("Could not store the reset code", "Try again later").WithError(err)
	}
	if superseded > 0 {
		resetSupersededTotal.Add(float64(superseded))
	}

	resetIssuedTotal.Inc()
	s.logEvent(ctx, "reset_code_issued", accountID, email, clientIP, userAgent, true, "",
		map[string]interface{}{"superseded": superseded, "expires_at": rec.ExpiresAt})

	resp := &IssueResponse{Code: code, ExpiresAt: rec.ExpiresAt}

	subject := "Your password reset code"
	body := fmt.Sprintf(
		"<p>Your password reset code is <strong>%s</strong>.</p><p>It expires in %d minutes. If you did not request a reset, you can ignore this email.</p>",
		code, int(s.cfg.TTL.Minutes()),
	)
	if err := s.sender.Send(ctx, email, subject, body); err != nil {
		resetDeliveryFailedTotal.Inc()
		s.logEvent(ctx, "reset_code_delivery_failed", accountID, email, clientIP, userAgent, false, "send_failed", nil)
		return resp, apperror.DeliveryFailedError("The reset email could not be sent").WithError(err)
	}

	resp.Delivered = true
	return resp, nil
}

// Verify checks a candidate code against the account's live record and
// consumes it on a match. The consume is a conditional update: under
// concurrent submissions of the correct code, exactly one caller succeeds.
func (s *Service) Verify(ctx context.Context, accountID uuid.UUID, candidate, clientIP, userAgent string) (*VerifyResponse, error) {
	if !secret.IsCodeFormat(candidate, s.cfg.CodeLength) {
		return nil, apperror.ValidationError(
			fmt.Sprintf("The code must be exactly %d digits", s.cfg.CodeLength),
			"Check the code in your email",
		)
	}

	rec, err := s.repo.GetLiveByAccountID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError("Could not load the reset code", "Try again later").WithError(err)
	}
	if rec == nil {
		resetVerifyTotal.WithLabelValues("not_found").Inc()
		return nil, apperror.NotFoundError("active reset code")
	}

	now := s.clk.Now()
	switch rec.State(now, s.cfg.MaxAttempts) {
	case domain.ResetCodeExpired:
		resetVerifyTotal.WithLabelValues("expired").Inc()
		s.logEvent(ctx, "reset_verify_failed", accountID, "", clientIP, userAgent, false, "expired", nil)
		return nil, apperror.ExpiredError("The reset code has expired", "Request a new code")
	case domain.ResetCodeExhausted:
		resetVerifyTotal.WithLabelValues("exhausted").Inc()
		s.logEvent(ctx, "reset_verify_failed", accountID, "", clientIP, userAgent, false, "exhausted", nil)
		return nil, apperror.ExhaustedError("Too many wrong guesses for this code", "Request a new code")
	}

	match, err := s.hasher.Verify(secret.NormalizeCode(candidate), rec.CodeHash)
	if err != nil {
		return nil, apperror.InternalError("Could not verify the reset code", "Try again later").WithError(err)
	}

	if !match {
		attempts, ok, incErr := s.repo.IncrementAttempts(ctx, rec.ID, s.cfg.MaxAttempts)
		if incErr != nil {
			return nil, apperror.InternalError("Could not record the failed attempt", "Try again later").WithError(incErr)
		}
		if !ok {
			// A concurrent caller spent the budget first.
			resetVerifyTotal.WithLabelValues("exhausted").Inc()
			return nil, apperror.ExhaustedError("Too many wrong guesses for this code", "Request a new code")
		}

		resetVerifyTotal.WithLabelValues("mismatch").Inc()
		s.logEvent(ctx, "reset_verify_failed", accountID, "", clientIP, userAgent, false, "mismatch",
			map[string]interface{}{"attempts": attempts, "remaining": s.cfg.MaxAttempts - attempts})

		return nil, apperror.MismatchError("The reset code is incorrect", "Check the code in your email")
	}

	consumed, err := s.repo.Consume(ctx, rec.ID, s.cfg.MaxAttempts, now)
	if err != nil {
		return nil, apperror.InternalError("Could not consume the reset code", "Try again later").WithError(err)
	}
	if !consumed {
		// The record changed underneath us: already consumed, superseded,
		// exhausted or expired between the read and the update.
		resetVerifyTotal.WithLabelValues("conflict").Inc()
		return nil, apperror.StorageConflictError("The reset code was redeemed or invalidated concurrently")
	}

	resetVerifyTotal.WithLabelValues("success").Inc()
	s.logEvent(ctx, "reset_verify_success", accountID, "", clientIP, userAgent, true, "", nil)

	return &VerifyResponse{Status: "success", AccountID: accountID.String()}, nil
}

// checkIssueThrottle bounds how often new codes can be issued per account.
// Redis being down fails open: throttling protects the mailbox, not the
// secret, whose safety comes from hashing, TTL and the attempt budget.
func (s *Service) checkIssueThrottle(ctx context.Context, accountID uuid.UUID) error {
	if s.cfg.ReissueLimit <= 0 {
		return nil
	}

	key := fmt.Sprintf(issueKeyPattern, accountID.String())
	count, err := s.redis.Incr(ctx, key)
	if err != nil {
		slog.Warn("Reset throttle counter unavailable", slog.Any("error", err))
		return nil
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, key, s.cfg.ReissueWindow); err != nil {
			slog.Warn("Reset throttle expiry failed", slog.Any("error", err))
		}
	}
	if count > int64(s.cfg.ReissueLimit) {
		resetThrottledTotal.Inc()
		return apperror.RateLimitError(
			"Too many reset codes requested for this account",
			"Wait before requesting another code",
		)
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, eventType string, accountID uuid.UUID, email, clientIP, userAgent string, success bool, failureReason string, metadata map[string]interface{}) {
	actorID := accountID
	err := s.auditRepo.LogEvent(ctx, repository.AuditEvent{
		EventType:     eventType,
		ActorID:       &actorID,
		Email:         email,
		ClientIP:      clientIP,
		UserAgent:     userAgent,
		Success:       success,
		FailureReason: failureReason,
		Metadata:      metadata,
	})
	if err != nil {
		slog.Error("Failed to write audit event",
			slog.String("event_type", eventType),
			slog.Any("error", err))
	}
}
