package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jiralite/api/internal/config"
	"github.com/jiralite/api/internal/domain"
	"github.com/jiralite/api/internal/infrastructure/secret"
	"github.com/jiralite/api/internal/pkg/apperror"
	"github.com/jiralite/api/internal/pkg/clock"
	"github.com/jiralite/api/internal/repository"
)

// Service owns the project invitation lifecycle: one pending invitation
// per (project, email), an unguessable link token unique across all
// invitations, and exactly-once acceptance.
type Service struct {
	repo       InvitationRepository
	auditRepo  AuditRepository
	authorizer ProjectAuthorizer
	sender     EmailSender
	clk        clock.Clock
	cfg        config.InvitationConfig
	baseURL    string
}

// NewService creates a new invitation service. baseURL is the public web
// origin used to build invitation links.
func NewService(
	repo InvitationRepository,
	auditRepo AuditRepository,
	authorizer ProjectAuthorizer,
	sender EmailSender,
	clk clock.Clock,
	cfg config.InvitationConfig,
	baseURL string,
) *Service {
	return &Service{
		repo:       repo,
		auditRepo:  auditRepo,
		authorizer: authorizer,
		sender:     sender,
		clk:        clk,
		cfg:        cfg,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// InviteResponse describes a freshly created invitation. Token rides in
// the delivered link only; it is never logged.
type InviteResponse struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	Token        string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	Delivered    bool      `json:"delivered"`
}

// AcceptResponse tells the caller which membership to materialize.
// Creating the membership itself belongs to the project collaborator,
// not this service.
type AcceptResponse struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	ProjectID    uuid.UUID `json:"project_id"`
	Email        string    `json:"email"`
	InvitedBy    uuid.UUID `json:"invited_by"`
	AcceptedAt   time.Time `json:"accepted_at"`
}

// Invite creates a Pending invitation for (projectID, email), cancelling
// any prior pending one for the same pair, and emails the invitee a link
// carrying the token.
//
// A delivery failure returns both a non-nil response and a DeliveryFailed
// error; the stored invitation stays valid and re-inviting supersedes it.
func (s *Service) Invite(ctx context.Context, projectID, inviterID uuid.UUID, email, clientIP, userAgent string) (*InviteResponse, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationError("Invitee email address is malformed", "Enter a valid email address")
	}

	now := s.clk.Now()

	token, err := secret.Token(s.cfg.TokenBytes)
	if err != nil {
		return nil, apperror.InternalError("Could not generate an invitation token", "Try again later").WithError(err)
	}

	inv := &domain.Invitation{
		ID:        uuid.New(),
		ProjectID: projectID,
		InvitedBy: inviterID,
		Email:     email,
		Token:     token,
		Status:    domain.InvitationPending,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
	}
	superseded, err := s.repo.CreateSuperseding(ctx, inv)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// A concurrent invite for this (project, email) won the
			// one-pending race; its invitation is the valid one.
			return nil, apperror.StorageConflictError("An invitation for this address was created concurrently")
		}
		return nil, apperror.InternalError("Could not store the invitation", "Try again later").WithError(err)
	}
	if superseded > 0 {
		inviteSupersededTotal.Add(float64(superseded))
	}

	inviteSentTotal.Inc()
	s.logEvent(ctx, "invite_created", &inviterID, email, clientIP, userAgent, true, "",
		map[string]interface{}{"project_id": projectID.String(), "superseded": superseded})

	resp := &InviteResponse{InvitationID: inv.ID, Token: token, ExpiresAt: inv.ExpiresAt}

	subject := "You have been invited to a project"
	body := fmt.Sprintf(
		"<p>You have been invited to join a project.</p><p><a href=\"%s/invitations/accept?token=%s\">Accept the invitation</a></p><p>The invitation expires in %d days.</p>",
		s.baseURL, token, int(s.cfg.TTL.Hours()/24),
	)
	if err := s.sender.Send(ctx, email, subject, body); err != nil {
		inviteDeliveryFailedTotal.Inc()
		s.logEvent(ctx, "invite_delivery_failed", &inviterID, email, clientIP, userAgent, false, "send_failed",
			map[string]interface{}{"project_id": projectID.String()})
		return resp, apperror.DeliveryFailedError("The invitation email could not be sent").WithError(err)
	}

	resp.Delivered = true
	return resp, nil
}

// Accept redeems an invitation token. Exactly one of N concurrent calls
// with the same token succeeds; the rest observe AlreadyResolved. The
// returned response is the caller's signal to materialize membership.
func (s *Service) Accept(ctx context.Context, token, clientIP, userAgent string) (*AcceptResponse, error) {
	inv, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, apperror.InternalError("Could not load the invitation", "Try again later").WithError(err)
	}
	if inv == nil {
		inviteAcceptTotal.WithLabelValues("not_found").Inc()
		return nil, apperror.NotFoundError("invitation")
	}

	now := s.clk.Now()

	if inv.Status == domain.InvitationPending && inv.IsExpired(now) {
		// Write the derived state back so future reads are cheap. Losing
		// this write changes nothing: expiry is derived from the clock.
		if _, err := s.repo.MarkExpired(ctx, inv.ID, now); err != nil {
			slog.Warn("Failed to mark invitation expired", slog.Any("error", err))
		}
		inviteAcceptTotal.WithLabelValues("expired").Inc()
		s.logEvent(ctx, "invite_accept_failed", nil, inv.Email, clientIP, userAgent, false, "expired",
			map[string]interface{}{"invitation_id": inv.ID.String()})
		return nil, apperror.ExpiredError("The invitation has expired", "Ask the project owner to invite you again")
	}

	switch inv.Status {
	case domain.InvitationExpired:
		inviteAcceptTotal.WithLabelValues("expired").Inc()
		return nil, apperror.ExpiredError("The invitation has expired", "Ask the project owner to invite you again")
	case domain.InvitationAccepted, domain.InvitationCancelled:
		inviteAcceptTotal.WithLabelValues("already_resolved").Inc()
		return nil, apperror.AlreadyResolvedError(
			fmt.Sprintf("The invitation was already %s", strings.ToLower(string(inv.Status))))
	}

	accepted, err := s.repo.Accept(ctx, inv.ID, now)
	if err != nil {
		return nil, apperror.InternalError("Could not accept the invitation", "Try again later").WithError(err)
	}
	if !accepted {
		// Lost the race: another caller resolved this token between our
		// read and the conditional update.
		return nil, s.classifyLostAccept(ctx, token, now)
	}

	inviteAcceptTotal.WithLabelValues("success").Inc()
	s.logEvent(ctx, "invite_accepted", nil, inv.Email, clientIP, userAgent, true, "",
		map[string]interface{}{"invitation_id": inv.ID.String(), "project_id": inv.ProjectID.String()})

	return &AcceptResponse{
		InvitationID: inv.ID,
		ProjectID:    inv.ProjectID,
		Email:        inv.Email,
		InvitedBy:    inv.InvitedBy,
		AcceptedAt:   now,
	}, nil
}

// Cancel withdraws a Pending invitation. Only callers the project
// authorizer approves may cancel.
func (s *Service) Cancel(ctx context.Context, invitationID, requesterID uuid.UUID, clientIP, userAgent string) error {
	inv, err := s.repo.GetByID(ctx, invitationID)
	if err != nil {
		return apperror.InternalError("Could not load the invitation", "Try again later").WithError(err)
	}
	if inv == nil {
		return apperror.NotFoundError("invitation")
	}

	allowed, err := s.authorizer.CanManageInvites(ctx, inv.ProjectID, requesterID)
	if err != nil {
		return apperror.InternalError("Could not check project permissions", "Try again later").WithError(err)
	}
	if !allowed {
		s.logEvent(ctx, "invite_cancel_denied", &requesterID, inv.Email, clientIP, userAgent, false, "forbidden",
			map[string]interface{}{"invitation_id": inv.ID.String()})
		return apperror.ForbiddenError("You are not allowed to manage invitations for this project")
	}

	if inv.Status != domain.InvitationPending {
		return apperror.AlreadyResolvedError(
			fmt.Sprintf("The invitation was already %s", strings.ToLower(string(inv.Status))))
	}

	cancelled, err := s.repo.Cancel(ctx, inv.ID)
	if err != nil {
		return apperror.InternalError("Could not cancel the invitation", "Try again later").WithError(err)
	}
	if !cancelled {
		return apperror.AlreadyResolvedError("The invitation was resolved concurrently")
	}

	inviteCancelledTotal.Inc()
	s.logEvent(ctx, "invite_cancelled", &requesterID, inv.Email, clientIP, userAgent, true, "",
		map[string]interface{}{"invitation_id": inv.ID.String()})
	return nil
}

// classifyLostAccept reloads a token whose conditional accept returned no
// rows and maps the observed terminal state to a well-defined failure.
func (s *Service) classifyLostAccept(ctx context.Context, token string, now time.Time) error {
	inv, err := s.repo.GetByToken(ctx, token)
	if err != nil || inv == nil {
		return apperror.StorageConflictError("The invitation changed concurrently")
	}
	switch {
	case inv.Status == domain.InvitationAccepted || inv.Status == domain.InvitationCancelled:
		inviteAcceptTotal.WithLabelValues("already_resolved").Inc()
		return apperror.AlreadyResolvedError(
			fmt.Sprintf("The invitation was already %s", strings.ToLower(string(inv.Status))))
	case inv.Status == domain.InvitationExpired || inv.IsExpired(now):
		inviteAcceptTotal.WithLabelValues("expired").Inc()
		return apperror.ExpiredError("The invitation has expired", "Ask the project owner to invite you again")
	default:
		return apperror.StorageConflictError("The invitation changed concurrently")
	}
}

func (s *Service) logEvent(ctx context.Context, eventType string, actorID *uuid.UUID, email, clientIP, userAgent string, success bool, failureReason string, metadata map[string]interface{}) {
	err := s.auditRepo.LogEvent(ctx, repository.AuditEvent{
		EventType:     eventType,
		ActorID:       actorID,
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
