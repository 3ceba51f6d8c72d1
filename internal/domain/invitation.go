package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the stored status of a project invitation.
// Pending transitions to exactly one of the terminal states; Expired is
// observed from the clock first and written back lazily.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "Pending"
	InvitationAccepted  InvitationStatus = "Accepted"
	InvitationExpired   InvitationStatus = "Expired"
	InvitationCancelled InvitationStatus = "Cancelled"
)

// Invitation represents an emailed invitation to join a project. The token
// is an opaque unguessable string delivered inside the invitation link and
// unique across all invitations.
type Invitation struct {
	ID         uuid.UUID        `json:"id"`
	ProjectID  uuid.UUID        `json:"project_id"`
	InvitedBy  uuid.UUID        `json:"invited_by"`
	Email      string           `json:"email"`
	Token      string           `json:"-"` // Never expose token
	Status     InvitationStatus `json:"status"`
	ExpiresAt  time.Time        `json:"expires_at"`
	AcceptedAt *time.Time       `json:"accepted_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// IsExpired checks the validity window against the given instant.
func (inv *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(inv.ExpiresAt)
}

// IsResolved checks if the invitation reached a terminal stored status.
func (inv *Invitation) IsResolved() bool {
	return inv.Status != InvitationPending
}

// CanAccept checks if the invitation is still redeemable at the given instant.
func (inv *Invitation) CanAccept(now time.Time) bool {
	return inv.Status == InvitationPending && !inv.IsExpired(now)
}

// NormalizeEmail lower-cases and trims an invitee address so that
// (project, email) uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
