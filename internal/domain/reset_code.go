package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResetCodeState is the derived lifecycle state of a password reset code.
// Expiry and exhaustion are computed, never stored, so no background job
// is needed to keep stored state truthful.
type ResetCodeState string

const (
	ResetCodeActive    ResetCodeState = "Active"
	ResetCodeExhausted ResetCodeState = "Exhausted"
	ResetCodeExpired   ResetCodeState = "Expired"
	ResetCodeConsumed  ResetCodeState = "Consumed"
)

// ResetCode represents a single-use password reset code for an account.
// Only the argon2id digest of the code is ever stored.
type ResetCode struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"account_id"`
	CodeHash     string     `json:"-"` // Never expose hash
	ExpiresAt    time.Time  `json:"expires_at"`
	Attempts     int        `json:"attempts"`
	ConsumedAt   *time.Time `json:"consumed_at,omitempty"`
	SupersededAt *time.Time `json:"superseded_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsConsumed checks if the code was already redeemed.
func (rc *ResetCode) IsConsumed() bool {
	return rc.ConsumedAt != nil
}

// IsSuperseded checks if a newer code for the same account replaced this one.
// A superseded code behaves exactly like an expired one.
func (rc *ResetCode) IsSuperseded() bool {
	return rc.SupersededAt != nil
}

// State derives the lifecycle state at the given instant. Consumed wins over
// every other state; superseded folds into Expired.
func (rc *ResetCode) State(now time.Time, maxAttempts int) ResetCodeState {
	switch {
	case rc.IsConsumed():
		return ResetCodeConsumed
	case rc.IsSuperseded() || !now.Before(rc.ExpiresAt):
		return ResetCodeExpired
	case rc.Attempts >= maxAttempts:
		return ResetCodeExhausted
	default:
		return ResetCodeActive
	}
}
