package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jiralite/api/internal/domain"
)

func TestInvitation_CanAccept(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name     string
		status   domain.InvitationStatus
		expires  time.Time
		expected bool
	}{
		{"pending within window", domain.InvitationPending, now.Add(time.Hour), true},
		{"pending past window", domain.InvitationPending, now.Add(-time.Minute), false},
		{"pending exactly at expiry", domain.InvitationPending, now, false},
		{"accepted", domain.InvitationAccepted, now.Add(time.Hour), false},
		{"cancelled", domain.InvitationCancelled, now.Add(time.Hour), false},
		{"expired status", domain.InvitationExpired, now.Add(time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &domain.Invitation{Status: tt.status, ExpiresAt: tt.expires}
			assert.Equal(t, tt.expected, inv.CanAccept(now))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "dev@example.com", domain.NormalizeEmail("  Dev@Example.COM "))
	assert.Equal(t, "dev@example.com", domain.NormalizeEmail("dev@example.com"))
}
