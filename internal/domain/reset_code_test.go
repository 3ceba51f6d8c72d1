package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jiralite/api/internal/domain"
)

func TestResetCode_State(t *testing.T) {
	now := time.Now().UTC()
	used := now.Add(-time.Minute)

	tests := []struct {
		name     string
		code     domain.ResetCode
		expected domain.ResetCodeState
	}{
		{"fresh code", domain.ResetCode{ExpiresAt: now.Add(15 * time.Minute)}, domain.ResetCodeActive},
		{"consumed", domain.ResetCode{ExpiresAt: now.Add(15 * time.Minute), ConsumedAt: &used}, domain.ResetCodeConsumed},
		{"superseded", domain.ResetCode{ExpiresAt: now.Add(15 * time.Minute), SupersededAt: &used}, domain.ResetCodeExpired},
		{"past ttl", domain.ResetCode{ExpiresAt: now.Add(-time.Second)}, domain.ResetCodeExpired},
		{"exactly at expiry", domain.ResetCode{ExpiresAt: now}, domain.ResetCodeExpired},
		{"attempts spent", domain.ResetCode{ExpiresAt: now.Add(15 * time.Minute), Attempts: 5}, domain.ResetCodeExhausted},
		{"consumed wins over expiry", domain.ResetCode{ExpiresAt: now.Add(-time.Hour), ConsumedAt: &used}, domain.ResetCodeConsumed},
		{"expiry wins over exhaustion", domain.ResetCode{ExpiresAt: now.Add(-time.Hour), Attempts: 5}, domain.ResetCodeExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.code.State(now, 5))
		})
	}
}
