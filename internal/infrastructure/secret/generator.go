package secret

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// DefaultCodeLength is the number of digits in an emailed reset code.
	DefaultCodeLength = 6
	// DefaultTokenBytes is the entropy of an invitation link token.
	DefaultTokenBytes = 32
)

// NumericCode generates a fixed-length decimal code from crypto/rand,
// uniform over all length-digit combinations including leading zeros.
// Bytes >= 250 are rejected so the modulo introduces no bias.
func NumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length: %d", length)
	}

	var sb strings.Builder
	sb.Grow(length)

	buf := make([]byte, length)
	for sb.Len() < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= 250 {
				continue // rejection sampling: 250..255 would bias 0..5
			}
			sb.WriteByte('0' + b%10)
			if sb.Len() == length {
				break
			}
		}
	}
	return sb.String(), nil
}

// Token generates an opaque URL-safe token from byteLength random bytes.
// RawURLEncoding keeps the result free of padding and ambiguous characters.
func Token(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("invalid token length: %d", byteLength)
	}

	bytes := make([]byte, byteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// NormalizeCode strips surrounding whitespace from user input.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// IsCodeFormat checks if input looks like a reset code of the given length
// (digits only).
func IsCodeFormat(code string, length int) bool {
	code = NormalizeCode(code)
	if len(code) != length {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
