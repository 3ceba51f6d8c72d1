package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Params holds the Argon2id cost parameters.
// OWASP recommended: m=46 MiB, t=1, p=1
// RFC 9106 recommended: m=64 MiB, t=3, p=4
type Params struct {
	Memory      uint32 // Memory usage in KiB (default: 64*1024 = 64 MiB)
	Time        uint32 // Number of iterations (default: 3)
	Parallelism uint8  // Degree of parallelism (default: 4)
	SaltLength  uint32 // Salt length in bytes (default: 16)
	KeyLength   uint32 // Hash length in bytes (default: 32)
}

// DefaultParams returns OWASP/RFC 9106 recommended parameters.
func DefaultParams() *Params {
	return &Params{
		Memory:      64 * 1024, // 64 MiB
		Time:        3,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher is a one-way, self-salting digest function for stored secrets.
// Hashing the same secret twice yields different digests; both verify.
type Hasher struct {
	params *Params
}

// NewHasher creates an Argon2id hasher. Nil params selects the defaults.
func NewHasher(params *Params) *Hasher {
	if params == nil {
		params = DefaultParams()
	}
	return &Hasher{params: params}
}

// Hash generates an Argon2id digest for the given secret.
// Returns PHC format: $argon2id$v=19$m=65536,t=3,p=4$salt$hash
func (h *Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey(
		[]byte(secret),
		salt,
		h.params.Time,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedKey := base64.RawStdEncoding.EncodeToString(key)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		encodedSalt,
		encodedKey,
	), nil
}

// Verify checks if the secret matches the digest. The comparison is
// constant-time, so timing never correlates with matching prefixes.
func (h *Hasher) Verify(secret, digest string) (bool, error) {
	params, salt, key, err := parseDigest(digest)
	if err != nil {
		return false, err
	}

	// Recompute with the parameters embedded in the digest, so stored
	// digests outlive a parameter change.
	computed := argon2.IDKey(
		[]byte(secret),
		salt,
		params.Time,
		params.Memory,
		params.Parallelism,
		params.KeyLength,
	)

	return subtle.ConstantTimeCompare(key, computed) == 1, nil
}

// parseDigest extracts parameters from a PHC-encoded digest string.
func parseDigest(digest string) (*Params, []byte, []byte, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return nil, nil, nil, fmt.Errorf("invalid digest format: expected 6 parts, got %d", len(parts))
	}

	if parts[1] != "argon2id" {
		return nil, nil, nil, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid version: %w", err)
	}

	params := &Params{}
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&params.Memory, &params.Time, &params.Parallelism)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid salt: %w", err)
	}
	params.SaltLength = uint32(len(salt))

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid hash: %w", err)
	}
	params.KeyLength = uint32(len(key))

	return params, salt, key, nil
}
