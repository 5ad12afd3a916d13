package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const resetTokenBytes = 32

// NewResetToken generates a high-entropy one-time token. The raw value is
// delivered out-of-band; only its hash may be persisted.
func NewResetToken() (raw, hash string, err error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate reset token: %w", err)
	}
	raw = hex.EncodeToString(b)
	return raw, HashResetToken(raw), nil
}

// HashResetToken maps a raw reset token to its stored form.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ResetTokenMatches compares a stored hash against the hash of a presented
// raw token in constant time.
func ResetTokenMatches(storedHash, raw string) bool {
	candidate := HashResetToken(raw)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(candidate)) == 1
}
