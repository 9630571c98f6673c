// Package auth holds the session-token primitive. spec.md disagrees
// with itself on the token's bit length (§3 says 128-bit, §6 says
// 256-bit); SPEC_FULL.md §0.1 resolves this in favor of §6 — the
// later, more specific, and safer figure.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const sessionTokenBytes = 32 // 256 bits

// NewSessionToken generates an opaque, base64url (no padding)
// encoded, cryptographically random session token.
func NewSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("error generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
