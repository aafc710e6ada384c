// Package token generates and checks the per-PC access tokens printed into
// QR codes. Tokens are random at provisioning time and immutable afterwards;
// rotation is an administrative operation.
package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// rawLen is the number of random bytes per token; hex-encoded this yields a
// 48-character token.
const rawLen = 24

// Generate returns a new unguessable PC access token.
func Generate() (string, error) {
	raw := make([]byte, rawLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// Match reports whether the presented token equals the stored one, in time
// independent of where the strings differ. Length is not secret here; tokens
// have a fixed length and a wrong-length candidate fails immediately.
func Match(stored, presented string) bool {
	if len(stored) != len(presented) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
