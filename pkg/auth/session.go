package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// DefaultSessionTTL is the lifetime of a freshly issued session.
const DefaultSessionTTL = 24 * time.Hour

// NewSessionToken returns a 32-byte random token, hex encoded.
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// SessionExpiry returns the expiry for a session issued at now.
func SessionExpiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return now.UTC().Add(ttl)
}
