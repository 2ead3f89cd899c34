package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// newNonce returns 32 random bytes hex-encoded, the opaque value a wallet
// signs byte-for-byte.
func newNonce() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
