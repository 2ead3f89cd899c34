package core

import (
	"fmt"
	"strings"
	"time"
)

// Identity is a stable internal account mapped from a proven credential.
// Wallet-created identities carry an empty PasswordHash: the key itself is
// the credential.
type Identity struct {
	ID           string    // UUID
	Address      string    // Stellar address, unique; empty for email-only identities
	Email        string    // Contact email, unique
	PasswordHash string    // bcrypt hash; empty means proof-of-key only
	Role         string    // "user" or "admin"
	CreatedAt    time.Time
}

// RoleUser is the default role assigned to new identities.
const RoleUser = "user"

// PlaceholderEmail derives the deterministic placeholder contact for an
// identity created from a wallet address alone.
func PlaceholderEmail(address string) string {
	return fmt.Sprintf("%s@wallet.invalid", strings.ToLower(address))
}

// TokenClaims is the payload of an issued bearer token. It is never
// persisted; validity is carried entirely by the token's signature and expiry.
type TokenClaims struct {
	SubjectID string    // Identity ID
	Email     string    // Auxiliary contact claim
	Role      string    // Auxiliary role claim
	ExpiresAt time.Time
}
