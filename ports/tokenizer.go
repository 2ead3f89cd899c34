package ports

import (
	"time"

	"github.com/vaultline/warden/core"
)

// Tokenizer issues and validates the stateless bearer tokens both login flows
// terminate in.
type Tokenizer interface {
	// Issue signs a token carrying the identity's claims, expiring after ttl.
	Issue(identity *core.Identity, ttl time.Duration) (string, error)

	// DecodeAndValidate verifies the token's signature and expiry. Every
	// failure collapses to core.ErrUnauthorized; no revocation list is
	// consulted.
	DecodeAndValidate(token string) (*core.TokenClaims, error)
}
