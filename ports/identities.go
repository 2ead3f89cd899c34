package ports

import (
	"context"

	"github.com/vaultline/warden/core"
)

// IdentityStore is the identity directory. Anything beyond the atomic
// find-or-create contract is owned by external collaborators.
type IdentityStore interface {
	// ResolveOrCreateByAddress returns the identity owning the address,
	// creating it on first proof. Creation must be safe under concurrent
	// first-logins for the same address (conflict-tolerant insert, not
	// read-then-write).
	ResolveOrCreateByAddress(ctx context.Context, address string) (*core.Identity, error)

	// ResolveByEmailPassword returns the identity iff the password matches
	// the stored hash; otherwise core.ErrUnauthorized.
	ResolveByEmailPassword(ctx context.Context, email, password string) (*core.Identity, error)

	// GetByID returns the identity or core.ErrIdentityNotFound.
	GetByID(ctx context.Context, id string) (*core.Identity, error)
}
