package ports

import (
	"context"
	"time"

	"github.com/vaultline/warden/core"
)

// NonceStore keeps at most one live wallet challenge per address.
type NonceStore interface {
	// Issue generates a fresh nonce for the address, replacing any prior
	// challenge. The previous nonce, if any, becomes unusable.
	Issue(ctx context.Context, address string, ttl time.Duration) (string, error)

	// Get returns the current unexpired nonce for the address, or
	// core.ErrNoChallenge.
	Get(ctx context.Context, address string) (string, error)

	// Consume atomically checks that the stored challenge exists, matches
	// nonce and is unexpired, then deletes it. On failure the row is left
	// as-is (expired rows are purged) and one of core.ErrNoChallenge,
	// core.ErrChallengeExpired or core.ErrChallengeMismatch is returned.
	// Concurrent consumes of the same nonce yield exactly one success.
	Consume(ctx context.Context, address, nonce string) error
}

// OtpStore keeps at most one live OTP challenge per identity.
type OtpStore interface {
	// Put upserts the challenge row for the identity with attempts reset to
	// zero, replacing any prior code.
	Put(ctx context.Context, identityID, codeHash string, ttl time.Duration) error

	// Verify runs the whole attempt as one atomic unit on the identity's row:
	// missing row, exhausted attempts and expiry are checked before the hash
	// compare; a match deletes the row, a mismatch increments attempts in
	// place. The error is non-nil only for storage or hashing failures.
	Verify(ctx context.Context, identityID, code string) (core.OtpResult, error)

	// CleanupExpired removes stale rows whose expiry passed without
	// consumption and reports how many were removed. Idempotent.
	CleanupExpired(ctx context.Context) (int, error)
}
