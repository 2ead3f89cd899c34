package core

import "errors"

var (
	// ErrBadAddress marks a malformed or unsupported address encoding. This is
	// a caller error, distinct from an authentication failure.
	ErrBadAddress = errors.New("malformed address")

	// ErrBadSignature marks a malformed signature encoding, not a wrong one.
	ErrBadSignature = errors.New("malformed signature")

	// ErrBadCode marks a passcode that is not six digits, rejected before any
	// challenge state is touched.
	ErrBadCode = errors.New("malformed code")

	// ErrNoChallenge is returned when no nonce exists for an address.
	ErrNoChallenge = errors.New("no challenge for address")

	// ErrChallengeExpired is returned when the stored nonce outlived its TTL.
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrChallengeMismatch is returned when the presented nonce does not match
	// the stored one, including a nonce already consumed or superseded.
	ErrChallengeMismatch = errors.New("challenge mismatch")

	// ErrUnauthorized is the uniform authentication failure. The transport
	// layer collapses every nonce, signature and token failure into it so the
	// response leaks nothing about the cause.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrIdentityNotFound is returned when a flow requires an existing
	// identity and the lookup misses.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrInternal marks a failed crypto or storage primitive. Always fails
	// closed, never treated as success.
	ErrInternal = errors.New("internal error")
)
