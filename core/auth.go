package core

import "time"

// WalletChallenge is the single live nonce row for an address. The nonce is
// the exact byte string a wallet must sign to prove key possession.
type WalletChallenge struct {
	Address   string    // Stellar address the challenge was issued for
	Nonce     string    // Random value to be signed, hex-encoded
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Expired reports whether the challenge is past its expiry at the given time.
func (c *WalletChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// OtpChallenge is the single live one-time-passcode row for an identity.
// Only the bcrypt hash of the code is ever stored.
type OtpChallenge struct {
	IdentityID string    // Identity the code was issued for
	CodeHash   string    // bcrypt hash of the 6-digit code
	ExpiresAt  time.Time // When the code expires
	Attempts   int       // Failed verification attempts so far
	CreatedAt  time.Time // When the code was issued
}

// Expired reports whether the challenge is past its expiry at the given time.
func (c *OtpChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// MaxOtpAttempts is the number of failed verifications after which an OTP
// challenge becomes unusable and is removed.
const MaxOtpAttempts = 3

// OtpResult is the outcome of a single OTP verification attempt.
type OtpResult int

const (
	// OtpVerified means the code matched; the challenge has been consumed.
	OtpVerified OtpResult = iota

	// OtpInvalid means the code did not match; the attempt was counted.
	OtpInvalid

	// OtpExpired means the challenge outlived its TTL; it has been removed.
	OtpExpired

	// OtpAttemptsExhausted means too many failed attempts; the challenge has
	// been removed and even the correct code is rejected.
	OtpAttemptsExhausted

	// OtpNoChallenge means no pending code exists for the identity.
	OtpNoChallenge
)

func (r OtpResult) String() string {
	switch r {
	case OtpVerified:
		return "verified"
	case OtpInvalid:
		return "invalid"
	case OtpExpired:
		return "expired"
	case OtpAttemptsExhausted:
		return "attempts exhausted"
	case OtpNoChallenge:
		return "no challenge"
	default:
		return "unknown"
	}
}
