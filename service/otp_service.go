package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vaultline/warden/core"
	"github.com/vaultline/warden/ports"
	"github.com/vaultline/warden/secrets"
)

// DefaultOtpTTL is how long an issued passcode stays verifiable.
const DefaultOtpTTL = 5 * time.Minute

// OtpService handles the email one-time-passcode flow. The code travels only
// through the OtpSender; the service and its stores see the plaintext just
// long enough to hash it.
type OtpService struct {
	identities ports.IdentityStore
	otps       ports.OtpStore
	hasher     ports.SecretHasher
	sender     ports.OtpSender
	tokenizer  ports.Tokenizer
	events     ports.EventPublisher
	log        zerolog.Logger

	otpTTL   time.Duration
	tokenTTL time.Duration
}

// NewOtpService creates a new OTP service. tokenTTL <= 0 falls back to the
// tokenizer default.
func NewOtpService(
	identities ports.IdentityStore,
	otps ports.OtpStore,
	hasher ports.SecretHasher,
	sender ports.OtpSender,
	tokenizer ports.Tokenizer,
	events ports.EventPublisher,
	log zerolog.Logger,
	tokenTTL time.Duration,
) *OtpService {
	return &OtpService{
		identities: identities,
		otps:       otps,
		hasher:     hasher,
		sender:     sender,
		tokenizer:  tokenizer,
		events:     events,
		log:        log.With().Str("component", "otp").Logger(),
		otpTTL:     DefaultOtpTTL,
		tokenTTL:   tokenTTL,
	}
}

// Send issues a fresh code for the identity, replacing any unconsumed prior
// one, and hands it to the delivery channel. Returns the masked destination
// and the code's lifetime. An unknown identity is core.ErrIdentityNotFound.
func (s *OtpService) Send(ctx context.Context, identityID string) (string, time.Duration, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return "", 0, err
	}

	code, err := secrets.GenerateCode()
	if err != nil {
		return "", 0, fmt.Errorf("%w: code generation failed", core.ErrInternal)
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return "", 0, fmt.Errorf("%w: code hashing failed", core.ErrInternal)
	}

	if err := s.otps.Put(ctx, identity.ID, hash, s.otpTTL); err != nil {
		return "", 0, fmt.Errorf("failed to store challenge: %w", err)
	}

	if err := s.sender.SendOtp(ctx, identity.Email, code); err != nil {
		return "", 0, fmt.Errorf("failed to deliver code: %w", err)
	}

	if err := s.events.PublishOtpRequested(ctx, identity.ID); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish otp event")
	}

	s.log.Info().Str("identity_id", identity.ID).Msg("otp sent")
	return identity.Email, s.otpTTL, nil
}

// Verify runs one verification attempt and, on success, issues a bearer
// token. The distinguishable outcome is returned alongside so the transport
// can surface a reason without leaking credential material.
func (s *OtpService) Verify(ctx context.Context, identityID, code string) (core.OtpResult, string, error) {
	if !validCode(code) {
		return core.OtpInvalid, "", core.ErrBadCode
	}

	result, err := s.otps.Verify(ctx, identityID, code)
	if err != nil {
		return result, "", fmt.Errorf("verification failed: %w", err)
	}
	if result != core.OtpVerified {
		s.log.Debug().Str("identity_id", identityID).Stringer("result", result).Msg("otp rejected")
		return result, "", nil
	}

	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return result, "", err
	}
	token, err := s.tokenizer.Issue(identity, s.tokenTTL)
	if err != nil {
		return result, "", err
	}

	if err := s.events.PublishOtpVerified(ctx, identity.ID); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish otp event")
	}

	s.log.Info().Str("identity_id", identity.ID).Msg("otp verified")
	return result, token, nil
}

// Cleanup garbage-collects stale challenges. Safe to call on a schedule.
func (s *OtpService) Cleanup(ctx context.Context) (int, error) {
	removed, err := s.otps.CleanupExpired(ctx)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("expired otp challenges purged")
	}
	return removed, nil
}

func validCode(code string) bool {
	if len(code) != secrets.CodeLength {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
