// Package service holds the authentication business logic.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vaultline/warden/core"
	"github.com/vaultline/warden/internal/stellar"
	"github.com/vaultline/warden/ports"
)

// DefaultChallengeTTL is how long an issued nonce stays consumable.
const DefaultChallengeTTL = 5 * time.Minute

// AuthService handles the wallet login flow: nonce issuance, signature
// verification, single-use consumption and token issuance. The email+password
// sibling flow terminates in the same tokenizer.
type AuthService struct {
	nonces     ports.NonceStore
	identities ports.IdentityStore
	tokenizer  ports.Tokenizer
	events     ports.EventPublisher
	log        zerolog.Logger

	challengeTTL time.Duration
	tokenTTL     time.Duration
}

// NewAuthService creates a new authentication service. tokenTTL <= 0 falls
// back to the tokenizer default.
func NewAuthService(
	nonces ports.NonceStore,
	identities ports.IdentityStore,
	tokenizer ports.Tokenizer,
	events ports.EventPublisher,
	log zerolog.Logger,
	tokenTTL time.Duration,
) *AuthService {
	return &AuthService{
		nonces:       nonces,
		identities:   identities,
		tokenizer:    tokenizer,
		events:       events,
		log:          log.With().Str("component", "auth").Logger(),
		challengeTTL: DefaultChallengeTTL,
		tokenTTL:     tokenTTL,
	}
}

// Challenge issues a fresh nonce for the address, invalidating any prior
// unconsumed one. A malformed address is rejected before any state changes.
func (s *AuthService) Challenge(ctx context.Context, address string) (string, time.Duration, error) {
	if _, err := stellar.DecodeAddress(address); err != nil {
		return "", 0, err
	}

	nonce, err := s.nonces.Issue(ctx, address, s.challengeTTL)
	if err != nil {
		return "", 0, fmt.Errorf("failed to issue challenge: %w", err)
	}
	return nonce, s.challengeTTL, nil
}

// Login verifies the signature over the current nonce, consumes the nonce
// atomically and issues a bearer token. Every nonce or signature failure
// collapses to core.ErrUnauthorized; the precise reason is only logged.
func (s *AuthService) Login(ctx context.Context, address, signature string) (string, error) {
	if _, err := stellar.DecodeAddress(address); err != nil {
		return "", err
	}
	sig, err := stellar.DecodeSignature(signature)
	if err != nil {
		return "", err
	}

	nonce, err := s.nonces.Get(ctx, address)
	if err != nil {
		s.log.Debug().Str("address", address).AnErr("reason", err).Msg("login rejected")
		return "", core.ErrUnauthorized
	}

	// The message signed is exactly the nonce's opaque value, no framing.
	ok, err := stellar.Verify(address, []byte(nonce), sig)
	if err != nil {
		return "", err
	}
	if !ok {
		s.log.Debug().Str("address", address).Msg("login rejected: signature does not verify")
		return "", core.ErrUnauthorized
	}

	// Consume after verification: of two concurrent logins with the same
	// valid signature, exactly one consume succeeds and the loser fails
	// closed here.
	if err := s.nonces.Consume(ctx, address, nonce); err != nil {
		s.log.Debug().Str("address", address).AnErr("reason", err).Msg("login rejected")
		return "", core.ErrUnauthorized
	}

	identity, err := s.identities.ResolveOrCreateByAddress(ctx, address)
	if err != nil {
		return "", fmt.Errorf("failed to resolve identity: %w", err)
	}

	token, err := s.tokenizer.Issue(identity, s.tokenTTL)
	if err != nil {
		return "", err
	}

	if err := s.events.PublishLogin(ctx, identity.ID, address); err != nil {
		// The login already succeeded; a lost audit event must not fail it.
		s.log.Warn().Err(err).Msg("failed to publish login event")
	}

	s.log.Info().Str("identity_id", identity.ID).Msg("wallet login")
	return token, nil
}

// LoginWithPassword authenticates the email+password credential and issues a
// token through the same tokenizer as the wallet flow.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (string, error) {
	identity, err := s.identities.ResolveByEmailPassword(ctx, email, password)
	if err != nil {
		return "", err
	}

	token, err := s.tokenizer.Issue(identity, s.tokenTTL)
	if err != nil {
		return "", err
	}

	s.log.Info().Str("identity_id", identity.ID).Msg("password login")
	return token, nil
}
