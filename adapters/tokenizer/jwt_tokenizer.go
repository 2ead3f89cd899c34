package tokenizer

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vaultline/warden/core"
	"github.com/vaultline/warden/ports"
)

const audienceSession = "warden:session"

// DefaultTokenTTL is the token lifetime used when a flow does not configure
// its own.
const DefaultTokenTTL = 24 * time.Hour

// JWTTokenizer issues and validates HS256 session tokens. The signing secret
// is injected once at startup and shared by the issue and decode paths; it
// must never be logged.
type JWTTokenizer struct {
	secret []byte
}

// NewJWTTokenizer creates a tokenizer around the server-held signing secret.
func NewJWTTokenizer(secret []byte) (*JWTTokenizer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("signing secret must not be empty")
	}
	return &JWTTokenizer{secret: secret}, nil
}

// Issue signs a token carrying the identity's claims, expiring after ttl.
func (j *JWTTokenizer) Issue(identity *core.Identity, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{audienceSession},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: identity.Email,
		Role:  identity.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("%w: failed to sign token", core.ErrInternal)
	}
	return signed, nil
}

// DecodeAndValidate verifies signature then expiry. Any failure, including a
// valid-but-expired token, collapses to core.ErrUnauthorized so callers
// cannot probe validity internals.
func (j *JWTTokenizer) DecodeAndValidate(tokenStr string) (*core.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithAudience(audienceSession), jwt.WithExpirationRequired())

	if err != nil || !token.Valid {
		return nil, core.ErrUnauthorized
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, core.ErrUnauthorized
	}

	return &core.TokenClaims{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)
