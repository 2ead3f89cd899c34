package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines the registered claims with the identity fields
// downstream services read.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}
