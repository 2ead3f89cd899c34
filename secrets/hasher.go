// Package secrets generates and hashes short-lived authentication secrets.
package secrets

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// CodeLength is the number of digits in a generated one-time passcode.
const CodeLength = 6

// codeMin..codeMax is the uniform range guaranteeing exactly six digits.
const (
	codeMin = 100000
	codeMax = 999999
)

// GenerateCode returns a uniformly random 6-digit passcode.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

// BcryptHasher hashes secrets with bcrypt, salting on every call.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher at the default bcrypt cost.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: bcrypt.DefaultCost}
}

// Hash returns a salted bcrypt hash of the secret.
func (h *BcryptHasher) Hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashed), nil
}

// Compare reports whether secret matches hash. A mismatch is (false, nil);
// an error means the hash itself is unusable.
func (h *BcryptHasher) Compare(secret, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch err {
	case nil:
		return true, nil
	case bcrypt.ErrMismatchedHashAndPassword:
		return false, nil
	default:
		return false, fmt.Errorf("failed to compare secret: %w", err)
	}
}
