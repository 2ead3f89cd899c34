package store

import (
	"context"
	"sync"
	"time"

	"github.com/vaultline/warden/core"
	"github.com/vaultline/warden/ports"
)

// MemoryNonceStore is an in-memory NonceStore for tests and single-node
// development runs.
type MemoryNonceStore struct {
	mu   sync.Mutex
	rows map[string]core.WalletChallenge
	now  func() time.Time
}

// NewMemoryNonceStore creates a new in-memory nonce store.
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{
		rows: make(map[string]core.WalletChallenge),
		now:  time.Now,
	}
}

// Issue generates a fresh nonce for the address, replacing any prior row.
func (s *MemoryNonceStore) Issue(ctx context.Context, address string, ttl time.Duration) (string, error) {
	nonce, err := newNonce()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.rows[address] = core.WalletChallenge{
		Address:   address,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	return nonce, nil
}

// Get returns the current unexpired nonce for the address.
func (s *MemoryNonceStore) Get(ctx context.Context, address string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[address]
	if !ok {
		return "", core.ErrNoChallenge
	}
	if row.Expired(s.now()) {
		delete(s.rows, address)
		return "", core.ErrNoChallenge
	}
	return row.Nonce, nil
}

// Consume deletes the challenge iff it exists, matches and is unexpired.
// The mutex is the atomic unit: two concurrent consumes of the same nonce
// serialize here and the second finds the row gone.
func (s *MemoryNonceStore) Consume(ctx context.Context, address, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[address]
	if !ok {
		return core.ErrNoChallenge
	}
	if row.Expired(s.now()) {
		delete(s.rows, address)
		return core.ErrChallengeExpired
	}
	if row.Nonce != nonce {
		return core.ErrChallengeMismatch
	}
	delete(s.rows, address)
	return nil
}

var _ ports.NonceStore = (*MemoryNonceStore)(nil)

// MemoryOtpStore is an in-memory OtpStore for tests and single-node
// development runs.
type MemoryOtpStore struct {
	mu     sync.Mutex
	rows   map[string]core.OtpChallenge
	hasher ports.SecretHasher
	now    func() time.Time
}

// NewMemoryOtpStore creates a new in-memory OTP store.
func NewMemoryOtpStore(hasher ports.SecretHasher) *MemoryOtpStore {
	return &MemoryOtpStore{
		rows:   make(map[string]core.OtpChallenge),
		hasher: hasher,
		now:    time.Now,
	}
}

// Put upserts the challenge for the identity with attempts reset to zero.
func (s *MemoryOtpStore) Put(ctx context.Context, identityID, codeHash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.rows[identityID] = core.OtpChallenge{
		IdentityID: identityID,
		CodeHash:   codeHash,
		ExpiresAt:  now.Add(ttl),
		Attempts:   0,
		CreatedAt:  now,
	}
	return nil
}

// Verify runs the whole attempt under the mutex. Attempts and expiry are
// checked before the hash compare.
func (s *MemoryOtpStore) Verify(ctx context.Context, identityID, code string) (core.OtpResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[identityID]
	if !ok {
		return core.OtpNoChallenge, nil
	}
	if row.Attempts >= core.MaxOtpAttempts {
		delete(s.rows, identityID)
		return core.OtpAttemptsExhausted, nil
	}
	if row.Expired(s.now()) {
		delete(s.rows, identityID)
		return core.OtpExpired, nil
	}

	match, err := s.hasher.Compare(code, row.CodeHash)
	if err != nil {
		return core.OtpInvalid, err
	}
	if match {
		delete(s.rows, identityID)
		return core.OtpVerified, nil
	}

	row.Attempts++
	s.rows[identityID] = row
	return core.OtpInvalid, nil
}

// CleanupExpired removes stale rows and reports how many were removed.
func (s *MemoryOtpStore) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, row := range s.rows {
		if row.Expired(now) {
			delete(s.rows, id)
			removed++
		}
	}
	return removed, nil
}

var _ ports.OtpStore = (*MemoryOtpStore)(nil)
