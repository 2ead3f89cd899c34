package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vaultline/warden/core"
	"github.com/vaultline/warden/ports"
)

const (
	noncePrefix = "warden:nonce:"
	otpPrefix   = "warden:otp:"

	// Rows keep an expires_at field of their own; the key TTL gets this much
	// grace on top so an expired row is still observable as Expired rather
	// than NoChallenge until redis drops it.
	expiryGrace = time.Hour

	// Optimistic transactions are retried this many times on write conflict.
	maxTxRetries = 4
)

// RedisNonceStore is a redis-backed NonceStore. Consume runs as an
// optimistic WATCH transaction on the address key, so of N concurrent
// consumes of the same nonce exactly one DEL commits.
type RedisNonceStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisNonceStore creates a new redis nonce store.
func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client, now: time.Now}
}

func (s *RedisNonceStore) key(address string) string {
	return noncePrefix + address
}

// Issue generates a fresh nonce and upserts the row, replacing any prior
// challenge for the address. A single SET is atomic with respect to itself.
func (s *RedisNonceStore) Issue(ctx context.Context, address string, ttl time.Duration) (string, error) {
	nonce, err := newNonce()
	if err != nil {
		return "", err
	}

	now := s.now()
	row := core.WalletChallenge{
		Address:   address,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	data, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("failed to encode challenge: %w", err)
	}

	if err := s.client.Set(ctx, s.key(address), data, ttl+expiryGrace).Err(); err != nil {
		return "", fmt.Errorf("failed to store challenge: %w", err)
	}
	return nonce, nil
}

// Get returns the current unexpired nonce for the address.
func (s *RedisNonceStore) Get(ctx context.Context, address string) (string, error) {
	data, err := s.client.Get(ctx, s.key(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", core.ErrNoChallenge
	}
	if err != nil {
		return "", fmt.Errorf("failed to load challenge: %w", err)
	}

	var row core.WalletChallenge
	if err := json.Unmarshal(data, &row); err != nil {
		return "", fmt.Errorf("failed to decode challenge: %w", err)
	}
	if row.Expired(s.now()) {
		return "", core.ErrNoChallenge
	}
	return row.Nonce, nil
}

// Consume atomically checks and deletes the challenge row.
func (s *RedisNonceStore) Consume(ctx context.Context, address, nonce string) error {
	key := s.key(address)

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return core.ErrNoChallenge
			}
			if err != nil {
				return fmt.Errorf("failed to load challenge: %w", err)
			}

			var row core.WalletChallenge
			if err := json.Unmarshal(data, &row); err != nil {
				return fmt.Errorf("failed to decode challenge: %w", err)
			}

			if row.Expired(s.now()) {
				// Purge opportunistically; the consume still fails.
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				return core.ErrChallengeExpired
			}
			if row.Nonce != nonce {
				return core.ErrChallengeMismatch
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			// Another request touched the key mid-transaction; re-read and
			// decide again.
			continue
		}
		return err
	}
	return fmt.Errorf("%w: consume transaction kept conflicting", core.ErrInternal)
}

var _ ports.NonceStore = (*RedisNonceStore)(nil)

// RedisOtpStore is a redis-backed OtpStore. Verify runs the ordered checks
// and the hash compare inside one optimistic WATCH transaction per identity
// key, so attempt counting never races.
type RedisOtpStore struct {
	client *redis.Client
	hasher ports.SecretHasher
	now    func() time.Time
}

// NewRedisOtpStore creates a new redis OTP store.
func NewRedisOtpStore(client *redis.Client, hasher ports.SecretHasher) *RedisOtpStore {
	return &RedisOtpStore{client: client, hasher: hasher, now: time.Now}
}

func (s *RedisOtpStore) key(identityID string) string {
	return otpPrefix + identityID
}

// Put upserts the challenge row with attempts reset to zero, replacing any
// unconsumed prior code for the identity.
func (s *RedisOtpStore) Put(ctx context.Context, identityID, codeHash string, ttl time.Duration) error {
	now := s.now()
	row := core.OtpChallenge{
		IdentityID: identityID,
		CodeHash:   codeHash,
		ExpiresAt:  now.Add(ttl),
		Attempts:   0,
		CreatedAt:  now,
	}
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}

	if err := s.client.Set(ctx, s.key(identityID), data, ttl+expiryGrace).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// Verify runs a single verification attempt as one atomic unit.
func (s *RedisOtpStore) Verify(ctx context.Context, identityID, code string) (core.OtpResult, error) {
	key := s.key(identityID)

	for i := 0; i < maxTxRetries; i++ {
		var result core.OtpResult

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				result = core.OtpNoChallenge
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to load challenge: %w", err)
			}

			var row core.OtpChallenge
			if err := json.Unmarshal(data, &row); err != nil {
				return fmt.Errorf("failed to decode challenge: %w", err)
			}

			// Attempts and expiry are checked before the compare so an
			// exhausted or stale challenge is rejected even for the right
			// code.
			if row.Attempts >= core.MaxOtpAttempts {
				result = core.OtpAttemptsExhausted
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}
			if row.Expired(s.now()) {
				result = core.OtpExpired
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			match, err := s.hasher.Compare(code, row.CodeHash)
			if err != nil {
				return err
			}
			if match {
				result = core.OtpVerified
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			result = core.OtpInvalid
			row.Attempts++
			updated, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("failed to encode challenge: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, redis.KeepTTL)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return core.OtpInvalid, err
		}
		return result, nil
	}
	return core.OtpInvalid, fmt.Errorf("%w: verification transaction kept conflicting", core.ErrInternal)
}

// CleanupExpired scans for stale rows whose own expiry passed and removes
// them. Redis drops keys at TTL anyway; this trims the grace window early.
func (s *RedisOtpStore) CleanupExpired(ctx context.Context) (int, error) {
	removed := 0
	now := s.now()

	iter := s.client.Scan(ctx, 0, otpPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to load challenge: %w", err)
		}

		var row core.OtpChallenge
		if err := json.Unmarshal(data, &row); err != nil {
			continue
		}
		if row.Expired(now) {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return removed, fmt.Errorf("failed to delete challenge: %w", err)
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan challenges: %w", err)
	}
	return removed, nil
}

var _ ports.OtpStore = (*RedisOtpStore)(nil)
