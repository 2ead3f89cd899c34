package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/warden/core"
	"github.com/vaultline/warden/secrets"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisNonceStoreConsumeOnce(t *testing.T) {
	ctx := context.Background()
	s := NewRedisNonceStore(newTestRedis(t))

	nonce, err := s.Issue(ctx, testAddress, time.Minute)
	require.NoError(t, err)

	got, err := s.Get(ctx, testAddress)
	require.NoError(t, err)
	assert.Equal(t, nonce, got)

	require.NoError(t, s.Consume(ctx, testAddress, nonce))
	assert.ErrorIs(t, s.Consume(ctx, testAddress, nonce), core.ErrNoChallenge)
}

func TestRedisNonceStoreReissueInvalidatesPrior(t *testing.T) {
	ctx := context.Background()
	s := NewRedisNonceStore(newTestRedis(t))

	old, err := s.Issue(ctx, testAddress, time.Minute)
	require.NoError(t, err)
	fresh, err := s.Issue(ctx, testAddress, time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Consume(ctx, testAddress, old), core.ErrChallengeMismatch)
	assert.NoError(t, s.Consume(ctx, testAddress, fresh))
}

func TestRedisNonceStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewRedisNonceStore(newTestRedis(t))

	nonce, err := s.Issue(ctx, testAddress, time.Minute)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	assert.ErrorIs(t, s.Consume(ctx, testAddress, nonce), core.ErrChallengeExpired)
	// The failed consume purged the stale row.
	assert.ErrorIs(t, s.Consume(ctx, testAddress, nonce), core.ErrNoChallenge)
}

func TestRedisNonceStoreConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	s := NewRedisNonceStore(newTestRedis(t))

	nonce, err := s.Issue(ctx, testAddress, time.Minute)
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.Consume(ctx, testAddress, nonce)
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent consume must win")
}

func TestRedisOtpStoreAttemptFlow(t *testing.T) {
	ctx := context.Background()
	hasher := secrets.NewBcryptHasher()
	s := NewRedisOtpStore(newTestRedis(t), hasher)

	hash, err := hasher.Hash("654321")
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "user-1", hash, time.Minute))

	for i := 0; i < core.MaxOtpAttempts; i++ {
		result, err := s.Verify(ctx, "user-1", "000000")
		require.NoError(t, err)
		assert.Equal(t, core.OtpInvalid, result)
	}

	result, err := s.Verify(ctx, "user-1", "654321")
	require.NoError(t, err)
	assert.Equal(t, core.OtpAttemptsExhausted, result)

	result, err = s.Verify(ctx, "user-1", "654321")
	require.NoError(t, err)
	assert.Equal(t, core.OtpNoChallenge, result)
}

// rewriteHook rewrites the watched key right before every MULTI/EXEC
// pipeline, so each optimistic transaction attempt fails its EXEC.
type rewriteHook struct {
	mr    *miniredis.Miniredis
	key   string
	value string
}

func (h *rewriteHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *rewriteHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (h *rewriteHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		_ = h.mr.Set(h.key, h.value)
		return next(ctx, cmds)
	}
}

func TestRedisNonceStoreConsumeRetryExhaustion(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisNonceStore(client)

	nonce, err := s.Issue(ctx, testAddress, time.Minute)
	require.NoError(t, err)

	raw, err := mr.Get(noncePrefix + testAddress)
	require.NoError(t, err)
	client.AddHook(&rewriteHook{mr: mr, key: noncePrefix + testAddress, value: raw})

	err = s.Consume(ctx, testAddress, nonce)
	assert.ErrorIs(t, err, core.ErrInternal)
}

func TestRedisOtpStoreConcurrentVerify(t *testing.T) {
	ctx := context.Background()
	hasher := secrets.NewBcryptHasher()
	s := NewRedisOtpStore(newTestRedis(t), hasher)

	hash, err := hasher.Hash("654321")
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "user-1", hash, time.Minute))

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan core.OtpResult, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.Verify(ctx, "user-1", "654321")
			assert.NoError(t, err)
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	verified, noChallenge := 0, 0
	for result := range results {
		switch result {
		case core.OtpVerified:
			verified++
		case core.OtpNoChallenge:
			noChallenge++
		}
	}
	assert.Equal(t, 1, verified, "exactly one concurrent verify must win")
	assert.Equal(t, workers-1, noChallenge)
}

func TestRedisOtpStoreVerifyConsumes(t *testing.T) {
	ctx := context.Background()
	hasher := secrets.NewBcryptHasher()
	s := NewRedisOtpStore(newTestRedis(t), hasher)

	hash, err := hasher.Hash("654321")
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "user-1", hash, time.Minute))

	result, err := s.Verify(ctx, "user-1", "654321")
	require.NoError(t, err)
	assert.Equal(t, core.OtpVerified, result)

	result, err = s.Verify(ctx, "user-1", "654321")
	require.NoError(t, err)
	assert.Equal(t, core.OtpNoChallenge, result)
}

func TestRedisOtpStoreExpiry(t *testing.T) {
	ctx := context.Background()
	hasher := secrets.NewBcryptHasher()
	s := NewRedisOtpStore(newTestRedis(t), hasher)

	hash, err := hasher.Hash("654321")
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "user-1", hash, 5*time.Minute))

	s.now = func() time.Time { return time.Now().Add(6 * time.Minute) }

	result, err := s.Verify(ctx, "user-1", "654321")
	require.NoError(t, err)
	assert.Equal(t, core.OtpExpired, result)
}

func TestRedisOtpStoreCleanupExpired(t *testing.T) {
	ctx := context.Background()
	hasher := secrets.NewBcryptHasher()
	s := NewRedisOtpStore(newTestRedis(t), hasher)

	hash, err := hasher.Hash("654321")
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "stale", hash, time.Minute))
	require.NoError(t, s.Put(ctx, "live", hash, time.Hour))

	s.now = func() time.Time { return time.Now().Add(30 * time.Minute) }

	removed, err := s.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = s.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}
