package http

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/warden/adapters/events"
	"github.com/vaultline/warden/adapters/identities"
	"github.com/vaultline/warden/adapters/store"
	"github.com/vaultline/warden/adapters/tokenizer"
	"github.com/vaultline/warden/core"
	"github.com/vaultline/warden/secrets"
	"github.com/vaultline/warden/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type captureSender struct {
	code string
}

func (s *captureSender) SendOtp(ctx context.Context, email, code string) error {
	s.code = code
	return nil
}

type fixture struct {
	router *gin.Engine
	ids    *identities.MemoryStore
	sender *captureSender
}

func newFixture(t *testing.T, cfg RouterConfig) *fixture {
	t.Helper()
	hasher := secrets.NewBcryptHasher()
	tk, err := tokenizer.NewJWTTokenizer([]byte("test-secret"))
	require.NoError(t, err)

	ids := identities.NewMemoryStore(hasher)
	sender := &captureSender{}
	log := zerolog.Nop()

	auth := service.NewAuthService(store.NewMemoryNonceStore(), ids, tk, events.NopPublisher{}, log, time.Hour)
	otp := service.NewOtpService(ids, store.NewMemoryOtpStore(hasher), hasher, sender, tk, events.NopPublisher{}, log, time.Hour)

	return &fixture{
		router: SetupRouter(auth, otp, tk, cfg),
		ids:    ids,
		sender: sender,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	resp := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestWalletLoginFlow(t *testing.T) {
	f := newFixture(t, RouterConfig{})

	kp, err := keypair.Random()
	require.NoError(t, err)

	w, resp := f.do(t, http.MethodPost, "/auth/challenge", gin.H{"address": kp.Address()}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	nonce := resp["nonce"].(string)
	require.NotEmpty(t, nonce)
	assert.EqualValues(t, int(service.DefaultChallengeTTL.Seconds()), resp["expires_in"])

	sig, err := kp.Sign([]byte(nonce))
	require.NoError(t, err)
	login := gin.H{"address": kp.Address(), "signature": hex.EncodeToString(sig)}

	w, resp = f.do(t, http.MethodPost, "/auth/login", login, nil)
	require.Equal(t, http.StatusOK, w.Code)
	token := resp["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "Bearer", resp["token_type"])

	w, resp = f.do(t, http.MethodGet, "/api/me", nil, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, core.PlaceholderEmail(kp.Address()), resp["email"])
	assert.Equal(t, core.RoleUser, resp["role"])

	// Replaying a consumed nonce yields the uniform rejection.
	w, resp = f.do(t, http.MethodPost, "/auth/login", login, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", resp["error"])
}

func TestChallengeRejectsBadAddress(t *testing.T) {
	f := newFixture(t, RouterConfig{})

	w, resp := f.do(t, http.MethodPost, "/auth/challenge", gin.H{"address": "bogus"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid address", resp["error"])

	w, _ = f.do(t, http.MethodPost, "/auth/challenge", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRejectsBadEncodings(t *testing.T) {
	f := newFixture(t, RouterConfig{})

	kp, err := keypair.Random()
	require.NoError(t, err)

	w, _ := f.do(t, http.MethodPost, "/auth/login", gin.H{"address": kp.Address(), "signature": "zz"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, "/auth/login", gin.H{"address": "bogus", "signature": "00"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPasswordLogin(t *testing.T) {
	f := newFixture(t, RouterConfig{})

	_, err := f.ids.Add(core.Identity{Email: "user@example.com"}, "open sesame")
	require.NoError(t, err)

	w, resp := f.do(t, http.MethodPost, "/auth/login/password",
		gin.H{"email": "user@example.com", "password": "open sesame"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, resp["token"])

	w, _ = f.do(t, http.MethodPost, "/auth/login/password",
		gin.H{"email": "user@example.com", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOtpFlow(t *testing.T) {
	f := newFixture(t, RouterConfig{})

	identity, err := f.ids.Add(core.Identity{Email: "user@example.com"}, "")
	require.NoError(t, err)

	w, resp := f.do(t, http.MethodPost, "/auth/otp/send", gin.H{"user_id": identity.ID}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "verification code sent to user@example.com", resp["message"])
	require.Len(t, f.sender.code, secrets.CodeLength)

	wrong := "000000"
	if f.sender.code == wrong {
		wrong = "000001"
	}
	w, resp = f.do(t, http.MethodPost, "/auth/otp/verify", gin.H{"user_id": identity.ID, "code": wrong}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, resp["verified"])
	assert.Equal(t, "invalid code", resp["message"])

	w, resp = f.do(t, http.MethodPost, "/auth/otp/verify", gin.H{"user_id": identity.ID, "code": f.sender.code}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["verified"])
	assert.NotEmpty(t, resp["token"])

	// Consumed: the same code cannot be verified twice.
	w, resp = f.do(t, http.MethodPost, "/auth/otp/verify", gin.H{"user_id": identity.ID, "code": f.sender.code}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "no pending code for this user", resp["message"])
}

func TestOtpSendUnknownUser(t *testing.T) {
	f := newFixture(t, RouterConfig{})

	w, resp := f.do(t, http.MethodPost, "/auth/otp/send", gin.H{"user_id": "no-such-id"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "user not found", resp["error"])
}

func TestOtpVerifyRejectsMalformedCode(t *testing.T) {
	f := newFixture(t, RouterConfig{})

	w, resp := f.do(t, http.MethodPost, "/auth/otp/verify", gin.H{"user_id": "whoever", "code": "12a45"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "code must be 6 digits", resp["error"])
}

func TestAuthMiddlewareRejects(t *testing.T) {
	f := newFixture(t, RouterConfig{})

	w, _ := f.do(t, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = f.do(t, http.MethodGet, "/api/me", nil, map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Header fallback is off by default.
	w, _ = f.do(t, http.MethodGet, "/api/me", nil,
		map[string]string{"X-User-ID": "7b9de3c2-5a17-4f82-9f6d-2f3f0a6f1c55"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareHeaderFallback(t *testing.T) {
	f := newFixture(t, RouterConfig{AllowHeaderAuth: true})

	w, resp := f.do(t, http.MethodGet, "/api/authorize", nil,
		map[string]string{"X-User-ID": "7b9de3c2-5a17-4f82-9f6d-2f3f0a6f1c55"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["authorized"])
	assert.Equal(t, "7b9de3c2-5a17-4f82-9f6d-2f3f0a6f1c55", resp["user_id"])

	w, _ = f.do(t, http.MethodGet, "/api/authorize", nil, map[string]string{"X-User-ID": "not-a-uuid"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminCleanupGate(t *testing.T) {
	f := newFixture(t, RouterConfig{})

	w, _ := f.do(t, http.MethodPost, "/admin/otp/cleanup", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = f.do(t, http.MethodPost, "/admin/otp/cleanup", nil, map[string]string{"X-Admin-ID": "not-a-uuid"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp := f.do(t, http.MethodPost, "/admin/otp/cleanup", nil,
		map[string]string{"X-Admin-ID": "7b9de3c2-5a17-4f82-9f6d-2f3f0a6f1c55"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, resp["removed"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t, RouterConfig{})

	w, resp := f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp["status"])

	w, resp = f.do(t, http.MethodGet, "/health/db", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp["status"])
}
