package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vaultline/warden/core"
	"github.com/vaultline/warden/service"
)

// AuthHandlers contains the HTTP handlers for both login flows.
type AuthHandlers struct {
	auth *service.AuthService
	otp  *service.OtpService

	// dbPing reports storage health for the db health endpoint; nil means no
	// relational store is wired.
	dbPing func() error
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(auth *service.AuthService, otp *service.OtpService, dbPing func() error) *AuthHandlers {
	return &AuthHandlers{auth: auth, otp: otp, dbPing: dbPing}
}

// Challenge issues a nonce for a wallet address.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	nonce, ttl, err := h.auth.Challenge(c.Request.Context(), req.Address)
	if err != nil {
		if errors.Is(err, core.ErrBadAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce":      nonce,
		"expires_in": int(ttl.Seconds()),
	})
}

// Login verifies a signed nonce and returns a bearer token. Whatever the
// reason a well-formed attempt fails, the response is the same 401.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Address, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrBadAddress), errors.Is(err, core.ErrBadSignature):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request encoding"})
		case errors.Is(err, core.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
	})
}

// PasswordLogin authenticates the email+password credential.
func (h *AuthHandlers) PasswordLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := h.auth.LoginWithPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
	})
}

// OtpSend issues a passcode and hands it to the delivery channel. The code
// is never part of the response.
func (h *AuthHandlers) OtpSend(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	email, ttl, err := h.otp.Send(c.Request.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, core.ErrIdentityNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "verification code sent to " + email,
		"expires_in_seconds": int(ttl.Seconds()),
	})
}

// OtpVerify runs one verification attempt. Rejections share a status class
// but carry a user-facing reason, since no credential material is disclosed
// by doing so.
func (h *AuthHandlers) OtpVerify(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
		Code   string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, token, err := h.otp.Verify(c.Request.Context(), req.UserID, req.Code)
	if err != nil {
		if errors.Is(err, core.ErrBadCode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code must be 6 digits"})
			return
		}
		if errors.Is(err, core.ErrIdentityNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}

	if result == core.OtpVerified {
		c.JSON(http.StatusOK, gin.H{
			"verified":   true,
			"token":      token,
			"token_type": "Bearer",
		})
		return
	}

	c.JSON(http.StatusUnauthorized, gin.H{
		"verified": false,
		"message":  otpRejectionMessage(result),
	})
}

func otpRejectionMessage(result core.OtpResult) string {
	switch result {
	case core.OtpInvalid:
		return "invalid code"
	case core.OtpExpired:
		return "code has expired, request a new one"
	case core.OtpAttemptsExhausted:
		return "too many attempts, request a new code"
	case core.OtpNoChallenge:
		return "no pending code for this user"
	default:
		return "verification failed"
	}
}

// Me returns the claims of the authenticated caller.
func (h *AuthHandlers) Me(c *gin.Context) {
	claims := ClaimsFromContext(c)
	if claims == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "claims missing from context"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": claims.SubjectID,
		"email":   claims.Email,
		"role":    claims.Role,
	})
}

// Authorize confirms the caller passed the gateway.
func (h *AuthHandlers) Authorize(c *gin.Context) {
	claims := ClaimsFromContext(c)
	if claims == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "claims missing from context"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"user_id":    claims.SubjectID,
	})
}

// Health reports process liveness.
func (h *AuthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "app is healthy"})
}

// DBHealth reports relational storage health.
func (h *AuthHandlers) DBHealth(c *gin.Context) {
	if h.dbPing == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "no database configured"})
		return
	}
	if err := h.dbPing(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "database is connected"})
}

// AdminOtpCleanup triggers garbage collection of stale OTP challenges.
func (h *AuthHandlers) AdminOtpCleanup(c *gin.Context) {
	removed, err := h.otp.Cleanup(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cleanup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
