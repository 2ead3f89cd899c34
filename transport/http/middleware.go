package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vaultline/warden/core"
	"github.com/vaultline/warden/ports"
)

const claimsContextKey = "identityClaims"

// ClaimsFromContext returns the claims set by AuthMiddleware, or nil.
func ClaimsFromContext(c *gin.Context) *core.TokenClaims {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, ok := v.(*core.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// AuthMiddleware is the gateway: it extracts the bearer token, validates it
// and exposes the claims to handlers. Absence, malformation and failed
// validation all produce the same response. With allowHeaderAuth set (test
// environments only) an X-User-ID header may stand in for a token.
func AuthMiddleware(tokenizer ports.Tokenizer, allowHeaderAuth bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			claims, err := tokenizer.DecodeAndValidate(strings.TrimPrefix(auth, "Bearer "))
			if err == nil {
				c.Set(claimsContextKey, claims)
				c.Next()
				return
			}
			// Fall through to the uniform rejection; the reason stays inside.
		}

		if allowHeaderAuth {
			if userID := c.GetHeader("X-User-ID"); userID != "" {
				if _, err := uuid.Parse(userID); err == nil {
					c.Set(claimsContextKey, &core.TokenClaims{SubjectID: userID, Role: core.RoleUser})
					c.Next()
					return
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

// AdminMiddleware gates operational endpoints on an X-Admin-ID header.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID := c.GetHeader("X-Admin-ID")
		if adminID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if _, err := uuid.Parse(adminID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set("adminID", adminID)
		c.Next()
	}
}
