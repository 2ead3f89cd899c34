// Package http wires the gin router for the authentication service.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/vaultline/warden/ports"
	"github.com/vaultline/warden/service"
)

// RouterConfig carries the transport-level switches.
type RouterConfig struct {
	// AllowHeaderAuth enables the X-User-ID fallback. Never set outside
	// non-production test environments.
	AllowHeaderAuth bool

	// DBPing backs the database health endpoint; nil disables the check.
	DBPing func() error
}

// SetupRouter builds the gin engine with all routes attached.
func SetupRouter(
	auth *service.AuthService,
	otp *service.OtpService,
	tokenizer ports.Tokenizer,
	cfg RouterConfig,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	handlers := NewAuthHandlers(auth, otp, cfg.DBPing)

	router.GET("/health", handlers.Health)
	router.GET("/health/db", handlers.DBHealth)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/challenge", handlers.Challenge)
		authGroup.POST("/login", handlers.Login)
		authGroup.POST("/login/password", handlers.PasswordLogin)
		authGroup.POST("/otp/send", handlers.OtpSend)
		authGroup.POST("/otp/verify", handlers.OtpVerify)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(tokenizer, cfg.AllowHeaderAuth))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
	}

	admin := router.Group("/admin")
	admin.Use(AdminMiddleware())
	{
		admin.POST("/otp/cleanup", handlers.AdminOtpCleanup)
	}

	return router
}
