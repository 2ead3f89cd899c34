// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process-wide configuration, read once at startup.
type Config struct {
	Port        int
	RedisURL    string
	DatabaseURL string

	// JWTSecret signs and validates every bearer token. Injected here and
	// nowhere else; never logged.
	JWTSecret string

	// Token lifetimes per flow. Both default to 24h but are deliberately
	// separate knobs.
	WalletTokenTTL time.Duration
	OtpTokenTTL    time.Duration

	// AllowHeaderAuth enables the X-User-ID gateway fallback for
	// non-production test environments.
	AllowHeaderAuth bool

	// CleanupInterval drives the periodic OTP garbage collection.
	CleanupInterval time.Duration

	SMTP SMTPConfig
}

// SMTPConfig holds the OTP delivery relay settings. An empty host selects
// the development sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads the configuration, honoring a local .env file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	cfg := &Config{
		Port:            envInt("PORT", 8080),
		RedisURL:        envStr("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSecret:       secret,
		WalletTokenTTL:  envDuration("WALLET_TOKEN_TTL", 24*time.Hour),
		OtpTokenTTL:     envDuration("OTP_TOKEN_TTL", 24*time.Hour),
		AllowHeaderAuth: envBool("ALLOW_HEADER_AUTH", false),
		CleanupInterval: envDuration("OTP_CLEANUP_INTERVAL", 10*time.Minute),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envStr("FROM_EMAIL", "noreply@warden.local"),
		},
	}
	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
