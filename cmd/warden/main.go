package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/vaultline/warden/adapters/email"
	"github.com/vaultline/warden/adapters/events"
	"github.com/vaultline/warden/adapters/identities"
	"github.com/vaultline/warden/adapters/store"
	"github.com/vaultline/warden/adapters/tokenizer"
	"github.com/vaultline/warden/config"
	"github.com/vaultline/warden/ports"
	"github.com/vaultline/warden/secrets"
	"github.com/vaultline/warden/service"
	transport "github.com/vaultline/warden/transport/http"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse redis url")
	}
	redisClient := redis.NewClient(opts)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	hasher := secrets.NewBcryptHasher()

	identityStore, err := identities.NewGormStore(db, hasher)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize identity store")
	}

	nonceStore := store.NewRedisNonceStore(redisClient)
	otpStore := store.NewRedisOtpStore(redisClient, hasher)

	jwtTokenizer, err := tokenizer.NewJWTTokenizer([]byte(cfg.JWTSecret))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tokenizer")
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	eventPub := events.NewWatermillPublisher(publisher)

	var sender ports.OtpSender
	if cfg.SMTP.Host != "" {
		sender = email.NewSMTPSender(email.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		sender = email.NewLogSender(log)
	}

	authService := service.NewAuthService(nonceStore, identityStore, jwtTokenizer, eventPub, log, cfg.WalletTokenTTL)
	otpService := service.NewOtpService(identityStore, otpStore, hasher, sender, jwtTokenizer, eventPub, log, cfg.OtpTokenTTL)

	// Best-effort garbage collection of stale OTP rows.
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := otpService.Cleanup(ctx); err != nil {
				log.Warn().Err(err).Msg("otp cleanup failed")
			}
			cancel()
		}
	}()

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to access database handle")
	}

	router := transport.SetupRouter(authService, otpService, jwtTokenizer, transport.RouterConfig{
		AllowHeaderAuth: cfg.AllowHeaderAuth,
		DBPing:          sqlDB.Ping,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().Str("addr", addr).Msg("starting warden")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
