// Package email delivers one-time passcodes over SMTP.
package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"

	"github.com/vaultline/warden/ports"
)

// Config holds the SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends OTP mail through a plain SMTP relay.
type SMTPSender struct {
	cfg Config
}

// NewSMTPSender creates a new SMTP sender.
func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// SendOtp delivers the code to the recipient. The code appears only in the
// message body, never in logs or errors.
func (s *SMTPSender) SendOtp(ctx context.Context, to, code string) error {
	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your verification code\r\n\r\n"+
			"Your verification code is: %s\r\n\r\n"+
			"This code will expire in 5 minutes.\r\n\r\n"+
			"If you didn't request this code, please ignore this email.\r\n",
		s.cfg.From, to, code,
	)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send otp mail to %s: %w", to, err)
	}
	return nil
}

var _ ports.OtpSender = (*SMTPSender)(nil)

// LogSender confirms delivery in logs without disclosing the code. Used in
// development when no SMTP relay is configured.
type LogSender struct {
	log zerolog.Logger
}

// NewLogSender creates a sender that only logs the recipient.
func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

// SendOtp logs that a code was issued. The code itself is withheld.
func (s *LogSender) SendOtp(ctx context.Context, to, code string) error {
	s.log.Info().Str("to", to).Msg("otp issued, delivery skipped (no smtp relay configured)")
	return nil
}

var _ ports.OtpSender = (*LogSender)(nil)
