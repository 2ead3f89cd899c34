package ports

import "context"

// OtpSender delivers one-time passcodes over the out-of-band channel. The
// code reaches the user only through this interface, never in an API
// response or a log line.
type OtpSender interface {
	SendOtp(ctx context.Context, email, code string) error
}
