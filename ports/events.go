package ports

import "context"

// EventPublisher emits audit events for other services. Payloads never carry
// codes, nonces or signatures.
type EventPublisher interface {
	PublishLogin(ctx context.Context, identityID, address string) error
	PublishOtpRequested(ctx context.Context, identityID string) error
	PublishOtpVerified(ctx context.Context, identityID string) error
}
