// Package events publishes audit events over watermill.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/vaultline/warden/ports"
)

const (
	TopicLogin        = "auth.login"
	TopicOtpRequested = "auth.otp.requested"
	TopicOtpVerified  = "auth.otp.verified"
)

// LoginEvent announces a successful wallet login.
type LoginEvent struct {
	IdentityID string    `json:"identity_id"`
	Address    string    `json:"address"`
	At         time.Time `json:"at"`
}

// OtpEvent announces OTP lifecycle transitions. It never carries the code.
type OtpEvent struct {
	IdentityID string    `json:"identity_id"`
	At         time.Time `json:"at"`
}

// WatermillPublisher implements EventPublisher on a watermill publisher.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new watermill-backed publisher.
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// PublishLogin publishes a wallet login event.
func (p *WatermillPublisher) PublishLogin(ctx context.Context, identityID, address string) error {
	return p.publish(TopicLogin, LoginEvent{IdentityID: identityID, Address: address, At: time.Now()})
}

// PublishOtpRequested publishes an OTP issuance event.
func (p *WatermillPublisher) PublishOtpRequested(ctx context.Context, identityID string) error {
	return p.publish(TopicOtpRequested, OtpEvent{IdentityID: identityID, At: time.Now()})
}

// PublishOtpVerified publishes an OTP consumption event.
func (p *WatermillPublisher) PublishOtpVerified(ctx context.Context, identityID string) error {
	return p.publish(TopicOtpVerified, OtpEvent{IdentityID: identityID, At: time.Now()})
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

// NopPublisher drops all events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishLogin(ctx context.Context, identityID, address string) error { return nil }
func (NopPublisher) PublishOtpRequested(ctx context.Context, identityID string) error   { return nil }
func (NopPublisher) PublishOtpVerified(ctx context.Context, identityID string) error    { return nil }

var _ ports.EventPublisher = NopPublisher{}
