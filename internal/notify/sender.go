package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/evotehq/evote-backend/internal/logging"
)

// Recipient holds the out-of-band delivery coordinates for a passcode.
type Recipient struct {
	Identifier string
	Email      string
	Phone      string
}

// Sender delivers a one-time passcode to a voter. Email and SMS transports
// are deployment concerns behind this interface.
type Sender interface {
	Send(ctx context.Context, to Recipient, code string) error
}

// ConsoleSender logs the code for local testing. Never wire it in production.
type ConsoleSender struct{}

func (ConsoleSender) Send(_ context.Context, to Recipient, code string) error {
	logging.Info("dev otp issued",
		zap.String("identifier", to.Identifier),
		zap.String("code", code),
	)
	return nil
}

// MaskedSender records that a dispatch happened without ever logging the code.
// It stands in for a real email/SMS transport in production deployments.
type MaskedSender struct{}

func (MaskedSender) Send(_ context.Context, to Recipient, _ string) error {
	channel := "none"
	switch {
	case to.Email != "":
		channel = "email"
	case to.Phone != "":
		channel = "sms"
	}
	logging.Info("otp dispatched",
		zap.String("identifier", to.Identifier),
		zap.String("channel", channel),
	)
	return nil
}
