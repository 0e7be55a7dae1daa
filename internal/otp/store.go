package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const (
	// TTL is the lifetime of an issued passcode.
	TTL = 5 * time.Minute
	// MaxAttempts is the number of verification tries before the entry is
	// purged and the voter must regenerate.
	MaxAttempts = 3
)

// ErrOTPStillValid is returned by Regenerate while an unexpired passcode
// exists for the identifier.
var ErrOTPStillValid = errors.New("a valid otp already exists")

// Store issues and verifies short-lived one-time passcodes. Verification is
// one-shot: a matching code deletes the entry, so a second verify with the
// same code fails. Expiry is lazy, checked on access.
type Store interface {
	Issue(ctx context.Context, identifier string) (string, error)
	Verify(ctx context.Context, identifier, code string) (bool, error)
	// Regenerate issues a fresh code, bypassing the attempt lockout, but
	// refuses while an unexpired code exists.
	Regenerate(ctx context.Context, identifier string) (string, error)
}

// generateCode returns a uniformly random 6-digit passcode.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
