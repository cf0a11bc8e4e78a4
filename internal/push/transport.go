// Package push holds the delivery transports used to reach device tokens.
package push

import (
	"context"
	"errors"

	"github.com/smilecare-labs/clinic-push/internal/model"
)

// ErrNotRegistered marks a token the push service reports as permanently invalid.
// Transports wrap it so callers can use errors.Is.
var ErrNotRegistered = errors.New("token not registered")

// Transport delivers one payload to one token and returns the provider message ID.
type Transport interface {
	Name() string
	Send(ctx context.Context, recipient model.Recipient) (string, error)
}

// IsNotRegistered reports whether err says the token should be dropped.
func IsNotRegistered(err error) bool {
	return errors.Is(err, ErrNotRegistered)
}

// RedactToken shortens a token for log output. At most ten characters, and never
// more than half of a short token, are kept.
func RedactToken(token string) string {
	keep := len(token) / 2
	if keep > 10 {
		keep = 10
	}
	return token[:keep] + "..."
}
