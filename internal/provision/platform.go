package provision

import (
	"context"

	"github.com/smilecare-labs/clinic-push/internal/model"
)

// PermissionAPI is the platform notification permission.
type PermissionAPI interface {
	// State is a synchronous read of the current permission.
	State() model.PermissionState
	// Request shows the platform prompt and resolves with the user's answer.
	Request(ctx context.Context) (model.PermissionState, error)
}

// WorkerRegistration identifies a ready background worker.
type WorkerRegistration struct {
	Scope string
}

// WorkerContainer exposes background worker readiness.
type WorkerContainer interface {
	Supported() bool
	Ready(ctx context.Context) (*WorkerRegistration, error)
}

// TokenSource asks the push service for a device token. A nil registration
// lets the platform fall back to its implicit worker.
type TokenSource interface {
	Token(ctx context.Context, vapidKey string, reg *WorkerRegistration) (string, error)
}

// TokenWriter persists tokens; every storage.Store satisfies it.
type TokenWriter interface {
	UpsertToken(ctx context.Context, token string, meta model.TokenMetadata) error
}

// Device describes the reporting browser.
type Device struct {
	Platform  string
	UserAgent string
}
