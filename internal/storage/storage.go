package storage

import (
	"context"

	"github.com/smilecare-labs/clinic-push/internal/model"
)

// Store abstracts device token persistence. The token string is the key.
type Store interface {
	// UpsertToken inserts or merges a record. CreatedAt is kept on update.
	UpsertToken(ctx context.Context, token string, meta model.TokenMetadata) error
	// ListTokens returns a snapshot of every stored token.
	ListTokens(ctx context.Context) ([]*model.DeviceToken, error)
	// DeleteToken removes a record. Missing keys are not an error.
	DeleteToken(ctx context.Context, token string) error
	Close() error
}
