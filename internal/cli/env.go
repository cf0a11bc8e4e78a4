package cli

import (
	"context"

	"github.com/smilecare-labs/clinic-push/internal/bootstrap"
	"github.com/smilecare-labs/clinic-push/internal/config"
	"github.com/smilecare-labs/clinic-push/internal/logging"
	"github.com/smilecare-labs/clinic-push/internal/push"
	"github.com/smilecare-labs/clinic-push/internal/storage"
	"go.uber.org/zap"
)

// Environment holds the factories commands use to reach the outside world.
type Environment struct {
	LoadConfig func(path string) (*config.Config, error)
	NewLogger  func(cfg logging.Config) (*zap.Logger, error)
	OpenStore  func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, error)
	NewFCM     func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (push.Transport, error)
	NewWebPush func(cfg *config.Config, logger *zap.Logger) (push.Transport, error)
}

// DefaultEnvironment wires the real config loader, stores and transports.
func DefaultEnvironment() Environment {
	return Environment{
		LoadConfig: config.Load,
		NewLogger:  logging.New,
		OpenStore:  bootstrap.OpenStore,
		NewFCM:     bootstrap.NewFCM,
		NewWebPush: bootstrap.NewWebPush,
	}
}
