package webclient

import (
	"context"
	"errors"
	"sync"

	"github.com/smilecare-labs/clinic-push/internal/background"
	"github.com/smilecare-labs/clinic-push/internal/foreground"
	"github.com/smilecare-labs/clinic-push/internal/logging"
	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/provision"
	"go.uber.org/zap"
)

// PagePlatform is the set of browser facilities a page hands to NewPage.
// Permission and Workers may be nil when the browser lacks them.
type PagePlatform struct {
	Device     provision.Device
	Permission provision.PermissionAPI
	Workers    provision.WorkerContainer
	Tokens     provision.TokenSource
	Messages   foreground.Source
	Toasts     foreground.Presenter
}

// Page is the page-context half of the push client.
type Page struct {
	Provisioner *provision.Provisioner
	Foreground  *foreground.Router

	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewPage wires the provisioner and foreground router. Tokens are written
// to store, usually a GatewayClient.
func NewPage(s Settings, platform PagePlatform, store provision.TokenWriter, logger *zap.Logger) *Page {
	logger = logging.OrNop(logger)
	return &Page{
		Provisioner: provision.New(s.ProvisionConfig(platform.Device), platform.Permission, platform.Workers, platform.Tokens, store, logger),
		Foreground:  foreground.NewRouter(platform.Messages, platform.Toasts, s.ForegroundOptions(), logger),
		logger:      logger.Named("Page"),
	}
}

// Start runs the page-load sequence: the initial permission check, then the
// foreground listener until ctx is done.
func (p *Page) Start(ctx context.Context) model.PermissionState {
	state := p.Provisioner.CheckInitialPermission(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.Foreground.Listen(ctx); err != nil && !errors.Is(err, foreground.ErrAlreadyListening) {
			p.logger.Warn("Foreground listener stopped", zap.Error(err))
		}
	}()
	return state
}

// EnableNotifications is the user-initiated path behind the page's opt-in button.
func (p *Page) EnableNotifications(ctx context.Context) model.PermissionState {
	return p.Provisioner.RequestPermission(ctx)
}

// Wait blocks until the listener has stopped and background fetches are done.
func (p *Page) Wait() {
	p.wg.Wait()
	p.Provisioner.Wait()
}

// NewWorker builds the worker-context router.
func NewWorker(s Settings, reg background.Registration, clients background.Clients, logger *zap.Logger) *background.Router {
	return background.NewRouter(s.BackgroundConfig(), reg, clients, logger)
}
