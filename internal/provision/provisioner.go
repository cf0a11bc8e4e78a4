// Package provision obtains a push token for the current device and stores it.
package provision

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/smilecare-labs/clinic-push/internal/logging"
	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/push"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultReadinessTimeout bounds the wait for the background worker.
const DefaultReadinessTimeout = 3000 * time.Millisecond

const (
	flightPermission = "permission"
	flightToken      = "token"
)

// Config holds the provisioner inputs that do not come from the platform.
type Config struct {
	VAPIDKey         string
	Device           Device
	ReadinessTimeout time.Duration
}

// Provisioner owns the permission and token state of one page.
type Provisioner struct {
	cfg        Config
	permission PermissionAPI
	workers    WorkerContainer
	source     TokenSource
	store      TokenWriter
	logger     *zap.Logger
	now        func() time.Time

	group singleflight.Group
	tasks sync.WaitGroup

	mu        sync.RWMutex
	state     model.PermissionState
	lastToken string
}

// New builds a Provisioner. permission may be nil when the platform has no
// notification support; workers may be nil when it has no background workers.
func New(cfg Config, permission PermissionAPI, workers WorkerContainer, source TokenSource, store TokenWriter, logger *zap.Logger) *Provisioner {
	if cfg.ReadinessTimeout <= 0 {
		cfg.ReadinessTimeout = DefaultReadinessTimeout
	}
	logger = logging.OrNop(logger)
	p := &Provisioner{
		cfg:        cfg,
		permission: permission,
		workers:    workers,
		source:     source,
		store:      store,
		logger:     logger.Named("TokenProvisioner"),
		now:        time.Now,
		state:      model.PermissionDefault,
	}
	if permission == nil {
		p.state = model.PermissionUnsupported
	}
	return p
}

// Permission returns the last observed permission state.
func (p *Provisioner) Permission() model.PermissionState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Token returns the last token obtained in this session, or "".
func (p *Provisioner) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastToken
}

// CheckInitialPermission reads the current state. When it is already granted a
// token fetch is started in the background; Wait blocks until it finishes.
func (p *Provisioner) CheckInitialPermission(ctx context.Context) model.PermissionState {
	state := p.readState()
	if state == model.PermissionGranted {
		p.spawn(ctx, "initial token fetch", func(ctx context.Context) {
			p.FetchToken(ctx)
		})
	}
	return state
}

// RequestPermission prompts the user. Concurrent calls share one prompt. A
// granted answer fetches the token before returning. A failed prompt is logged
// and reported as the state the platform still holds.
func (p *Provisioner) RequestPermission(ctx context.Context) model.PermissionState {
	if p.permission == nil {
		return model.PermissionUnsupported
	}
	v, _, shared := p.group.Do(flightPermission, func() (v interface{}, err error) {
		defer p.contain("permission request", func() { v = p.Permission() })
		state, err := p.permission.Request(ctx)
		if err != nil {
			p.logger.Warn("Notification permission prompt failed", zap.Error(err))
			return p.readState(), nil
		}
		p.setState(state)
		p.logger.Info("Notification permission resolved", zap.String("state", string(state)))
		if state == model.PermissionGranted {
			p.FetchToken(ctx)
		}
		return state, nil
	})
	if shared {
		p.logger.Debug("Joined in-flight permission request")
	}
	state, _ := v.(model.PermissionState)
	return state
}

// FetchToken obtains a token and persists it. It never fails loudly: any
// error or panic is logged and reported as ok == false. A storage failure is
// logged but the token is still returned.
func (p *Provisioner) FetchToken(ctx context.Context) (string, bool) {
	v, _, _ := p.group.Do(flightToken, func() (v interface{}, err error) {
		defer p.contain("token fetch", func() { v = "" })
		return p.fetchToken(ctx), nil
	})
	token, _ := v.(string)
	return token, token != ""
}

func (p *Provisioner) fetchToken(ctx context.Context) string {
	if state := p.readState(); state != model.PermissionGranted {
		p.logger.Info("Skipping token fetch, permission not granted", zap.String("state", string(state)))
		return ""
	}

	var reg *WorkerRegistration
	if p.workers != nil && p.workers.Supported() {
		r, err := FirstOf(ctx, p.cfg.ReadinessTimeout, p.workers.Ready)
		switch {
		case errors.Is(err, ErrTimeout):
			p.logger.Warn("Background worker not ready in time, requesting token without registration",
				zap.Duration("timeout", p.cfg.ReadinessTimeout))
		case err != nil:
			p.logger.Warn("Background worker readiness failed, requesting token without registration", zap.Error(err))
		default:
			reg = r
		}
	}

	token, err := p.source.Token(ctx, p.cfg.VAPIDKey, reg)
	if err != nil {
		p.logger.Error("Failed to get push token", zap.Error(err))
		return ""
	}
	token = strings.TrimSpace(token)
	if token == "" {
		p.logger.Warn("Push service returned an empty token")
		return ""
	}

	p.mu.Lock()
	p.lastToken = token
	p.mu.Unlock()

	meta := model.TokenMetadata{
		Platform:  p.cfg.Device.Platform,
		UserAgent: p.cfg.Device.UserAgent,
		SeenAt:    p.now().UTC(),
	}
	if err := p.store.UpsertToken(ctx, token, meta); err != nil {
		p.logger.Error("Failed to persist push token, keeping it for this session",
			zap.String("tokenPrefix", push.RedactToken(token)),
			zap.Error(err))
		return token
	}
	p.logger.Info("Push token stored", zap.String("tokenPrefix", push.RedactToken(token)))
	return token
}

// Wait blocks until background tasks started by CheckInitialPermission finish.
func (p *Provisioner) Wait() {
	p.tasks.Wait()
}

func (p *Provisioner) spawn(ctx context.Context, name string, task func(ctx context.Context)) {
	p.tasks.Add(1)
	go func() {
		defer p.tasks.Done()
		defer p.contain(name, nil)
		task(ctx)
	}()
}

// contain must be deferred directly. It swallows a panic from platform code,
// logs it and lets fallback set the caller's result.
func (p *Provisioner) contain(name string, fallback func()) {
	if r := recover(); r != nil {
		p.logger.Error("Push platform call panicked", zap.String("task", name), zap.Any("panic", r))
		if fallback != nil {
			fallback()
		}
	}
}

func (p *Provisioner) readState() model.PermissionState {
	if p.permission == nil {
		return model.PermissionUnsupported
	}
	state := p.permission.State()
	p.setState(state)
	return state
}

func (p *Provisioner) setState(state model.PermissionState) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}
