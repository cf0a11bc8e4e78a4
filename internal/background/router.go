// Package background handles push and notification-click events in the
// worker context, where no page is focused.
package background

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/smilecare-labs/clinic-push/internal/logging"
	"go.uber.org/zap"
)

// DataURLKey is the data field holding the click target.
const DataURLKey = "url"

// Config supplies defaults for notifications built from push events.
type Config struct {
	Origin       string
	Icon         string
	Badge        string
	DefaultTitle string
	DefaultBody  string
}

// Router is stateless between events.
type Router struct {
	cfg          Config
	registration Registration
	clients      Clients
	logger       *zap.Logger
}

// NewRouter fills empty config fields with defaults.
func NewRouter(cfg Config, registration Registration, clients Clients, logger *zap.Logger) *Router {
	if cfg.Icon == "" {
		cfg.Icon = "/icons/icon-192.png"
	}
	if cfg.Badge == "" {
		cfg.Badge = "/icons/badge-72.png"
	}
	if cfg.DefaultTitle == "" {
		cfg.DefaultTitle = "SmileCare Dental"
	}
	if cfg.DefaultBody == "" {
		cfg.DefaultBody = "You have a new notification."
	}
	logger = logging.OrNop(logger)
	return &Router{cfg: cfg, registration: registration, clients: clients, logger: logger.Named("BackgroundRouter")}
}

// HandlePush shows exactly one notification per push event, falling back to
// defaults for missing or malformed payloads.
func (r *Router) HandlePush(event PushEvent) {
	raw, present := event.Data()
	title, opts := r.Build(ParsePayload(raw, present))
	event.WaitUntil(func(ctx context.Context) error {
		if err := r.registration.ShowNotification(ctx, title, opts); err != nil {
			r.logger.Error("Failed to show notification", zap.Error(err))
			return fmt.Errorf("show notification: %w", err)
		}
		return nil
	})
}

// Build turns a parsed payload into a title and notification options.
func (r *Router) Build(p Payload) (string, NotificationOptions) {
	title, body := r.cfg.DefaultTitle, r.cfg.DefaultBody
	opts := NotificationOptions{Icon: r.cfg.Icon, Badge: r.cfg.Badge}
	data := map[string]string{}

	switch v := p.(type) {
	case Structured:
		title = firstNonEmpty(v.Title, title)
		body = firstNonEmpty(v.Body, body)
		opts.Image = v.Image
		for k, val := range v.Data {
			data[k] = val
		}
	case PlainText:
		body = firstNonEmpty(v.Body, body)
	}

	if strings.TrimSpace(data[DataURLKey]) == "" {
		data[DataURLKey] = "/"
	}
	opts.Tag = data["tag"]
	opts.Body = body
	opts.Data = data
	return title, opts
}

// HandleClick closes the notification, then focuses a window already showing
// the target URL or opens a new one.
func (r *Router) HandleClick(event ClickEvent) {
	n := event.Notification()
	n.Close()
	target := r.resolve(n.Data()[DataURLKey])

	event.WaitUntil(func(ctx context.Context) error {
		windows, err := r.clients.MatchAll(ctx)
		if err != nil {
			r.logger.Warn("Listing windows failed, opening a new one", zap.Error(err))
		}
		for _, w := range windows {
			if sameURL(r.resolve(w.URL()), target) {
				if err := w.Focus(ctx); err != nil {
					return fmt.Errorf("focus window: %w", err)
				}
				return nil
			}
		}
		if _, err := r.clients.OpenWindow(ctx, target); err != nil {
			r.logger.Error("Failed to open window", zap.String("url", target), zap.Error(err))
			return fmt.Errorf("open window: %w", err)
		}
		return nil
	})
}

// resolve makes target absolute against the origin; unparsable targets become the origin root.
func (r *Router) resolve(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		target = "/"
	}
	base, err := url.Parse(r.cfg.Origin)
	if err != nil || r.cfg.Origin == "" {
		return target
	}
	ref, err := url.Parse(target)
	if err != nil {
		return base.ResolveReference(&url.URL{Path: "/"}).String()
	}
	return base.ResolveReference(ref).String()
}

func sameURL(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}
