// Package foreground shows messages that arrive while the page has focus.
package foreground

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/smilecare-labs/clinic-push/internal/logging"
	"go.uber.org/zap"
)

// ErrAlreadyListening is returned when a second listener is started.
var ErrAlreadyListening = errors.New("foreground listener already registered")

const (
	DefaultToastDuration = 6 * time.Second
	MinToastDuration     = time.Second
	MaxToastDuration     = 30 * time.Second
	DefaultRetryDelay    = time.Second

	fallbackTitle = "New notification"
	fallbackBody  = "You have a new message."
)

// Notification is the visible part of an in-page message.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Message is one in-page delivery. Notification is nil for data-only messages.
type Message struct {
	Notification *Notification     `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

// Source is a single-shot subscription: each Receive resolves with at most one message.
type Source interface {
	Receive(ctx context.Context) (Message, error)
}

// Toast is a transient, dismissible notice.
type Toast struct {
	Title    string
	Body     string
	Duration time.Duration
}

// Presenter renders toasts.
type Presenter interface {
	Show(toast Toast)
}

// Options configure a Router.
type Options struct {
	ToastDuration time.Duration
	RetryDelay    time.Duration
}

// Router turns in-page messages into toasts for as long as Listen runs.
type Router struct {
	source    Source
	presenter Presenter
	logger    *zap.Logger
	duration  time.Duration
	retry     time.Duration
	listening atomic.Bool
}

// NewRouter builds a Router. The toast duration is clamped to [MinToastDuration, MaxToastDuration].
func NewRouter(source Source, presenter Presenter, opts Options, logger *zap.Logger) *Router {
	logger = logging.OrNop(logger)
	d := opts.ToastDuration
	switch {
	case d <= 0:
		d = DefaultToastDuration
	case d < MinToastDuration:
		d = MinToastDuration
	case d > MaxToastDuration:
		d = MaxToastDuration
	}
	retry := opts.RetryDelay
	if retry <= 0 {
		retry = DefaultRetryDelay
	}
	return &Router{
		source:    source,
		presenter: presenter,
		logger:    logger.Named("ForegroundRouter"),
		duration:  d,
		retry:     retry,
	}
}

// Listen re-subscribes after every delivery until ctx is done. Only one
// Listen may run at a time.
func (r *Router) Listen(ctx context.Context) error {
	if !r.listening.CompareAndSwap(false, true) {
		return ErrAlreadyListening
	}
	defer r.listening.Store(false)

	for {
		msg, err := r.source.Receive(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			r.logger.Warn("Foreground receive failed, re-subscribing", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(r.retry):
			}
			continue
		}
		r.presenter.Show(r.toastFor(msg))
	}
}

func (r *Router) toastFor(msg Message) Toast {
	title, body := fallbackTitle, fallbackBody
	if n := msg.Notification; n != nil {
		if strings.TrimSpace(n.Title) != "" {
			title = n.Title
		}
		if strings.TrimSpace(n.Body) != "" {
			body = n.Body
		}
	}
	return Toast{Title: title, Body: body, Duration: r.duration}
}
