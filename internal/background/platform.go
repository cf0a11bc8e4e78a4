package background

import "context"

// ExtendableEvent is a worker event whose lifetime is extended until the
// tasks passed to WaitUntil settle.
type ExtendableEvent interface {
	WaitUntil(task func(ctx context.Context) error)
}

// PushEvent carries the raw push payload, if any.
type PushEvent interface {
	ExtendableEvent
	Data() ([]byte, bool)
}

// Notification is a displayed platform notification.
type Notification interface {
	Close()
	Data() map[string]string
}

// ClickEvent fires when the user clicks a notification.
type ClickEvent interface {
	ExtendableEvent
	Notification() Notification
}

// NotificationOptions are passed to ShowNotification.
type NotificationOptions struct {
	Body  string
	Icon  string
	Badge string
	Image string
	Tag   string
	Data  map[string]string
}

// Registration shows platform notifications.
type Registration interface {
	ShowNotification(ctx context.Context, title string, opts NotificationOptions) error
}

// WindowClient is an open application window.
type WindowClient interface {
	URL() string
	Focus(ctx context.Context) error
}

// Clients enumerates and opens application windows.
type Clients interface {
	MatchAll(ctx context.Context) ([]WindowClient, error)
	OpenWindow(ctx context.Context, url string) (WindowClient, error)
}
