// Package webclient assembles the page and worker push components from the
// client config section and talks to the gateway on the page's behalf.
package webclient

import (
	"encoding/json"
	"time"

	"github.com/smilecare-labs/clinic-push/internal/background"
	"github.com/smilecare-labs/clinic-push/internal/config"
	"github.com/smilecare-labs/clinic-push/internal/foreground"
	"github.com/smilecare-labs/clinic-push/internal/provision"
)

// Settings is what the page and its worker need to know at startup. The
// gateway serves it at /api/client-config.
type Settings struct {
	VAPIDPublicKey   string        `json:"vapidPublicKey,omitempty"`
	Origin           string        `json:"origin"`
	Icon             string        `json:"icon"`
	Badge            string        `json:"badge"`
	DefaultTitle     string        `json:"defaultTitle"`
	DefaultBody      string        `json:"defaultBody"`
	ReadinessTimeout time.Duration `json:"-"`
	ToastDuration    time.Duration `json:"-"`
}

type settingsJSON struct {
	settingsAlias
	ReadinessTimeoutMS int64 `json:"readinessTimeoutMs"`
	ToastDurationMS    int64 `json:"toastDurationMs"`
}

type settingsAlias Settings

// FromConfig reads the client section. A placeholder VAPID key is left out
// so the page falls back to the messaging SDK default.
func FromConfig(cfg *config.Config) Settings {
	s := Settings{
		Origin:           cfg.Client.Origin,
		Icon:             cfg.Client.Icon,
		Badge:            cfg.Client.Badge,
		DefaultTitle:     cfg.Client.DefaultTitle,
		DefaultBody:      cfg.Client.DefaultBody,
		ReadinessTimeout: cfg.Client.ReadinessTimeout,
		ToastDuration:    cfg.Client.ToastDuration,
	}
	if !config.IsPlaceholder(cfg.WebPush.VAPIDPublicKey) {
		s.VAPIDPublicKey = cfg.WebPush.VAPIDPublicKey
	}
	return s
}

// MarshalJSON writes durations as milliseconds.
func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(settingsJSON{
		settingsAlias:      settingsAlias(s),
		ReadinessTimeoutMS: s.ReadinessTimeout.Milliseconds(),
		ToastDurationMS:    s.ToastDuration.Milliseconds(),
	})
}

// UnmarshalJSON reads what MarshalJSON wrote.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var v settingsJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Settings(v.settingsAlias)
	s.ReadinessTimeout = time.Duration(v.ReadinessTimeoutMS) * time.Millisecond
	s.ToastDuration = time.Duration(v.ToastDurationMS) * time.Millisecond
	return nil
}

// ProvisionConfig configures the token provisioner for device.
func (s Settings) ProvisionConfig(device provision.Device) provision.Config {
	return provision.Config{
		VAPIDKey:         s.VAPIDPublicKey,
		Device:           device,
		ReadinessTimeout: s.ReadinessTimeout,
	}
}

// ForegroundOptions configures in-page toasts.
func (s Settings) ForegroundOptions() foreground.Options {
	return foreground.Options{ToastDuration: s.ToastDuration}
}

// BackgroundConfig configures the worker's notification defaults.
func (s Settings) BackgroundConfig() background.Config {
	return background.Config{
		Origin:       s.Origin,
		Icon:         s.Icon,
		Badge:        s.Badge,
		DefaultTitle: s.DefaultTitle,
		DefaultBody:  s.DefaultBody,
	}
}
