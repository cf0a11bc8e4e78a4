package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/smilecare-labs/clinic-push/internal/logging"
	"github.com/smilecare-labs/clinic-push/internal/model"
	"go.uber.org/zap"
)

var _ Transport = (*WebPush)(nil)

// WebPushConfig is the VAPID identity used to sign requests.
type WebPushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	TTL             int
}

// WebPush sends directly to a browser push service. The recipient token is the
// JSON encoded PushSubscription ({"endpoint":..., "keys":{"p256dh":..., "auth":...}}).
type WebPush struct {
	cfg    WebPushConfig
	logger *zap.Logger
}

type webPushBody struct {
	Notification webPushNotification `json:"notification"`
	Data         map[string]string   `json:"data,omitempty"`
}

type webPushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

// NewWebPush validates the VAPID identity.
func NewWebPush(cfg WebPushConfig, logger *zap.Logger) (*WebPush, error) {
	if strings.TrimSpace(cfg.VAPIDPublicKey) == "" || strings.TrimSpace(cfg.VAPIDPrivateKey) == "" {
		return nil, errors.New("webpush: VAPID key pair is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 60 * 60 * 24
	}
	logger = logging.OrNop(logger)
	return &WebPush{cfg: cfg, logger: logger.Named("WebPushTransport")}, nil
}

// Name implements Transport.
func (w *WebPush) Name() string { return "webpush" }

// Send implements Transport. 404 and 410 from the push service mean ErrNotRegistered.
func (w *WebPush) Send(ctx context.Context, recipient model.Recipient) (string, error) {
	sub, err := ParseSubscription(recipient.Token)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(webPushBody{
		Notification: webPushNotification{
			Title: recipient.Payload.Title,
			Body:  recipient.Payload.Body,
			Image: recipient.Payload.ImageURL,
		},
		Data: recipient.Payload.Data,
	})
	if err != nil {
		return "", fmt.Errorf("encode webpush body: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, sub, &webpush.Options{
		Subscriber:      w.cfg.Subscriber,
		VAPIDPublicKey:  w.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: w.cfg.VAPIDPrivateKey,
		TTL:             w.cfg.TTL,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return "", fmt.Errorf("webpush send: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return "", fmt.Errorf("%w: push service returned %d", ErrNotRegistered, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("webpush: push service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	id := resp.Header.Get("Location")
	w.logger.Debug("Web push accepted",
		zap.String("endpointPrefix", RedactToken(sub.Endpoint)),
		zap.Int("status", resp.StatusCode))
	return id, nil
}

// ParseSubscription decodes a JSON PushSubscription and checks its required fields.
func ParseSubscription(raw string) (*webpush.Subscription, error) {
	var sub webpush.Subscription
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		return nil, fmt.Errorf("decode push subscription: %w", err)
	}
	if strings.TrimSpace(sub.Endpoint) == "" {
		return nil, errors.New("push subscription has no endpoint")
	}
	if sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return nil, errors.New("push subscription is missing keys")
	}
	return &sub, nil
}
