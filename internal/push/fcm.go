package push

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/smilecare-labs/clinic-push/internal/logging"
	"github.com/smilecare-labs/clinic-push/internal/model"
	"go.uber.org/zap"
)

var _ Transport = (*FCM)(nil)

// MessagingClient is the part of *messaging.Client the FCM transport needs.
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMOptions tune the web push block attached to every FCM message.
type FCMOptions struct {
	Icon   string
	Badge  string
	Origin string
}

// FCM sends through Firebase Cloud Messaging.
type FCM struct {
	client MessagingClient
	opts   FCMOptions
	logger *zap.Logger
}

// NewFCM creates the messaging client from an initialised Firebase app.
func NewFCM(ctx context.Context, app *firebase.App, opts FCMOptions, logger *zap.Logger) (*FCM, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return NewFCMWithClient(client, opts, logger), nil
}

// NewFCMWithClient wraps an existing messaging client.
func NewFCMWithClient(client MessagingClient, opts FCMOptions, logger *zap.Logger) *FCM {
	logger = logging.OrNop(logger)
	return &FCM{client: client, opts: opts, logger: logger.Named("FCMTransport")}
}

// Name implements Transport.
func (f *FCM) Name() string { return "fcm" }

// Send implements Transport. Unregistered tokens come back wrapped in ErrNotRegistered.
func (f *FCM) Send(ctx context.Context, recipient model.Recipient) (string, error) {
	id, err := f.client.Send(ctx, f.buildMessage(recipient))
	if err != nil {
		if messaging.IsUnregistered(err) {
			return "", fmt.Errorf("%w: %w", ErrNotRegistered, err)
		}
		return "", err
	}
	f.logger.Debug("FCM message sent",
		zap.String("tokenPrefix", RedactToken(recipient.Token)),
		zap.String("messageID", id))
	return id, nil
}

func (f *FCM) buildMessage(r model.Recipient) *messaging.Message {
	p := r.Payload
	msg := &messaging.Message{
		Token: r.Token,
		Notification: &messaging.Notification{
			Title:    p.Title,
			Body:     p.Body,
			ImageURL: p.ImageURL,
		},
		Data: p.Data,
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: p.Title,
				Body:  p.Body,
				Icon:  f.opts.Icon,
				Badge: f.opts.Badge,
			},
		},
	}
	if link := absoluteHTTPS(f.opts.Origin, p.Data["url"]); link != "" {
		msg.Webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: link}
	}
	return msg
}

// absoluteHTTPS resolves target against origin; FCM only accepts https links.
func absoluteHTTPS(origin, target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		target = "/"
	}
	ref, err := url.Parse(target)
	if err != nil {
		return ""
	}
	if !ref.IsAbs() {
		base, err := url.Parse(origin)
		if err != nil || origin == "" {
			return ""
		}
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}
