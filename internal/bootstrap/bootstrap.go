// Package bootstrap turns configuration into stores and transports.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/smilecare-labs/clinic-push/internal/config"
	"github.com/smilecare-labs/clinic-push/internal/firebaseapp"
	"github.com/smilecare-labs/clinic-push/internal/push"
	"github.com/smilecare-labs/clinic-push/internal/storage"
	"github.com/smilecare-labs/clinic-push/internal/storage/bolt"
	"github.com/smilecare-labs/clinic-push/internal/storage/firestore"
	"github.com/smilecare-labs/clinic-push/internal/storage/postgres"
	"go.uber.org/zap"
)

// Storage drivers accepted in storage.driver.
const (
	DriverBolt      = "bolt"
	DriverFirestore = "firestore"
	DriverPostgres  = "postgres"
)

// OpenStore opens the configured token store.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)); driver {
	case "", DriverBolt:
		s, err := bolt.New(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		return s, nil
	case DriverPostgres:
		if strings.TrimSpace(cfg.Storage.PostgresDSN) == "" {
			return nil, fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
		s, err := postgres.New(ctx, cfg.Storage.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverFirestore:
		app, err := firebaseapp.New(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("error getting firestore client: %w", err)
		}
		return firestore.New(client, cfg.Storage.FirestoreCollection), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// NewFCM loads Firebase credentials and builds the FCM transport.
func NewFCM(ctx context.Context, cfg *config.Config, logger *zap.Logger) (push.Transport, error) {
	app, err := firebaseapp.New(ctx, cfg.Firebase)
	if err != nil {
		return nil, err
	}
	fcm, err := push.NewFCM(ctx, app, push.FCMOptions{
		Icon:   cfg.Client.Icon,
		Badge:  cfg.Client.Badge,
		Origin: cfg.Client.Origin,
	}, logger)
	if err != nil {
		return nil, err
	}
	return fcm, nil
}

// NewWebPush builds the VAPID transport; placeholder keys are rejected.
func NewWebPush(cfg *config.Config, logger *zap.Logger) (push.Transport, error) {
	if config.IsPlaceholder(cfg.WebPush.VAPIDPublicKey) {
		return nil, fmt.Errorf("webpush.vapid_public_key is not set")
	}
	if config.IsPlaceholder(cfg.WebPush.VAPIDPrivateKey) {
		return nil, fmt.Errorf("webpush.vapid_private_key is not set")
	}
	wp, err := push.NewWebPush(push.WebPushConfig{
		VAPIDPublicKey:  cfg.WebPush.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.WebPush.VAPIDPrivateKey,
		Subscriber:      cfg.WebPush.Subscriber,
		TTL:             cfg.WebPush.TTL,
	}, logger)
	if err != nil {
		return nil, err
	}
	return wp, nil
}
