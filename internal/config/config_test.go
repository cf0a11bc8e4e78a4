package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smilecare-labs/clinic-push/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.HTTP.Addr)
	assert.Equal(t, "bolt", cfg.Storage.Driver)
	assert.Equal(t, 3*time.Second, cfg.Client.ReadinessTimeout)
	assert.Equal(t, config.PlaceholderToken, cfg.TestSend.Token)
	assert.Equal(t, "fcmTokens", cfg.Storage.FirestoreCollection)
	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, []string{"tokens:read", "broadcast:send"}, cfg.Auth.Scopes)
	assert.Equal(t, "http://localhost:8090", cfg.Client.GatewayURL)
	assert.Equal(t, 6*time.Second, cfg.Client.ToastDuration)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: postgres
  postgres_dsn: postgres://localhost/push
broadcast:
  title: Holiday hours
  max_concurrency: 25
`), 0o600))
	t.Setenv("CLINIC_PUSH_BROADCAST_BODY", "Closed on Monday")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "Holiday hours", cfg.Broadcast.Title)
	assert.Equal(t, "Closed on Monday", cfg.Broadcast.Body)
	assert.Equal(t, 25, cfg.Broadcast.MaxConcurrency)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unterminated"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, config.IsPlaceholder(""))
	assert.True(t, config.IsPlaceholder(config.PlaceholderToken))
	assert.True(t, config.IsPlaceholder("https://fcm.googleapis.com/fcm/send/REPLACE_WITH_ENDPOINT"))
	assert.False(t, config.IsPlaceholder("dGVzdC10b2tlbg"))
}
