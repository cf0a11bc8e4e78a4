package webclient_test

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/smilecare-labs/clinic-push/internal/config"
	"github.com/smilecare-labs/clinic-push/internal/provision"
	"github.com/smilecare-labs/clinic-push/internal/webclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestFromConfig_ClientSection(t *testing.T) {
	cfg := defaultConfig(t)
	s := webclient.FromConfig(cfg)

	assert.Equal(t, 3*time.Second, s.ReadinessTimeout)
	assert.Equal(t, 6*time.Second, s.ToastDuration)
	assert.Equal(t, cfg.Client.DefaultTitle, s.DefaultTitle)
	assert.Equal(t, cfg.Client.DefaultBody, s.DefaultBody)
	assert.Empty(t, s.VAPIDPublicKey, "placeholder key is not published")

	pc := s.ProvisionConfig(provision.Device{Platform: "Win32"})
	assert.Equal(t, 3*time.Second, pc.ReadinessTimeout)
	assert.Equal(t, "Win32", pc.Device.Platform)

	assert.Equal(t, 6*time.Second, s.ForegroundOptions().ToastDuration)

	bc := s.BackgroundConfig()
	assert.Equal(t, cfg.Client.Origin, bc.Origin)
	assert.Equal(t, cfg.Client.Icon, bc.Icon)
	assert.Equal(t, cfg.Client.Badge, bc.Badge)
	assert.Equal(t, cfg.Client.DefaultTitle, bc.DefaultTitle)
	assert.Equal(t, cfg.Client.DefaultBody, bc.DefaultBody)
}

func TestFromConfig_RealVAPIDKeyPublished(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.WebPush.VAPIDPublicKey = "BEl62iUYgUivxIkv69yViEuiBIa"

	s := webclient.FromConfig(cfg)
	assert.Equal(t, "BEl62iUYgUivxIkv69yViEuiBIa", s.VAPIDPublicKey)
	assert.Equal(t, "BEl62iUYgUivxIkv69yViEuiBIa", s.ProvisionConfig(provision.Device{}).VAPIDKey)
}

func TestSettings_JSONInMilliseconds(t *testing.T) {
	s := webclient.FromConfig(defaultConfig(t))

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.EqualValues(t, 3000, fields["readinessTimeoutMs"])
	assert.EqualValues(t, 6000, fields["toastDurationMs"])
	assert.NotContains(t, fields, "ReadinessTimeout")

	var back webclient.Settings
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, s, back)
}
