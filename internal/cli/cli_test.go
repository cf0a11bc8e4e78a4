package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/smilecare-labs/clinic-push/internal/cli"
	"github.com/smilecare-labs/clinic-push/internal/config"
	"github.com/smilecare-labs/clinic-push/internal/firebaseapp"
	"github.com/smilecare-labs/clinic-push/internal/logging"
	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/push"
	"github.com/smilecare-labs/clinic-push/internal/storage"
	"github.com/smilecare-labs/clinic-push/internal/storage/bolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTransport struct {
	name string
	errs map[string]error

	mu   sync.Mutex
	sent []model.Recipient
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Send(_ context.Context, r model.Recipient) (string, error) {
	f.mu.Lock()
	f.sent = append(f.sent, r)
	f.mu.Unlock()
	if err := f.errs[r.Token]; err != nil {
		return "", err
	}
	return "msg-" + r.Token, nil
}

type brokenStore struct{ storage.Store }

func (brokenStore) ListTokens(context.Context) ([]*model.DeviceToken, error) {
	return nil, errors.New("connection refused")
}

func (brokenStore) Close() error { return nil }

// keepOpen lets assertions read the store after the command closed it.
type keepOpen struct{ storage.Store }

func (keepOpen) Close() error { return nil }

type harness struct {
	env       cli.Environment
	cfg       *config.Config
	store     storage.Store
	fcm       *fakeTransport
	webpush   *fakeTransport
	storeOpen bool
}

func newHarness(t *testing.T, tokens ...string) *harness {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	store, err := bolt.New(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	for _, tok := range tokens {
		require.NoError(t, store.UpsertToken(context.Background(), tok, model.TokenMetadata{Platform: "web"}))
	}

	h := &harness{
		cfg:     cfg,
		store:   store,
		fcm:     &fakeTransport{name: "fcm", errs: map[string]error{}},
		webpush: &fakeTransport{name: "webpush", errs: map[string]error{}},
	}
	h.env = cli.Environment{
		LoadConfig: func(string) (*config.Config, error) { return h.cfg, nil },
		NewLogger:  func(logging.Config) (*zap.Logger, error) { return zap.NewNop(), nil },
		OpenStore: func(context.Context, *config.Config, *zap.Logger) (storage.Store, error) {
			h.storeOpen = true
			return keepOpen{h.store}, nil
		},
		NewFCM: func(context.Context, *config.Config, *zap.Logger) (push.Transport, error) {
			return h.fcm, nil
		},
		NewWebPush: func(*config.Config, *zap.Logger) (push.Transport, error) {
			return h.webpush, nil
		},
	}
	return h
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cli.NewRootCmdForTest(h.env)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func storedTokens(t *testing.T, s storage.Store) []string {
	t.Helper()
	list, err := s.ListTokens(context.Background())
	require.NoError(t, err)
	keys := make([]string, 0, len(list))
	for _, tok := range list {
		keys = append(keys, tok.Token)
	}
	sort.Strings(keys)
	return keys
}

func TestBroadcastCmd_PartialFailureExitsCleanly(t *testing.T) {
	h := newHarness(t, "token-aaaaaaaaaaaa", "token-bbbbbbbbbbbb", "token-cccccccccccc")
	h.fcm.errs["token-bbbbbbbbbbbb"] = errors.New("quota exceeded")
	h.fcm.errs["token-cccccccccccc"] = push.ErrNotRegistered

	out, err := h.run(t, "broadcast", "--title", "Holiday hours", "--body", "Closed on Monday")
	require.NoError(t, err)

	assert.Contains(t, out, "recipients found: 3")
	assert.Contains(t, out, "successCount: 1")
	assert.Contains(t, out, "failureCount: 2")
	assert.Contains(t, out, "pruned: 1")
	assert.Contains(t, out, "quota exceeded")
	assert.NotContains(t, out, "token-bbbbbbbbbbbb")

	assert.Equal(t, []string{"token-aaaaaaaaaaaa", "token-bbbbbbbbbbbb"}, storedTokens(t, h.store))
	for _, r := range h.fcm.sent {
		assert.Equal(t, "Holiday hours", r.Payload.Title)
		assert.Equal(t, "/booking", r.Payload.Data["url"])
	}
}

func TestBroadcastCmd_DefaultsFromConfigAndDataFlags(t *testing.T) {
	h := newHarness(t, "token-aaaaaaaaaaaa")

	_, err := h.run(t, "broadcast", "--url", "/offers", "--data", "tag=promo")
	require.NoError(t, err)

	require.Len(t, h.fcm.sent, 1)
	sent := h.fcm.sent[0].Payload
	assert.Equal(t, h.cfg.Broadcast.Title, sent.Title)
	assert.Equal(t, h.cfg.Broadcast.Body, sent.Body)
	assert.Equal(t, "/offers", sent.Data["url"])
	assert.Equal(t, "promo", sent.Data["tag"])
}

func TestBroadcastCmd_EmptyStore(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "broadcast")
	require.NoError(t, err)
	assert.Contains(t, out, "recipients found: 0")
	assert.Empty(t, h.fcm.sent)
}

func TestBroadcastCmd_MissingCredentialsFailsFast(t *testing.T) {
	h := newHarness(t, "token-aaaaaaaaaaaa")
	h.env.NewFCM = func(context.Context, *config.Config, *zap.Logger) (push.Transport, error) {
		return nil, firebaseapp.ErrCredentialsMissing
	}

	_, err := h.run(t, "broadcast")
	require.Error(t, err)
	assert.ErrorIs(t, err, firebaseapp.ErrCredentialsMissing)
	assert.Contains(t, err.Error(), "load push credentials")
	assert.False(t, h.storeOpen)
}

func TestBroadcastCmd_ListFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.store = brokenStore{}

	_, err := h.run(t, "broadcast")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, h.fcm.sent)
}

func TestSendTestCmd_PlaceholderTokenRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "send-test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test_send.token")
	assert.Empty(t, h.fcm.sent)
}

func TestSendTestCmd_TokenViaFCM(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "send-test", "--token", "device-token-1")
	require.NoError(t, err)
	assert.Contains(t, out, "msg-device-token-1")
	assert.Contains(t, out, "fcm")

	require.Len(t, h.fcm.sent, 1)
	assert.Equal(t, h.cfg.TestSend.Title, h.fcm.sent[0].Payload.Title)
	assert.Equal(t, "/", h.fcm.sent[0].Payload.Data["url"])
}

func TestSendTestCmd_SubscriptionViaWebPush(t *testing.T) {
	h := newHarness(t)
	file := filepath.Join(t.TempDir(), "subscription.json")
	sub := `{"endpoint":"https://push.example/abc","keys":{"p256dh":"x","auth":"y"}}`
	require.NoError(t, os.WriteFile(file, []byte(sub+"\n"), 0o600))

	out, err := h.run(t, "send-test", "--subscription", file, "--title", "Hi")
	require.NoError(t, err)
	assert.Contains(t, out, "webpush")

	require.Len(t, h.webpush.sent, 1)
	assert.Equal(t, sub, h.webpush.sent[0].Token)
	assert.Equal(t, "Hi", h.webpush.sent[0].Payload.Title)
	assert.Empty(t, h.fcm.sent)
}

func TestSendTestCmd_PlaceholderSubscriptionRejected(t *testing.T) {
	h := newHarness(t)
	file := filepath.Join(t.TempDir(), "subscription.json")
	require.NoError(t, os.WriteFile(file, []byte("REPLACE_WITH_SUBSCRIPTION_JSON"), 0o600))

	_, err := h.run(t, "send-test", "--subscription", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placeholder")
}

func TestSendTestCmd_NotRegistered(t *testing.T) {
	h := newHarness(t)
	h.fcm.errs["stale-token-123456"] = push.ErrNotRegistered

	_, err := h.run(t, "send-test", "--token", "stale-token-123456")
	require.Error(t, err)
	assert.True(t, push.IsNotRegistered(err))
	assert.Contains(t, err.Error(), "no longer registered")
}

func TestRegisterCmd_PostsThroughGateway(t *testing.T) {
	var got map[string]string
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/tokens", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"000000","msg":"registered","data":{"token":"device-tok..."}}`))
	}))
	defer gw.Close()
	h := newHarness(t)

	out, err := h.run(t, "register", "--token", "device-token-xyz", "--gateway", gw.URL, "--platform", "MacIntel")
	require.NoError(t, err)
	assert.Contains(t, out, "registered")
	assert.NotContains(t, out, "device-token-xyz")
	assert.Equal(t, "device-token-xyz", got["token"])
	assert.Equal(t, "MacIntel", got["platform"])
	assert.Equal(t, "pushctl/dev", got["userAgent"])
}

func TestRegisterCmd_GatewayRejection(t *testing.T) {
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"999999","msg":"token too long: exceeds 4096 characters"}`))
	}))
	defer gw.Close()
	h := newHarness(t)

	_, err := h.run(t, "register", "--token", "device-token-xyz", "--gateway", gw.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token too long")
}

func TestRegisterCmd_PlaceholderRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "register", "--gateway", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placeholder")
}

func TestPreviewCmd(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		h := newHarness(t)
		payload := `{"notification":{"title":"Reminder","body":"Check-up tomorrow at 10:00"},"data":{"url":"/appointments","tag":"appt-42"}}`

		out, err := h.run(t, "preview", "--payload", payload)
		require.NoError(t, err)
		assert.Contains(t, out, "Reminder")
		assert.Contains(t, out, "Check-up tomorrow at 10:00")
		assert.Contains(t, out, "tag: appt-42")
		assert.Contains(t, out, "url=/appointments")
		assert.Contains(t, out, "payload: structured")
	})

	t.Run("plain text uses configured defaults", func(t *testing.T) {
		h := newHarness(t)

		out, err := h.run(t, "preview", "--payload", "clinic closed today")
		require.NoError(t, err)
		assert.Contains(t, out, h.cfg.Client.DefaultTitle)
		assert.Contains(t, out, "clinic closed today")
		assert.Contains(t, out, "payload: plain text")
		assert.Contains(t, out, "icon: "+h.cfg.Client.Icon)
	})

	t.Run("empty push", func(t *testing.T) {
		h := newHarness(t)

		out, err := h.run(t, "preview")
		require.NoError(t, err)
		assert.Contains(t, out, h.cfg.Client.DefaultBody)
		assert.Contains(t, out, "data: url=/")
	})
}
