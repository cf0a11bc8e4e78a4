package push_test

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubscription(t *testing.T, endpoint string) string {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	raw, err := json.Marshal(webpush.Subscription{
		Endpoint: endpoint,
		Keys: webpush.Keys{
			P256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(auth),
		},
	})
	require.NoError(t, err)
	return string(raw)
}

func newWebPush(t *testing.T) *push.WebPush {
	t.Helper()
	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	w, err := push.NewWebPush(push.WebPushConfig{
		VAPIDPublicKey:  pub,
		VAPIDPrivateKey: priv,
		Subscriber:      "reception@smilecare.example",
	}, nil)
	require.NoError(t, err)
	return w
}

func TestWebPush_SendAccepted(t *testing.T) {
	var gotAuth, gotTTL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTTL = r.Header.Get("TTL")
		w.Header().Set("Location", "https://push.example/m/42")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	wp := newWebPush(t)
	payload := model.NotificationPayload{Title: "Hi", Body: "There"}
	id, err := wp.Send(context.Background(), payload.ForRecipient(newSubscription(t, srv.URL+"/sub/1")))

	require.NoError(t, err)
	assert.Equal(t, "https://push.example/m/42", id)
	assert.Contains(t, gotAuth, "vapid")
	assert.Equal(t, "86400", gotTTL)
	assert.Equal(t, "webpush", wp.Name())
}

func TestWebPush_GoneIsNotRegistered(t *testing.T) {
	for _, status := range []int{http.StatusGone, http.StatusNotFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := newWebPush(t).Send(context.Background(), model.Recipient{Token: newSubscription(t, srv.URL)})
		srv.Close()

		require.Error(t, err)
		assert.True(t, push.IsNotRegistered(err), "status %d", status)
	}
}

func TestWebPush_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newWebPush(t).Send(context.Background(), model.Recipient{Token: newSubscription(t, srv.URL)})

	require.Error(t, err)
	assert.False(t, push.IsNotRegistered(err))
	assert.Contains(t, err.Error(), "503")
}

func TestParseSubscription_Invalid(t *testing.T) {
	_, err := push.ParseSubscription("not json")
	assert.Error(t, err)
	_, err = push.ParseSubscription(`{"keys":{"p256dh":"a","auth":"b"}}`)
	assert.Error(t, err)
	_, err = push.ParseSubscription(`{"endpoint":"https://x"}`)
	assert.Error(t, err)
}

func TestNewWebPush_RequiresKeys(t *testing.T) {
	_, err := push.NewWebPush(push.WebPushConfig{}, nil)
	assert.Error(t, err)
}
