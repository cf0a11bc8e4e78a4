package service_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/storage"
	"github.com/smilecare-labs/clinic-push/internal/storage/bolt"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransport struct {
	mock.Mock
}

func NewMockTransport(t *testing.T) *MockTransport {
	m := &MockTransport{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTransport) Name() string { return "mock" }

func (m *MockTransport) Send(ctx context.Context, recipient model.Recipient) (string, error) {
	args := m.Called(ctx, recipient)
	return args.String(0), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func NewMockStore(t *testing.T) *MockStore {
	m := &MockStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockStore) UpsertToken(ctx context.Context, token string, meta model.TokenMetadata) error {
	return m.Called(ctx, token, meta).Error(0)
}

func (m *MockStore) ListTokens(ctx context.Context) ([]*model.DeviceToken, error) {
	args := m.Called(ctx)
	tokens, _ := args.Get(0).([]*model.DeviceToken)
	return tokens, args.Error(1)
}

func (m *MockStore) DeleteToken(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockStore) Close() error { return nil }

func newBoltStore(t *testing.T, tokens ...string) storage.Store {
	t.Helper()
	s, err := bolt.New(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	for _, tok := range tokens {
		require.NoError(t, s.UpsertToken(context.Background(), tok, model.TokenMetadata{Platform: "test"}))
	}
	return s
}

func recipientFor(token string) interface{} {
	return mock.MatchedBy(func(r model.Recipient) bool { return r.Token == token })
}
