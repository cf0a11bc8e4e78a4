package bolt_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/storage"
	"github.com/smilecare-labs/clinic-push/internal/storage/bolt"
	"github.com/smilecare-labs/clinic-push/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) storage.Store {
	t.Helper()
	s, err := bolt.New(filepath.Join(t.TempDir(), "data", "tokens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storagetest.Run(t, openStore)
}

func TestStore_ListEmpty(t *testing.T) {
	s := openStore(t)
	tokens, err := s.ListTokens(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestStore_CancelledContext(t *testing.T) {
	s := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListTokens(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.db")
	s, err := bolt.New(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertToken(context.Background(), "persisted", storageMeta()))
	require.NoError(t, s.Close())

	reopened, err := bolt.New(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, []string{"persisted"}, storagetest.Keys(t, reopened))
}

func storageMeta() model.TokenMetadata {
	return model.TokenMetadata{Platform: "Android", UserAgent: "Chrome/124"}
}
