// Package storagetest holds the behaviour every storage.Store backend must share.
package storagetest

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a fresh, empty store returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Run("UpsertThenList", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seen := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

		require.NoError(t, s.UpsertToken(ctx, "tok-A", model.TokenMetadata{
			Platform:  "MacIntel",
			UserAgent: "Mozilla/5.0",
			SeenAt:    seen,
		}))

		tokens, err := s.ListTokens(ctx)
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, "tok-A", tokens[0].Token)
		assert.Equal(t, "MacIntel", tokens[0].Platform)
		assert.Equal(t, "Mozilla/5.0", tokens[0].UserAgent)
		assert.True(t, seen.Equal(tokens[0].LastSeen))
		assert.True(t, seen.Equal(tokens[0].CreatedAt))
	})

	t.Run("ReRegisterKeepsCreatedAt", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		second := first.Add(48 * time.Hour)

		require.NoError(t, s.UpsertToken(ctx, "tok-A", model.TokenMetadata{Platform: "Win32", SeenAt: first}))
		require.NoError(t, s.UpsertToken(ctx, "tok-A", model.TokenMetadata{Platform: "Linux x86_64", SeenAt: second}))

		tokens, err := s.ListTokens(ctx)
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, "Linux x86_64", tokens[0].Platform)
		assert.True(t, second.Equal(tokens[0].LastSeen), "lastSeen should move forward")
		assert.True(t, first.Equal(tokens[0].CreatedAt), "createdAt must not change")
	})

	t.Run("DeleteRemovesOnlyThatToken", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		for _, tok := range []string{"A", "B", "C"} {
			require.NoError(t, s.UpsertToken(ctx, tok, model.TokenMetadata{}))
		}

		require.NoError(t, s.DeleteToken(ctx, "B"))

		assert.Equal(t, []string{"A", "C"}, Keys(t, s))
	})

	t.Run("DeleteMissingIsNoop", func(t *testing.T) {
		s := open(t)
		assert.NoError(t, s.DeleteToken(context.Background(), "never-stored"))
	})

	t.Run("EmptyTokenRejected", func(t *testing.T) {
		s := open(t)
		err := s.UpsertToken(context.Background(), "  ", model.TokenMetadata{})
		assert.ErrorIs(t, err, storage.ErrEmptyToken)
	})

	t.Run("ConcurrentUpsertsSameToken", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.UpsertToken(ctx, "tok-same", model.TokenMetadata{Platform: "iPhone"}))
			}()
		}
		wg.Wait()

		assert.Equal(t, []string{"tok-same"}, Keys(t, s))
	})
}

// Keys lists the store and returns the sorted token strings.
func Keys(t *testing.T, s storage.Store) []string {
	t.Helper()
	tokens, err := s.ListTokens(context.Background())
	require.NoError(t, err)
	keys := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		keys = append(keys, tok.Token)
	}
	sort.Strings(keys)
	return keys
}
