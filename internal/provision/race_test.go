package provision_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smilecare-labs/clinic-push/internal/provision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstOf_OperationWins(t *testing.T) {
	v, err := provision.FirstOf(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFirstOf_OperationError(t *testing.T) {
	boom := errors.New("boom")
	_, err := provision.FirstOf(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestFirstOf_TimerWinsAndCancelsLoser(t *testing.T) {
	stopped := make(chan struct{})
	_, err := provision.FirstOf(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		close(stopped)
		return 0, ctx.Err()
	})

	assert.ErrorIs(t, err, provision.ErrTimeout)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("losing operation was not cancelled")
	}
}

func TestFirstOf_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := provision.FirstOf(ctx, time.Second, func(ctx context.Context) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
