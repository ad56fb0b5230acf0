package retry

import (
	"context"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsWithinBound(t *testing.T) {
	policy := Policy{MaxAttempts: 5, Interval: time.Millisecond}

	// Fails three times, then succeeds: still within the attempt budget
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 4 {
			return pkgerrors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 4, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	policy := Policy{MaxAttempts: 3, Interval: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return pkgerrors.New("still down")
	})

	require.Error(t, err)
	require.ErrorIs(t, err, ErrConnectionExhausted)
	require.Equal(t, 3, calls)
	require.Contains(t, err.Error(), "still down")
}

func TestDoFirstAttemptSucceeds(t *testing.T) {
	policy := Policy{MaxAttempts: 1, Interval: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	policy := Policy{MaxAttempts: 100, Interval: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := policy.Do(ctx, func() error {
		calls++
		return pkgerrors.New("unreachable")
	})

	require.Error(t, err)
	require.NotErrorIs(t, err, ErrConnectionExhausted)
	require.Less(t, calls, 100)
}
