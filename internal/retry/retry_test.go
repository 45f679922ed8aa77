package retry_test

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"fuelprice/internal/retry"
)

func TestPolicy_DelaysAreBoundedAndGrow(t *testing.T) {
	t.Parallel()

	p := retry.Policy{
		MaxAttempts:     4,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     300 * time.Millisecond,
		Multiplier:      2,
	}
	b := p.NewBackOff(t.Context())

	require.Equal(t, 100*time.Millisecond, b.NextBackOff())
	require.Equal(t, 200*time.Millisecond, b.NextBackOff())
	require.Equal(t, 300*time.Millisecond, b.NextBackOff())
	require.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestPolicy_JitterStaysInBand(t *testing.T) {
	t.Parallel()

	p := retry.Default()
	p.MaxAttempts = 2
	for i := 0; i < 50; i++ {
		d := p.NewBackOff(t.Context()).NextBackOff()
		require.GreaterOrEqual(t, d, 2400*time.Millisecond)
		require.LessOrEqual(t, d, 3600*time.Millisecond)
	}
}

func TestPolicy_SingleAttemptNeverRetries(t *testing.T) {
	t.Parallel()

	for _, n := range []int{-1, 0, 1} {
		p := retry.Policy{MaxAttempts: n, InitialInterval: time.Millisecond}
		require.Equal(t, 1, p.Attempts())
		require.Equal(t, backoff.Stop, p.NewBackOff(t.Context()).NextBackOff())
	}
}

func TestPolicy_StopsWhenContextDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	b := retry.Default().NewBackOff(ctx)
	cancel()
	require.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestSleep(t *testing.T) {
	t.Parallel()

	require.NoError(t, retry.Sleep(t.Context(), time.Millisecond))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.ErrorIs(t, retry.Sleep(ctx, time.Hour), context.Canceled)
	require.ErrorIs(t, retry.Sleep(ctx, 0), context.Canceled)
}
