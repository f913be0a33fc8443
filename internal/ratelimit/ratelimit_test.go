package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rps  float64
		want float64
	}{
		{name: "unlimited_zero", rps: 0, want: 0},
		{name: "unlimited_negative", rps: -1, want: 0},
		{name: "fractional", rps: 0.5, want: 0.5},
		{name: "ten_per_second", rps: 10, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, New(tt.rps).Limit(), 1e-9)
		})
	}
}

func TestWaitUnlimited(t *testing.T) {
	t.Parallel()

	l := New(0)
	start := time.Now()
	for range 50 {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitPaces(t *testing.T) {
	t.Parallel()

	l := New(20)
	start := time.Now()
	for range 3 {
		require.NoError(t, l.Wait(context.Background()))
	}
	// burst of one, then two waits of 50ms
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWaitCancelled(t *testing.T) {
	t.Parallel()

	l := New(0.1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, l.Wait(ctx))
}
