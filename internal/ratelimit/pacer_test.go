package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_Allow(t *testing.T) {
	p := NewPacer(PacerConfig{RequestsPerSecond: 1, BurstSize: 2})

	assert.True(t, p.Allow())
	assert.True(t, p.Allow())
	assert.False(t, p.Allow())
}

func TestPacer_Backoff(t *testing.T) {
	p := NewPacer(PacerConfig{RequestsPerSecond: 100, BurstSize: 10})
	p.Backoff(time.Hour)

	assert.False(t, p.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPacer_Wait(t *testing.T) {
	p := NewWindowPacer(100, time.Minute, 5)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Wait(ctx))
	}
}

func TestNewWindowPacer_DefaultBurst(t *testing.T) {
	p := NewWindowPacer(60, time.Minute, 0)
	assert.True(t, p.Allow())
	assert.False(t, p.Allow())
}
