package mockaxis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gofsrs/internal/device"
)

func TestInstantMoves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ax := New("stage", &Config{Home: 100})
	pos, err := ax.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pos)

	require.NoError(t, ax.MoveTo(ctx, -250))
	moving, err := ax.Moving(ctx)
	require.NoError(t, err)
	assert.False(t, moving)

	pos, err = ax.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, -250.0, pos)
}

func TestRateLimitedMoves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// 1000 units/s over 100 units takes 100 ms.
	ax := New("stage", &Config{Speed: 1000})
	require.NoError(t, ax.MoveTo(ctx, 100))

	moving, err := ax.Moving(ctx)
	require.NoError(t, err)
	assert.True(t, moving)

	// The in-flight position stays within the travel interval.
	pos, err := ax.Position(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pos, 0.0)
	assert.LessOrEqual(t, pos, 100.0)

	require.NoError(t, device.Settle(ctx, ax))
	pos, err = ax.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pos)
}

func TestSettleTimeout(t *testing.T) {
	t.Parallel()

	ax := New("stage", &Config{Speed: 0.001})
	require.NoError(t, ax.MoveTo(context.Background(), 1000))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, device.Settle(ctx, ax), context.DeadlineExceeded)
}
