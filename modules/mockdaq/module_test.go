package mockdaq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	daq := New("pd", &Config{Amplitude: 0.2, Offset: 5})
	for i := 0; i < 50; i++ {
		v, err := daq.Read(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 5, v, 0.1)
	}
}

func TestDrift(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	daq := New("pd", &Config{Offset: 1, DriftPerRead: 0.5})
	v1, err := daq.Read(ctx)
	require.NoError(t, err)
	v2, err := daq.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v1)
	assert.Equal(t, 2.0, v2)
}

func TestReadCancellation(t *testing.T) {
	t.Parallel()

	daq := New("pd", &Config{WaitMillis: 10_000})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := daq.Read(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
