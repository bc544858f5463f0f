package focus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gofsrs/internal/device"
	"github.com/vk/gofsrs/internal/experiment"
	"github.com/vk/gofsrs/modules/mockcamera"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(topic string, payload any) {
	p.mu.Lock()
	p.topics = append(p.topics, topic)
	p.mu.Unlock()
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

func newEnv(t *testing.T, stream experiment.Publisher) *experiment.Env {
	t.Helper()
	set := device.NewSet()
	require.NoError(t, set.Add(mockcamera.New("ccd", &mockcamera.Config{Width: 8, FrameRateHz: 1e6})))
	return &experiment.Env{
		Devices:  set,
		DataDir:  t.TempDir(),
		Progress: experiment.NopProgress{},
		Stream:   stream,
		Record:   &experiment.RunRecord{},
	}
}

func TestBoundedStream(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	env := newEnv(t, pub)

	f, err := New("align", &Config{Camera: "ccd", Frames: 5, Chunks: 4})
	require.NoError(t, err)
	require.NoError(t, f.Run(context.Background(), env))

	assert.Equal(t, 4, pub.count())
	assert.Empty(t, env.Record.Files(), "focus must not write files")
}

func TestUnboundedStreamStopsOnCancel(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	env := newEnv(t, pub)

	f, err := New("align", &Config{Camera: "ccd", Frames: 5})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	// A stop request is a clean end for a continuous stream.
	require.NoError(t, f.Run(ctx, env))
	assert.Greater(t, pub.count(), 0)
}

func TestNewRejectsKerr(t *testing.T) {
	t.Parallel()

	_, err := New("align", &Config{Camera: "ccd", Mode: "kerr"})
	require.ErrorContains(t, err, "kerr")
}
