package daqstats

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gofsrs/internal/device"
	"github.com/vk/gofsrs/internal/experiment"
	"github.com/vk/gofsrs/modules/mockdaq"
)

// capturingPublisher keeps the last payload per topic.
type capturingPublisher struct {
	mu      sync.Mutex
	payload map[string]any
}

func (p *capturingPublisher) Publish(topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.payload == nil {
		p.payload = map[string]any{}
	}
	p.payload[topic] = payload
}

func (p *capturingPublisher) get(topic string) any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.payload[topic]
}

func newEnv(t *testing.T, stream experiment.Publisher) *experiment.Env {
	t.Helper()
	set := device.NewSet()
	require.NoError(t, set.Add(mockdaq.New("pd", &mockdaq.Config{Offset: 7, Amplitude: 0.01})))
	return &experiment.Env{
		Devices:  set,
		DataDir:  t.TempDir(),
		Progress: experiment.NopProgress{},
		Stream:   stream,
		Record:   &experiment.RunRecord{},
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	pub := &capturingPublisher{}
	env := newEnv(t, pub)

	s, err := New("noise", &Config{Input: "pd", Reads: 50})
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), env))

	payload, ok := pub.get("daqstats").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 50, payload["reads"])
	assert.InDelta(t, 7, payload["mean"].(float64), 0.01)
	assert.Less(t, payload["stdev"].(float64), 0.01)
	assert.LessOrEqual(t, payload["min"].(float64), payload["max"].(float64))

	// No basename, no file.
	assert.Empty(t, env.Record.Files())
}

func TestStatsSavesTrace(t *testing.T) {
	t.Parallel()

	env := newEnv(t, experiment.NopPublisher{})
	s, err := New("noise", &Config{Input: "pd", Reads: 10, Basename: "noise"})
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), env))

	raw, err := os.ReadFile(filepath.Join(env.DataDir, "noise.txt"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimRight(string(raw), "\n"), "\n"), 10)
	assert.Len(t, env.Record.Files(), 1)
}

func TestDefaultReads(t *testing.T) {
	t.Parallel()

	s, err := New("noise", &Config{Input: "pd"})
	require.NoError(t, err)
	assert.Equal(t, 100, s.cfg.Reads)
}
