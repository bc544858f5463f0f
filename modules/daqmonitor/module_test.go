package daqmonitor

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gofsrs/internal/device"
	"github.com/vk/gofsrs/internal/experiment"
)

// scriptedInput replays a fixed sequence of readings.
type scriptedInput struct {
	name   string
	values []float64
	next   int
}

func (s *scriptedInput) Name() string                    { return s.name }
func (s *scriptedInput) Close(ctx context.Context) error { return nil }
func (s *scriptedInput) Read(ctx context.Context) (float64, error) {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v, nil
}

func newEnv(t *testing.T, in device.Input) *experiment.Env {
	t.Helper()
	set := device.NewSet()
	require.NoError(t, set.Add(in))
	return &experiment.Env{
		Devices:  set,
		DataDir:  t.TempDir(),
		Progress: experiment.NopProgress{},
		Stream:   experiment.NopPublisher{},
		Record:   &experiment.RunRecord{},
	}
}

// wobble builds a baseline with a small alternating ripple so the window
// stddev is non-zero, then appends a spike.
func wobble(n int, spike float64) []float64 {
	out := make([]float64, 0, n+1)
	for i := 0; i < n; i++ {
		out = append(out, 10+0.01*math.Pow(-1, float64(i)))
	}
	return append(out, spike)
}

func TestMonitorTripsOnDeparture(t *testing.T) {
	t.Parallel()

	values := wobble(8, 15)
	env := newEnv(t, &scriptedInput{name: "laser", values: values})

	m, err := New("watch", &Config{
		Input:          "laser",
		IntervalMillis: 1,
		Window:         8,
		Tolerance:      5,
		Reads:          len(values),
		Basename:       "laser",
	})
	require.NoError(t, err)
	require.NoError(t, m.Run(context.Background(), env))

	raw, err := os.ReadFile(filepath.Join(env.DataDir, "laser_faults.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 1, "exactly the spike should trip the monitor")
	assert.Contains(t, lines[0], "15")

	assert.Equal(t, []string{filepath.Join(env.DataDir, "laser_faults.txt")}, env.Record.Files())
}

func TestMonitorStaysQuietOnStableInput(t *testing.T) {
	t.Parallel()

	env := newEnv(t, &scriptedInput{name: "laser", values: wobble(30, 10)})
	m, err := New("watch", &Config{
		Input:          "laser",
		IntervalMillis: 1,
		Window:         8,
		Tolerance:      500,
		Reads:          20,
	})
	require.NoError(t, err)
	require.NoError(t, m.Run(context.Background(), env))

	_, err = os.Stat(filepath.Join(env.DataDir, "watch_faults.txt"))
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, env.Record.Files())
}

func TestMonitorStopsOnCancel(t *testing.T) {
	t.Parallel()

	env := newEnv(t, &scriptedInput{name: "laser", values: []float64{10}})
	m, err := New("watch", &Config{Input: "laser", IntervalMillis: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, m.Run(ctx, env))
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	m, err := New("watch", &Config{Input: "laser"})
	require.NoError(t, err)
	assert.Equal(t, 1000, m.cfg.IntervalMillis)
	assert.Equal(t, 60, m.cfg.Window)
	assert.Equal(t, 5.0, m.cfg.Tolerance)
	assert.Equal(t, "watch", m.cfg.Basename)
}
