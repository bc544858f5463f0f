package acquire

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gofsrs/internal/device"
	"github.com/vk/gofsrs/internal/experiment"
	"github.com/vk/gofsrs/modules/mockcamera"
)

func newEnv(t *testing.T) *experiment.Env {
	t.Helper()
	set := device.NewSet()
	require.NoError(t, set.Add(mockcamera.New("ccd", &mockcamera.Config{Width: 16, FrameRateHz: 1e6})))
	return &experiment.Env{
		Devices:  set,
		DataDir:  t.TempDir(),
		Progress: experiment.NopProgress{},
		Stream:   experiment.NopPublisher{},
		Record:   &experiment.RunRecord{},
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	a, err := New("probe", &Config{Camera: "ccd", Basename: "probe"})
	require.NoError(t, err)
	assert.Equal(t, "probe", a.Name())
	assert.Equal(t, 8000, a.cfg.Frames)
	assert.Equal(t, 1, a.cfg.Sets)

	t.Run("kerr mode is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := New("probe", &Config{Camera: "ccd", Basename: "probe", Mode: "kerr"})
		require.ErrorContains(t, err, "kerr")
	})
}

func TestRunSingleSet(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	a, err := New("probe", &Config{Camera: "ccd", Basename: "probe", Frames: 10})
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background(), env))

	// One set writes only the final averaged file.
	raw, err := os.ReadFile(filepath.Join(env.DataDir, "probe.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	assert.Len(t, lines, 16)
	assert.Len(t, strings.Split(lines[0], "\t"), 3)

	assert.Equal(t, []string{filepath.Join(env.DataDir, "probe.txt")}, env.Record.Files())
}

func TestRunMultipleSets(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	a, err := New("probe", &Config{Camera: "ccd", Basename: "probe", Frames: 10, Sets: 3})
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background(), env))

	// Per-set files plus the final average.
	for _, name := range []string{"probe_0.txt", "probe_1.txt", "probe_2.txt", "probe.txt"} {
		_, err := os.Stat(filepath.Join(env.DataDir, name))
		assert.NoError(t, err, name)
	}
	assert.Len(t, env.Record.Files(), 4)
}

func TestRunWithCalibration(t *testing.T) {
	t.Parallel()

	calPath := filepath.Join(t.TempDir(), "cal.yaml")
	require.NoError(t, os.WriteFile(calPath, []byte("unit: cm-1\ncoefficients: [700, 10]\n"), 0o644))

	env := newEnv(t)
	a, err := New("probe", &Config{Camera: "ccd", Basename: "probe", Frames: 10, Calibration: calPath})
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background(), env))

	raw, err := os.ReadFile(filepath.Join(env.DataDir, "probe.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 16)
	// Axis column first: 700 + 10*px.
	assert.True(t, strings.HasPrefix(lines[0], "700\t"))
	assert.True(t, strings.HasPrefix(lines[1], "710\t"))
	assert.Len(t, strings.Split(lines[0], "\t"), 4)

	t.Run("missing calibration file fails construction", func(t *testing.T) {
		t.Parallel()
		_, err := New("probe", &Config{Camera: "ccd", Basename: "probe", Calibration: "nope.yaml"})
		require.Error(t, err)
	})
}

func TestRunUnknownCamera(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	a, err := New("probe", &Config{Camera: "nope", Basename: "probe"})
	require.NoError(t, err)
	require.ErrorContains(t, a.Run(context.Background(), env), `no device named "nope"`)
}
