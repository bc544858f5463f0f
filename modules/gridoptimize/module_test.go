package gridoptimize

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
	"github.com/vk/gofsrs/internal/scan"
	"github.com/vk/gofsrs/modules/mockaxis"
)

// paraboloid reads a bowl-shaped signal off the positions of two axes, with
// its minimum away from the grid so the search has to close in on it.
type paraboloid struct {
	x, y  device.Axis
	reads int
}

func (p *paraboloid) Name() string                    { return "pd" }
func (p *paraboloid) Close(ctx context.Context) error { return nil }

func (p *paraboloid) Read(ctx context.Context) (float64, error) {
	px, err := p.x.Position(ctx)
	if err != nil {
		return 0, err
	}
	py, err := p.y.Position(ctx)
	if err != nil {
		return 0, err
	}
	p.reads++
	return (px-3)*(px-3) + (py+2)*(py+2), nil
}

// bestRecorder keeps the final minimum report off the live stream.
type bestRecorder struct {
	best map[string]any
}

func (r *bestRecorder) Publish(topic string, payload any) {
	if topic == "gridoptimize.best" {
		r.best = payload.(map[string]any)
	}
}

func newEnv(t *testing.T) (*experiment.Env, *paraboloid, *bestRecorder) {
	t.Helper()
	hor := mockaxis.New("hor", &mockaxis.Config{})
	ver := mockaxis.New("ver", &mockaxis.Config{})
	pd := &paraboloid{x: hor, y: ver}
	set := device.NewSet()
	require.NoError(t, set.Add(hor))
	require.NoError(t, set.Add(ver))
	require.NoError(t, set.Add(pd))
	rec := &bestRecorder{}
	return &experiment.Env{
		Devices:  set,
		DataDir:  t.TempDir(),
		Progress: experiment.NopProgress{},
		Stream:   rec,
		Record:   &experiment.RunRecord{},
	}, pd, rec
}

func TestGridSearchClosesInOnTheMinimum(t *testing.T) {
	t.Parallel()

	env, pd, rec := newEnv(t)
	o, err := New("align", &Config{
		Input:    "pd",
		AxisX:    "hor",
		AxisY:    "ver",
		Basename: "align",
		X:        scan.Range{Start: -10, Stop: 10, Step: 5},
		Y:        scan.Range{Start: -10, Stop: 10, Step: 5},
	})
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), env))

	require.NotNil(t, rec.best, "a best-point report must be published")
	assert.InDelta(t, 3, rec.best["x"].(float64), 1)
	assert.InDelta(t, -2, rec.best["y"].(float64), 1)
	assert.Less(t, rec.best["value"].(float64), 1.0)

	// Every visited point lands in the log file as an x, y, value row.
	raw, err := os.ReadFile(filepath.Join(env.DataDir, "align.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	assert.Len(t, lines, pd.reads)
	assert.Len(t, strings.Split(lines[0], "\t"), 3)
	assert.Len(t, env.Record.Files(), 1)
}

func TestAxesAreParkedAfterTheSearch(t *testing.T) {
	t.Parallel()

	env, _, _ := newEnv(t)
	o, err := New("align", &Config{
		Input:    "pd",
		AxisX:    "hor",
		AxisY:    "ver",
		Basename: "align",
		X:        scan.Range{Start: -1, Stop: 1, Step: 1},
		Y:        scan.Range{Start: -1, Stop: 1, Step: 1},
	})
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), env))

	for _, name := range []string{"hor", "ver"} {
		axis, err := env.Devices.Axis(name)
		require.NoError(t, err)
		pos, err := axis.Position(context.Background())
		require.NoError(t, err)
		assert.Zero(t, pos, name)
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	valid := Config{
		Input: "pd", AxisX: "hor", AxisY: "ver", Basename: "align",
		X: scan.Range{Start: 0, Stop: 1, Step: 1},
		Y: scan.Range{Start: 0, Stop: 1, Step: 1},
	}

	t.Run("non-linear axis range is rejected", func(t *testing.T) {
		t.Parallel()
		cfg := valid
		cfg.Y = scan.Range{Mode: scan.Logarithmic, Start: 1, Stop: 10, Points: 4}
		_, err := New("align", &cfg)
		require.ErrorContains(t, err, "linear")
	})

	t.Run("invalid range is rejected", func(t *testing.T) {
		t.Parallel()
		cfg := valid
		cfg.X = scan.Range{}
		_, err := New("align", &cfg)
		require.ErrorContains(t, err, "x range")
	})

	t.Run("convergence power must exceed one", func(t *testing.T) {
		t.Parallel()
		cfg := valid
		cfg.ConvergencePower = 1
		_, err := New("align", &cfg)
		require.ErrorContains(t, err, "convergence power")
	})

	t.Run("defaults are applied", func(t *testing.T) {
		t.Parallel()
		cfg := valid
		o, err := New("align", &cfg)
		require.NoError(t, err)
		assert.Equal(t, 20, o.cfg.MaxIterations)
		assert.InDelta(t, 0.03, o.cfg.FunctionTolerance, 1e-9)
		assert.InDelta(t, 0.1, o.cfg.ParameterTolerance, 1e-9)
		assert.InDelta(t, 2, o.cfg.ConvergencePower, 1e-9)
	})
}
