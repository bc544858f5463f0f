package scan

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearGenerate(t *testing.T) {
	t.Parallel()

	t.Run("steps land on the grid", func(t *testing.T) {
		t.Parallel()
		pts, err := Range{Start: 0, Stop: 100, Step: 25}.Generate()
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 25, 50, 75, 100}, pts)
	})

	t.Run("end point snaps onto the step grid", func(t *testing.T) {
		t.Parallel()
		// 0..100 in steps of 30 cannot hit 100 exactly; the last point is
		// start + (n-1)*step.
		pts, err := Range{Start: 0, Stop: 100, Step: 30}.Generate()
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 30, 60, 90}, pts)
	})

	t.Run("negative step scans downwards", func(t *testing.T) {
		t.Parallel()
		pts, err := Range{Start: 50, Stop: -50, Step: -50}.Generate()
		require.NoError(t, err)
		assert.Equal(t, []float64{50, 0, -50}, pts)
	})

	t.Run("step sign follows the scan direction", func(t *testing.T) {
		t.Parallel()
		// A step whose sign opposes the bounds must not walk away from Stop.
		pts, err := Range{Start: 0, Stop: 100, Step: -50}.Generate()
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 50, 100}, pts)

		pts, err = Range{Start: 100, Stop: 0, Step: 50}.Generate()
		require.NoError(t, err)
		assert.Equal(t, []float64{100, 50, 0}, pts)
	})

	t.Run("always at least two points", func(t *testing.T) {
		t.Parallel()
		pts, err := Range{Start: 0, Stop: 0, Step: 10}.Generate()
		require.NoError(t, err)
		assert.Len(t, pts, 2)
	})

	t.Run("zero step is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := Range{Start: 0, Stop: 10}.Generate()
		require.ErrorContains(t, err, "non-zero step")
	})
}

func TestLogarithmicGenerate(t *testing.T) {
	t.Parallel()

	pts, err := Range{Mode: Logarithmic, Start: 1, Stop: 1000, Points: 4}.Generate()
	require.NoError(t, err)
	require.Len(t, pts, 4)
	assert.InDelta(t, 1, pts[0], 1e-9)
	assert.InDelta(t, 10, pts[1], 1e-9)
	assert.InDelta(t, 100, pts[2], 1e-9)
	assert.InDelta(t, 1000, pts[3], 1e-9)

	t.Run("rejects non-positive bounds", func(t *testing.T) {
		t.Parallel()
		_, err := Range{Mode: Logarithmic, Start: -1, Stop: 10, Points: 4}.Generate()
		require.ErrorContains(t, err, "positive bounds")
	})

	t.Run("rejects too few points", func(t *testing.T) {
		t.Parallel()
		_, err := Range{Mode: Logarithmic, Start: 1, Stop: 10, Points: 1}.Generate()
		require.ErrorContains(t, err, "at least 2 points")
	})
}

func TestFromFileGenerate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "points.txt")
	content := "# delays in fs\n-100\n0 ignored-second-column\n\n250.5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	pts, err := Range{Mode: FromFile, File: path}.Generate()
	require.NoError(t, err)
	assert.Equal(t, []float64{-100, 0, 250.5}, pts)

	t.Run("empty file is rejected", func(t *testing.T) {
		t.Parallel()
		empty := filepath.Join(t.TempDir(), "empty.txt")
		require.NoError(t, os.WriteFile(empty, []byte("# nothing here\n"), 0o644))
		_, err := Range{Mode: FromFile, File: empty}.Generate()
		require.ErrorContains(t, err, "no points")
	})

	t.Run("missing file is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := Range{Mode: FromFile, File: "does/not/exist.txt"}.Generate()
		require.Error(t, err)
	})
}

func TestRandomGenerate(t *testing.T) {
	t.Parallel()

	pts, err := Range{Start: 0, Stop: 90, Step: 10, Random: true}.Generate()
	require.NoError(t, err)
	require.Len(t, pts, 10)

	// Shuffling must keep the point set intact.
	sort.Float64s(pts)
	assert.Equal(t, []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90}, pts)
}

func TestValidateUnknownMode(t *testing.T) {
	t.Parallel()

	err := Range{Mode: "spiral"}.Validate()
	require.ErrorContains(t, err, "unknown scan mode")
}
