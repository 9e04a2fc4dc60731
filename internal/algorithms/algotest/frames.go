// Package algotest builds synthetic frames for algorithm tests.
package algotest

import (
	"image"
	"testing"

	"bgs-segmenter/internal/algorithms"
	"bgs-segmenter/internal/opencv/safe"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// Frame returns a BGR frame filled with value. It is closed when the test
// ends.
func Frame(t testing.TB, rows, cols int, value uint8) *safe.Mat {
	t.Helper()
	return FrameWithPatch(t, rows, cols, value, image.Rectangle{}, 0)
}

// FrameWithPatch returns a BGR frame filled with value except inside patch,
// which is filled with patchValue.
func FrameWithPatch(t testing.TB, rows, cols int, value uint8, patch image.Rectangle, patchValue uint8) *safe.Mat {
	t.Helper()

	v := float64(value)
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), rows, cols, gocv.MatTypeCV8UC3)
	defer mat.Close()

	if !patch.Empty() {
		region := mat.Region(patch)
		p := float64(patchValue)
		region.SetTo(gocv.NewScalar(p, p, p, 0))
		region.Close()
	}

	frame, err := safe.NewMatFromMat(mat)
	require.NoError(t, err)
	t.Cleanup(frame.Close)
	return frame
}

// TypedFrame returns a frame of matType with every channel set to value.
func TypedFrame(t testing.TB, rows, cols int, matType gocv.MatType, value float64) *safe.Mat {
	t.Helper()

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(value, value, value, value), rows, cols, matType)
	defer mat.Close()

	frame, err := safe.NewMatFromMat(mat)
	require.NoError(t, err)
	t.Cleanup(frame.Close)
	return frame
}

// Apply feeds input to alg and returns the foreground mask, closed when the
// test ends.
func Apply(t testing.TB, alg algorithms.Algorithm, input *safe.Mat) *safe.Mat {
	t.Helper()

	fg, err := alg.Apply(input)
	require.NoError(t, err)
	require.Equal(t, gocv.MatTypeCV8UC1, fg.Type())
	require.True(t, fg.SameSize(input))
	t.Cleanup(fg.Close)
	return fg
}

func CountNonZero(m *safe.Mat) int {
	return gocv.CountNonZero(m.GetMat())
}

// BGRAt returns the three channel values of the pixel at row, col.
func BGRAt(t testing.TB, m *safe.Mat, row, col int) [3]uint8 {
	t.Helper()

	require.Equal(t, 3, m.Channels())
	data := m.Bytes()
	offset := (row*m.Cols() + col) * 3
	require.Less(t, offset+2, len(data))
	return [3]uint8{data[offset], data[offset+1], data[offset+2]}
}
