package adaptive

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"bgs-segmenter/internal/algorithms/algotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var patch = image.Rect(0, 0, 2, 2)

func TestAdaptiveBackgroundLearningFirstFrame(t *testing.T) {
	abl := NewAdaptiveBackgroundLearning()
	defer abl.Close()

	fg := algotest.Apply(t, abl, algotest.Frame(t, 4, 4, 100))

	assert.Zero(t, algotest.CountNonZero(fg))
	assert.Equal(t, [3]uint8{100, 100, 100}, algotest.BGRAt(t, abl.BackgroundModel(), 3, 3))
}

func TestAdaptiveBackgroundLearningUpdatesModel(t *testing.T) {
	abl := NewAdaptiveBackgroundLearning()
	defer abl.Close()

	algotest.Apply(t, abl, algotest.Frame(t, 4, 4, 100))
	fg := algotest.Apply(t, abl, algotest.FrameWithPatch(t, 4, 4, 100, patch, 200))

	assert.Equal(t, 4, algotest.CountNonZero(fg))
	// 0.05*200 + 0.95*100
	assert.Equal(t, [3]uint8{105, 105, 105}, algotest.BGRAt(t, abl.BackgroundModel(), 0, 0))
	assert.Equal(t, [3]uint8{100, 100, 100}, algotest.BGRAt(t, abl.BackgroundModel(), 3, 3))
}

func TestAdaptiveBackgroundLearningKeepsModelAfterFailedFrame(t *testing.T) {
	abl := NewAdaptiveBackgroundLearning()
	defer abl.Close()

	algotest.Apply(t, abl, algotest.Frame(t, 4, 4, 100))

	_, err := abl.Apply(algotest.TypedFrame(t, 4, 4, gocv.MatTypeCV8UC2, 100))
	require.Error(t, err)

	fg := algotest.Apply(t, abl, algotest.FrameWithPatch(t, 4, 4, 100, patch, 200))
	assert.Equal(t, 4, algotest.CountNonZero(fg))
	assert.Equal(t, [3]uint8{105, 105, 105}, algotest.BGRAt(t, abl.BackgroundModel(), 0, 0))
}

func TestAdaptiveBackgroundLearningStopsLearning(t *testing.T) {
	abl := NewAdaptiveBackgroundLearning()
	defer abl.Close()
	abl.params.MaxLearningFrames = 1

	algotest.Apply(t, abl, algotest.Frame(t, 4, 4, 100))
	for i := 0; i < 3; i++ {
		fg := algotest.Apply(t, abl, algotest.FrameWithPatch(t, 4, 4, 100, patch, 200))
		assert.Equal(t, 4, algotest.CountNonZero(fg))
		assert.Equal(t, [3]uint8{100, 100, 100}, algotest.BGRAt(t, abl.BackgroundModel(), 0, 0))
	}
}

func TestAdaptiveBackgroundLearningConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), Name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte("alpha: 0.5\nmax_learning_frames: 10\n"), 0o644))

	abl := NewAdaptiveBackgroundLearning()
	defer abl.Close()
	require.NoError(t, abl.Setup(path))

	want := DefaultParams()
	want.Alpha = 0.5
	want.MaxLearningFrames = 10
	assert.Equal(t, want, abl.Params())
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	for _, p := range []Params{
		{Alpha: 1.5, MaxLearningFrames: -1},
		{Alpha: 0.1, MaxLearningFrames: 0},
		{Alpha: 0.1, MaxLearningFrames: -1, Threshold: 256},
	} {
		assert.Error(t, p.Validate(), "%+v", p)
	}
}
