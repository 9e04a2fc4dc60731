package pipeline

import (
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"

	"bgs-segmenter/internal/algorithms/algotest"
	"bgs-segmenter/internal/algorithms/framediff"
	"bgs-segmenter/internal/debug/timing"
	"bgs-segmenter/internal/opencv/safe"
	"bgs-segmenter/internal/processing/maskfilter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type sliceSource struct {
	frames []*safe.Mat
	next   int
	closed bool
}

func newSliceSource(t *testing.T, count int) *sliceSource {
	t.Helper()

	src := &sliceSource{}
	for i := 0; i < count; i++ {
		patch := image.Rect(i, i, i+4, i+4)
		frame := algotest.FrameWithPatch(t, 16, 16, 20, patch, 220)
		clone, err := frame.Clone()
		require.NoError(t, err)
		src.frames = append(src.frames, clone)
	}
	return src
}

func (s *sliceSource) Next(ctx context.Context) (*safe.Mat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	frame := s.frames[s.next]
	s.next++
	return frame, nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

type recordingSink struct {
	indices     []int
	foreground  []int
	backgrounds int
	failAt      int
}

func (s *recordingSink) Write(_ context.Context, frame Frame) error {
	if s.failAt > 0 && frame.Index == s.failAt {
		return errors.New("disk full")
	}
	s.indices = append(s.indices, frame.Index)
	s.foreground = append(s.foreground, gocv.CountNonZero(frame.Foreground.GetMat()))
	if frame.Background != nil {
		s.backgrounds++
	}
	return nil
}

func (s *recordingSink) Close() error {
	return nil
}

func TestRunProcessesEveryFrameInOrder(t *testing.T) {
	alg := framediff.NewFrameDifference()
	defer alg.Close()

	src := newSliceSource(t, 5)
	sink := &recordingSink{}

	stats, err := NewRunner(alg, WithQueueSize(1)).Run(context.Background(), src, sink)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Frames)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, sink.indices)
	assert.Zero(t, sink.foreground[0])
	for _, count := range sink.foreground[1:] {
		assert.Positive(t, count)
	}
	assert.Zero(t, sink.backgrounds)
	assert.GreaterOrEqual(t, stats.FPS(), 0.0)
}

func TestRunHonoursMaxFrames(t *testing.T) {
	alg := framediff.NewFrameDifference()
	defer alg.Close()

	src := newSliceSource(t, 6)
	sink := &recordingSink{}

	stats, err := NewRunner(alg, WithMaxFrames(3)).Run(context.Background(), src, sink)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Frames)
	assert.Equal(t, []int{0, 1, 2}, sink.indices)
	assert.Equal(t, 3, src.next)
}

func TestRunAttachesBackground(t *testing.T) {
	alg := framediff.NewStaticFrameDifference()
	defer alg.Close()

	sink := &recordingSink{}
	_, err := NewRunner(alg, WithBackground(true)).Run(context.Background(), newSliceSource(t, 3), sink)
	require.NoError(t, err)

	assert.Equal(t, 3, sink.backgrounds)
}

func TestRunAppliesMaskFilter(t *testing.T) {
	alg := framediff.NewFrameDifference()
	defer alg.Close()

	tracker := timing.NewTracker()
	chain := maskfilter.NewChain(maskfilter.NewMedian(3))

	sink := &recordingSink{}
	stats, err := NewRunner(alg, WithMaskFilter(chain), WithTracker(tracker)).
		Run(context.Background(), newSliceSource(t, 3), sink)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Frames)
	assert.Equal(t, 3, tracker.Count(OpFilter))
	assert.Zero(t, sink.foreground[0])
}

func TestRunStopsOnSinkError(t *testing.T) {
	alg := framediff.NewFrameDifference()
	defer alg.Close()

	sink := &recordingSink{failAt: 2}
	stats, err := NewRunner(alg).Run(context.Background(), newSliceSource(t, 8), sink)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 2, stats.Frames)
	assert.Equal(t, []int{0, 1}, sink.indices)
}

func TestRunCancelled(t *testing.T) {
	alg := framediff.NewFrameDifference()
	defer alg.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(alg).Run(ctx, newSliceSource(t, 4), &recordingSink{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImageDirRoundTrip(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")

	for i, name := range []string{"b.png", "a.png", "c.png"} {
		frame := algotest.FrameWithPatch(t, 12, 12, 10, image.Rect(i*3, 0, i*3+3, 3), 250)
		require.True(t, gocv.IMWrite(filepath.Join(inputDir, name), frame.GetMat()))
	}
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "notes.txt"), []byte("skip"), 0o644))

	src, err := NewImageDirSource(inputDir)
	require.NoError(t, err)
	assert.Equal(t, 3, src.Len())

	sink, err := NewImageDirSink(outputDir, true)
	require.NoError(t, err)

	alg := framediff.NewFrameDifference()
	defer alg.Close()

	stats, err := NewRunner(alg, WithBackground(true)).Run(context.Background(), src, sink)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Frames)

	for i := 0; i < 3; i++ {
		assert.FileExists(t, sink.ForegroundPath(i))
		assert.FileExists(t, sink.BackgroundPath(i))
	}

	mask := gocv.IMRead(sink.ForegroundPath(1), gocv.IMReadUnchanged)
	defer mask.Close()
	assert.Equal(t, 1, mask.Channels())
	assert.Positive(t, gocv.CountNonZero(mask))
}

func TestImageDirSourceRejectsEmptyDirectory(t *testing.T) {
	_, err := NewImageDirSource(t.TempDir())
	assert.Error(t, err)
}

func TestOpenSourceMissingInput(t *testing.T) {
	_, err := OpenSource(filepath.Join(t.TempDir(), "missing.avi"), -1)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
