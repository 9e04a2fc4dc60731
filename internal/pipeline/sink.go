package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"bgs-segmenter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Frame is one segmented frame on its way to a Sink. Background may be nil.
type Frame struct {
	Index      int
	Foreground *safe.Mat
	Background *safe.Mat
}

func (f Frame) Close() {
	if f.Foreground != nil {
		f.Foreground.Close()
	}
	if f.Background != nil {
		f.Background.Close()
	}
}

// Sink consumes segmented frames. The pipeline closes each Frame after
// Write returns, so sinks must copy anything they keep.
type Sink interface {
	Write(ctx context.Context, frame Frame) error
	Close() error
}

// ImageDirSink writes foreground masks, and optionally background models,
// as numbered PNG files.
type ImageDirSink struct {
	dir            string
	saveBackground bool
}

func NewImageDirSink(dir string, saveBackground bool) (*ImageDirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return &ImageDirSink{dir: dir, saveBackground: saveBackground}, nil
}

func (s *ImageDirSink) ForegroundPath(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("fg_%06d.png", index))
}

func (s *ImageDirSink) BackgroundPath(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("bg_%06d.png", index))
}

func (s *ImageDirSink) Write(ctx context.Context, frame Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := writePNG(s.ForegroundPath(frame.Index), frame.Foreground); err != nil {
		return err
	}

	if s.saveBackground && frame.Background != nil && !frame.Background.Empty() {
		if err := writePNG(s.BackgroundPath(frame.Index), frame.Background); err != nil {
			return err
		}
	}
	return nil
}

func (s *ImageDirSink) Close() error {
	return nil
}

func writePNG(path string, mat *safe.Mat) error {
	if err := safe.ValidateMatForOperation(mat, "write "+path); err != nil {
		return err
	}
	if ok := gocv.IMWrite(path, mat.GetMat()); !ok {
		return fmt.Errorf("failed to write %s", path)
	}
	return nil
}
