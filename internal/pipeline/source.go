// Package pipeline streams frames from a Source through a segmentation
// algorithm into a Sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"bgs-segmenter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Source yields frames in order. Next returns io.EOF once the input is
// exhausted. The caller owns every returned frame.
type Source interface {
	Next(ctx context.Context) (*safe.Mat, error)
	Close() error
}

var errUnreadableImage = errors.New("unreadable image")

var imageExtensions = []string{".bmp", ".jpeg", ".jpg", ".png", ".tif", ".tiff"}

// OpenSource picks a camera when camera is not negative, an image directory
// when input is a directory and a video file otherwise.
func OpenSource(input string, camera int) (Source, error) {
	if camera >= 0 {
		return OpenCamera(camera)
	}

	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", input, err)
	}
	if info.IsDir() {
		return NewImageDirSource(input)
	}
	return OpenVideoFile(input)
}

type VideoSource struct {
	capture *gocv.VideoCapture
	name    string
}

func OpenVideoFile(path string) (*VideoSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	return &VideoSource{capture: capture, name: path}, nil
}

func OpenCamera(index int) (*VideoSource, error) {
	capture, err := gocv.VideoCaptureDevice(index)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", index, err)
	}
	return &VideoSource{capture: capture, name: fmt.Sprintf("camera:%d", index)}, nil
}

func (vs *VideoSource) Next(ctx context.Context) (*safe.Mat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame := gocv.NewMat()
	defer frame.Close()

	if ok := vs.capture.Read(&frame); !ok || frame.Empty() {
		return nil, io.EOF
	}

	mat, err := safe.NewMatFromMat(frame)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", vs.name, err)
	}
	return mat, nil
}

func (vs *VideoSource) Close() error {
	return vs.capture.Close()
}

// ImageDirSource reads the image files of a directory in lexical order.
type ImageDirSource struct {
	files []string
	next  int
}

func NewImageDirSource(dir string) (*ImageDirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if slices.Contains(imageExtensions, ext) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	slices.Sort(files)

	return &ImageDirSource{files: files}, nil
}

func (ds *ImageDirSource) Len() int {
	return len(ds.files)
}

func (ds *ImageDirSource) Next(ctx context.Context) (*safe.Mat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ds.next >= len(ds.files) {
		return nil, io.EOF
	}

	path := ds.files[ds.next]
	ds.next++

	frame := gocv.IMRead(path, gocv.IMReadUnchanged)
	defer frame.Close()

	if frame.Empty() {
		return nil, fmt.Errorf("decode %s: %w", path, errUnreadableImage)
	}
	return safe.NewMatFromMat(frame)
}

func (ds *ImageDirSource) Close() error {
	return nil
}
