package maskfilter

import (
	"context"
	"fmt"
	"image"

	"bgs-segmenter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const (
	MedianName     = "median"
	MorphologyName = "morphology"
)

// Median removes salt-and-pepper noise from a mask.
type Median struct {
	kernelSize int
}

// NewMedian returns a median filter. Even or non-positive kernel sizes are
// rounded up to the next valid odd size.
func NewMedian(kernelSize int) *Median {
	if kernelSize < 3 {
		kernelSize = 3
	}
	if kernelSize%2 == 0 {
		kernelSize++
	}
	return &Median{kernelSize: kernelSize}
}

func (m *Median) Name() string {
	return MedianName
}

func (m *Median) Apply(ctx context.Context, mask *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(mask, MedianName); err != nil {
		return nil, err
	}

	result, err := safe.NewMat(mask.Rows(), mask.Cols(), mask.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create result Mat: %w", err)
	}

	resultMat := result.GetMat()
	if err := gocv.MedianBlur(mask.GetMat(), &resultMat, m.kernelSize); err != nil {
		result.Close()
		return nil, fmt.Errorf("median blur: %w", err)
	}
	return result, nil
}

// Morphology opens the mask to drop isolated specks and then closes it to
// fill small holes inside blobs.
type Morphology struct {
	openSize  int
	closeSize int
}

func NewMorphology(openSize, closeSize int) *Morphology {
	return &Morphology{openSize: max(openSize, 1), closeSize: max(closeSize, 1)}
}

func (m *Morphology) Name() string {
	return MorphologyName
}

func (m *Morphology) Apply(ctx context.Context, mask *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(mask, MorphologyName); err != nil {
		return nil, err
	}

	openKernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: m.openSize, Y: m.openSize})
	defer openKernel.Close()

	closeKernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: m.closeSize, Y: m.closeSize})
	defer closeKernel.Close()

	opened := gocv.NewMat()
	defer opened.Close()
	if err := gocv.MorphologyEx(mask.GetMat(), &opened, gocv.MorphOpen, openKernel); err != nil {
		return nil, fmt.Errorf("morphological open: %w", err)
	}

	result, err := safe.NewMat(mask.Rows(), mask.Cols(), mask.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create result Mat: %w", err)
	}

	resultMat := result.GetMat()
	if err := gocv.MorphologyEx(opened, &resultMat, gocv.MorphClose, closeKernel); err != nil {
		result.Close()
		return nil, fmt.Errorf("morphological close: %w", err)
	}
	return result, nil
}
