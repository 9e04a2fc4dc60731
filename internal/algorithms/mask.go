package algorithms

import (
	"fmt"

	"bgs-segmenter/internal/opencv/conversion"
	"bgs-segmenter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// DifferenceMask writes the grayscale absolute difference of a and b into
// foreground. With binarize set, pixels above threshold become 255 and the
// rest 0. a and b must share size and type.
func DifferenceMask(a, b gocv.Mat, foreground *safe.Mat, threshold float32, binarize bool) error {
	diff := gocv.NewMat()
	defer diff.Close()
	if err := gocv.AbsDiff(a, b, &diff); err != nil {
		return fmt.Errorf("difference mask: %w", err)
	}

	fgMat := foreground.GetMat()
	if err := conversion.ToGray8(diff, &fgMat); err != nil {
		return fmt.Errorf("difference mask: %w", err)
	}

	if binarize {
		gocv.Threshold(fgMat, &fgMat, threshold, 255, gocv.ThresholdBinary)
	}
	return nil
}

// WriteBackground stores src into background as 8-bit BGR.
func WriteBackground(src gocv.Mat, background *safe.Mat) error {
	bgMat := background.GetMat()
	if err := conversion.ToBGR8(src, &bgMat); err != nil {
		return fmt.Errorf("background model: %w", err)
	}
	return nil
}

// SameShape reports whether a and b have equal size and type. Algorithms
// use it to restart their model when the stream changes resolution.
func SameShape(a, b gocv.Mat) bool {
	if a.Empty() || b.Empty() {
		return false
	}
	return a.Rows() == b.Rows() && a.Cols() == b.Cols() && a.Type() == b.Type()
}
