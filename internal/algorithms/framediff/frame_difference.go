// Package framediff segments frames by differencing them against a
// reference frame.
package framediff

import (
	"fmt"

	"bgs-segmenter/internal/algorithms"
	"bgs-segmenter/internal/config"
	"bgs-segmenter/internal/opencv/conversion"
	"bgs-segmenter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const Name = "FrameDifference"

var (
	_ algorithms.Algorithm = (*FrameDifference)(nil)
	_ algorithms.Processor = (*FrameDifference)(nil)
)

// FrameDifference marks pixels that changed since the previous frame. The
// previous frame doubles as the background model.
type FrameDifference struct {
	*algorithms.Base
	params   Params
	previous gocv.Mat
}

func NewFrameDifference() *FrameDifference {
	fd := &FrameDifference{
		params:   DefaultParams(),
		previous: gocv.NewMat(),
	}
	fd.Base = algorithms.NewBase(Name, fd)
	return fd
}

func (fd *FrameDifference) Params() Params {
	return fd.params
}

func (fd *FrameDifference) Process(input, foreground, background *safe.Mat) error {
	current := gocv.NewMat()
	if err := fd.segment(current, input, foreground, background); err != nil {
		current.Close()
		return err
	}

	fd.previous.Close()
	fd.previous = current
	return nil
}

// segment leaves fd.previous untouched so a failed frame never becomes the
// next reference.
func (fd *FrameDifference) segment(current gocv.Mat, input, foreground, background *safe.Mat) error {
	if err := conversion.ToBGR8(input.GetMat(), &current); err != nil {
		return err
	}

	if !algorithms.SameShape(fd.previous, current) {
		if !fd.previous.Empty() {
			fd.Logger().Debug(Name, "reference restarted", map[string]interface{}{
				"rows": current.Rows(),
				"cols": current.Cols(),
			})
		}
		return algorithms.WriteBackground(current, background)
	}

	if err := algorithms.DifferenceMask(current, fd.previous, foreground, float32(fd.params.Threshold), fd.params.EnableThreshold); err != nil {
		return err
	}
	return algorithms.WriteBackground(fd.previous, background)
}

func (fd *FrameDifference) SaveConfig(path string) error {
	return config.SaveParams(path, fd.params)
}

func (fd *FrameDifference) LoadConfig(path string) error {
	params := fd.params
	if err := config.LoadParams(path, &params); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%s: %w", Name, err)
	}
	fd.params = params
	return nil
}

func (fd *FrameDifference) Close() error {
	fd.previous.Close()
	return fd.Base.Close()
}
