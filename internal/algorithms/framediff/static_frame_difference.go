package framediff

import (
	"fmt"

	"bgs-segmenter/internal/algorithms"
	"bgs-segmenter/internal/config"
	"bgs-segmenter/internal/opencv/conversion"
	"bgs-segmenter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const StaticName = "StaticFrameDifference"

var (
	_ algorithms.Algorithm = (*StaticFrameDifference)(nil)
	_ algorithms.Processor = (*StaticFrameDifference)(nil)
)

// StaticFrameDifference compares every frame against the first one seen.
type StaticFrameDifference struct {
	*algorithms.Base
	params    Params
	reference gocv.Mat
}

func NewStaticFrameDifference() *StaticFrameDifference {
	sfd := &StaticFrameDifference{
		params:    DefaultParams(),
		reference: gocv.NewMat(),
	}
	sfd.Base = algorithms.NewBase(StaticName, sfd)
	return sfd
}

func (sfd *StaticFrameDifference) Params() Params {
	return sfd.params
}

func (sfd *StaticFrameDifference) Process(input, foreground, background *safe.Mat) error {
	current := gocv.NewMat()
	defer current.Close()
	if err := conversion.ToBGR8(input.GetMat(), &current); err != nil {
		return err
	}

	if !algorithms.SameShape(sfd.reference, current) {
		if err := algorithms.WriteBackground(current, background); err != nil {
			return err
		}
		if !sfd.reference.Empty() {
			sfd.Logger().Debug(StaticName, "reference restarted", map[string]interface{}{
				"rows": current.Rows(),
				"cols": current.Cols(),
			})
		}
		return current.CopyTo(&sfd.reference)
	}

	if err := algorithms.DifferenceMask(current, sfd.reference, foreground, float32(sfd.params.Threshold), sfd.params.EnableThreshold); err != nil {
		return err
	}
	return algorithms.WriteBackground(sfd.reference, background)
}

func (sfd *StaticFrameDifference) SaveConfig(path string) error {
	return config.SaveParams(path, sfd.params)
}

func (sfd *StaticFrameDifference) LoadConfig(path string) error {
	params := sfd.params
	if err := config.LoadParams(path, &params); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%s: %w", StaticName, err)
	}
	sfd.params = params
	return nil
}

func (sfd *StaticFrameDifference) Close() error {
	sfd.reference.Close()
	return sfd.Base.Close()
}
