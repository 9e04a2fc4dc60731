// Package movingmean estimates the background as a weighted mean of the
// three most recent frames.
package movingmean

import (
	"fmt"

	"bgs-segmenter/internal/algorithms"
	"bgs-segmenter/internal/config"
	"bgs-segmenter/internal/opencv/conversion"
	"bgs-segmenter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const Name = "WeightedMovingMean"

var (
	_ algorithms.Algorithm = (*WeightedMovingMean)(nil)
	_ algorithms.Processor = (*WeightedMovingMean)(nil)
)

type Params struct {
	EnableWeight    bool `yaml:"enable_weight" toml:"enable_weight"`
	EnableThreshold bool `yaml:"enable_threshold" toml:"enable_threshold"`
	Threshold       int  `yaml:"threshold" toml:"threshold"`
}

func DefaultParams() Params {
	return Params{
		EnableWeight:    true,
		EnableThreshold: true,
		Threshold:       15,
	}
}

func (p Params) Validate() error {
	if p.Threshold < 0 || p.Threshold > 255 {
		return fmt.Errorf("threshold must be between 0 and 255, got: %d", p.Threshold)
	}
	return nil
}

// weights for the current frame and the two before it.
func (p Params) weights() [3]float64 {
	if p.EnableWeight {
		return [3]float64{0.5, 0.3, 0.2}
	}
	return [3]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
}

type WeightedMovingMean struct {
	*algorithms.Base
	params Params

	// history[0] is the previous frame, history[1] the one before it.
	history [2]gocv.Mat
}

func NewWeightedMovingMean() *WeightedMovingMean {
	wmm := &WeightedMovingMean{
		params:  DefaultParams(),
		history: [2]gocv.Mat{gocv.NewMat(), gocv.NewMat()},
	}
	wmm.Base = algorithms.NewBase(Name, wmm)
	return wmm
}

func (wmm *WeightedMovingMean) Params() Params {
	return wmm.params
}

func (wmm *WeightedMovingMean) Process(input, foreground, background *safe.Mat) error {
	current := gocv.NewMat()
	if err := wmm.segment(current, input, foreground, background); err != nil {
		current.Close()
		return err
	}

	wmm.push(current)
	return nil
}

// segment reads the history without modifying it.
func (wmm *WeightedMovingMean) segment(current gocv.Mat, input, foreground, background *safe.Mat) error {
	if err := conversion.ToBGR8(input.GetMat(), &current); err != nil {
		return err
	}

	if !algorithms.SameShape(wmm.history[0], current) || !algorithms.SameShape(wmm.history[1], current) {
		return algorithms.WriteBackground(current, background)
	}

	mean := gocv.NewMat()
	defer mean.Close()
	if err := wmm.weightedMean(current, &mean); err != nil {
		return err
	}

	if err := algorithms.DifferenceMask(current, mean, foreground, float32(wmm.params.Threshold), wmm.params.EnableThreshold); err != nil {
		return err
	}
	return algorithms.WriteBackground(mean, background)
}

// weightedMean computes the background estimate in floating point and
// writes it to dst as 8UC3.
func (wmm *WeightedMovingMean) weightedMean(current gocv.Mat, dst *gocv.Mat) error {
	w := wmm.params.weights()
	frames := [3]gocv.Mat{current, wmm.history[0], wmm.history[1]}

	acc := gocv.Zeros(current.Rows(), current.Cols(), gocv.MatTypeCV32FC3)
	defer acc.Close()

	scaled := gocv.NewMat()
	defer scaled.Close()
	for i, frame := range frames {
		if err := frame.ConvertTo(&scaled, gocv.MatTypeCV32FC3); err != nil {
			return fmt.Errorf("weighted mean: %w", err)
		}
		if err := gocv.AddWeighted(acc, 1.0, scaled, w[i], 0, &acc); err != nil {
			return fmt.Errorf("weighted mean: %w", err)
		}
	}

	if err := acc.ConvertTo(dst, gocv.MatTypeCV8UC3); err != nil {
		return fmt.Errorf("weighted mean: %w", err)
	}
	return nil
}

// push shifts current into the history, taking ownership of it. The
// history only advances for frames that were segmented successfully.
func (wmm *WeightedMovingMean) push(current gocv.Mat) {
	wmm.history[1].Close()
	wmm.history[1] = wmm.history[0]
	wmm.history[0] = current
}

func (wmm *WeightedMovingMean) SaveConfig(path string) error {
	return config.SaveParams(path, wmm.params)
}

func (wmm *WeightedMovingMean) LoadConfig(path string) error {
	params := wmm.params
	if err := config.LoadParams(path, &params); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%s: %w", Name, err)
	}
	wmm.params = params
	return nil
}

func (wmm *WeightedMovingMean) Close() error {
	for i := range wmm.history {
		wmm.history[i].Close()
	}
	return wmm.Base.Close()
}
