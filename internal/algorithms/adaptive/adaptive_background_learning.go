// Package adaptive learns the background as an exponential running average
// of the incoming frames.
package adaptive

import (
	"fmt"

	"bgs-segmenter/internal/algorithms"
	"bgs-segmenter/internal/config"
	"bgs-segmenter/internal/opencv/conversion"
	"bgs-segmenter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const Name = "AdaptiveBackgroundLearning"

var (
	_ algorithms.Algorithm = (*AdaptiveBackgroundLearning)(nil)
	_ algorithms.Processor = (*AdaptiveBackgroundLearning)(nil)
)

type Params struct {
	Alpha float64 `yaml:"alpha" toml:"alpha"`

	// MaxLearningFrames stops updating the model after that many frames;
	// -1 keeps learning forever.
	MaxLearningFrames int  `yaml:"max_learning_frames" toml:"max_learning_frames"`
	EnableThreshold   bool `yaml:"enable_threshold" toml:"enable_threshold"`
	Threshold         int  `yaml:"threshold" toml:"threshold"`
}

func DefaultParams() Params {
	return Params{
		Alpha:             0.05,
		MaxLearningFrames: -1,
		EnableThreshold:   true,
		Threshold:         15,
	}
}

func (p Params) Validate() error {
	if p.Alpha < 0.0 || p.Alpha > 1.0 {
		return fmt.Errorf("alpha must be between 0.0 and 1.0, got: %f", p.Alpha)
	}
	if p.MaxLearningFrames < -1 || p.MaxLearningFrames == 0 {
		return fmt.Errorf("max_learning_frames must be -1 or positive, got: %d", p.MaxLearningFrames)
	}
	if p.Threshold < 0 || p.Threshold > 255 {
		return fmt.Errorf("threshold must be between 0 and 255, got: %d", p.Threshold)
	}
	return nil
}

type AdaptiveBackgroundLearning struct {
	*algorithms.Base
	params  Params
	model   gocv.Mat // 32FC3
	learned int
}

func NewAdaptiveBackgroundLearning() *AdaptiveBackgroundLearning {
	abl := &AdaptiveBackgroundLearning{
		params: DefaultParams(),
		model:  gocv.NewMat(),
	}
	abl.Base = algorithms.NewBase(Name, abl)
	return abl
}

func (abl *AdaptiveBackgroundLearning) Params() Params {
	return abl.params
}

func (abl *AdaptiveBackgroundLearning) Process(input, foreground, background *safe.Mat) error {
	current := gocv.NewMat()
	defer current.Close()
	if err := conversion.ToBGR8(input.GetMat(), &current); err != nil {
		return err
	}

	currentF := gocv.NewMat()
	defer currentF.Close()
	if err := current.ConvertTo(&currentF, gocv.MatTypeCV32FC3); err != nil {
		return fmt.Errorf("%s: %w", Name, err)
	}

	model, learned := abl.model, abl.learned
	if abl.FirstTime() || !algorithms.SameShape(abl.model, currentF) {
		if !abl.model.Empty() {
			abl.Logger().Debug(Name, "model restarted", map[string]interface{}{
				"rows": current.Rows(),
				"cols": current.Cols(),
			})
		}
		model, learned = currentF, 0
	}

	estimate := gocv.NewMat()
	defer estimate.Close()
	if err := model.ConvertTo(&estimate, gocv.MatTypeCV8UC3); err != nil {
		return fmt.Errorf("%s: %w", Name, err)
	}

	if err := algorithms.DifferenceMask(current, estimate, foreground, float32(abl.params.Threshold), abl.params.EnableThreshold); err != nil {
		return err
	}

	next, learned, err := abl.learn(currentF, model, learned)
	if err != nil {
		return err
	}

	if err := next.ConvertTo(&estimate, gocv.MatTypeCV8UC3); err != nil {
		next.Close()
		return fmt.Errorf("%s: %w", Name, err)
	}
	if err := algorithms.WriteBackground(estimate, background); err != nil {
		next.Close()
		return err
	}

	abl.model.Close()
	abl.model = next
	abl.learned = learned
	return nil
}

// learn returns the model for the next frame in a new Mat, leaving model
// untouched.
func (abl *AdaptiveBackgroundLearning) learn(currentF, model gocv.Mat, learned int) (gocv.Mat, int, error) {
	next := gocv.NewMat()

	if abl.params.MaxLearningFrames != -1 && learned >= abl.params.MaxLearningFrames {
		if err := model.CopyTo(&next); err != nil {
			next.Close()
			return gocv.Mat{}, learned, fmt.Errorf("%s: %w", Name, err)
		}
		return next, learned, nil
	}

	if err := gocv.AddWeighted(currentF, abl.params.Alpha, model, 1-abl.params.Alpha, 0, &next); err != nil {
		next.Close()
		return gocv.Mat{}, learned, fmt.Errorf("%s: %w", Name, err)
	}
	return next, learned + 1, nil
}

func (abl *AdaptiveBackgroundLearning) SaveConfig(path string) error {
	return config.SaveParams(path, abl.params)
}

func (abl *AdaptiveBackgroundLearning) LoadConfig(path string) error {
	params := abl.params
	if err := config.LoadParams(path, &params); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%s: %w", Name, err)
	}
	abl.params = params
	return nil
}

func (abl *AdaptiveBackgroundLearning) Close() error {
	abl.model.Close()
	return abl.Base.Close()
}
