package subtractor

import (
	"fmt"

	"bgs-segmenter/internal/algorithms"
	"bgs-segmenter/internal/config"
	"bgs-segmenter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const KNNName = "KNN"

var (
	_ algorithms.Algorithm = (*KNN)(nil)
	_ algorithms.Processor = (*KNN)(nil)
)

type KNNParams struct {
	History         int     `yaml:"history" toml:"history"`
	Dist2Threshold  float64 `yaml:"dist2_threshold" toml:"dist2_threshold"`
	DetectShadows   bool    `yaml:"detect_shadows" toml:"detect_shadows"`
	RemoveShadows   bool    `yaml:"remove_shadows" toml:"remove_shadows"`
	BackgroundAlpha float64 `yaml:"background_alpha" toml:"background_alpha"`
}

func DefaultKNNParams() KNNParams {
	return KNNParams{
		History:         500,
		Dist2Threshold:  400,
		DetectShadows:   true,
		RemoveShadows:   true,
		BackgroundAlpha: 0.05,
	}
}

func (p KNNParams) Validate() error {
	if p.History < 1 {
		return fmt.Errorf("history must be positive, got: %d", p.History)
	}
	if p.Dist2Threshold <= 0 {
		return fmt.Errorf("dist2_threshold must be positive, got: %f", p.Dist2Threshold)
	}
	return validateAlpha(p.BackgroundAlpha)
}

// KNN wraps OpenCV's BackgroundSubtractorKNN.
type KNN struct {
	*algorithms.Base
	params KNNParams
	engine *engine
}

func NewKNN() *KNN {
	k := &KNN{params: DefaultKNNParams()}
	k.engine = newEngine(func() backgroundSubtractor {
		s := gocv.NewBackgroundSubtractorKNNWithParams(k.params.History, k.params.Dist2Threshold, k.params.DetectShadows)
		return &s
	})
	k.Base = algorithms.NewBase(KNNName, k)
	return k
}

func (k *KNN) Params() KNNParams {
	return k.params
}

func (k *KNN) Process(input, foreground, background *safe.Mat) error {
	return k.engine.process(input, foreground, background, k.params.RemoveShadows, k.params.BackgroundAlpha)
}

func (k *KNN) SaveConfig(path string) error {
	return config.SaveParams(path, k.params)
}

func (k *KNN) LoadConfig(path string) error {
	params := k.params
	if err := config.LoadParams(path, &params); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%s: %w", KNNName, err)
	}
	k.params = params
	return nil
}

func (k *KNN) Close() error {
	k.engine.close()
	return k.Base.Close()
}
