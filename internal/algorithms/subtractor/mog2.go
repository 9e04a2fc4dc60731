package subtractor

import (
	"fmt"

	"bgs-segmenter/internal/algorithms"
	"bgs-segmenter/internal/config"
	"bgs-segmenter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const MOG2Name = "MixtureOfGaussianV2"

var (
	_ algorithms.Algorithm = (*MixtureOfGaussianV2)(nil)
	_ algorithms.Processor = (*MixtureOfGaussianV2)(nil)
)

type MOG2Params struct {
	History         int     `yaml:"history" toml:"history"`
	VarThreshold    float64 `yaml:"var_threshold" toml:"var_threshold"`
	DetectShadows   bool    `yaml:"detect_shadows" toml:"detect_shadows"`
	RemoveShadows   bool    `yaml:"remove_shadows" toml:"remove_shadows"`
	BackgroundAlpha float64 `yaml:"background_alpha" toml:"background_alpha"`
}

func DefaultMOG2Params() MOG2Params {
	return MOG2Params{
		History:         500,
		VarThreshold:    16,
		DetectShadows:   true,
		RemoveShadows:   true,
		BackgroundAlpha: 0.05,
	}
}

func (p MOG2Params) Validate() error {
	if p.History < 1 {
		return fmt.Errorf("history must be positive, got: %d", p.History)
	}
	if p.VarThreshold <= 0 {
		return fmt.Errorf("var_threshold must be positive, got: %f", p.VarThreshold)
	}
	return validateAlpha(p.BackgroundAlpha)
}

// MixtureOfGaussianV2 wraps OpenCV's BackgroundSubtractorMOG2.
type MixtureOfGaussianV2 struct {
	*algorithms.Base
	params MOG2Params
	engine *engine
}

func NewMixtureOfGaussianV2() *MixtureOfGaussianV2 {
	m := &MixtureOfGaussianV2{params: DefaultMOG2Params()}
	m.engine = newEngine(func() backgroundSubtractor {
		s := gocv.NewBackgroundSubtractorMOG2WithParams(m.params.History, m.params.VarThreshold, m.params.DetectShadows)
		return &s
	})
	m.Base = algorithms.NewBase(MOG2Name, m)
	return m
}

func (m *MixtureOfGaussianV2) Params() MOG2Params {
	return m.params
}

func (m *MixtureOfGaussianV2) Process(input, foreground, background *safe.Mat) error {
	return m.engine.process(input, foreground, background, m.params.RemoveShadows, m.params.BackgroundAlpha)
}

func (m *MixtureOfGaussianV2) SaveConfig(path string) error {
	return config.SaveParams(path, m.params)
}

func (m *MixtureOfGaussianV2) LoadConfig(path string) error {
	params := m.params
	if err := config.LoadParams(path, &params); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%s: %w", MOG2Name, err)
	}
	m.params = params
	return nil
}

func (m *MixtureOfGaussianV2) Close() error {
	m.engine.close()
	return m.Base.Close()
}

func validateAlpha(alpha float64) error {
	if alpha <= 0.0 || alpha > 1.0 {
		return fmt.Errorf("background_alpha must be in (0.0, 1.0], got: %f", alpha)
	}
	return nil
}
