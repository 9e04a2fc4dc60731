package framediff

import "fmt"

type Params struct {
	EnableThreshold bool `yaml:"enable_threshold" toml:"enable_threshold"`
	Threshold       int  `yaml:"threshold" toml:"threshold"`
}

func DefaultParams() Params {
	return Params{
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
