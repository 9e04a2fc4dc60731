package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the settings of the segmentation command.
type Config struct {
	Algorithm string `env:"BGS_ALGORITHM" envDefault:"FrameDifference"`

	// Input is a video file or a directory of frames. Camera selects a
	// capture device instead when it is not negative.
	Input  string `env:"BGS_INPUT"`
	Camera int    `env:"BGS_CAMERA" envDefault:"-1"`

	OutputDir      string `env:"BGS_OUTPUT_DIR"      envDefault:"output"`
	SaveBackground bool   `env:"BGS_SAVE_BACKGROUND" envDefault:"false"`
	MaxFrames      int    `env:"BGS_MAX_FRAMES"      envDefault:"0"`
	QueueSize      int    `env:"BGS_QUEUE_SIZE"      envDefault:"4"`

	// ConfigDir holds one parameter file per algorithm. Empty disables
	// parameter files and every algorithm runs with built-in defaults.
	ConfigDir    string `env:"BGS_CONFIG_DIR"    envDefault:"config"`
	ConfigFormat string `env:"BGS_CONFIG_FORMAT" envDefault:"yaml"`

	// MaskFilters lists post-processing steps applied to every mask, in
	// order. Known steps are median and morphology.
	MaskFilters []string `env:"BGS_MASK_FILTERS" envSeparator:","`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file from envFile and then parses the
// environment into a Config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the combinations env parsing cannot express.
func (c *Config) Validate() error {
	if c.Algorithm == "" {
		return errors.New("algorithm name is required")
	}
	if c.Input == "" && c.Camera < 0 {
		return errors.New("either an input path or a camera index is required")
	}
	if c.MaxFrames < 0 {
		return fmt.Errorf("max frames must not be negative, got %d", c.MaxFrames)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue size must be at least 1, got %d", c.QueueSize)
	}
	if _, err := ParseFormat(c.ConfigFormat); err != nil {
		return err
	}
	return nil
}
