// Package algorithms defines the lifecycle shared by every foreground
// segmentation algorithm and the registry that builds them by name.
package algorithms

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"bgs-segmenter/internal/logger"
	"bgs-segmenter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const component = "Algorithm"

// Algorithm is the handle application code drives frame by frame.
type Algorithm interface {
	Name() string

	// Apply segments one frame and returns its foreground mask. The mask is
	// 8-bit single channel, sized like input, and owned by the caller.
	Apply(input *safe.Mat) (*safe.Mat, error)

	// BackgroundModel returns the 8-bit 3-channel model retained by the last
	// Apply, or an empty Mat before the first one. The Mat stays owned by the
	// algorithm and is overwritten by the next Apply.
	BackgroundModel() *safe.Mat

	SetShowOutput(show bool)
	ShowOutput() bool

	// Setup materializes and loads the parameter file at configPath.
	Setup(configPath string) error

	SetLogger(log logger.Logger)
	Close() error
}

// Processor is the algorithm-specific part of the lifecycle.
type Processor interface {
	// Process writes this frame's segmentation into foreground (8UC1) and
	// background (8UC3), both already allocated at the size of input.
	Process(input, foreground, background *safe.Mat) error

	// SaveConfig writes the algorithm's default parameters to path.
	SaveConfig(path string) error

	// LoadConfig reads the algorithm's parameters from path.
	LoadConfig(path string) error
}

// Base carries the state and the fixed outer lifecycle common to all
// algorithms. Concrete algorithms embed *Base and pass themselves as the
// Processor.
type Base struct {
	name       string
	proc       Processor
	log        logger.Logger
	firstTime  bool
	showOutput bool
	background *safe.Mat
	configPath string
}

func NewBase(name string, proc Processor) *Base {
	return &Base{
		name:       name,
		proc:       proc,
		log:        logger.Nop(),
		firstTime:  true,
		showOutput: true,
		background: safe.NewEmptyMat(),
	}
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) SetLogger(log logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}
	b.log = log
}

// Logger returns the logger injected by the registry.
func (b *Base) Logger() logger.Logger {
	return b.log
}

func (b *Base) SetShowOutput(show bool) {
	b.showOutput = show
}

func (b *Base) ShowOutput() bool {
	return b.showOutput
}

// FirstTime reports whether no frame has been processed successfully yet.
func (b *Base) FirstTime() bool {
	return b.firstTime
}

func (b *Base) ConfigPath() string {
	return b.configPath
}

// Setup records configPath and runs the parameter file lifecycle: a missing
// file is first written with the defaults, then the file is loaded. An empty
// path leaves the built-in defaults in place without touching the disk.
func (b *Base) Setup(configPath string) error {
	b.configPath = configPath
	if configPath == "" {
		return nil
	}

	if _, err := os.Stat(configPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: stat config %s: %w", b.name, configPath, err)
		}

		if err := b.proc.SaveConfig(configPath); err != nil {
			return fmt.Errorf("%s: save default config %s: %w", b.name, configPath, err)
		}
		b.log.Info(component, "default configuration written", map[string]interface{}{
			"algorithm": b.name,
			"path":      configPath,
		})
	}

	if err := b.proc.LoadConfig(configPath); err != nil {
		return fmt.Errorf("%s: load config %s: %w", b.name, configPath, err)
	}

	b.log.Debug(component, "configuration loaded", map[string]interface{}{
		"algorithm": b.name,
		"path":      configPath,
	})
	return nil
}

// Apply runs one frame through the algorithm. It panics when input is nil or
// empty.
func (b *Base) Apply(input *safe.Mat) (*safe.Mat, error) {
	safe.MustBeNonEmpty(input, b.name+" apply")

	b.SetShowOutput(false)

	foreground := safe.NewEmptyMat()
	background := safe.NewEmptyMat()
	defer background.Close()

	InitBuffers(input, foreground, background)

	if err := b.proc.Process(input, foreground, background); err != nil {
		foreground.Close()
		return nil, fmt.Errorf("%s: process frame: %w", b.name, err)
	}

	if err := background.CopyTo(b.background); err != nil {
		foreground.Close()
		return nil, fmt.Errorf("%s: retain background model: %w", b.name, err)
	}

	b.firstTime = false
	return foreground, nil
}

func (b *Base) BackgroundModel() *safe.Mat {
	return b.background
}

// Close releases the retained background model. Algorithms holding their own
// native buffers override Close and call it last.
func (b *Base) Close() error {
	b.background.Close()
	return nil
}

// InitBuffers zero-fills foreground as 8UC1 and background as 8UC3, both
// sized like input. It panics when input is nil or empty.
func InitBuffers(input, foreground, background *safe.Mat) {
	safe.MustBeNonEmpty(input, "init buffers")

	rows, cols := input.Rows(), input.Cols()
	if err := foreground.Reset(rows, cols, gocv.MatTypeCV8UC1); err != nil {
		panic(fmt.Errorf("init foreground buffer: %w", err))
	}
	if err := background.Reset(rows, cols, gocv.MatTypeCV8UC3); err != nil {
		panic(fmt.Errorf("init background buffer: %w", err))
	}
}
