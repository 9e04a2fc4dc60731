package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"bgs-segmenter/internal/algorithms"
	"bgs-segmenter/internal/algorithms/builtin"
	"bgs-segmenter/internal/config"
	"bgs-segmenter/internal/debug/timing"
	"bgs-segmenter/internal/logger"
	"bgs-segmenter/internal/pipeline"
	"bgs-segmenter/internal/processing/maskfilter"
	"bgs-segmenter/internal/shutdown"

	"github.com/google/uuid"
)

const (
	AppName    = "bgs-segmenter"
	AppVersion = "1.0.0"
	component  = "Main"
)

func main() {
	configureRuntime()

	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("%s: %v", AppName, err)
	}
}

const defaultMemoryLimit = 4 << 30

// configureRuntime tunes the GC for frame-sized allocations. A GOMEMLIMIT
// set in the environment is left to the runtime.
func configureRuntime() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	debug.SetGCPercent(200)

	if os.Getenv("GOMEMLIMIT") == "" {
		debug.SetMemoryLimit(defaultMemoryLimit)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet(AppName, flag.ContinueOnError)
	envFile := flags.String("env", ".env", "optional .env file read before the environment")
	list := flags.Bool("list", false, "print the registered algorithms and exit")
	algorithm := flags.String("algorithm", "", "algorithm name (BGS_ALGORITHM)")
	input := flags.String("input", "", "video file or frame directory (BGS_INPUT)")
	camera := flags.Int("camera", -1, "capture device index (BGS_CAMERA)")
	output := flags.String("output", "", "output directory (BGS_OUTPUT_DIR)")
	configDir := flags.String("config-dir", "", "parameter file directory (BGS_CONFIG_DIR)")
	configFormat := flags.String("config-format", "", "parameter file format: yaml or toml (BGS_CONFIG_FORMAT)")
	maxFrames := flags.Int("max-frames", 0, "stop after this many frames, 0 for all (BGS_MAX_FRAMES)")
	saveBackground := flags.Bool("save-background", false, "also write the background model (BGS_SAVE_BACKGROUND)")
	maskFilters := flags.String("mask-filters", "", "comma separated mask post-processing steps: median, morphology (BGS_MASK_FILTERS)")
	logLevel := flags.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Flags given explicitly win over the environment.
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "algorithm":
			cfg.Algorithm = *algorithm
		case "input":
			cfg.Input = *input
		case "camera":
			cfg.Camera = *camera
		case "output":
			cfg.OutputDir = *output
		case "config-dir":
			cfg.ConfigDir = *configDir
		case "config-format":
			cfg.ConfigFormat = *configFormat
		case "max-frames":
			cfg.MaxFrames = *maxFrames
		case "save-background":
			cfg.SaveBackground = *saveBackground
		case "mask-filters":
			cfg.MaskFilters = strings.Split(*maskFilters, ",")
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	appLogger := logger.NewConsoleLogger(level).With(map[string]interface{}{
		"run_id": uuid.NewString(),
	})

	format, err := config.ParseFormat(cfg.ConfigFormat)
	if err != nil {
		return err
	}

	registry := algorithms.NewRegistry(
		algorithms.WithLogger(appLogger),
		algorithms.WithConfigDir(cfg.ConfigDir, format),
	)
	builtin.RegisterAll(registry)

	if *list {
		for _, name := range registry.GetRegisteredAlgorithms() {
			fmt.Println(name)
		}
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLogger.Info(component, "starting", map[string]interface{}{
		"version":    AppVersion,
		"algorithm":  cfg.Algorithm,
		"go_version": runtime.Version(),
		"num_cpu":    runtime.NumCPU(),
	})

	if err := segment(cfg, registry, appLogger); err != nil {
		appLogger.Error(component, err, map[string]interface{}{
			"algorithm": cfg.Algorithm,
		})
		return err
	}
	return nil
}

func segment(cfg *config.Config, registry *algorithms.Registry, appLogger logger.Logger) error {
	manager := shutdown.NewManager(context.Background(), appLogger)
	manager.Listen()
	defer manager.Shutdown()

	filter, err := maskfilter.Parse(cfg.MaskFilters)
	if err != nil {
		return err
	}

	alg, err := registry.Create(cfg.Algorithm)
	if err != nil {
		if errors.Is(err, algorithms.ErrUnknownAlgorithm) {
			return fmt.Errorf("%w (available: %v)", err, registry.GetRegisteredAlgorithms())
		}
		return err
	}
	manager.Register(shutdown.ShutdownFunc(func() { alg.Close() }))

	src, err := pipeline.OpenSource(cfg.Input, cfg.Camera)
	if err != nil {
		return err
	}
	manager.Register(shutdown.ShutdownFunc(func() { src.Close() }))

	sink, err := pipeline.NewImageDirSink(cfg.OutputDir, cfg.SaveBackground)
	if err != nil {
		return err
	}
	manager.Register(shutdown.ShutdownFunc(func() { sink.Close() }))

	runner := pipeline.NewRunner(alg,
		pipeline.WithLogger(appLogger),
		pipeline.WithTracker(timing.NewTracker()),
		pipeline.WithMaxFrames(cfg.MaxFrames),
		pipeline.WithQueueSize(cfg.QueueSize),
		pipeline.WithBackground(cfg.SaveBackground),
		pipeline.WithMaskFilter(filter),
	)

	stats, err := runner.Run(manager.Context(), src, sink)
	if errors.Is(err, context.Canceled) {
		appLogger.Info(component, "interrupted", map[string]interface{}{
			"frames": stats.Frames,
		})
		return nil
	}
	if err != nil {
		return err
	}

	appLogger.Info(component, "segmentation finished", map[string]interface{}{
		"frames":     stats.Frames,
		"fps":        stats.FPS(),
		"avg_read":   stats.AverageRead.String(),
		"avg_apply":  stats.AverageApply.String(),
		"avg_write":  stats.AverageWrite.String(),
		"output_dir": cfg.OutputDir,
	})
	return nil
}
