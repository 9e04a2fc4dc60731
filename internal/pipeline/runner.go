package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"bgs-segmenter/internal/algorithms"
	"bgs-segmenter/internal/debug/timing"
	"bgs-segmenter/internal/logger"
	"bgs-segmenter/internal/opencv/safe"
	"bgs-segmenter/internal/processing/maskfilter"

	"golang.org/x/sync/errgroup"
)

const component = "Pipeline"

const (
	OpRead   = "read"
	OpApply  = "apply"
	OpFilter = "filter"
	OpWrite  = "write"
)

type Stats struct {
	Frames       int
	Elapsed      time.Duration
	AverageRead  time.Duration
	AverageApply time.Duration
	AverageWrite time.Duration
}

// FPS is the end-to-end throughput of the run.
func (s Stats) FPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Elapsed.Seconds()
}

type Option func(*Runner)

func WithLogger(log logger.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

func WithTracker(tracker *timing.Tracker) Option {
	return func(r *Runner) {
		if tracker != nil {
			r.timing = tracker
		}
	}
}

// WithMaxFrames stops the run after n frames. Zero means no limit.
func WithMaxFrames(n int) Option {
	return func(r *Runner) {
		r.maxFrames = n
	}
}

// WithQueueSize sets the capacity of the channels between stages.
func WithQueueSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// WithBackground makes the apply stage attach a copy of the background
// model to every Frame.
func WithBackground(enabled bool) Option {
	return func(r *Runner) {
		r.withBackground = enabled
	}
}

// WithMaskFilter post-processes every foreground mask with chain.
func WithMaskFilter(chain *maskfilter.Chain) Option {
	return func(r *Runner) {
		r.filter = chain
	}
}

// Runner drives one algorithm instance. The read, apply and write stages run
// on their own goroutines and the algorithm is only touched by the apply
// stage.
type Runner struct {
	algorithm      algorithms.Algorithm
	log            logger.Logger
	timing         *timing.Tracker
	maxFrames      int
	queueSize      int
	withBackground bool
	filter         *maskfilter.Chain
}

func NewRunner(algorithm algorithms.Algorithm, opts ...Option) *Runner {
	r := &Runner{
		algorithm: algorithm,
		log:       logger.Nop(),
		timing:    timing.NewTracker(),
		queueSize: 4,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type inputFrame struct {
	index int
	mat   *safe.Mat
}

// Run streams src through the algorithm into sink until src is exhausted,
// the frame limit is reached, a stage fails or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, src Source, sink Sink) (Stats, error) {
	r.timing.Reset("")
	started := time.Now()

	inputs := make(chan inputFrame, r.queueSize)
	outputs := make(chan Frame, r.queueSize)
	written := 0

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(inputs)
		return r.read(gctx, src, inputs)
	})

	g.Go(func() error {
		defer close(outputs)
		return r.apply(gctx, inputs, outputs)
	})

	g.Go(func() error {
		for frame := range outputs {
			tctx := r.timing.StartTiming(gctx, OpWrite)
			err := sink.Write(gctx, frame)
			r.timing.EndTiming(tctx)
			frame.Close()
			if err != nil {
				return fmt.Errorf("write frame %d: %w", frame.Index, err)
			}
			written++
		}
		return nil
	})

	err := g.Wait()

	// A failed stage can leave frames queued behind it.
	for in := range inputs {
		in.mat.Close()
	}
	for frame := range outputs {
		frame.Close()
	}

	stats := Stats{
		Frames:       written,
		Elapsed:      time.Since(started),
		AverageRead:  r.timing.GetAverageTime(OpRead),
		AverageApply: r.timing.GetAverageTime(OpApply),
		AverageWrite: r.timing.GetAverageTime(OpWrite),
	}

	fields := map[string]interface{}{
		"algorithm": r.algorithm.Name(),
		"frames":    stats.Frames,
		"elapsed":   stats.Elapsed.String(),
		"fps":       stats.FPS(),
		"avg_apply": stats.AverageApply.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		r.log.Warning(component, "run stopped early", fields)
		return stats, err
	}

	r.log.Info(component, "run completed", fields)
	return stats, nil
}

func (r *Runner) read(ctx context.Context, src Source, inputs chan<- inputFrame) error {
	for index := 0; r.maxFrames == 0 || index < r.maxFrames; index++ {
		tctx := r.timing.StartTiming(ctx, OpRead)
		mat, err := src.Next(ctx)
		r.timing.EndTiming(tctx)

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame %d: %w", index, err)
		}

		select {
		case inputs <- inputFrame{index: index, mat: mat}:
		case <-ctx.Done():
			mat.Close()
			return ctx.Err()
		}
	}
	return nil
}

func (r *Runner) apply(ctx context.Context, inputs <-chan inputFrame, outputs chan<- Frame) error {
	for in := range inputs {
		frame, err := r.segment(ctx, in)
		in.mat.Close()
		if err != nil {
			return err
		}

		select {
		case outputs <- frame:
		case <-ctx.Done():
			frame.Close()
			return ctx.Err()
		}
	}
	return nil
}

func (r *Runner) segment(ctx context.Context, in inputFrame) (Frame, error) {
	tctx := r.timing.StartTiming(ctx, OpApply)
	foreground, err := r.algorithm.Apply(in.mat)
	r.timing.EndTiming(tctx)
	if err != nil {
		return Frame{}, fmt.Errorf("apply frame %d: %w", in.index, err)
	}

	if r.filter != nil && r.filter.Len() > 0 {
		fctx := r.timing.StartTiming(ctx, OpFilter)
		filtered, err := r.filter.Execute(ctx, foreground)
		r.timing.EndTiming(fctx)
		foreground.Close()
		if err != nil {
			return Frame{}, fmt.Errorf("filter frame %d: %w", in.index, err)
		}
		foreground = filtered
	}

	frame := Frame{Index: in.index, Foreground: foreground}
	if !r.withBackground {
		return frame, nil
	}

	background, err := r.algorithm.BackgroundModel().Clone()
	if err != nil {
		foreground.Close()
		return Frame{}, fmt.Errorf("copy background of frame %d: %w", in.index, err)
	}
	frame.Background = background
	return frame, nil
}
