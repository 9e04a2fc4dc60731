// Package maskfilter cleans up foreground masks after segmentation.
package maskfilter

import (
	"context"
	"fmt"
	"strings"

	"bgs-segmenter/internal/opencv/safe"
)

// Step transforms a mask into a new mask. The input stays owned by the
// caller.
type Step interface {
	Name() string
	Apply(ctx context.Context, mask *safe.Mat) (*safe.Mat, error)
}

type Chain struct {
	steps []Step
}

func NewChain(steps ...Step) *Chain {
	return &Chain{steps: steps}
}

// Parse builds a chain from step names such as "median" or "morphology".
func Parse(names []string) (*Chain, error) {
	chain := NewChain()
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
			continue
		case MedianName:
			chain.AddStep(NewMedian(3))
		case MorphologyName:
			chain.AddStep(NewMorphology(3, 5))
		default:
			return nil, fmt.Errorf("unknown mask filter %q", name)
		}
	}
	return chain, nil
}

// Execute runs every step in order. It returns a new mask even for an
// empty chain, so the caller always owns the result.
func (c *Chain) Execute(ctx context.Context, mask *safe.Mat) (*safe.Mat, error) {
	current, err := mask.Clone()
	if err != nil {
		return nil, err
	}

	for _, step := range c.steps {
		if err := ctx.Err(); err != nil {
			current.Close()
			return nil, err
		}

		result, err := step.Apply(ctx, current)
		current.Close()
		if err != nil {
			return nil, fmt.Errorf("step %s failed: %w", step.Name(), err)
		}
		current = result
	}

	return current, nil
}

func (c *Chain) AddStep(step Step) {
	c.steps = append(c.steps, step)
}

func (c *Chain) Len() int {
	return len(c.steps)
}

func (c *Chain) StepNames() []string {
	names := make([]string, len(c.steps))
	for i, step := range c.steps {
		names[i] = step.Name()
	}
	return names
}
