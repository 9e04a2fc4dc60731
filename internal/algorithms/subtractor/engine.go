// Package subtractor adapts the OpenCV background subtractors shipped with
// gocv to the algorithm lifecycle.
package subtractor

import (
	"fmt"

	"bgs-segmenter/internal/algorithms"
	"bgs-segmenter/internal/opencv/conversion"
	"bgs-segmenter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// shadowValue is the mask value OpenCV subtractors assign to shadows.
const shadowValue = 127

type backgroundSubtractor interface {
	Apply(src gocv.Mat, dst *gocv.Mat) error
	Close() error
}

// engine drives one OpenCV subtractor and keeps a running-average background
// estimate, since gocv does not expose the subtractors' own model.
type engine struct {
	newSubtractor func() backgroundSubtractor
	subtractor    backgroundSubtractor
	model         gocv.Mat // 32FC3
}

func newEngine(newSubtractor func() backgroundSubtractor) *engine {
	return &engine{
		newSubtractor: newSubtractor,
		model:         gocv.NewMat(),
	}
}

func (e *engine) process(input, foreground, background *safe.Mat, removeShadows bool, alpha float64) error {
	current := gocv.NewMat()
	defer current.Close()
	if err := conversion.ToBGR8(input.GetMat(), &current); err != nil {
		return err
	}

	currentF := gocv.NewMat()
	defer currentF.Close()
	if err := current.ConvertTo(&currentF, gocv.MatTypeCV32FC3); err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}

	model := e.model
	bootstrap := e.subtractor == nil || !algorithms.SameShape(e.model, currentF)
	if bootstrap {
		e.reset()
		model = currentF
	}

	fgMat := foreground.GetMat()
	if err := e.subtractor.Apply(current, &fgMat); err != nil {
		return fmt.Errorf("apply subtractor: %w", err)
	}

	switch {
	case bootstrap:
		fgMat.SetTo(gocv.NewScalar(0, 0, 0, 0))
	case removeShadows:
		gocv.Threshold(fgMat, &fgMat, shadowValue, 255, gocv.ThresholdBinary)
	}

	next := gocv.NewMat()
	if err := gocv.AddWeighted(currentF, alpha, model, 1-alpha, 0, &next); err != nil {
		next.Close()
		return fmt.Errorf("update background estimate: %w", err)
	}

	estimate := gocv.NewMat()
	defer estimate.Close()
	if err := next.ConvertTo(&estimate, gocv.MatTypeCV8UC3); err != nil {
		next.Close()
		return fmt.Errorf("update background estimate: %w", err)
	}
	if err := algorithms.WriteBackground(estimate, background); err != nil {
		next.Close()
		return err
	}

	e.model.Close()
	e.model = next
	return nil
}

// reset discards the subtractor so the next frame starts a new model.
func (e *engine) reset() {
	if e.subtractor != nil {
		e.subtractor.Close()
	}
	e.subtractor = e.newSubtractor()
}

func (e *engine) close() {
	if e.subtractor != nil {
		e.subtractor.Close()
		e.subtractor = nil
	}
	e.model.Close()
}
