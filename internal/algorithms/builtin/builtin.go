// Package builtin registers every algorithm shipped with bgs-segmenter.
package builtin

import (
	"bgs-segmenter/internal/algorithms"
	"bgs-segmenter/internal/algorithms/adaptive"
	"bgs-segmenter/internal/algorithms/framediff"
	"bgs-segmenter/internal/algorithms/movingmean"
	"bgs-segmenter/internal/algorithms/subtractor"
)

// RegisterAll adds the built-in algorithms to r under their canonical names.
func RegisterAll(r *algorithms.Registry) {
	algorithms.Register(r, framediff.Name, framediff.NewFrameDifference)
	algorithms.Register(r, framediff.StaticName, framediff.NewStaticFrameDifference)
	algorithms.Register(r, movingmean.Name, movingmean.NewWeightedMovingMean)
	algorithms.Register(r, adaptive.Name, adaptive.NewAdaptiveBackgroundLearning)
	algorithms.Register(r, subtractor.MOG2Name, subtractor.NewMixtureOfGaussianV2)
	algorithms.Register(r, subtractor.KNNName, subtractor.NewKNN)
}
