package conversion

import (
	"fmt"

	"gocv.io/x/gocv"
)

const depthMask gocv.MatType = 7

var depthNames = map[gocv.MatType]string{
	gocv.MatTypeCV8U:  "8-bit unsigned",
	gocv.MatTypeCV8S:  "8-bit signed",
	gocv.MatTypeCV16U: "16-bit unsigned",
	gocv.MatTypeCV16S: "16-bit signed",
	gocv.MatTypeCV32S: "32-bit signed",
	gocv.MatTypeCV32F: "32-bit float",
	gocv.MatTypeCV64F: "64-bit float",
}

// DataTypeName returns a human-readable name for matType, such as
// "16-bit unsigned 3-channel".
func DataTypeName(matType gocv.MatType) string {
	name, ok := depthNames[matType&depthMask]
	if !ok {
		return fmt.Sprintf("unknown type %d", int(matType))
	}

	channels := int(matType>>3) + 1
	if channels == 1 {
		return name + " single channel"
	}
	return fmt.Sprintf("%s %d-channel", name, channels)
}

// conversionParams returns alpha and beta such that alpha*v + beta maps the
// value range of matType onto [0,255].
func conversionParams(matType gocv.MatType) (alpha, beta float32) {
	switch matType & depthMask {
	case gocv.MatTypeCV8S:
		return 1, 128
	case gocv.MatTypeCV16U:
		return 1.0 / 256.0, 0
	case gocv.MatTypeCV16S:
		return 1.0 / 256.0, 128
	case gocv.MatTypeCV32S:
		return 1.0 / 16777216.0, 128
	case gocv.MatTypeCV32F, gocv.MatTypeCV64F:
		return 255, 0 // Float [0,1] to int [0,255]
	default:
		return 1, 0
	}
}

// withDepth combines a depth constant such as gocv.MatTypeCV8U with a
// channel count.
func withDepth(depth gocv.MatType, channels int) gocv.MatType {
	return depth + gocv.MatType((channels-1)<<3)
}

func isUnsigned8BitType(matType gocv.MatType) bool {
	return matType&depthMask == gocv.MatTypeCV8U
}
