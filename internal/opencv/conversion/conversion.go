package conversion

import (
	"fmt"

	"gocv.io/x/gocv"
)

// ToBGR8 writes src into dst as an 8-bit, 3-channel BGR image. Grayscale and
// BGRA inputs are expanded or flattened; other depths are rescaled to 8 bits.
func ToBGR8(src gocv.Mat, dst *gocv.Mat) error {
	if src.Empty() {
		return fmt.Errorf("BGR conversion: source Mat is empty")
	}

	eightBit, err := to8Bit(src)
	if err != nil {
		return fmt.Errorf("BGR conversion: %w", err)
	}
	defer eightBit.Close()

	switch eightBit.Channels() {
	case 1:
		err = gocv.CvtColor(eightBit, dst, gocv.ColorGrayToBGR)
	case 3:
		err = eightBit.CopyTo(dst)
	case 4:
		err = gocv.CvtColor(eightBit, dst, gocv.ColorBGRAToBGR)
	}
	if err != nil {
		return fmt.Errorf("BGR conversion of %s: %w", DataTypeName(src.Type()), err)
	}

	return nil
}

// ToGray8 writes src into dst as an 8-bit single channel image.
func ToGray8(src gocv.Mat, dst *gocv.Mat) error {
	if src.Empty() {
		return fmt.Errorf("grayscale conversion: source Mat is empty")
	}

	eightBit, err := to8Bit(src)
	if err != nil {
		return fmt.Errorf("grayscale conversion: %w", err)
	}
	defer eightBit.Close()

	switch eightBit.Channels() {
	case 1:
		err = eightBit.CopyTo(dst)
	case 3:
		err = gocv.CvtColor(eightBit, dst, gocv.ColorBGRToGray)
	case 4:
		err = gocv.CvtColor(eightBit, dst, gocv.ColorBGRAToGray)
	}
	if err != nil {
		return fmt.Errorf("grayscale conversion of %s: %w", DataTypeName(src.Type()), err)
	}

	return nil
}

// to8Bit returns an unsigned 8-bit copy of src with the same channel count.
// The caller closes the result.
func to8Bit(src gocv.Mat) (gocv.Mat, error) {
	channels := src.Channels()
	if channels != 1 && channels != 3 && channels != 4 {
		return gocv.NewMat(), fmt.Errorf("unsupported channel count %d for %s", channels, DataTypeName(src.Type()))
	}

	if isUnsigned8BitType(src.Type()) {
		return src.Clone(), nil
	}

	alpha, beta := conversionParams(src.Type())

	dst := gocv.NewMat()
	if err := src.ConvertToWithParams(&dst, withDepth(gocv.MatTypeCV8U, channels), alpha, beta); err != nil {
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("rescale %s to 8 bits: %w", DataTypeName(src.Type()), err)
	}
	return dst, nil
}
