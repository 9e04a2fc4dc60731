package safe

import (
	"fmt"
)

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("Mat is nil for operation: %s", operation)
	}

	if !mat.IsValid() {
		return fmt.Errorf("Mat is invalid for operation: %s", operation)
	}

	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation: %s", operation)
	}

	if mat.Rows() <= 0 || mat.Cols() <= 0 {
		return fmt.Errorf("Mat has invalid dimensions %dx%d for operation: %s",
			mat.Cols(), mat.Rows(), operation)
	}

	return nil
}

// MustBeNonEmpty panics when mat cannot be used as a frame. An empty frame
// handed to an algorithm is a caller bug, not a runtime condition.
func MustBeNonEmpty(mat *Mat, operation string) {
	if err := ValidateMatForOperation(mat, operation); err != nil {
		panic(err)
	}
}

// MaxAllocationSide bounds each side of a Mat allocated from caller-supplied
// sizes. Buffers sized after an existing frame are not bounded.
const MaxAllocationSide = 32768

func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d for operation: %s", width, height, operation)
	}
	return nil
}

// ValidateAllocation is ValidateDimensions plus the MaxAllocationSide cap.
func ValidateAllocation(width, height int, operation string) error {
	if err := ValidateDimensions(width, height, operation); err != nil {
		return err
	}

	if width > MaxAllocationSide || height > MaxAllocationSide {
		return fmt.Errorf("dimensions %dx%d exceed maximum size for operation: %s", width, height, operation)
	}

	return nil
}

func ValidateCoordinates(row, col, rows, cols int, operation string) error {
	if row < 0 || row >= rows {
		return fmt.Errorf("row %d out of bounds [0, %d) for operation: %s", row, rows, operation)
	}

	if col < 0 || col >= cols {
		return fmt.Errorf("col %d out of bounds [0, %d) for operation: %s", col, cols, operation)
	}

	return nil
}
