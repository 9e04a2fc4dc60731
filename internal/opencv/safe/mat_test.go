package safe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestNewMatIsZeroFilled(t *testing.T) {
	m, err := NewMat(3, 4, gocv.MatTypeCV8UC3)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 3, m.Rows())
	assert.Equal(t, 4, m.Cols())
	assert.Equal(t, 3, m.Channels())
	assert.Equal(t, make([]byte, 3*4*3), m.Bytes())
}

func TestNewMatRejectsInvalidDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 4}, {4, 0}, {-1, 2}, {1, MaxAllocationSide + 1}} {
		_, err := NewMat(dims[0], dims[1], gocv.MatTypeCV8UC1)
		assert.Error(t, err, "dims %v", dims)
	}
}

func TestNewEmptyMat(t *testing.T) {
	m := NewEmptyMat()
	defer m.Close()

	assert.True(t, m.IsValid())
	assert.True(t, m.Empty())
	assert.Equal(t, 0, m.Channels())
	assert.Nil(t, m.Bytes())
	assert.Error(t, ValidateMatForOperation(m, "test"))
}

func TestCloneIsIndependent(t *testing.T) {
	m, err := NewMat(2, 2, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	defer m.Close()

	c, err := m.Clone()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, m.SetUCharAt(1, 1, 200))

	v, err := c.GetUCharAt(1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), v)
	assert.NotEqual(t, m.ID(), c.ID())
}

func TestCopyToEmptyDestination(t *testing.T) {
	src, err := NewMat(2, 3, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	defer src.Close()
	require.NoError(t, src.SetUCharAt(0, 2, 9))

	dst := NewEmptyMat()
	defer dst.Close()

	require.NoError(t, src.CopyTo(dst))
	assert.True(t, dst.SameSize(src))

	v, err := dst.GetUCharAt(0, 2)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), v)
}

func TestCopyToFromEmptySourceFails(t *testing.T) {
	src := NewEmptyMat()
	defer src.Close()
	dst := NewEmptyMat()
	defer dst.Close()

	assert.Error(t, src.CopyTo(dst))
	assert.Error(t, src.CopyTo(nil))
}

func TestReset(t *testing.T) {
	m := NewEmptyMat()
	defer m.Close()

	require.NoError(t, m.Reset(5, 7, gocv.MatTypeCV8UC1))
	assert.Equal(t, 5, m.Rows())
	assert.Equal(t, 7, m.Cols())
	assert.Equal(t, 1, m.Channels())
	assert.Equal(t, 0, gocv.CountNonZero(m.GetMat()))

	assert.Error(t, m.Reset(0, 7, gocv.MatTypeCV8UC1))
}

func TestResetAcceptsWideFrames(t *testing.T) {
	m := NewEmptyMat()
	defer m.Close()

	require.NoError(t, m.Reset(1, MaxAllocationSide+100, gocv.MatTypeCV8UC3))
	assert.Equal(t, MaxAllocationSide+100, m.Cols())
	assert.Equal(t, 3, m.Channels())
}

func TestCloseIsIdempotent(t *testing.T) {
	m, err := NewMat(2, 2, gocv.MatTypeCV8UC1)
	require.NoError(t, err)

	m.Close()
	m.Close()

	assert.False(t, m.IsValid())
	assert.True(t, m.Empty())
	assert.Equal(t, 0, m.Rows())
	_, err = m.Clone()
	assert.Error(t, err)
	assert.Error(t, m.Reset(1, 1, gocv.MatTypeCV8UC1))
}

func TestOutOfBoundsAccess(t *testing.T) {
	m, err := NewMat(2, 2, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	defer m.Close()

	_, err = m.GetUCharAt(2, 0)
	assert.Error(t, err)
	assert.Error(t, m.SetUCharAt(0, -1, 1))
}

func TestMustBeNonEmpty(t *testing.T) {
	empty := NewEmptyMat()
	defer empty.Close()

	assert.Panics(t, func() { MustBeNonEmpty(nil, "test") })
	assert.Panics(t, func() { MustBeNonEmpty(empty, "test") })

	m, err := NewMat(1, 1, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	defer m.Close()
	assert.NotPanics(t, func() { MustBeNonEmpty(m, "test") })
}
