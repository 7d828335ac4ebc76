package project

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorPacking(t *testing.T) {
	c := Color{R: 0x12, G: 0x34, B: 0x56}
	assert.Equal(t, int64(0x123456), c.Packed())
	assert.Equal(t, c, ColorFromPacked(0x123456))
	assert.Equal(t, "#123456", c.Hex())

	assert.Equal(t, Color{R: 255, G: 255, B: 255}, ColorFromPacked(0xffffff))
	assert.Equal(t, Color{}, ColorFromPacked(0x1000000), "bits above 24 are ignored")
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{"#ff8000", Color{R: 255, G: 128}, false},
		{"00ff00", Color{G: 255}, false},
		{" #ABCDEF ", Color{R: 0xab, G: 0xcd, B: 0xef}, false},
		{"#fff", Color{}, true},
		{"#gggggg", Color{}, true},
		{"", Color{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidColor)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAreaStateNames(t *testing.T) {
	for s := StateImported; s <= StateComplete; s++ {
		got, err := ParseAreaState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	assert.Equal(t, "addresses_detected", StateAddressesDetected.String())
	assert.Equal(t, "AreaState(9)", AreaState(9).String())
	assert.False(t, AreaState(9).Valid())

	_, err := ParseAreaState("finished")
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestAreaStateNext(t *testing.T) {
	next, ok := StateImported.Next()
	assert.True(t, ok)
	assert.Equal(t, StateAddressesDetected, next)

	next, ok = StateComplete.Next()
	assert.False(t, ok)
	assert.Equal(t, StateComplete, next)
}

func TestPointFromColumnsPanicsOutOfRange(t *testing.T) {
	assert.Equal(t, Point{X: 4294967295, Y: 0}, pointFromColumns(4294967295, 0))
	assert.Panics(t, func() { pointFromColumns(-1, 0) })
	assert.Panics(t, func() { pointFromColumns(0, 4294967296) })
}

func TestField(t *testing.T) {
	var keep Field[int64]
	assert.True(t, keep.IsUnchanged())
	apply, _ := keep.sqlArgs()
	assert.False(t, apply)
	assert.Equal(t, ptr(int64(3)), keep.Apply(ptr(int64(3))))

	null := Null[int64]()
	assert.True(t, null.IsNull())
	apply, v := null.sqlArgs()
	assert.True(t, apply)
	assert.Nil(t, v)
	assert.Nil(t, null.Apply(ptr(int64(3))))

	set := Set[int64](7)
	got, ok := set.Value()
	assert.True(t, ok)
	assert.Equal(t, int64(7), got)
	assert.Equal(t, ptr(int64(7)), set.Apply(nil))

	assert.True(t, SetOrNull[int64](nil).IsNull())
	got, ok = SetOrNull(ptr(int64(9))).Value()
	assert.True(t, ok)
	assert.Equal(t, int64(9), got)
}

func TestValidation(t *testing.T) {
	assert.NoError(t, ValidateName("North Ward"))
	assert.ErrorIs(t, ValidateName("   "), ErrInvalidName)
	assert.ErrorIs(t, ValidateName(string(make([]rune, 101))), ErrInvalidName)

	assert.NoError(t, ValidateHouseNumber("12a"))
	assert.ErrorIs(t, ValidateHouseNumber(""), ErrInvalidHouseNumber)
	assert.ErrorIs(t, ValidateHouseNumber("123456789012345678901"), ErrInvalidHouseNumber)

	assert.NoError(t, ValidateConfidence(0))
	assert.NoError(t, ValidateConfidence(1))
	assert.ErrorIs(t, ValidateConfidence(1.01), ErrInvalidConfidence)
	assert.ErrorIs(t, ValidateConfidence(-0.1), ErrInvalidConfidence)

	assert.ErrorIs(t, ValidatePolyline([]Point{{1, 1}}), ErrInvalidPolyline)
	assert.NoError(t, ValidatePolyline([]Point{{1, 1}, {2, 2}}))
	assert.ErrorIs(t, ValidateBoundary([]Point{{1, 1}, {2, 2}}), ErrInvalidPolyline)
	assert.NoError(t, ValidateBoundary([]Point{{1, 1}, {2, 2}, {3, 1}}))
}
