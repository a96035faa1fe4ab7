package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropMarginsRect(t *testing.T) {
	m := CropMargins{Left: 10, Right: 10, Top: 4, Bottom: 8}
	rect := m.Rect(640, 480)
	require.NotNil(t, rect)
	assert.Equal(t, &CropRect{X: 10, Y: 4, Width: 620, Height: 468}, rect)
}

func TestCropMarginsDegenerate(t *testing.T) {
	// Margins that consume the whole frame yield no crop at all.
	m := CropMargins{Left: 320, Right: 320}
	assert.Nil(t, m.Rect(640, 480))

	m = CropMargins{Top: 300, Bottom: 300}
	assert.Nil(t, m.Rect(640, 480))
}

func TestCropMarginsIsZero(t *testing.T) {
	assert.True(t, CropMargins{}.IsZero())
	assert.False(t, CropMargins{Left: 1}.IsZero())
}

func TestParseOrientationTag(t *testing.T) {
	cases := map[string]Orientation{
		"rotate-0":        OrientIdentity,
		"rotate-90":       Orient90R,
		"rotate-180":      Orient180,
		"rotate-270":      Orient90L,
		"flip-rotate-0":   OrientHoriz,
		"flip-rotate-90":  OrientULLR,
		"flip-rotate-180": OrientVert,
		"flip-rotate-270": OrientURLL,
	}
	for tag, want := range cases {
		got, ok := ParseOrientationTag(tag)
		require.True(t, ok, tag)
		assert.Equal(t, want, got, tag)
	}

	_, ok := ParseOrientationTag("rotate-45")
	assert.False(t, ok)
}

func TestOrientationSwapsDimensions(t *testing.T) {
	assert.True(t, Orient90R.SwapsDimensions())
	assert.True(t, Orient90L.SwapsDimensions())
	assert.True(t, OrientULLR.SwapsDimensions())
	assert.True(t, OrientURLL.SwapsDimensions())
	assert.False(t, Orient180.SwapsDimensions())
	assert.False(t, OrientHoriz.SwapsDimensions())
	assert.False(t, OrientIdentity.SwapsDimensions())
}
