package engine

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/vppstage/internal/format"
	"github.com/bryanchriswhite/vppstage/internal/surface"
)

func rgbaSurface(t *testing.T, w, h int) *surface.Surface {
	t.Helper()
	surf, err := SoftwareAllocator{}.Alloc(format.Descriptor{
		Format: format.FormatRGBA,
		Width:  w,
		Height: h,
	})
	require.NoError(t, err)
	return surf
}

func fill(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func TestSoftwareParameterRanges(t *testing.T) {
	e := NewSoftware()

	assert.True(t, e.SetDenoiseLevel(0.5))
	assert.False(t, e.SetDenoiseLevel(1.5))
	assert.True(t, e.SetHue(-180))
	assert.False(t, e.SetHue(181))
	assert.True(t, e.SetSaturation(2))
	assert.False(t, e.SetSaturation(-0.1))
	assert.True(t, e.SetSkinToneLevel(9))
	assert.False(t, e.SetSkinToneLevel(10))
}

func TestSoftwareRejectsAutoDirection(t *testing.T) {
	e := NewSoftware()
	assert.False(t, e.SetVideoDirection(format.OrientAuto))
	assert.Equal(t, format.OrientIdentity, e.VideoDirection())

	assert.True(t, e.SetVideoDirection(format.Orient180))
	assert.Equal(t, format.Orient180, e.VideoDirection())
}

func TestSoftwareDeinterlacingMethods(t *testing.T) {
	e := NewSoftware()
	assert.True(t, e.SetDeinterlacing(DeintNone, 0))
	assert.True(t, e.SetDeinterlacing(DeintBob, DeintFlagTopField))
	assert.False(t, e.SetDeinterlacing(DeintMotionAdaptive, 0))
	assert.False(t, e.SetDeinterlacing(DeintMotionCompensated, 0))

	// Bob keeps no history.
	assert.True(t, e.SetDeinterlacingReferences(nil))
	assert.False(t, e.SetDeinterlacingReferences([]*surface.Surface{{}}))
}

func TestSoftwareHDRToneMapDisabledOnly(t *testing.T) {
	e := NewSoftware()
	assert.False(t, e.SetHDRToneMap(true))
	assert.True(t, e.SetHDRToneMap(false))
}

func TestSoftwareProcessScales(t *testing.T) {
	e := NewSoftware()
	src := rgbaSurface(t, 8, 8)
	dst := rgbaSurface(t, 4, 4)
	fill(src.Image, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	require.NoError(t, e.Process(src, dst, 0))
	got := dst.Image.RGBAAt(2, 2)
	assert.Equal(t, uint8(200), got.R)
	assert.Equal(t, uint8(100), got.G)
	assert.Equal(t, uint8(50), got.B)
}

func TestSoftwareProcessCrop(t *testing.T) {
	e := NewSoftware()
	src := rgbaSurface(t, 8, 8)
	dst := rgbaSurface(t, 4, 4)

	// Left half red, right half blue; crop to the right half.
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= 4 {
				c = color.RGBA{B: 255, A: 255}
			}
			src.Image.SetRGBA(x, y, c)
		}
	}
	e.SetCropRectangle(&format.CropRect{X: 4, Y: 0, Width: 4, Height: 8})

	require.NoError(t, e.Process(src, dst, 0))
	got := dst.Image.RGBAAt(2, 2)
	assert.Equal(t, uint8(0), got.R)
	assert.Equal(t, uint8(255), got.B)
}

func TestSoftwareProcessEmptyCrop(t *testing.T) {
	e := NewSoftware()
	src := rgbaSurface(t, 8, 8)
	dst := rgbaSurface(t, 8, 8)
	e.SetCropRectangle(&format.CropRect{X: 100, Y: 100, Width: 4, Height: 4})
	assert.ErrorIs(t, e.Process(src, dst, 0), ErrUnsupported)
}

func TestSoftwareProcessRotation(t *testing.T) {
	e := NewSoftware()
	src := rgbaSurface(t, 2, 2)
	dst := rgbaSurface(t, 2, 2)

	// Distinct corner colors to track the quarter turn.
	src.Image.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	src.Image.SetRGBA(1, 0, color.RGBA{G: 255, A: 255})
	src.Image.SetRGBA(0, 1, color.RGBA{B: 255, A: 255})
	src.Image.SetRGBA(1, 1, color.RGBA{R: 255, G: 255, A: 255})

	require.True(t, e.SetVideoDirection(format.Orient90R))
	require.NoError(t, e.Process(src, dst, 0))

	// Top-left moves to top-right under a clockwise turn.
	assert.Equal(t, uint8(255), dst.Image.RGBAAt(1, 0).R)
	assert.Equal(t, uint8(0), dst.Image.RGBAAt(1, 0).G)
	assert.Equal(t, uint8(255), dst.Image.RGBAAt(0, 0).B)
}

func TestSoftwareProcessBrightness(t *testing.T) {
	e := NewSoftware()
	src := rgbaSurface(t, 4, 4)
	dst := rgbaSurface(t, 4, 4)
	fill(src.Image, color.RGBA{R: 100, G: 100, B: 100, A: 255})

	require.True(t, e.SetBrightness(0.2))
	require.NoError(t, e.Process(src, dst, 0))
	got := dst.Image.RGBAAt(1, 1)
	assert.Equal(t, uint8(151), got.R)
}

func TestSoftwareProcessBobHalvesFields(t *testing.T) {
	e := NewSoftware()
	src := rgbaSurface(t, 4, 4)
	dst := rgbaSurface(t, 4, 4)

	// Even lines white, odd lines black.
	for y := 0; y < 4; y++ {
		c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
		if y%2 == 1 {
			c = color.RGBA{A: 255}
		}
		for x := 0; x < 4; x++ {
			src.Image.SetRGBA(x, y, c)
		}
	}

	require.True(t, e.SetDeinterlacing(DeintBob, DeintFlagTopField|DeintFlagTFF))
	require.NoError(t, e.Process(src, dst, 0))
	assert.Equal(t, uint8(255), dst.Image.RGBAAt(1, 0).R)

	require.True(t, e.SetDeinterlacing(DeintBob, DeintFlagTFF))
	require.NoError(t, e.Process(src, dst, 0))
	assert.Equal(t, uint8(0), dst.Image.RGBAAt(1, 0).R)
}

func TestSoftwareProcessNilSurfaces(t *testing.T) {
	e := NewSoftware()
	src := rgbaSurface(t, 4, 4)
	assert.ErrorIs(t, e.Process(nil, nil, 0), ErrUnsupported)
	assert.ErrorIs(t, e.Process(src, surface.NewSurface(format.Descriptor{}, nil), 0), ErrUnsupported)
}
