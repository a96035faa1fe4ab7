package engine

import (
	"errors"

	"github.com/bryanchriswhite/vppstage/internal/format"
	"github.com/bryanchriswhite/vppstage/internal/surface"
)

// ErrUnsupported is returned by Process when the engine cannot apply
// the currently configured operation set to the given surfaces. The
// caller is expected to fall back to a lighter path.
var ErrUnsupported = errors.New("engine: unsupported operation")

// Engine is the opaque hardware filter capability the stage drives.
// Setters follow the accelerator convention of reporting acceptance:
// false means the engine rejected the operation or value, and the
// caller must not assume the previous state changed.
//
// An Engine is not safe for concurrent use; the stage serializes all
// calls behind its own lock.
type Engine interface {
	// SupportedOps lists the operations this engine accepts, with value
	// ranges and engine defaults for the scalar ones.
	SupportedOps() []OpInfo
	// SupportedFormats lists the raw pixel formats the engine can read
	// and write.
	SupportedFormats() []format.PixelFormat

	SetFormat(f format.PixelFormat) bool

	SetDenoiseLevel(v float64) bool
	DenoiseLevelDefault() float64
	SetSharpenLevel(v float64) bool
	SharpenLevelDefault() float64

	SetHue(v float64) bool
	HueDefault() float64
	SetSaturation(v float64) bool
	SaturationDefault() float64
	SetBrightness(v float64) bool
	BrightnessDefault() float64
	SetContrast(v float64) bool
	ContrastDefault() float64

	SetScaleMethod(m ScaleMethod) bool
	ScaleMethodDefault() ScaleMethod

	SetVideoDirection(o format.Orientation) bool
	VideoDirectionDefault() format.Orientation
	// VideoDirection returns the direction currently applied by the
	// engine; geometry compensation reads it back rather than trusting
	// the requested value.
	VideoDirection() format.Orientation

	SetSkinToneLevel(v uint) bool
	SkinToneLevelDefault() uint
	SetSkinTone(enhance bool) bool
	SkinToneDefault() bool

	SetHDRToneMap(enable bool) bool
	SetHDRToneMapMetadata(m format.MasteringDisplay, l format.ContentLightLevel) bool

	SetColorimetry(in, out string) bool

	SetDeinterlacing(method DeintMethod, flags DeintFlags) bool
	// SetDeinterlacingReferences supplies the reference history for
	// advanced methods, most recent first.
	SetDeinterlacingReferences(refs []*surface.Surface) bool

	// SetCropRectangle installs the source rectangle for the next
	// Process call. nil clears cropping.
	SetCropRectangle(rect *format.CropRect)

	// Process renders src into dst with every configured operation
	// applied. Returns ErrUnsupported when the configured combination
	// cannot run, any other error for hard failures.
	Process(src, dst *surface.Surface, flags ProcessFlags) error
}
