// Package format holds the video format data model shared by the
// post-processing stage: pixel formats, frame descriptors, rational
// frame-rate math, orientations, crop rectangles and capability sets
// used during negotiation.
package format

import "fmt"

// PixelFormat identifies a raw pixel layout.
type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	// FormatEncoded is the passthrough marker advertised downstream: the
	// accelerator keeps the surface in whatever layout it already uses.
	FormatEncoded
	FormatNV12
	FormatYV12
	FormatI420
	FormatYUY2
	FormatUYVY
	FormatP010
	FormatBGRA
	FormatRGBA
)

var formatNames = map[PixelFormat]string{
	FormatUnknown: "unknown",
	FormatEncoded: "encoded",
	FormatNV12:    "NV12",
	FormatYV12:    "YV12",
	FormatI420:    "I420",
	FormatYUY2:    "YUY2",
	FormatUYVY:    "UYVY",
	FormatP010:    "P010",
	FormatBGRA:    "BGRA",
	FormatRGBA:    "RGBA",
}

func (f PixelFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// NativeFormats lists the layouts the accelerator uses internally.
// Advanced deinterlacing methods require reference surfaces in one of
// these layouts.
func NativeFormats() []PixelFormat {
	return []PixelFormat{FormatNV12, FormatYV12, FormatI420}
}

// IsNative reports whether f is one of the accelerator-native layouts.
func (f PixelFormat) IsNative() bool {
	for _, n := range NativeFormats() {
		if f == n {
			return true
		}
	}
	return false
}

// InterlaceMode describes how fields are stored in a stream.
type InterlaceMode int

const (
	// Progressive frames carry a single temporal sample.
	Progressive InterlaceMode = iota
	// Interleaved frames carry two fields woven line by line.
	Interleaved
	// Mixed streams flag interlaced content per frame.
	Mixed
)

func (m InterlaceMode) String() string {
	switch m {
	case Progressive:
		return "progressive"
	case Interleaved:
		return "interleaved"
	case Mixed:
		return "mixed"
	default:
		return fmt.Sprintf("InterlaceMode(%d)", int(m))
	}
}

// MasteringDisplay carries the HDR mastering metadata attached to a
// negotiated format, when the source provides it.
type MasteringDisplay struct {
	MaxLuminance float64 `json:"max_luminance"`
	MinLuminance float64 `json:"min_luminance"`
}

// ContentLightLevel carries the HDR content light level metadata.
type ContentLightLevel struct {
	MaxCLL  int `json:"max_cll"`
	MaxFALL int `json:"max_fall"`
}

// Descriptor is a fully specified video format: what one side of the
// stage has negotiated.
type Descriptor struct {
	Format      PixelFormat   `json:"format"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	Interlace   InterlaceMode `json:"interlace"`
	FrameRate   Fraction      `json:"frame_rate"`
	Colorimetry string        `json:"colorimetry,omitempty"`

	// Mastering and LightLevel are present only for HDR content.
	Mastering  *MasteringDisplay  `json:"mastering,omitempty"`
	LightLevel *ContentLightLevel `json:"light_level,omitempty"`
}

// Validate checks the negotiated-descriptor invariants.
func (d Descriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", d.Width, d.Height)
	}
	if d.FrameRate.Num > 0 && d.FrameRate.Den <= 0 {
		return fmt.Errorf("invalid frame rate %s", d.FrameRate)
	}
	return nil
}

// Changed reports whether o differs from d in any way that forces a
// reconfiguration: format, size, rate or interlace mode.
func (d Descriptor) Changed(o Descriptor) bool {
	return d.Format != o.Format ||
		d.Width != o.Width || d.Height != o.Height ||
		d.Interlace != o.Interlace ||
		d.FrameRate != o.FrameRate
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s %dx%d %s @%s", d.Format, d.Width, d.Height, d.Interlace, d.FrameRate)
}
