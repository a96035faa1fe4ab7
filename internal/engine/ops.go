// Package engine defines the filter-engine capability interface the
// post-processing stage drives, the filter operation model shared with
// the configuration state machine, and a software reference engine.
package engine

import "fmt"

// Op enumerates the filter operations an engine may support. The order
// is load-bearing: each op owns one bit in Flags and the configuration
// commit walks ops in this order.
type Op int

const (
	OpFormat Op = iota
	OpCrop
	OpDenoise
	OpSharpen
	OpHue
	OpSaturation
	OpBrightness
	OpContrast
	OpDeinterlace
	OpScaling
	OpVideoDirection
	OpHDRToneMap
	OpSkinTone
	OpSkinToneLevel

	opCount
)

var opNames = map[Op]string{
	OpFormat:         "format",
	OpCrop:           "crop",
	OpDenoise:        "denoise",
	OpSharpen:        "sharpen",
	OpHue:            "hue",
	OpSaturation:     "saturation",
	OpBrightness:     "brightness",
	OpContrast:       "contrast",
	OpDeinterlace:    "deinterlace",
	OpScaling:        "scaling",
	OpVideoDirection: "video-direction",
	OpHDRToneMap:     "hdr-tone-map",
	OpSkinTone:       "skin-tone",
	OpSkinToneLevel:  "skin-tone-level",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Flags is a dirty-bit set, one bit per Op plus the size-change bit.
// A set bit means the corresponding parameter changed and has not yet
// been committed to the engine at its default value.
type Flags uint32

// FlagSize marks a pending output size change; it has no Op of its own.
const FlagSize Flags = 1 << opCount

// Bit returns the flag bit owned by op.
func Bit(op Op) Flags {
	return 1 << op
}

// Has reports whether op's bit is set.
func (f Flags) Has(op Op) bool {
	return f&Bit(op) != 0
}

// Set returns f with op's bit set.
func (f Flags) Set(op Op) Flags {
	return f | Bit(op)
}

// Clear returns f with op's bit cleared.
func (f Flags) Clear(op Op) Flags {
	return f &^ Bit(op)
}

// OpInfo describes a supported operation and, for scalar ops, its
// value range and engine default.
type OpInfo struct {
	Op      Op      `json:"op"`
	Name    string  `json:"name"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// DeintMethod selects a deinterlacing algorithm.
type DeintMethod int

const (
	DeintNone DeintMethod = iota
	DeintBob
	DeintWeave
	DeintMotionAdaptive
	DeintMotionCompensated
)

func (m DeintMethod) String() string {
	switch m {
	case DeintNone:
		return "none"
	case DeintBob:
		return "bob"
	case DeintWeave:
		return "weave"
	case DeintMotionAdaptive:
		return "motion-adaptive"
	case DeintMotionCompensated:
		return "motion-compensated"
	default:
		return fmt.Sprintf("DeintMethod(%d)", int(m))
	}
}

// RequiresReferences reports whether the method needs a history of
// reference surfaces.
func (m DeintMethod) RequiresReferences() bool {
	switch m {
	case DeintMotionAdaptive, DeintMotionCompensated:
		return true
	default:
		return false
	}
}

// Next returns the fallback method tried when the engine rejects m:
// motion-compensated degrades to motion-adaptive, everything else
// degrades to bob. Bob is terminal.
func (m DeintMethod) Next() DeintMethod {
	if m == DeintMotionCompensated {
		return DeintMotionAdaptive
	}
	return DeintBob
}

// DeintMode selects when deinterlacing is applied.
type DeintMode int

const (
	// DeintModeAuto deinterlaces interleaved streams, and mixed streams
	// per-frame.
	DeintModeAuto DeintMode = iota
	// DeintModeForced always deinterlaces.
	DeintModeForced
	// DeintModeDisabled never deinterlaces.
	DeintModeDisabled
)

func (m DeintMode) String() string {
	switch m {
	case DeintModeAuto:
		return "auto"
	case DeintModeForced:
		return "interlaced"
	case DeintModeDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("DeintMode(%d)", int(m))
	}
}

// ParseDeintMode maps a configuration string to a mode.
func ParseDeintMode(s string) (DeintMode, bool) {
	switch s {
	case "auto":
		return DeintModeAuto, true
	case "interlaced", "forced":
		return DeintModeForced, true
	case "disabled":
		return DeintModeDisabled, true
	default:
		return DeintModeAuto, false
	}
}

// ParseDeintMethod maps a configuration string to a method.
func ParseDeintMethod(s string) (DeintMethod, bool) {
	switch s {
	case "none":
		return DeintNone, true
	case "bob":
		return DeintBob, true
	case "weave":
		return DeintWeave, true
	case "motion-adaptive":
		return DeintMotionAdaptive, true
	case "motion-compensated":
		return DeintMotionCompensated, true
	default:
		return DeintNone, false
	}
}

// DeintFlags qualifies a deinterlacing call.
type DeintFlags uint32

const (
	// DeintFlagTopField selects the top field for this render.
	DeintFlagTopField DeintFlags = 1 << iota
	// DeintFlagTFF indicates the input stream is top-field-first.
	DeintFlagTFF
)

// ScaleMethod selects the scaling kernel.
type ScaleMethod int

const (
	ScaleDefault ScaleMethod = iota
	ScaleFast
	ScaleHQ
)

func (m ScaleMethod) String() string {
	switch m {
	case ScaleDefault:
		return "default"
	case ScaleFast:
		return "fast"
	case ScaleHQ:
		return "hq"
	default:
		return fmt.Sprintf("ScaleMethod(%d)", int(m))
	}
}

// ParseScaleMethod maps a configuration string to a scale method.
func ParseScaleMethod(s string) (ScaleMethod, bool) {
	switch s {
	case "default":
		return ScaleDefault, true
	case "fast":
		return ScaleFast, true
	case "hq":
		return ScaleHQ, true
	default:
		return ScaleDefault, false
	}
}

// HDRToneMapMode selects when HDR tone mapping engages.
type HDRToneMapMode int

const (
	// HDRToneMapAuto engages tone mapping when the input carries HDR
	// mastering metadata.
	HDRToneMapAuto HDRToneMapMode = iota
	HDRToneMapDisabled
)

func (m HDRToneMapMode) String() string {
	switch m {
	case HDRToneMapAuto:
		return "auto"
	case HDRToneMapDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("HDRToneMapMode(%d)", int(m))
	}
}

// ParseHDRToneMapMode maps a configuration string to a mode.
func ParseHDRToneMapMode(s string) (HDRToneMapMode, bool) {
	switch s {
	case "auto":
		return HDRToneMapAuto, true
	case "disabled":
		return HDRToneMapDisabled, true
	default:
		return HDRToneMapAuto, false
	}
}

// ProcessFlags qualify a surface transform with the picture structure
// of the input.
type ProcessFlags uint32

const (
	ProcessTopField ProcessFlags = 1 << iota
	ProcessBottomField

	// ProcessStructureMask covers the picture-structure bits.
	ProcessStructureMask = ProcessTopField | ProcessBottomField
)
