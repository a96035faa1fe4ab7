package engine

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/vppstage/internal/format"
	"github.com/bryanchriswhite/vppstage/internal/logger"
	"github.com/bryanchriswhite/vppstage/internal/surface"
)

// Software is a pure-Go reference engine. It implements the subset of
// operations a CPU path can afford: cropping, the nine orientations,
// scaling via x/image kernels, bob deinterlacing and basic color
// adjustment. Advanced deinterlacing methods are rejected so callers
// exercise their fallback ladder the same way they would against a
// limited driver.
type Software struct {
	log *zerolog.Logger

	outFormat  format.PixelFormat
	denoise    float64
	sharpen    float64
	hue        float64
	saturation float64
	brightness float64
	contrast   float64
	scale      ScaleMethod
	direction  format.Orientation
	skinLevel  uint
	skinTone   bool
	hdr        bool

	deintMethod DeintMethod
	deintFlags  DeintFlags
	crop        *format.CropRect
}

// softwareDefaults mirror the op ranges the engine reports.
const (
	defaultDenoise    = 0.0
	defaultSharpen    = 0.0
	defaultHue        = 0.0
	defaultSaturation = 1.0
	defaultBrightness = 0.0
	defaultContrast   = 1.0
	defaultSkinLevel  = 3
)

// NewSoftware returns a software engine with every parameter at its
// default.
func NewSoftware() *Software {
	return &Software{
		log:        logger.WithComponent("software-engine"),
		outFormat:  format.FormatRGBA,
		saturation: defaultSaturation,
		contrast:   defaultContrast,
		scale:      ScaleDefault,
		direction:  format.OrientIdentity,
		skinLevel:  defaultSkinLevel,
	}
}

// SupportedOps lists the ops the software path accepts.
func (e *Software) SupportedOps() []OpInfo {
	return []OpInfo{
		{Op: OpFormat, Name: OpFormat.String()},
		{Op: OpCrop, Name: OpCrop.String()},
		{Op: OpDenoise, Name: OpDenoise.String(), Min: 0, Max: 1, Default: defaultDenoise},
		{Op: OpSharpen, Name: OpSharpen.String(), Min: -1, Max: 1, Default: defaultSharpen},
		{Op: OpHue, Name: OpHue.String(), Min: -180, Max: 180, Default: defaultHue},
		{Op: OpSaturation, Name: OpSaturation.String(), Min: 0, Max: 2, Default: defaultSaturation},
		{Op: OpBrightness, Name: OpBrightness.String(), Min: -1, Max: 1, Default: defaultBrightness},
		{Op: OpContrast, Name: OpContrast.String(), Min: 0, Max: 2, Default: defaultContrast},
		{Op: OpDeinterlace, Name: OpDeinterlace.String()},
		{Op: OpScaling, Name: OpScaling.String()},
		{Op: OpVideoDirection, Name: OpVideoDirection.String()},
		{Op: OpSkinToneLevel, Name: OpSkinToneLevel.String(), Min: 0, Max: 9, Default: defaultSkinLevel},
	}
}

// SupportedFormats lists the raw formats the software path converts.
func (e *Software) SupportedFormats() []format.PixelFormat {
	return []format.PixelFormat{
		format.FormatRGBA, format.FormatBGRA,
		format.FormatNV12, format.FormatI420, format.FormatYV12,
	}
}

func (e *Software) SetFormat(f format.PixelFormat) bool {
	for _, s := range e.SupportedFormats() {
		if s == f {
			e.outFormat = f
			return true
		}
	}
	return false
}

func (e *Software) SetDenoiseLevel(v float64) bool {
	if v < 0 || v > 1 {
		return false
	}
	e.denoise = v
	return true
}

func (e *Software) DenoiseLevelDefault() float64 { return defaultDenoise }

func (e *Software) SetSharpenLevel(v float64) bool {
	if v < -1 || v > 1 {
		return false
	}
	e.sharpen = v
	return true
}

func (e *Software) SharpenLevelDefault() float64 { return defaultSharpen }

func (e *Software) SetHue(v float64) bool {
	if v < -180 || v > 180 {
		return false
	}
	e.hue = v
	return true
}

func (e *Software) HueDefault() float64 { return defaultHue }

func (e *Software) SetSaturation(v float64) bool {
	if v < 0 || v > 2 {
		return false
	}
	e.saturation = v
	return true
}

func (e *Software) SaturationDefault() float64 { return defaultSaturation }

func (e *Software) SetBrightness(v float64) bool {
	if v < -1 || v > 1 {
		return false
	}
	e.brightness = v
	return true
}

func (e *Software) BrightnessDefault() float64 { return defaultBrightness }

func (e *Software) SetContrast(v float64) bool {
	if v < 0 || v > 2 {
		return false
	}
	e.contrast = v
	return true
}

func (e *Software) ContrastDefault() float64 { return defaultContrast }

func (e *Software) SetScaleMethod(m ScaleMethod) bool {
	e.scale = m
	return true
}

func (e *Software) ScaleMethodDefault() ScaleMethod { return ScaleDefault }

func (e *Software) SetVideoDirection(o format.Orientation) bool {
	if o == format.OrientAuto {
		return false
	}
	e.direction = o
	return true
}

func (e *Software) VideoDirectionDefault() format.Orientation { return format.OrientIdentity }

func (e *Software) VideoDirection() format.Orientation { return e.direction }

func (e *Software) SetSkinToneLevel(v uint) bool {
	if v > 9 {
		return false
	}
	e.skinLevel = v
	return true
}

func (e *Software) SkinToneLevelDefault() uint { return defaultSkinLevel }

func (e *Software) SetSkinTone(enhance bool) bool {
	e.skinTone = enhance
	return true
}

func (e *Software) SkinToneDefault() bool { return false }

// SetHDRToneMap accepts only disabling: the CPU path has no tone
// mapper.
func (e *Software) SetHDRToneMap(enable bool) bool {
	if enable {
		return false
	}
	e.hdr = false
	return true
}

func (e *Software) SetHDRToneMapMetadata(format.MasteringDisplay, format.ContentLightLevel) bool {
	return false
}

func (e *Software) SetColorimetry(in, out string) bool {
	// The CPU path works in RGB and ignores colorimetry hints.
	return true
}

// SetDeinterlacing accepts none and bob; motion-adaptive and
// motion-compensated are rejected so callers degrade.
func (e *Software) SetDeinterlacing(method DeintMethod, flags DeintFlags) bool {
	switch method {
	case DeintNone, DeintBob:
		e.deintMethod = method
		e.deintFlags = flags
		return true
	default:
		return false
	}
}

func (e *Software) SetDeinterlacingReferences(refs []*surface.Surface) bool {
	// Bob needs no history.
	return len(refs) == 0
}

func (e *Software) SetCropRectangle(rect *format.CropRect) {
	if rect == nil {
		e.crop = nil
		return
	}
	r := *rect
	e.crop = &r
}

func (e *Software) kernel() draw.Scaler {
	switch e.scale {
	case ScaleFast:
		return draw.ApproxBiLinear
	case ScaleHQ:
		return draw.CatmullRom
	default:
		return draw.BiLinear
	}
}

// Process renders src into dst applying crop, deinterlacing,
// orientation, scaling and color adjustment in that order.
func (e *Software) Process(src, dst *surface.Surface, flags ProcessFlags) error {
	if src == nil || dst == nil || src.Image == nil || dst.Image == nil {
		return ErrUnsupported
	}

	img := src.Image
	bounds := img.Bounds()
	if e.crop != nil {
		r := image.Rect(e.crop.X, e.crop.Y, e.crop.X+e.crop.Width, e.crop.Y+e.crop.Height)
		r = r.Intersect(bounds)
		if r.Empty() {
			return ErrUnsupported
		}
		img = img.SubImage(r).(*image.RGBA)
	}

	if e.deintMethod == DeintBob {
		img = bobField(img, e.deintFlags&DeintFlagTopField != 0)
	}

	if e.direction != format.OrientIdentity {
		img = orient(img, e.direction)
	}

	e.kernel().Scale(dst.Image, dst.Image.Bounds(), img, img.Bounds(), draw.Src, nil)

	if e.brightness != defaultBrightness || e.contrast != defaultContrast ||
		e.saturation != defaultSaturation {
		adjustColor(dst.Image, e.brightness, e.contrast, e.saturation)
	}
	return nil
}

// bobField keeps only the selected field's lines, producing a
// half-height image the scaler stretches back out.
func bobField(img *image.RGBA, topField bool) *image.RGBA {
	b := img.Bounds()
	start := 0
	if !topField {
		start = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), (b.Dy()+1)/2))
	for y := start; y < b.Dy(); y += 2 {
		srcOff := img.PixOffset(b.Min.X, b.Min.Y+y)
		dstOff := out.PixOffset(0, y/2)
		copy(out.Pix[dstOff:dstOff+4*b.Dx()], img.Pix[srcOff:srcOff+4*b.Dx()])
	}
	return out
}

// orient remaps pixels for the eight non-identity orientations.
func orient(img *image.RGBA, o format.Orientation) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	ow, oh := w, h
	if o.SwapsDimensions() {
		ow, oh = h, w
	}
	out := image.NewRGBA(image.Rect(0, 0, ow, oh))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var nx, ny int
			switch o {
			case format.Orient90R:
				nx, ny = h-1-y, x
			case format.Orient90L:
				nx, ny = y, w-1-x
			case format.Orient180:
				nx, ny = w-1-x, h-1-y
			case format.OrientHoriz:
				nx, ny = w-1-x, y
			case format.OrientVert:
				nx, ny = x, h-1-y
			case format.OrientULLR:
				nx, ny = y, x
			case format.OrientURLL:
				nx, ny = h-1-y, w-1-x
			default:
				nx, ny = x, y
			}
			out.SetRGBA(nx, ny, img.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

func adjustColor(img *image.RGBA, brightness, contrast, saturation float64) {
	clamp := func(v float64) uint8 {
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return uint8(v)
	}
	for i := 0; i < len(img.Pix); i += 4 {
		r := float64(img.Pix[i])
		g := float64(img.Pix[i+1])
		b := float64(img.Pix[i+2])

		if saturation != 1 {
			luma := 0.299*r + 0.587*g + 0.114*b
			r = luma + (r-luma)*saturation
			g = luma + (g-luma)*saturation
			b = luma + (b-luma)*saturation
		}

		r = (r-128)*contrast + 128 + brightness*255
		g = (g-128)*contrast + 128 + brightness*255
		b = (b-128)*contrast + 128 + brightness*255

		img.Pix[i] = clamp(r)
		img.Pix[i+1] = clamp(g)
		img.Pix[i+2] = clamp(b)
	}
}

// SoftwareAllocator backs surfaces with plain RGBA images.
type SoftwareAllocator struct{}

// Alloc creates an image-backed surface for the descriptor.
func (SoftwareAllocator) Alloc(desc format.Descriptor) (*surface.Surface, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return surface.NewSurface(desc, image.NewRGBA(image.Rect(0, 0, desc.Width, desc.Height))), nil
}

// Free releases an image-backed surface; the GC does the real work.
func (SoftwareAllocator) Free(*surface.Surface) {}
