package postproc

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/vppstage/internal/engine"
	"github.com/bryanchriswhite/vppstage/internal/format"
	"github.com/bryanchriswhite/vppstage/internal/logger"
	"github.com/bryanchriswhite/vppstage/internal/surface"
)

// PushFunc receives processed frames in presentation order. Ownership
// of the buffer transfers to the callee.
type PushFunc func(*surface.Buffer) error

// defaultPoolCapacity bounds the output surface pool when no option
// overrides it.
const defaultPoolCapacity = 8

// Stage is the post-processing stage: it negotiates formats between an
// upstream producer and a downstream consumer, keeps the filter
// configuration state machine, and transforms frames through the
// engine. A single mutex serializes configuration against processing;
// frames must be submitted from one goroutine.
type Stage struct {
	mu  sync.Mutex
	log *zerolog.Logger

	eng          engine.Engine
	hasVPP       bool
	pool         *surface.Manager
	poolCapacity int
	push         PushFunc

	// Negotiated state.
	sinkInfo      format.Descriptor
	srcInfo       format.Descriptor
	negotiated    bool
	sameCaps      bool
	passthrough   bool
	fieldDuration format.Fraction

	flags engine.Flags

	// Configured parameters. Values live here until commit pushes them
	// to the engine.
	forcedFormat  format.PixelFormat
	forcedWidth   int
	forcedHeight  int
	keepAspect    bool
	deintMode     engine.DeintMode
	deintMethod   engine.DeintMethod
	denoise       float64
	sharpen       float64
	hue           float64
	saturation    float64
	brightness    float64
	contrast      float64
	scaleMethod   engine.ScaleMethod
	direction     format.Orientation
	tagDirection  format.Orientation
	crop          format.CropMargins
	hdrToneMap    engine.HDRToneMapMode
	skinTone      bool
	skinToneLevel uint

	forwardCrop bool
	canDMABuf   bool
	hasGL       bool

	ds deintState

	stats Stats
}

// Option configures a Stage at construction time.
type Option func(*Stage)

// WithPoolCapacity sets the output surface pool size.
func WithPoolCapacity(n int) Option {
	return func(s *Stage) {
		if n > 0 {
			s.poolCapacity = n
		}
	}
}

// WithDMABuf declares that downstream can import exported buffers.
func WithDMABuf(ok bool) Option {
	return func(s *Stage) { s.canDMABuf = ok }
}

// WithOpenGL declares that downstream can take texture uploads.
func WithOpenGL(ok bool) Option {
	return func(s *Stage) { s.hasGL = ok }
}

// NewStage builds a stage around an engine and a surface allocator.
// push receives output frames; it must not be nil.
func NewStage(eng engine.Engine, alloc surface.Allocator, push PushFunc, opts ...Option) *Stage {
	s := &Stage{
		log:          logger.WithComponent("postproc"),
		eng:          eng,
		hasVPP:       eng != nil,
		push:         push,
		poolCapacity: defaultPoolCapacity,
		deintMethod:  engine.DeintBob,
	}
	if s.hasVPP {
		s.denoise = eng.DenoiseLevelDefault()
		s.sharpen = eng.SharpenLevelDefault()
		s.hue = eng.HueDefault()
		s.saturation = eng.SaturationDefault()
		s.brightness = eng.BrightnessDefault()
		s.contrast = eng.ContrastDefault()
		s.scaleMethod = eng.ScaleMethodDefault()
		s.direction = eng.VideoDirectionDefault()
		s.skinToneLevel = eng.SkinToneLevelDefault()
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pool = surface.NewManager(alloc, s.poolCapacity)
	return s
}

// --- Properties ---------------------------------------------------------

// SetForcedFormat forces the output pixel format. FormatUnknown removes
// the force and lets negotiation pick.
func (s *Stage) SetForcedFormat(f format.PixelFormat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forcedFormat == f {
		return
	}
	s.forcedFormat = f
	s.flags = s.flags.Set(engine.OpFormat)
	s.negotiated = false
}

// SetForcedSize forces the output dimensions. Zero removes the force on
// that axis.
func (s *Stage) SetForcedSize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forcedWidth == width && s.forcedHeight == height {
		return
	}
	s.forcedWidth = width
	s.forcedHeight = height
	s.flags |= engine.FlagSize
	s.negotiated = false
}

// SetKeepAspect controls whether a single forced dimension derives the
// other from the input aspect ratio.
func (s *Stage) SetKeepAspect(keep bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keepAspect == keep {
		return
	}
	s.keepAspect = keep
	s.negotiated = false
}

// SetDeinterlaceMode selects when deinterlacing applies. Turning the
// decision off resets the engine's deinterlacer and drops reference
// history.
func (s *Stage) SetDeinterlaceMode(mode engine.DeintMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deintMode == mode {
		return
	}
	s.deintMode = mode
	s.flags = s.flags.Set(engine.OpDeinterlace)
	s.negotiated = false
}

// SetDeinterlaceMethod selects the preferred deinterlacing algorithm.
// The engine may still degrade it through the fallback ladder.
func (s *Stage) SetDeinterlaceMethod(m engine.DeintMethod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deintMethod == m {
		return
	}
	s.deintMethod = m
	s.flags = s.flags.Set(engine.OpDeinterlace)
}

// SetDenoise sets the noise reduction level.
func (s *Stage) SetDenoise(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denoise = v
	s.flags = s.flags.Set(engine.OpDenoise)
}

// SetSharpen sets the sharpening level.
func (s *Stage) SetSharpen(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sharpen = v
	s.flags = s.flags.Set(engine.OpSharpen)
}

// SetHue sets the color hue adjustment.
func (s *Stage) SetHue(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hue = v
	s.flags = s.flags.Set(engine.OpHue)
}

// SetSaturation sets the color saturation adjustment.
func (s *Stage) SetSaturation(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saturation = v
	s.flags = s.flags.Set(engine.OpSaturation)
}

// SetBrightness sets the brightness adjustment.
func (s *Stage) SetBrightness(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brightness = v
	s.flags = s.flags.Set(engine.OpBrightness)
}

// SetContrast sets the contrast adjustment.
func (s *Stage) SetContrast(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contrast = v
	s.flags = s.flags.Set(engine.OpContrast)
}

// SetScaleMethod selects the scaling kernel.
func (s *Stage) SetScaleMethod(m engine.ScaleMethod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scaleMethod == m {
		return
	}
	s.scaleMethod = m
	s.flags = s.flags.Set(engine.OpScaling)
}

// SetVideoDirection selects the output orientation. OrientAuto follows
// the stream's image-orientation tag.
func (s *Stage) SetVideoDirection(o format.Orientation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.direction == o {
		return
	}
	s.direction = o
	s.flags = s.flags.Set(engine.OpVideoDirection)
	s.negotiated = false
}

// SetCropMargins configures edge cropping. All-zero margins disable
// cropping; the flag clears on the next commit.
func (s *Stage) SetCropMargins(m format.CropMargins) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.crop == m {
		return
	}
	s.crop = m
	s.flags = s.flags.Set(engine.OpCrop)
	s.negotiated = false
}

// SetHDRToneMap selects the HDR tone mapping policy. The policy is
// consulted at negotiation time; the tone-map flag itself is raised or
// cleared there depending on whether mapping actually engages.
func (s *Stage) SetHDRToneMap(m engine.HDRToneMapMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hdrToneMap = m
}

// SetSkinTone enables or disables the legacy boolean skin tone
// enhancement. Superseded by SetSkinToneLevel when both are used.
func (s *Stage) SetSkinTone(enhance bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skinTone = enhance
	s.flags = s.flags.Set(engine.OpSkinTone)
}

// SetSkinToneLevel sets the graded skin tone enhancement level.
func (s *Stage) SetSkinToneLevel(v uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skinToneLevel = v
	s.flags = s.flags.Set(engine.OpSkinToneLevel)
}

// HandleOrientationTag feeds an image-orientation stream tag to the
// stage. It reports whether the tag was recognized; the new direction
// takes effect on the next renegotiation when the direction property is
// auto.
func (s *Stage) HandleOrientationTag(tag string) bool {
	o, ok := format.ParseOrientationTag(tag)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tagDirection == o {
		return true
	}
	s.tagDirection = o
	if s.direction == format.OrientAuto {
		s.flags = s.flags.Set(engine.OpVideoDirection)
		s.negotiated = false
	}
	return true
}

// SetDownstreamCropForwarding records whether downstream accepts crop
// metadata alongside full video metadata. When it does, cropping is
// forwarded as metadata instead of rendered by the engine.
func (s *Stage) SetDownstreamCropForwarding(cropMeta, videoMeta bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forwardCrop = cropMeta && videoMeta
}

// --- Introspection ------------------------------------------------------

// FilterParams is a serializable snapshot of the configured filter
// parameters.
type FilterParams struct {
	Format            string             `json:"format"`
	Width             int                `json:"width"`
	Height            int                `json:"height"`
	KeepAspect        bool               `json:"keep_aspect"`
	DeinterlaceMode   string             `json:"deinterlace_mode"`
	DeinterlaceMethod string             `json:"deinterlace_method"`
	Denoise           float64            `json:"denoise"`
	Sharpen           float64            `json:"sharpen"`
	Hue               float64            `json:"hue"`
	Saturation        float64            `json:"saturation"`
	Brightness        float64            `json:"brightness"`
	Contrast          float64            `json:"contrast"`
	ScaleMethod       string             `json:"scale_method"`
	VideoDirection    string             `json:"video_direction"`
	Crop              format.CropMargins `json:"crop"`
	HDRToneMap        string             `json:"hdr_tone_map"`
	SkinToneLevel     uint               `json:"skin_tone_level"`
}

// Params returns the current configuration.
func (s *Stage) Params() FilterParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FilterParams{
		Format:            s.forcedFormat.String(),
		Width:             s.forcedWidth,
		Height:            s.forcedHeight,
		KeepAspect:        s.keepAspect,
		DeinterlaceMode:   s.deintMode.String(),
		DeinterlaceMethod: s.deintMethod.String(),
		Denoise:           s.denoise,
		Sharpen:           s.sharpen,
		Hue:               s.hue,
		Saturation:        s.saturation,
		Brightness:        s.brightness,
		Contrast:          s.contrast,
		ScaleMethod:       s.scaleMethod.String(),
		VideoDirection:    s.direction.String(),
		Crop:              s.crop,
		HDRToneMap:        s.hdrToneMap.String(),
		SkinToneLevel:     s.skinToneLevel,
	}
}

// SinkFormat returns the negotiated input format.
func (s *Stage) SinkFormat() format.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sinkInfo
}

// SrcFormat returns the negotiated output format.
func (s *Stage) SrcFormat() format.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srcInfo
}

// Passthrough reports whether frames currently bypass processing.
func (s *Stage) Passthrough() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passthrough
}

// appliedDirection is the orientation geometry compensation must
// account for: what the engine actually applies, not what was asked.
func (s *Stage) appliedDirection() format.Orientation {
	if !s.hasVPP {
		return format.OrientIdentity
	}
	return s.eng.VideoDirection()
}

// RemapPointer translates a pointer coordinate on the output frame back
// to input frame coordinates, undoing orientation, scaling and crop.
func (s *Stage) RemapPointer(x, y float64) (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.negotiated {
		return x, y
	}
	dir := s.appliedDirection()
	fw, fh := scaleFactors(s.sinkInfo, s.srcInfo, s.crop, dir)
	return remapPointer(dir, s.srcInfo, s.crop, fw, fh, x, y)
}

// Reset drops negotiated state, reference history and pooled surfaces.
func (s *Stage) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds.reset()
	s.pool.Reset()
	s.negotiated = false
}
