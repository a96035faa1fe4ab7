package postproc

import (
	"github.com/bryanchriswhite/vppstage/internal/engine"
	"github.com/bryanchriswhite/vppstage/internal/format"
	"github.com/bryanchriswhite/vppstage/internal/surface"
)

// fakeEngine records every call so tests can assert on ordering and
// fallback behavior. All setters accept unless a reject knob is set.
type fakeEngine struct {
	calls []string

	rejectMethods     map[engine.DeintMethod]bool
	rejectDirection   bool
	rejectColorimetry bool
	rejectHDR         bool
	processErr        error

	deintCalls [][2]interface{} // method, flags
	refsLens   []int
	crops      []*format.CropRect
	processed  int

	direction format.Orientation
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		rejectMethods: map[engine.DeintMethod]bool{},
	}
}

func (e *fakeEngine) record(name string) { e.calls = append(e.calls, name) }

func (e *fakeEngine) SupportedOps() []engine.OpInfo {
	return []engine.OpInfo{
		{Op: engine.OpHue, Name: "hue", Min: -180, Max: 180, Default: 0},
		{Op: engine.OpSaturation, Name: "saturation", Min: 0, Max: 2, Default: 1},
		{Op: engine.OpBrightness, Name: "brightness", Min: -1, Max: 1, Default: 0},
		{Op: engine.OpContrast, Name: "contrast", Min: 0, Max: 2, Default: 1},
	}
}

func (e *fakeEngine) SupportedFormats() []format.PixelFormat {
	return []format.PixelFormat{format.FormatNV12, format.FormatI420, format.FormatRGBA}
}

func (e *fakeEngine) SetFormat(format.PixelFormat) bool {
	e.record("format")
	return true
}

func (e *fakeEngine) SetDenoiseLevel(float64) bool { e.record("denoise"); return true }
func (e *fakeEngine) DenoiseLevelDefault() float64 { return 0 }
func (e *fakeEngine) SetSharpenLevel(float64) bool { e.record("sharpen"); return true }
func (e *fakeEngine) SharpenLevelDefault() float64 { return 0 }

func (e *fakeEngine) SetHue(float64) bool        { e.record("hue"); return true }
func (e *fakeEngine) HueDefault() float64        { return 0 }
func (e *fakeEngine) SetSaturation(float64) bool { e.record("saturation"); return true }
func (e *fakeEngine) SaturationDefault() float64 { return 1 }
func (e *fakeEngine) SetBrightness(float64) bool { e.record("brightness"); return true }
func (e *fakeEngine) BrightnessDefault() float64 { return 0 }
func (e *fakeEngine) SetContrast(float64) bool   { e.record("contrast"); return true }
func (e *fakeEngine) ContrastDefault() float64   { return 1 }

func (e *fakeEngine) SetScaleMethod(engine.ScaleMethod) bool { e.record("scaling"); return true }
func (e *fakeEngine) ScaleMethodDefault() engine.ScaleMethod { return engine.ScaleDefault }

func (e *fakeEngine) SetVideoDirection(o format.Orientation) bool {
	e.record("direction")
	if e.rejectDirection {
		return false
	}
	e.direction = o
	return true
}
func (e *fakeEngine) VideoDirectionDefault() format.Orientation { return format.OrientIdentity }
func (e *fakeEngine) VideoDirection() format.Orientation        { return e.direction }

func (e *fakeEngine) SetSkinToneLevel(uint) bool { e.record("skin-tone-level"); return true }
func (e *fakeEngine) SkinToneLevelDefault() uint { return 3 }
func (e *fakeEngine) SetSkinTone(bool) bool      { e.record("skin-tone"); return true }
func (e *fakeEngine) SkinToneDefault() bool      { return false }

func (e *fakeEngine) SetHDRToneMap(bool) bool { return !e.rejectHDR }
func (e *fakeEngine) SetHDRToneMapMetadata(format.MasteringDisplay, format.ContentLightLevel) bool {
	return !e.rejectHDR
}

func (e *fakeEngine) SetColorimetry(in, out string) bool { return !e.rejectColorimetry }

func (e *fakeEngine) SetDeinterlacing(method engine.DeintMethod, flags engine.DeintFlags) bool {
	e.deintCalls = append(e.deintCalls, [2]interface{}{method, flags})
	return !e.rejectMethods[method]
}

func (e *fakeEngine) SetDeinterlacingReferences(refs []*surface.Surface) bool {
	e.refsLens = append(e.refsLens, len(refs))
	return true
}

func (e *fakeEngine) SetCropRectangle(rect *format.CropRect) {
	e.crops = append(e.crops, rect)
}

func (e *fakeEngine) Process(src, dst *surface.Surface, flags engine.ProcessFlags) error {
	if e.processErr != nil {
		return e.processErr
	}
	e.processed++
	return nil
}

// deintMethods returns just the methods of the recorded deinterlacing
// calls.
func (e *fakeEngine) deintMethods() []engine.DeintMethod {
	out := make([]engine.DeintMethod, len(e.deintCalls))
	for i, c := range e.deintCalls {
		out[i] = c[0].(engine.DeintMethod)
	}
	return out
}

// memAllocator hands out software-backed surfaces without a pool.
type memAllocator struct{}

func (memAllocator) Alloc(desc format.Descriptor) (*surface.Surface, error) {
	return surface.NewSurface(desc, nil), nil
}

func (memAllocator) Free(*surface.Surface) {}

// pushRecord captures the observable state of one pushed buffer.
type pushRecord struct {
	Timestamp format.Fraction
	Duration  format.Fraction
	Discont   bool
	Structure surface.PictureStructure
	Crop      *format.CropRect
	SurfaceID uint64
}

// collector records pushed buffers and releases them immediately, so
// pooled surfaces recycle as they would with a real consumer.
type collector struct {
	recs []pushRecord
}

func (c *collector) push(buf *surface.Buffer) error {
	rec := pushRecord{
		Timestamp: buf.Timestamp,
		Duration:  buf.Duration,
		Discont:   buf.Discont,
		Structure: buf.Structure,
	}
	if buf.Crop != nil {
		crop := *buf.Crop
		rec.Crop = &crop
	}
	if s := buf.Surface(); s != nil {
		rec.SurfaceID = s.ID()
	}
	c.recs = append(c.recs, rec)
	buf.Release()
	return nil
}
