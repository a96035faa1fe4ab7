package postproc

import (
	"fmt"

	"github.com/bryanchriswhite/vppstage/internal/engine"
	"github.com/bryanchriswhite/vppstage/internal/format"
)

func allInterlaceModes() []format.InterlaceMode {
	return []format.InterlaceMode{format.Progressive, format.Interleaved, format.Mixed}
}

// UpstreamCaps advertises what the stage accepts from producers:
// accelerator surfaces in any interlace mode, plus raw frames in every
// format the engine can read.
func (s *Stage) UpstreamCaps() format.Caps {
	var caps format.Caps
	caps.Append(format.Structure{
		Memory:         format.MemSurface,
		InterlaceModes: allInterlaceModes(),
	})
	if s.hasVPP {
		caps.Append(format.Structure{
			Memory:         format.MemRaw,
			Formats:        s.eng.SupportedFormats(),
			InterlaceModes: allInterlaceModes(),
		})
	}
	return caps
}

// DownstreamCaps advertises what the stage can produce: progressive
// surfaces, raw frames led by the encoded marker, exported buffers, and
// texture uploads when downstream has no import path of its own.
func (s *Stage) DownstreamCaps() format.Caps {
	var caps format.Caps
	caps.Append(format.Structure{
		Memory: format.MemSurface,
	})
	if s.hasGL && !s.canDMABuf {
		caps.Append(format.Structure{
			Memory: format.MemGLTextureUpload,
		})
	}
	if s.hasVPP {
		formats := append([]format.PixelFormat{format.FormatEncoded}, s.eng.SupportedFormats()...)
		caps.Append(format.Structure{
			Memory:         format.MemRaw,
			Formats:        formats,
			InterlaceModes: allInterlaceModes(),
		})
		if s.canDMABuf {
			caps.Append(format.Structure{
				Memory:  format.MemDMABuf,
				Formats: s.eng.SupportedFormats(),
			})
		}
	}
	return caps
}

// TransformCaps answers a caps query from one side of the stage: what
// the other side could carry, optionally constrained by a filter set.
func (s *Stage) TransformCaps(towardDownstream bool, filter *format.Caps) format.Caps {
	var caps format.Caps
	if towardDownstream {
		caps = s.DownstreamCaps()
	} else {
		caps = s.UpstreamCaps()
	}
	if filter != nil {
		caps = caps.Intersect(*filter)
	}
	return caps
}

// FixateSource settles the output format against the downstream peer's
// capabilities and the configured overrides. Filter parameters commit
// first so a forced format rejection surfaces here rather than
// mid-stream.
func (s *Stage) FixateSource(sink format.Descriptor, peer format.Caps) (format.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := sink.Validate(); err != nil {
		return format.Descriptor{}, fmt.Errorf("%w: %v", ErrNegotiationFailed, err)
	}

	if err := s.commit(); err != nil {
		return format.Descriptor{}, fmt.Errorf("%w: %v", ErrNegotiationFailed, err)
	}

	common := s.DownstreamCaps().Intersect(peer)
	preferred := s.forcedFormat
	if preferred == format.FormatUnknown {
		preferred = sink.Format
	}
	_, outFormat, outInterlace, err := common.Fixate(preferred)
	if err != nil {
		return format.Descriptor{}, fmt.Errorf("%w: %v", ErrNegotiationFailed, err)
	}

	w, h := s.fixateSize(sink)
	if deinterlaceEnabled(s.deintMode, sink) {
		outInterlace = format.Progressive
	}

	out := format.Descriptor{
		Format:      outFormat,
		Width:       w,
		Height:      h,
		Interlace:   outInterlace,
		FrameRate:   sink.FrameRate,
		Colorimetry: sink.Colorimetry,
	}
	if err := out.Validate(); err != nil {
		return format.Descriptor{}, fmt.Errorf("%w: %v", ErrNegotiationFailed, err)
	}
	return out, nil
}

// fixateSize resolves the output dimensions: the cropped input extent,
// overridden per axis by forced dimensions, then swapped when the
// orientation rotates the frame. A degenerate crop falls back to the
// full frame.
func (s *Stage) fixateSize(sink format.Descriptor) (int, int) {
	w := sink.Width - s.crop.Left - s.crop.Right
	h := sink.Height - s.crop.Top - s.crop.Bottom
	if w <= 0 || h <= 0 {
		w, h = sink.Width, sink.Height
	}

	switch {
	case s.forcedWidth > 0 && s.forcedHeight > 0:
		w, h = s.forcedWidth, s.forcedHeight
	case s.forcedWidth > 0:
		if s.keepAspect && w > 0 {
			h = s.forcedWidth * h / w
		}
		w = s.forcedWidth
	case s.forcedHeight > 0:
		if s.keepAspect && h > 0 {
			w = s.forcedHeight * w / h
		}
		h = s.forcedHeight
	}

	dir := s.direction
	if dir == format.OrientAuto {
		dir = s.tagDirection
	}
	if dir.SwapsDimensions() {
		w, h = h, w
	}
	return w, h
}

// SetCaps installs the negotiated formats on both sides of the stage
// and reconfigures everything derived from them: the deinterlace flag
// and field duration, engine colorimetry and HDR tone mapping, and the
// output surface pool. Advanced deinterlacing methods require an
// accelerator-native input layout; anything else fails negotiation.
func (s *Stage) SetCaps(sink, src format.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := sink.Validate(); err != nil {
		return fmt.Errorf("%w: sink: %v", ErrNegotiationFailed, err)
	}
	if err := src.Validate(); err != nil {
		return fmt.Errorf("%w: src: %v", ErrNegotiationFailed, err)
	}

	deint := deinterlaceEnabled(s.deintMode, sink)
	if deint && s.deintMethod.RequiresReferences() && !sink.Format.IsNative() {
		return fmt.Errorf("%w: %s deinterlacing requires a native format, got %s",
			ErrNegotiationFailed, s.deintMethod, sink.Format)
	}

	sinkChanged := s.sinkInfo.Changed(sink) || !s.negotiated
	srcChanged := s.srcInfo.Changed(src) || !s.negotiated

	if deint {
		s.flags = s.flags.Set(engine.OpDeinterlace)
	} else {
		s.flags = s.flags.Clear(engine.OpDeinterlace)
	}

	// Field duration in seconds: the frame period, halved when each
	// frame yields two fields.
	factor := int64(1)
	if deint {
		factor = 2
	}
	if !sink.FrameRate.IsZero() {
		s.fieldDuration = format.NewFraction(sink.FrameRate.Den, sink.FrameRate.Num*factor)
	} else {
		s.fieldDuration = format.Fraction{}
	}

	if s.forcedFormat != format.FormatUnknown && s.forcedFormat != sink.Format {
		s.flags = s.flags.Set(engine.OpFormat)
	}
	if src.Width != sink.Width || src.Height != sink.Height {
		s.flags |= engine.FlagSize
	} else {
		s.flags &^= engine.FlagSize
	}

	if sinkChanged || srcChanged {
		s.ds.reset()
	}

	if s.hasVPP {
		if !s.eng.SetColorimetry(sink.Colorimetry, src.Colorimetry) {
			return fmt.Errorf("%w: colorimetry %q -> %q rejected",
				ErrNegotiationFailed, sink.Colorimetry, src.Colorimetry)
		}
		s.configureHDR(sink)
	}

	poolDesc := src
	if s.forcedFormat != format.FormatUnknown {
		poolDesc.Format = s.forcedFormat
	}
	if err := s.pool.Ensure(poolDesc); err != nil {
		return fmt.Errorf("%w: surface pool: %v", ErrNegotiationFailed, err)
	}

	s.sinkInfo = sink
	s.srcInfo = src
	s.sameCaps = !sink.Changed(src)
	s.negotiated = true
	s.updatePassthrough()

	s.log.Info().
		Str("sink", sink.String()).
		Str("src", src.String()).
		Bool("deinterlace", deint).
		Bool("passthrough", s.passthrough).
		Msg("formats negotiated")
	return nil
}

// configureHDR engages engine tone mapping when the policy is auto and
// the input carries mastering metadata. The tone-map flag tracks the
// outcome: set only while mapping is engaged, cleared otherwise, so
// passthrough eligibility follows the actual engine state. Rejection
// downgrades to SDR with a warning instead of failing negotiation.
func (s *Stage) configureHDR(sink format.Descriptor) {
	enable := s.hdrToneMap == engine.HDRToneMapAuto && sink.Mastering != nil
	if !s.eng.SetHDRToneMap(enable) {
		if enable {
			s.log.Warn().Msg("HDR tone mapping not supported, output stays HDR")
		}
		s.flags = s.flags.Clear(engine.OpHDRToneMap)
		return
	}
	if !enable {
		s.flags = s.flags.Clear(engine.OpHDRToneMap)
		return
	}
	light := format.ContentLightLevel{}
	if sink.LightLevel != nil {
		light = *sink.LightLevel
	}
	if !s.eng.SetHDRToneMapMetadata(*sink.Mastering, light) {
		s.log.Warn().Msg("HDR mastering metadata rejected by engine")
		s.flags = s.flags.Clear(engine.OpHDRToneMap)
		return
	}
	s.flags = s.flags.Set(engine.OpHDRToneMap)
}
