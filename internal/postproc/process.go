package postproc

import (
	"errors"
	"fmt"

	"github.com/bryanchriswhite/vppstage/internal/engine"
	"github.com/bryanchriswhite/vppstage/internal/format"
	"github.com/bryanchriswhite/vppstage/internal/surface"
)

// Process runs one input frame through the stage and pushes the
// resulting frame or frames downstream in order. The caller keeps
// ownership of inbuf and releases it after Process returns.
//
// The path is chosen per frame: passthrough when nothing is pending,
// the engine path when filters apply, and a metadata-only field split
// when the engine declines but deinterlacing is still wanted.
func (s *Stage) Process(inbuf *surface.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.negotiated {
		return ErrNotNegotiated
	}
	s.stats.FramesIn++

	if s.filterDirty() {
		s.updatePassthrough()
	}
	if s.passthrough {
		return s.processPassthrough(inbuf)
	}

	if s.flags != 0 {
		if s.hasVPP {
			err := s.processVPP(inbuf)
			if err == nil || !errors.Is(err, ErrFilterRejected) {
				return err
			}
			s.log.Warn().Err(err).Msg("engine declined, falling back")
			s.stats.Fallbacks++
		}
		if s.flags.Has(engine.OpDeinterlace) {
			return s.processFieldSplit(inbuf)
		}
	}
	return s.processPassthrough(inbuf)
}

func (s *Stage) acquireOutput() (*surface.Buffer, error) {
	surf, err := s.pool.Acquire()
	if err != nil {
		return nil, err
	}
	return surface.NewBuffer(surf), nil
}

func (s *Stage) emit(buf *surface.Buffer) error {
	if err := s.push(buf); err != nil {
		buf.Release()
		return fmt.Errorf("push downstream: %w", err)
	}
	s.stats.FramesOut++
	return nil
}

// useVPPCrop reports whether the engine renders the crop itself. When
// downstream accepts crop metadata and no crop is configured here, the
// incoming rectangle is forwarded untouched instead.
func (s *Stage) useVPPCrop() bool {
	return !(s.forwardCrop && !s.flags.Has(engine.OpCrop))
}

// deintFlags builds the per-field engine flags. firstField selects
// which temporal sample this render produces given the field order.
func deintFlags(tff, firstField bool) engine.DeintFlags {
	var f engine.DeintFlags
	if tff == firstField {
		f |= engine.DeintFlagTopField
	}
	if tff {
		f |= engine.DeintFlagTFF
	}
	return f
}

// processVPP is the accelerated path. A deinterlaced frame renders as
// two field outputs with halved durations; otherwise one output frame
// carries the input timing. Deinterlacing rejections return
// ErrFilterRejected so the caller can fall back; every other failure is
// terminal for the frame.
func (s *Stage) processVPP(inbuf *surface.Buffer) error {
	src := inbuf.Surface()
	if src == nil {
		return fmt.Errorf("%w: no surface attached", ErrInvalidBuffer)
	}

	var cropRect *format.CropRect
	if s.useVPPCrop() {
		cropRect = effectiveCrop(s.crop, s.sinkInfo.Width, s.sinkInfo.Height, inbuf.Crop)
	}

	ts := inbuf.Timestamp
	tff := inbuf.TopFieldFirst
	discont := inbuf.Discont
	deint := s.shouldDeinterlace(inbuf)

	deintChanged := deint != s.ds.active
	if deintChanged || (s.ds.historyLen() > 0 && tff != s.ds.tff) {
		s.ds.reset()
	}
	s.ds.active = deint
	s.ds.tff = tff

	method := s.deintMethod
	needRefs := method.RequiresReferences()

	// First field, only when the stream is being deinterlaced at all.
	if s.flags.Has(engine.OpDeinterlace) {
		fieldbuf, err := s.acquireOutput()
		if err != nil {
			return err
		}
		if deint {
			applied, ok := s.setBestDeintMethod(method, deintFlags(tff, true))
			if !ok {
				fieldbuf.Release()
				return rejected(engine.OpDeinterlace)
			}
			if applied != method {
				s.log.Debug().
					Str("method", applied.String()).
					Msg("deinterlacing method degraded")
				s.deintMethod = applied
				method = applied
				needRefs = applied.RequiresReferences()
			}
			if needRefs && !s.eng.SetDeinterlacingReferences(s.ds.references()) {
				fieldbuf.Release()
				return rejected(engine.OpDeinterlace)
			}
		} else if deintChanged && !s.eng.SetDeinterlacing(engine.DeintNone, 0) {
			fieldbuf.Release()
			return rejected(engine.OpDeinterlace)
		}

		s.eng.SetCropRectangle(cropRect)
		if err := s.eng.Process(src, fieldbuf.Surface(), 0); err != nil {
			fieldbuf.Release()
			if errors.Is(err, engine.ErrUnsupported) {
				return fmt.Errorf("%w: %v", ErrFilterRejected, err)
			}
			return fmt.Errorf("engine process: %w", err)
		}

		fieldbuf.CopyMetadataFrom(inbuf)
		if s.useVPPCrop() {
			fieldbuf.Crop = nil
		}
		fieldbuf.Timestamp = ts
		fieldbuf.Duration = s.fieldDuration
		fieldbuf.Discont = discont
		discont = false

		if err := s.emit(fieldbuf); err != nil {
			return err
		}
	}

	// Second field, or the whole frame when not splitting.
	outbuf, err := s.acquireOutput()
	if err != nil {
		return err
	}
	if deint {
		if !s.eng.SetDeinterlacing(method, deintFlags(tff, false)) {
			outbuf.Release()
			return rejected(engine.OpDeinterlace)
		}
		if needRefs && !s.eng.SetDeinterlacingReferences(s.ds.references()) {
			outbuf.Release()
			return rejected(engine.OpDeinterlace)
		}
	} else if deintChanged && !s.eng.SetDeinterlacing(engine.DeintNone, 0) {
		outbuf.Release()
		return rejected(engine.OpDeinterlace)
	}

	s.eng.SetCropRectangle(cropRect)
	if err := s.eng.Process(src, outbuf.Surface(), 0); err != nil {
		outbuf.Release()
		if errors.Is(err, engine.ErrUnsupported) {
			return fmt.Errorf("%w: %v", ErrFilterRejected, err)
		}
		return fmt.Errorf("engine process: %w", err)
	}

	outbuf.CopyMetadataFrom(inbuf)
	if s.useVPPCrop() {
		outbuf.Crop = nil
	} else if outbuf.Crop != nil {
		rotateCropMeta(s.appliedDirection(), s.sinkInfo.Width, s.sinkInfo.Height, outbuf.Crop)
	}
	if s.flags.Has(engine.OpDeinterlace) {
		outbuf.Timestamp = ts.Add(s.fieldDuration)
		outbuf.Duration = s.fieldDuration
		outbuf.Discont = discont
	} else {
		outbuf.CopyTimestampsFrom(inbuf)
	}

	if deint && needRefs {
		s.ds.add(inbuf)
	}
	s.stats.VPPFrames++
	return s.emit(outbuf)
}

// processFieldSplit is the no-engine deinterlacing path: the input
// surface is shared into two output buffers tagged with alternating
// field structures and field timing. No pixels move.
func (s *Stage) processFieldSplit(inbuf *surface.Buffer) error {
	if inbuf.Surface() == nil {
		return fmt.Errorf("%w: no surface attached", ErrInvalidBuffer)
	}

	ts := inbuf.Timestamp
	tff := inbuf.TopFieldFirst
	deint := s.shouldDeinterlace(inbuf)

	structure := func(first bool) surface.PictureStructure {
		if !deint {
			return surface.PictureFrame
		}
		if tff == first {
			return surface.PictureTopField
		}
		return surface.PictureBottomField
	}

	first := surface.NewBuffer(nil)
	if err := first.AdoptSurfaceFrom(inbuf); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBuffer, err)
	}
	first.CopyMetadataFrom(inbuf)
	first.Structure = structure(true)
	first.Timestamp = ts
	first.Duration = s.fieldDuration
	if err := s.emit(first); err != nil {
		return err
	}

	second := surface.NewBuffer(nil)
	if err := second.AdoptSurfaceFrom(inbuf); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBuffer, err)
	}
	second.CopyMetadataFrom(inbuf)
	second.Structure = structure(false)
	second.Timestamp = ts.Add(s.fieldDuration)
	second.Duration = s.fieldDuration
	s.stats.FieldSplitFrames++
	return s.emit(second)
}

// processPassthrough shares the input surface into a single output
// buffer with unchanged metadata.
func (s *Stage) processPassthrough(inbuf *surface.Buffer) error {
	out := surface.NewBuffer(nil)
	if err := out.AdoptSurfaceFrom(inbuf); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBuffer, err)
	}
	out.CopyMetadataFrom(inbuf)
	out.CopyTimestampsFrom(inbuf)
	out.Structure = surface.PictureFrame
	s.stats.PassthroughFrames++
	return s.emit(out)
}
