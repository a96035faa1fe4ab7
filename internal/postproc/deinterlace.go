package postproc

import (
	"github.com/bryanchriswhite/vppstage/internal/engine"
	"github.com/bryanchriswhite/vppstage/internal/format"
	"github.com/bryanchriswhite/vppstage/internal/surface"
)

// maxDeintReferences bounds the reference history kept for
// motion-based deinterlacing methods.
const maxDeintReferences = 2

// deintState is the per-stream deinterlacing state: a fixed ring of
// reference frames plus the last per-frame decision and field order.
// The ring holds its own surface references so frames stay alive after
// the caller releases the input buffer.
type deintState struct {
	buffers  [maxDeintReferences]*surface.Buffer
	index    int
	active   bool
	tff      bool
	surfaces []*surface.Surface
}

// reset drops all reference history. Called whenever the deinterlace
// decision or the field order changes, and on renegotiation.
func (ds *deintState) reset() {
	for i := range ds.buffers {
		if ds.buffers[i] != nil {
			ds.buffers[i].Release()
			ds.buffers[i] = nil
		}
	}
	ds.index = 0
	ds.surfaces = ds.surfaces[:0]
}

// add records buf as the most recent reference, evicting the oldest
// entry once the ring is full. The stored buffer holds its own surface
// reference.
func (ds *deintState) add(buf *surface.Buffer) {
	if buf.Surface() == nil {
		return
	}
	ref := surface.NewBuffer(buf.Surface().Ref())
	ref.CopyMetadataFrom(buf)
	ref.CopyTimestampsFrom(buf)

	if ds.buffers[ds.index] != nil {
		ds.buffers[ds.index].Release()
	}
	ds.buffers[ds.index] = ref
	ds.index = (ds.index + 1) % maxDeintReferences
}

// at returns the i-th reference counted back from the most recent one,
// or nil when the history is shorter than that.
func (ds *deintState) at(i int) *surface.Buffer {
	n := (ds.index + maxDeintReferences - i - 1) % maxDeintReferences
	return ds.buffers[n]
}

// historyLen reports how many consecutive references are available,
// counting from the most recent.
func (ds *deintState) historyLen() int {
	n := 0
	for i := 0; i < maxDeintReferences; i++ {
		if ds.at(i) == nil {
			break
		}
		n++
	}
	return n
}

// references returns the reference surfaces ordered most recent first.
// The returned slice is reused across calls.
func (ds *deintState) references() []*surface.Surface {
	ds.surfaces = ds.surfaces[:0]
	for i := 0; i < maxDeintReferences; i++ {
		buf := ds.at(i)
		if buf == nil {
			break
		}
		ds.surfaces = append(ds.surfaces, buf.Surface())
	}
	return ds.surfaces
}

// deinterlaceEnabled reports whether the negotiated stream can produce
// interlaced frames that the configured mode wants deinterlaced. This
// drives negotiation-time decisions such as field-rate output.
func deinterlaceEnabled(mode engine.DeintMode, desc format.Descriptor) bool {
	switch mode {
	case engine.DeintModeForced:
		return true
	case engine.DeintModeAuto:
		return desc.Interlace != format.Progressive
	}
	return false
}

// shouldDeinterlace is the per-frame decision. Forced mode always
// deinterlaces; auto mode follows the negotiated interlace mode, and
// for mixed streams the per-buffer interlaced flag.
func (s *Stage) shouldDeinterlace(buf *surface.Buffer) bool {
	if !s.flags.Has(engine.OpDeinterlace) || s.deintMode == engine.DeintModeDisabled {
		return false
	}
	if s.deintMode == engine.DeintModeForced {
		return true
	}
	switch s.sinkInfo.Interlace {
	case format.Interleaved:
		return true
	case format.Mixed:
		return buf.InterlacedContent
	}
	return false
}

// setBestDeintMethod configures the requested deinterlacing method on
// the engine, walking the fallback ladder (motion compensated, motion
// adaptive, bob) until one is accepted. It returns the method that was
// applied and whether any method was accepted at all.
func (s *Stage) setBestDeintMethod(method engine.DeintMethod, flags engine.DeintFlags) (engine.DeintMethod, bool) {
	for {
		if s.eng.SetDeinterlacing(method, flags) {
			return method, true
		}
		if method == engine.DeintBob || method == engine.DeintNone {
			return method, false
		}
		next := method.Next()
		s.log.Debug().
			Str("from", method.String()).
			Str("to", next.String()).
			Msg("deinterlacing method rejected, falling back")
		method = next
	}
}
