package surface

import (
	"errors"

	"github.com/bryanchriswhite/vppstage/internal/format"
)

// ErrNoSurface is returned when a buffer that must carry a surface has
// none attached.
var ErrNoSurface = errors.New("surface: buffer has no surface attached")

// PictureStructure marks which temporal sample an output frame carries.
type PictureStructure int

const (
	PictureFrame PictureStructure = iota
	PictureTopField
	PictureBottomField
)

func (p PictureStructure) String() string {
	switch p {
	case PictureFrame:
		return "frame"
	case PictureTopField:
		return "top-field"
	case PictureBottomField:
		return "bottom-field"
	default:
		return "unknown"
	}
}

// Buffer is one pipeline frame: timing and flag metadata plus exactly
// one owned surface reference. The owner must call Release on every
// exit path that does not hand the buffer downstream.
type Buffer struct {
	// Timestamp and Duration are rational seconds.
	Timestamp format.Fraction
	Duration  format.Fraction

	Discont           bool
	TopFieldFirst     bool
	InterlacedContent bool

	// Crop is optional per-frame crop metadata attached upstream or
	// forwarded downstream.
	Crop *format.CropRect

	// Structure tags field-split outputs on the no-filter path.
	Structure PictureStructure

	surf *Surface
}

// NewBuffer wraps an owned surface reference in a fresh buffer. The
// buffer takes over the caller's reference.
func NewBuffer(s *Surface) *Buffer {
	return &Buffer{surf: s}
}

// Surface returns the attached surface, which may be nil.
func (b *Buffer) Surface() *Surface {
	return b.surf
}

// AttachSurface installs an owned surface reference, releasing any
// prior one.
func (b *Buffer) AttachSurface(s *Surface) {
	if b.surf != nil && b.surf != s {
		b.surf.Release()
	}
	b.surf = s
}

// AdoptSurfaceFrom takes a shared reference on src's surface: the
// proxy copy used for passthrough. src keeps its own reference.
func (b *Buffer) AdoptSurfaceFrom(src *Buffer) error {
	if src.surf == nil {
		return ErrNoSurface
	}
	b.AttachSurface(src.surf.Ref())
	return nil
}

// CopyMetadataFrom copies flags and crop metadata from src, leaving
// timestamps and the surface alone.
func (b *Buffer) CopyMetadataFrom(src *Buffer) {
	b.Discont = src.Discont
	b.TopFieldFirst = src.TopFieldFirst
	b.InterlacedContent = src.InterlacedContent
	if src.Crop != nil {
		crop := *src.Crop
		b.Crop = &crop
	} else {
		b.Crop = nil
	}
}

// CopyTimestampsFrom copies timestamp and duration from src.
func (b *Buffer) CopyTimestampsFrom(src *Buffer) {
	b.Timestamp = src.Timestamp
	b.Duration = src.Duration
}

// Release drops the buffer's surface reference. Safe on a buffer with
// no surface and idempotent.
func (b *Buffer) Release() {
	if b == nil || b.surf == nil {
		return
	}
	b.surf.Release()
	b.surf = nil
}
