// Package surface manages accelerator-backed frame surfaces: the
// reference-counted surface proxies, the fixed-capacity pool they are
// drawn from, and the frame buffers that carry one surface plus
// pipeline metadata through the stage.
package surface

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/bryanchriswhite/vppstage/internal/format"
)

// Allocator creates and destroys the actual accelerator surfaces. It
// is the opaque capability boundary: the pool never looks inside a
// surface beyond its descriptor.
type Allocator interface {
	Alloc(desc format.Descriptor) (*Surface, error)
	Free(s *Surface)
}

// Surface is one accelerator-resident frame buffer. Surfaces are
// reference counted: Ref duplicates ownership cheaply (the proxy copy
// used for passthrough) and Release returns the surface to its pool
// once the last owner lets go.
type Surface struct {
	id   uint64
	desc format.Descriptor
	refs atomic.Int32
	pool *Pool

	// Image is the backing store for software surfaces. Hardware
	// allocators leave it nil and track their handle privately.
	Image *image.RGBA
}

var nextSurfaceID atomic.Uint64

// NewSurface wraps allocator-provided storage in a surface. Allocators
// call this; the stage only ever sees surfaces through the pool.
func NewSurface(desc format.Descriptor, img *image.RGBA) *Surface {
	return &Surface{
		id:    nextSurfaceID.Add(1),
		desc:  desc,
		Image: img,
	}
}

// ID returns the unique surface identity, stable across Ref copies.
func (s *Surface) ID() uint64 {
	return s.id
}

// Descriptor returns the format the surface was allocated for.
func (s *Surface) Descriptor() format.Descriptor {
	return s.desc
}

// Ref takes a shared reference on the surface and returns it.
func (s *Surface) Ref() *Surface {
	s.refs.Add(1)
	return s
}

// Release drops one reference. When the last reference is dropped the
// surface returns to its pool, or is freed if the pool is gone.
func (s *Surface) Release() {
	if s == nil {
		return
	}
	if n := s.refs.Add(-1); n == 0 {
		if s.pool != nil {
			s.pool.put(s)
		}
	} else if n < 0 {
		panic(fmt.Sprintf("surface %d over-released", s.id))
	}
}

// RefCount reports the current number of owners.
func (s *Surface) RefCount() int {
	return int(s.refs.Load())
}
