package format

import (
	"fmt"
	"strings"
)

// MemoryKind identifies the memory family a capability structure
// applies to.
type MemoryKind int

const (
	// MemRaw is system-memory video frames.
	MemRaw MemoryKind = iota
	// MemSurface is accelerator-backed surface memory.
	MemSurface
	// MemDMABuf is direct-memory-access exported buffers.
	MemDMABuf
	// MemGLTextureUpload marks GPU-texture-upload capability.
	MemGLTextureUpload
)

func (k MemoryKind) String() string {
	switch k {
	case MemRaw:
		return "raw"
	case MemSurface:
		return "surface"
	case MemDMABuf:
		return "dmabuf"
	case MemGLTextureUpload:
		return "gl-texture-upload"
	default:
		return fmt.Sprintf("MemoryKind(%d)", int(k))
	}
}

// Structure is one alternative within a capability set: a memory kind
// with the pixel formats and interlace modes acceptable for it. Empty
// Formats means any format; empty InterlaceModes means progressive
// only.
type Structure struct {
	Memory         MemoryKind
	Formats        []PixelFormat
	InterlaceModes []InterlaceMode
}

func (s Structure) hasFormat(f PixelFormat) bool {
	if len(s.Formats) == 0 {
		return true
	}
	for _, sf := range s.Formats {
		if sf == f {
			return true
		}
	}
	return false
}

func (s Structure) hasInterlaceMode(m InterlaceMode) bool {
	if len(s.InterlaceModes) == 0 {
		return m == Progressive
	}
	for _, sm := range s.InterlaceModes {
		if sm == m {
			return true
		}
	}
	return false
}

// Caps is an ordered set of capability structures. Order matters:
// earlier structures are preferred during fixation.
type Caps struct {
	Structures []Structure
}

// IsEmpty reports whether no structure remains.
func (c Caps) IsEmpty() bool {
	return len(c.Structures) == 0
}

// Append adds a structure at the end of the set.
func (c *Caps) Append(s Structure) {
	c.Structures = append(c.Structures, s)
}

// Intersect keeps, in c's order, every combination acceptable to both
// sets. Structures that share a memory kind intersect their format and
// interlace lists; a combination with no common entries is dropped.
func (c Caps) Intersect(o Caps) Caps {
	var out Caps
	for _, cs := range c.Structures {
		for _, os := range o.Structures {
			if cs.Memory != os.Memory {
				continue
			}
			if s, ok := intersectStructures(cs, os); ok {
				out.Append(s)
			}
		}
	}
	return out
}

func intersectStructures(a, b Structure) (Structure, bool) {
	out := Structure{Memory: a.Memory}

	switch {
	case len(a.Formats) == 0:
		out.Formats = append(out.Formats, b.Formats...)
	case len(b.Formats) == 0:
		out.Formats = append(out.Formats, a.Formats...)
	default:
		for _, f := range a.Formats {
			if b.hasFormat(f) {
				out.Formats = append(out.Formats, f)
			}
		}
		if len(out.Formats) == 0 {
			return Structure{}, false
		}
	}

	modes := a.InterlaceModes
	if len(modes) == 0 {
		modes = []InterlaceMode{Progressive}
	}
	for _, m := range modes {
		if b.hasInterlaceMode(m) {
			out.InterlaceModes = append(out.InterlaceModes, m)
		}
	}
	if len(out.InterlaceModes) == 0 {
		return Structure{}, false
	}
	return out, true
}

// Supports reports whether any structure accepts the given memory kind,
// format and interlace mode.
func (c Caps) Supports(mem MemoryKind, f PixelFormat, m InterlaceMode) bool {
	for _, s := range c.Structures {
		if s.Memory == mem && s.hasFormat(f) && s.hasInterlaceMode(m) {
			return true
		}
	}
	return false
}

// Fixate selects one concrete (memory, format, interlace) triple from
// the set: the first structure's first entries, preferring the hinted
// format when the structure accepts it.
func (c Caps) Fixate(preferred PixelFormat) (MemoryKind, PixelFormat, InterlaceMode, error) {
	if c.IsEmpty() {
		return 0, FormatUnknown, Progressive, fmt.Errorf("no common capability")
	}
	s := c.Structures[0]

	f := preferred
	if f == FormatUnknown || f == FormatEncoded || !s.hasFormat(f) {
		if len(s.Formats) == 0 {
			f = FormatNV12
		} else {
			f = s.Formats[0]
			// Skip the encoded marker: it is a negotiation hint, not a
			// concrete layout.
			for _, cand := range s.Formats {
				if cand != FormatEncoded {
					f = cand
					break
				}
			}
		}
	}

	m := Progressive
	if len(s.InterlaceModes) > 0 {
		m = s.InterlaceModes[0]
	}
	return s.Memory, f, m, nil
}

func (c Caps) String() string {
	var parts []string
	for _, s := range c.Structures {
		parts = append(parts, fmt.Sprintf("%s%v%v", s.Memory, s.Formats, s.InterlaceModes))
	}
	return strings.Join(parts, "; ")
}
