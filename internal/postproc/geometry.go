package postproc

import (
	"github.com/bryanchriswhite/vppstage/internal/format"
)

// effectiveCrop combines the configured crop margins with any crop
// rectangle carried by the input buffer. The margins are resolved
// against the uncropped frame dimensions; a degenerate result is
// treated as no crop at all. The buffer's own rectangle, when present,
// offsets the configured one so both crops apply.
func effectiveCrop(margins format.CropMargins, frameW, frameH int, meta *format.CropRect) *format.CropRect {
	rect := margins.Rect(frameW, frameH)
	if rect == nil {
		if meta == nil {
			return nil
		}
		r := *meta
		return &r
	}
	if meta != nil {
		rect.X += meta.X
		rect.Y += meta.Y
	}
	return rect
}

// scaleFactors returns the horizontal and vertical ratios between the
// cropped input extent and the output extent. Orientations that swap
// dimensions swap the output extent before dividing, so the factors
// stay expressed in input axes.
func scaleFactors(sink, src format.Descriptor, margins format.CropMargins, dir format.Orientation) (fw, fh float64) {
	outW, outH := src.Width, src.Height
	if dir.SwapsDimensions() {
		outW, outH = outH, outW
	}
	inW := sink.Width - margins.Left - margins.Right
	inH := sink.Height - margins.Top - margins.Bottom
	if inW <= 0 || inH <= 0 {
		inW, inH = sink.Width, sink.Height
	}
	if inW <= 0 || inH <= 0 || outW <= 0 || outH <= 0 {
		return 1, 1
	}
	return float64(inW) / float64(outW), float64(inH) / float64(outH)
}

// remapPointer maps a pointer coordinate on the output frame back onto
// the input frame. The inverse orientation transform runs first, in
// output dimensions, then the scale factors and crop offsets restore
// the input coordinate space.
func remapPointer(dir format.Orientation, src format.Descriptor, margins format.CropMargins, fw, fh float64, x, y float64) (float64, float64) {
	outW := float64(src.Width)
	outH := float64(src.Height)

	switch dir {
	case format.Orient90R:
		x, y = y, outW-1-x
	case format.Orient90L:
		x, y = outH-1-y, x
	case format.OrientURLL:
		x, y = outH-1-y, outW-1-x
	case format.OrientULLR:
		x, y = y, x
	case format.Orient180:
		x, y = outW-1-x, outH-1-y
	case format.OrientHoriz:
		x = outW - 1 - x
	case format.OrientVert:
		y = outH - 1 - y
	}

	x = x*fw + float64(margins.Left)
	y = y*fh + float64(margins.Top)
	return x, y
}

// rotateCropMeta rewrites a crop rectangle that is being forwarded
// downstream so it lands on the transformed frame. frameW and frameH
// are the untransformed input frame dimensions the rectangle is
// relative to.
func rotateCropMeta(dir format.Orientation, frameW, frameH int, crop *format.CropRect) {
	if crop == nil {
		return
	}
	switch dir {
	case format.OrientHoriz:
		crop.X = frameW - crop.Width - crop.X
	case format.OrientVert:
		crop.Y = frameH - crop.Height - crop.Y
	case format.Orient90R:
		crop.X, crop.Y = frameH-crop.Height-crop.Y, crop.X
		crop.Width, crop.Height = crop.Height, crop.Width
	case format.Orient180:
		crop.X = frameW - crop.Width - crop.X
		crop.Y = frameH - crop.Height - crop.Y
	case format.Orient90L:
		crop.X, crop.Y = crop.Y, frameW-crop.Width-crop.X
		crop.Width, crop.Height = crop.Height, crop.Width
	case format.OrientURLL:
		crop.X, crop.Y = frameH-crop.Height-crop.Y, frameW-crop.Width-crop.X
		crop.Width, crop.Height = crop.Height, crop.Width
	case format.OrientULLR:
		crop.X, crop.Y = crop.Y, crop.X
		crop.Width, crop.Height = crop.Height, crop.Width
	}
}
