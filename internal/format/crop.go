package format

import "fmt"

// CropRect is a cropping rectangle in pixels, relative to the
// negotiated input frame.
type CropRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether the rectangle has positive area.
func (r CropRect) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

func (r CropRect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// CropMargins are the configured crop distances from each frame edge.
type CropMargins struct {
	Left   int `json:"left" yaml:"left"`
	Right  int `json:"right" yaml:"right"`
	Top    int `json:"top" yaml:"top"`
	Bottom int `json:"bottom" yaml:"bottom"`
}

// IsZero reports whether no cropping is configured.
func (m CropMargins) IsZero() bool {
	return m.Left == 0 && m.Right == 0 && m.Top == 0 && m.Bottom == 0
}

// Rect converts the margins to a rectangle inside a frame of the given
// size. A degenerate result (zero or negative remaining size) returns
// nil: the crop is treated as absent rather than producing an invalid
// rectangle.
func (m CropMargins) Rect(frameWidth, frameHeight int) *CropRect {
	r := CropRect{
		X:      m.Left,
		Y:      m.Top,
		Width:  frameWidth - m.Left - m.Right,
		Height: frameHeight - m.Top - m.Bottom,
	}
	if !r.Valid() {
		return nil
	}
	return &r
}
