package format

import "fmt"

// Orientation is one of the nine supported video directions: identity,
// the three rotations, the two axis flips and the two diagonal flips,
// plus Auto which defers to the stream's image-orientation tag.
type Orientation int

const (
	OrientIdentity Orientation = iota
	Orient90R
	Orient180
	Orient90L
	OrientHoriz
	OrientVert
	// OrientULLR flips across the upper-left / lower-right diagonal.
	OrientULLR
	// OrientURLL flips across the upper-right / lower-left diagonal.
	OrientURLL
	OrientAuto
)

var orientationNames = map[Orientation]string{
	OrientIdentity: "identity",
	Orient90R:      "90r",
	Orient180:      "180",
	Orient90L:      "90l",
	OrientHoriz:    "horiz",
	OrientVert:     "vert",
	OrientULLR:     "ul-lr",
	OrientURLL:     "ur-ll",
	OrientAuto:     "auto",
}

func (o Orientation) String() string {
	if name, ok := orientationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Orientation(%d)", int(o))
}

// SwapsDimensions reports whether the orientation exchanges width and
// height (the four 90-degree cases).
func (o Orientation) SwapsDimensions() bool {
	switch o {
	case Orient90R, Orient90L, OrientULLR, OrientURLL:
		return true
	default:
		return false
	}
}

// orientationTags maps the recognized image-orientation tag values to
// orientations.
var orientationTags = map[string]Orientation{
	"rotate-0":        OrientIdentity,
	"rotate-90":       Orient90R,
	"rotate-180":      Orient180,
	"rotate-270":      Orient90L,
	"flip-rotate-0":   OrientHoriz,
	"flip-rotate-90":  OrientULLR,
	"flip-rotate-180": OrientVert,
	"flip-rotate-270": OrientURLL,
}

// ParseOrientationTag maps an image-orientation tag string to an
// orientation. Unrecognized tags return false.
func ParseOrientationTag(tag string) (Orientation, bool) {
	o, ok := orientationTags[tag]
	return o, ok
}

// ParseOrientation maps a configuration string ("identity", "90r",
// "180", "90l", "horiz", "vert", "ul-lr", "ur-ll", "auto") to an
// orientation.
func ParseOrientation(s string) (Orientation, bool) {
	for o, name := range orientationNames {
		if name == s {
			return o, true
		}
	}
	return OrientIdentity, false
}
