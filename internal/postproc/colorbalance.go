package postproc

import (
	"fmt"

	"github.com/bryanchriswhite/vppstage/internal/engine"
)

// channelScale converts between the integer color-balance interface and
// the engine's float parameter space.
const channelScale = 1000

// ColorChannel describes one adjustable color-balance channel with its
// integer value range.
type ColorChannel struct {
	Name string `json:"name"`
	Min  int    `json:"min"`
	Max  int    `json:"max"`
}

var balanceOps = []engine.Op{
	engine.OpHue,
	engine.OpSaturation,
	engine.OpBrightness,
	engine.OpContrast,
}

func (s *Stage) opInfo(op engine.Op) (engine.OpInfo, bool) {
	if !s.hasVPP {
		return engine.OpInfo{}, false
	}
	for _, info := range s.eng.SupportedOps() {
		if info.Op == op {
			return info, true
		}
	}
	return engine.OpInfo{}, false
}

// ColorChannels lists the color-balance channels the engine supports,
// with ranges scaled to integers.
func (s *Stage) ColorChannels() []ColorChannel {
	s.mu.Lock()
	defer s.mu.Unlock()

	var channels []ColorChannel
	for _, op := range balanceOps {
		info, ok := s.opInfo(op)
		if !ok {
			continue
		}
		channels = append(channels, ColorChannel{
			Name: op.String(),
			Min:  int(info.Min * channelScale),
			Max:  int(info.Max * channelScale),
		})
	}
	return channels
}

// SetColorChannel adjusts one channel by name. Out-of-range values are
// clamped to the channel's range.
func (s *Stage) SetColorChannel(name string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := balanceOp(name)
	if !ok {
		return fmt.Errorf("unknown color channel %q", name)
	}
	info, found := s.opInfo(op)
	if !found {
		return fmt.Errorf("color channel %q not supported by engine", name)
	}

	v := float64(value) / channelScale
	if v < info.Min {
		v = info.Min
	}
	if v > info.Max {
		v = info.Max
	}

	switch op {
	case engine.OpHue:
		s.hue = v
	case engine.OpSaturation:
		s.saturation = v
	case engine.OpBrightness:
		s.brightness = v
	case engine.OpContrast:
		s.contrast = v
	}
	s.flags = s.flags.Set(op)
	return nil
}

// ColorChannelValue returns the current value of one channel, scaled to
// the integer range.
func (s *Stage) ColorChannelValue(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := balanceOp(name)
	if !ok {
		return 0, fmt.Errorf("unknown color channel %q", name)
	}
	var v float64
	switch op {
	case engine.OpHue:
		v = s.hue
	case engine.OpSaturation:
		v = s.saturation
	case engine.OpBrightness:
		v = s.brightness
	case engine.OpContrast:
		v = s.contrast
	}
	return int(v * channelScale), nil
}

func balanceOp(name string) (engine.Op, bool) {
	for _, op := range balanceOps {
		if op.String() == name {
			return op, true
		}
	}
	return 0, false
}
