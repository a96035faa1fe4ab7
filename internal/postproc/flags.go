package postproc

import (
	"fmt"

	"github.com/bryanchriswhite/vppstage/internal/engine"
	"github.com/bryanchriswhite/vppstage/internal/format"
)

// filterDirty reports whether any filter flag in the denoise through
// skin-tone-level range is pending. Format and crop sit outside this
// range: they feed negotiation, not the per-frame filter commit check.
func (s *Stage) filterDirty() bool {
	if !s.hasVPP {
		return false
	}
	for op := engine.OpDenoise; op <= engine.OpSkinToneLevel; op++ {
		if s.flags.Has(op) {
			return true
		}
	}
	return false
}

func rejected(op engine.Op) error {
	return fmt.Errorf("%w: %s", ErrFilterRejected, op)
}

// commit pushes every dirty parameter to the engine in a fixed order:
// format, denoise, sharpen, hue, saturation, brightness, contrast,
// scaling, video direction, crop validity, skin tone. A flag is
// cleared only when the committed value equals the engine default, so
// a second commit with no intervening changes is a no-op. A rejected
// video direction only logs a warning; any other rejection aborts the
// commit.
func (s *Stage) commit() error {
	if !s.hasVPP {
		return nil
	}

	if s.flags.Has(engine.OpFormat) {
		if !s.eng.SetFormat(s.forcedFormat) {
			return rejected(engine.OpFormat)
		}
	}
	if s.flags.Has(engine.OpDenoise) {
		if !s.eng.SetDenoiseLevel(s.denoise) {
			return rejected(engine.OpDenoise)
		}
		if s.denoise == s.eng.DenoiseLevelDefault() {
			s.flags = s.flags.Clear(engine.OpDenoise)
		}
	}
	if s.flags.Has(engine.OpSharpen) {
		if !s.eng.SetSharpenLevel(s.sharpen) {
			return rejected(engine.OpSharpen)
		}
		if s.sharpen == s.eng.SharpenLevelDefault() {
			s.flags = s.flags.Clear(engine.OpSharpen)
		}
	}
	if s.flags.Has(engine.OpHue) {
		if !s.eng.SetHue(s.hue) {
			return rejected(engine.OpHue)
		}
		if s.hue == s.eng.HueDefault() {
			s.flags = s.flags.Clear(engine.OpHue)
		}
	}
	if s.flags.Has(engine.OpSaturation) {
		if !s.eng.SetSaturation(s.saturation) {
			return rejected(engine.OpSaturation)
		}
		if s.saturation == s.eng.SaturationDefault() {
			s.flags = s.flags.Clear(engine.OpSaturation)
		}
	}
	if s.flags.Has(engine.OpBrightness) {
		if !s.eng.SetBrightness(s.brightness) {
			return rejected(engine.OpBrightness)
		}
		if s.brightness == s.eng.BrightnessDefault() {
			s.flags = s.flags.Clear(engine.OpBrightness)
		}
	}
	if s.flags.Has(engine.OpContrast) {
		if !s.eng.SetContrast(s.contrast) {
			return rejected(engine.OpContrast)
		}
		if s.contrast == s.eng.ContrastDefault() {
			s.flags = s.flags.Clear(engine.OpContrast)
		}
	}
	if s.flags.Has(engine.OpScaling) {
		if !s.eng.SetScaleMethod(s.scaleMethod) {
			return rejected(engine.OpScaling)
		}
	}
	if s.flags.Has(engine.OpVideoDirection) {
		dir := s.direction
		if dir == format.OrientAuto {
			dir = s.tagDirection
		}
		if !s.eng.SetVideoDirection(dir) {
			s.log.Warn().
				Str("direction", dir.String()).
				Msg("video direction not supported, keeping previous")
		}
		if s.eng.VideoDirection() == s.eng.VideoDirectionDefault() {
			s.flags = s.flags.Clear(engine.OpVideoDirection)
		}
	}
	if s.flags.Has(engine.OpCrop) && s.crop.IsZero() {
		s.flags = s.flags.Clear(engine.OpCrop)
	}
	if s.flags.Has(engine.OpSkinToneLevel) {
		if !s.eng.SetSkinToneLevel(s.skinToneLevel) {
			return rejected(engine.OpSkinToneLevel)
		}
		if s.skinToneLevel == s.eng.SkinToneLevelDefault() {
			s.flags = s.flags.Clear(engine.OpSkinToneLevel)
		}
		// The level property supersedes the boolean one.
		s.flags = s.flags.Clear(engine.OpSkinTone)
	} else if s.flags.Has(engine.OpSkinTone) {
		if !s.eng.SetSkinTone(s.skinTone) {
			return rejected(engine.OpSkinTone)
		}
		if s.skinTone == s.eng.SkinToneDefault() {
			s.flags = s.flags.Clear(engine.OpSkinTone)
		}
	}
	return nil
}

// updatePassthrough recomputes whether frames can bypass processing
// entirely. Passthrough requires identical sink and source formats and
// no pending filter work after a commit.
func (s *Stage) updatePassthrough() {
	filterUpdated := false
	if s.filterDirty() {
		if err := s.commit(); err != nil {
			s.log.Warn().Err(err).Msg("filter commit failed")
			filterUpdated = true
		} else {
			filterUpdated = s.filterDirty()
		}
	}
	s.passthrough = s.sameCaps && !filterUpdated
	s.log.Debug().
		Bool("passthrough", s.passthrough).
		Bool("same_caps", s.sameCaps).
		Bool("filter_updated", filterUpdated).
		Msg("passthrough updated")
}
