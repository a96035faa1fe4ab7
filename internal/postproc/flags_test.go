package postproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/vppstage/internal/engine"
	"github.com/bryanchriswhite/vppstage/internal/format"
)

func newTestStage(eng engine.Engine, sink *collector) *Stage {
	return NewStage(eng, memAllocator{}, sink.push, WithPoolCapacity(4))
}

func TestCommitOrder(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)

	s.SetForcedFormat(format.FormatI420)
	s.SetDenoise(0.5)
	s.SetSharpen(0.5)
	s.SetHue(10)
	s.SetSaturation(1.5)
	s.SetBrightness(0.2)
	s.SetContrast(1.2)
	s.SetScaleMethod(engine.ScaleHQ)
	s.SetVideoDirection(format.Orient180)
	s.SetSkinToneLevel(5)

	s.mu.Lock()
	require.NoError(t, s.commit())
	s.mu.Unlock()

	assert.Equal(t, []string{
		"format", "denoise", "sharpen", "hue", "saturation",
		"brightness", "contrast", "scaling", "direction", "skin-tone-level",
	}, eng.calls)
}

func TestCommitClearsFlagsAtDefault(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)

	// Non-default value: the flag stays pending after commit.
	s.SetDenoise(0.5)
	s.mu.Lock()
	require.NoError(t, s.commit())
	assert.True(t, s.flags.Has(engine.OpDenoise))
	s.mu.Unlock()

	// Back to the engine default: the flag converges away.
	s.SetDenoise(0)
	s.mu.Lock()
	require.NoError(t, s.commit())
	assert.False(t, s.flags.Has(engine.OpDenoise))

	// A second commit with nothing pending touches nothing.
	calls := len(eng.calls)
	require.NoError(t, s.commit())
	assert.Equal(t, calls, len(eng.calls))
	s.mu.Unlock()
}

func TestCommitDirectionRejectionWarnsOnly(t *testing.T) {
	eng := newFakeEngine()
	eng.rejectDirection = true
	var sink collector
	s := newTestStage(eng, &sink)

	s.SetVideoDirection(format.Orient90R)
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.NoError(t, s.commit())
	// The engine kept its previous direction, which is the default, so
	// the flag converges.
	assert.False(t, s.flags.Has(engine.OpVideoDirection))
}

func TestCommitSkinToneLevelSupersedesLegacy(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)

	s.SetSkinTone(true)
	s.SetSkinToneLevel(7)

	s.mu.Lock()
	defer s.mu.Unlock()
	require.NoError(t, s.commit())

	assert.Contains(t, eng.calls, "skin-tone-level")
	assert.NotContains(t, eng.calls, "skin-tone")
	assert.False(t, s.flags.Has(engine.OpSkinTone))
}

func TestCommitCropValidity(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)

	s.SetCropMargins(format.CropMargins{Left: 8})
	s.mu.Lock()
	require.NoError(t, s.commit())
	assert.True(t, s.flags.Has(engine.OpCrop))
	s.mu.Unlock()

	s.SetCropMargins(format.CropMargins{})
	s.mu.Lock()
	require.NoError(t, s.commit())
	assert.False(t, s.flags.Has(engine.OpCrop))
	s.mu.Unlock()
}

func TestCommitAutoDirectionFollowsTag(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)

	s.SetVideoDirection(format.OrientAuto)
	require.True(t, s.HandleOrientationTag("rotate-90"))

	s.mu.Lock()
	defer s.mu.Unlock()
	require.NoError(t, s.commit())
	assert.Equal(t, format.Orient90R, eng.direction)
}

func TestFilterDirtyRange(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)

	s.mu.Lock()
	assert.False(t, s.filterDirty())
	// Format sits outside the filter range.
	s.flags = s.flags.Set(engine.OpFormat)
	assert.False(t, s.filterDirty())
	s.flags = s.flags.Set(engine.OpSharpen)
	assert.True(t, s.filterDirty())
	s.mu.Unlock()
}
