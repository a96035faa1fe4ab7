package postproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/vppstage/internal/engine"
	"github.com/bryanchriswhite/vppstage/internal/format"
)

func surfacePeer() format.Caps {
	var caps format.Caps
	caps.Append(format.Structure{
		Memory:         format.MemSurface,
		InterlaceModes: []format.InterlaceMode{format.Progressive, format.Interleaved, format.Mixed},
	})
	return caps
}

func rawPeer(formats ...format.PixelFormat) format.Caps {
	var caps format.Caps
	caps.Append(format.Structure{
		Memory:         format.MemRaw,
		Formats:        formats,
		InterlaceModes: []format.InterlaceMode{format.Progressive, format.Interleaved, format.Mixed},
	})
	return caps
}

func TestUpstreamCapsAcceptsSurfacesAndRaw(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)

	caps := s.UpstreamCaps()
	require.Len(t, caps.Structures, 2)

	assert.Equal(t, format.MemSurface, caps.Structures[0].Memory)
	assert.ElementsMatch(t,
		[]format.InterlaceMode{format.Progressive, format.Interleaved, format.Mixed},
		caps.Structures[0].InterlaceModes)

	assert.Equal(t, format.MemRaw, caps.Structures[1].Memory)
	assert.Equal(t, eng.SupportedFormats(), caps.Structures[1].Formats)
}

func TestDownstreamCapsLeadsRawWithEncodedMarker(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)

	caps := s.DownstreamCaps()
	require.Len(t, caps.Structures, 2)

	assert.Equal(t, format.MemSurface, caps.Structures[0].Memory)
	// Surface output is progressive only.
	assert.Empty(t, caps.Structures[0].InterlaceModes)

	raw := caps.Structures[1]
	assert.Equal(t, format.MemRaw, raw.Memory)
	require.NotEmpty(t, raw.Formats)
	assert.Equal(t, format.FormatEncoded, raw.Formats[0])
	assert.Equal(t, eng.SupportedFormats(), raw.Formats[1:])
}

func TestDownstreamCapsGLOnlyWithoutDMABuf(t *testing.T) {
	eng := newFakeEngine()
	var sink collector

	gl := NewStage(eng, memAllocator{}, sink.push, WithOpenGL(true))
	kinds := memoryKinds(gl.DownstreamCaps())
	assert.Contains(t, kinds, format.MemGLTextureUpload)
	assert.NotContains(t, kinds, format.MemDMABuf)

	both := NewStage(eng, memAllocator{}, sink.push, WithOpenGL(true), WithDMABuf(true))
	kinds = memoryKinds(both.DownstreamCaps())
	assert.NotContains(t, kinds, format.MemGLTextureUpload)
	assert.Contains(t, kinds, format.MemDMABuf)
}

func memoryKinds(caps format.Caps) []format.MemoryKind {
	out := make([]format.MemoryKind, 0, len(caps.Structures))
	for _, s := range caps.Structures {
		out = append(out, s.Memory)
	}
	return out
}

func TestTransformCapsAppliesFilter(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)

	filter := rawPeer(format.FormatNV12)
	caps := s.TransformCaps(true, &filter)
	require.Len(t, caps.Structures, 1)
	assert.Equal(t, format.MemRaw, caps.Structures[0].Memory)
	assert.Equal(t, []format.PixelFormat{format.FormatNV12}, caps.Structures[0].Formats)
}

func TestFixateSourceKeepsSinkFormat(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)

	in := descriptor(format.FormatNV12, 1280, 720, format.Progressive, 30, 1)
	out, err := s.FixateSource(in, surfacePeer())
	require.NoError(t, err)
	assert.Equal(t, format.FormatNV12, out.Format)
	assert.Equal(t, 1280, out.Width)
	assert.Equal(t, 720, out.Height)
	assert.Equal(t, format.Progressive, out.Interlace)
	assert.Equal(t, in.FrameRate, out.FrameRate)
}

func TestFixateSourceForcedFormat(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)
	s.SetForcedFormat(format.FormatI420)

	in := descriptor(format.FormatNV12, 1280, 720, format.Progressive, 30, 1)
	out, err := s.FixateSource(in, rawPeer(format.FormatNV12, format.FormatI420))
	require.NoError(t, err)
	assert.Equal(t, format.FormatI420, out.Format)
}

func TestFixateSourceRotationSwapsDimensions(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)
	s.SetVideoDirection(format.Orient90R)

	in := descriptor(format.FormatNV12, 1280, 720, format.Progressive, 30, 1)
	out, err := s.FixateSource(in, surfacePeer())
	require.NoError(t, err)
	assert.Equal(t, 720, out.Width)
	assert.Equal(t, 1280, out.Height)
}

func TestFixateSourceAutoDirectionFollowsTag(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)
	s.SetVideoDirection(format.OrientAuto)
	require.True(t, s.HandleOrientationTag("rotate-90"))

	in := descriptor(format.FormatNV12, 1280, 720, format.Progressive, 30, 1)
	out, err := s.FixateSource(in, surfacePeer())
	require.NoError(t, err)
	assert.Equal(t, 720, out.Width)
	assert.Equal(t, 1280, out.Height)
}

func TestFixateSourceCropReducesSize(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)
	s.SetCropMargins(format.CropMargins{Left: 10, Right: 30, Top: 8, Bottom: 2})

	in := descriptor(format.FormatNV12, 640, 480, format.Progressive, 30, 1)
	out, err := s.FixateSource(in, surfacePeer())
	require.NoError(t, err)
	assert.Equal(t, 600, out.Width)
	assert.Equal(t, 470, out.Height)
}

func TestFixateSourceDegenerateCropFallsBack(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)
	s.SetCropMargins(format.CropMargins{Left: 400, Right: 400})

	in := descriptor(format.FormatNV12, 640, 480, format.Progressive, 30, 1)
	out, err := s.FixateSource(in, surfacePeer())
	require.NoError(t, err)
	assert.Equal(t, 640, out.Width)
	assert.Equal(t, 480, out.Height)
}

func TestFixateSourceForcedSizeKeepAspect(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)
	s.SetKeepAspect(true)
	s.SetForcedSize(960, 0)

	in := descriptor(format.FormatNV12, 1920, 1080, format.Progressive, 30, 1)
	out, err := s.FixateSource(in, surfacePeer())
	require.NoError(t, err)
	assert.Equal(t, 960, out.Width)
	assert.Equal(t, 540, out.Height)

	s.SetForcedSize(0, 270)
	out, err = s.FixateSource(in, surfacePeer())
	require.NoError(t, err)
	assert.Equal(t, 480, out.Width)
	assert.Equal(t, 270, out.Height)
}

func TestFixateSourceDeinterlaceForcesProgressive(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)

	in := descriptor(format.FormatNV12, 720, 576, format.Interleaved, 25, 1)
	peer := format.Caps{}
	peer.Append(format.Structure{
		Memory:         format.MemRaw,
		Formats:        []format.PixelFormat{format.FormatNV12},
		InterlaceModes: []format.InterlaceMode{format.Interleaved},
	})
	out, err := s.FixateSource(in, peer)
	require.NoError(t, err)
	assert.Equal(t, format.Progressive, out.Interlace)
}

func TestFixateSourceNoCommonCaps(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)

	var peer format.Caps
	peer.Append(format.Structure{Memory: format.MemDMABuf})

	in := descriptor(format.FormatNV12, 640, 480, format.Progressive, 30, 1)
	_, err := s.FixateSource(in, peer)
	assert.ErrorIs(t, err, ErrNegotiationFailed)
}

func TestSetCapsRejectsColorimetryFailure(t *testing.T) {
	eng := newFakeEngine()
	eng.rejectColorimetry = true
	var sink collector
	s := newTestStage(eng, &sink)

	desc := descriptor(format.FormatNV12, 640, 480, format.Progressive, 30, 1)
	assert.ErrorIs(t, s.SetCaps(desc, desc), ErrNegotiationFailed)
}

func TestSetCapsComputesFieldDuration(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)

	sinkDesc := descriptor(format.FormatNV12, 720, 480, format.Interleaved, 30000, 1001)
	srcDesc := descriptor(format.FormatNV12, 720, 480, format.Progressive, 30000, 1001)
	require.NoError(t, s.SetCaps(sinkDesc, srcDesc))
	assert.Equal(t, format.NewFraction(1001, 60000), s.fieldDuration)

	// Without deinterlacing the full frame period applies.
	prog := descriptor(format.FormatNV12, 720, 480, format.Progressive, 30000, 1001)
	require.NoError(t, s.SetCaps(prog, prog))
	assert.Equal(t, format.NewFraction(1001, 30000), s.fieldDuration)
}

func TestSetCapsPoolUsesForcedFormat(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)
	s.SetForcedFormat(format.FormatI420)

	sinkDesc := descriptor(format.FormatNV12, 64, 64, format.Progressive, 30, 1)
	srcDesc := descriptor(format.FormatI420, 64, 64, format.Progressive, 30, 1)
	require.NoError(t, s.SetCaps(sinkDesc, srcDesc))

	buf, err := s.pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, format.FormatI420, buf.Descriptor().Format)
	buf.Release()
}

func TestSetCapsHDRWarnsOnly(t *testing.T) {
	eng := newFakeEngine()
	eng.rejectHDR = true
	var sink collector
	s := newTestStage(eng, &sink)

	desc := descriptor(format.FormatNV12, 640, 480, format.Progressive, 30, 1)
	desc.Mastering = &format.MasteringDisplay{MaxLuminance: 1000}
	assert.NoError(t, s.SetCaps(desc, desc))
	// The engine declined, so nothing blocks passthrough.
	assert.True(t, s.Passthrough())
}

func TestSetCapsEngagesHDRToneMap(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)

	hdr := descriptor(format.FormatNV12, 640, 480, format.Progressive, 30, 1)
	hdr.Mastering = &format.MasteringDisplay{MaxLuminance: 4000}
	require.NoError(t, s.SetCaps(hdr, hdr))

	// Tone mapping is active: identical caps alone must not re-enable
	// passthrough, every frame needs the engine.
	assert.False(t, s.Passthrough())
	in := inputBuffer(t, hdr, 0)
	require.NoError(t, s.Process(in))
	in.Release()
	assert.Equal(t, 1, eng.processed)

	// An SDR renegotiation disengages it and passthrough returns.
	sdr := descriptor(format.FormatNV12, 640, 480, format.Progressive, 30, 1)
	require.NoError(t, s.SetCaps(sdr, sdr))
	assert.True(t, s.Passthrough())
}

func TestHDRPolicyChangeDoesNotBlockPassthrough(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)
	s.SetHDRToneMap(engine.HDRToneMapDisabled)

	desc := descriptor(format.FormatNV12, 640, 480, format.Progressive, 30, 1)
	require.NoError(t, s.SetCaps(desc, desc))
	assert.True(t, s.Passthrough())

	in := inputBuffer(t, desc, 0)
	require.NoError(t, s.Process(in))
	in.Release()
	assert.Equal(t, 0, eng.processed)
	assert.Equal(t, uint64(1), s.Stats().PassthroughFrames)
}

func TestHDRDisabledPolicySkipsMapping(t *testing.T) {
	eng := newFakeEngine()
	var sink collector
	s := newTestStage(eng, &sink)
	s.SetHDRToneMap(engine.HDRToneMapDisabled)

	hdr := descriptor(format.FormatNV12, 640, 480, format.Progressive, 30, 1)
	hdr.Mastering = &format.MasteringDisplay{MaxLuminance: 4000}
	require.NoError(t, s.SetCaps(hdr, hdr))
	assert.True(t, s.Passthrough())
}

func TestStageWithoutEngineStaysPassthrough(t *testing.T) {
	var sink collector
	s := NewStage(nil, memAllocator{}, sink.push, WithPoolCapacity(2))

	caps := s.UpstreamCaps()
	require.Len(t, caps.Structures, 1)
	assert.Equal(t, format.MemSurface, caps.Structures[0].Memory)

	desc := descriptor(format.FormatNV12, 64, 64, format.Progressive, 30, 1)
	require.NoError(t, s.SetCaps(desc, desc))
	assert.True(t, s.Passthrough())

	in := inputBuffer(t, desc, 0)
	require.NoError(t, s.Process(in))
	in.Release()
	require.Len(t, sink.recs, 1)
	assert.Equal(t, uint64(1), s.Stats().PassthroughFrames)
}
