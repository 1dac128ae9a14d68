package processor

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/codectest/pkg/config"
	"github.com/user/codectest/pkg/mocks"
	"github.com/user/codectest/pkg/stats"
	"github.com/user/codectest/pkg/video"
)

const (
	testWidth  = 32
	testHeight = 24
)

func testConfig() config.TestConfig {
	cfg := config.Defaults()
	cfg.Width = testWidth
	cfg.Height = testHeight
	cfg.NumFrames = 8
	cfg.Codec.MaxFramerate = 30
	return cfg
}

type harness struct {
	enc    *mocks.VideoEncoder
	dec    *mocks.VideoDecoder
	reader *mocks.FrameReader
	stats  *stats.Stats
	p      *VideoProcessor
}

func newHarness(t *testing.T, cfg config.TestConfig, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		enc:    &mocks.VideoEncoder{Codec: cfg.CodecType()},
		dec:    &mocks.VideoDecoder{},
		reader: mocks.NewFrameReader(cfg.Width, cfg.Height, cfg.NumFrames),
		stats:  stats.New(),
	}
	p, err := New(h.enc, h.dec, h.reader, cfg, h.stats, opts...)
	require.NoError(t, err)
	h.p = p
	return h
}

func (h *harness) process(n int) {
	for i := 0; i < n; i++ {
		h.p.ProcessFrame()
	}
}

// requireViolation runs fn and expects it to panic with a *Violation whose
// message contains want.
func requireViolation(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		v, ok := AsViolation(r)
		require.True(t, ok, "expected *Violation, got %v", r)
		assert.Contains(t, v.Error(), want)
	}()
	fn()
}

// stepClock returns the scripted values in order.
type stepClock struct {
	values []int64
	next   int
}

func (c *stepClock) now() int64 {
	v := c.values[c.next]
	c.next++
	return v
}

func annexB(sizes ...int) []byte {
	var data []byte
	for i, size := range sizes {
		data = append(data, 0x00, 0x00, 0x00, 0x01)
		for j := 0; j < size; j++ {
			data = append(data, byte(0x41+i))
		}
	}
	return data
}

func TestNew_InitializesCodecs(t *testing.T) {
	cfg := testConfig()
	cfg.UseSingleCore = true
	h := newHarness(t, cfg)

	require.Len(t, h.enc.InitEncodeCalls, 1)
	call := h.enc.InitEncodeCalls[0]
	assert.Equal(t, 1, call.NumCores)
	assert.Equal(t, 1440, call.MaxPayloadBytes)
	assert.Equal(t, testWidth, call.Settings.Width)
	assert.Equal(t, video.CodecVP8, call.Settings.Type)

	assert.True(t, h.dec.InitDecodeCalled)
	assert.NotNil(t, h.enc.Callback)
	assert.NotNil(t, h.dec.Callback)
}

func TestNew_InitFailure(t *testing.T) {
	cfg := testConfig()
	reader := mocks.NewFrameReader(cfg.Width, cfg.Height, 1)

	enc := &mocks.VideoEncoder{
		InitEncodeFunc: func(*video.CodecSettings, int, int) video.ReturnCode { return video.CodecErrParameter },
	}
	_, err := New(enc, &mocks.VideoDecoder{}, reader, cfg, stats.New())
	assert.ErrorIs(t, err, ErrCodecInit)

	dec := &mocks.VideoDecoder{
		InitDecodeFunc: func(*video.CodecSettings, int) video.ReturnCode { return video.CodecMemory },
	}
	_, err = New(&mocks.VideoEncoder{}, dec, reader, cfg, stats.New())
	assert.ErrorIs(t, err, ErrCodecInit)
}

func TestClose(t *testing.T) {
	h := newHarness(t, testConfig())
	h.process(3)

	require.NoError(t, h.p.Close())
	assert.True(t, h.enc.ReleaseCalled)
	assert.True(t, h.dec.ReleaseCalled)
	assert.True(t, h.enc.RegisterNilCalled)
	assert.True(t, h.dec.RegisterNilCalled)
	assert.Empty(t, h.p.BufferedFrameNumbers())
	for i, buf := range h.reader.Buffers {
		assert.True(t, buf.Released(), "frame %d still referenced", i)
	}

	assert.NoError(t, h.p.Close())
}

func TestClose_ReleaseFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.enc.ReleaseFunc = func() video.ReturnCode { return video.CodecError }
	h.dec.ReleaseFunc = func() video.ReturnCode { return video.CodecError }

	err := h.p.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCodecRelease)
	assert.Contains(t, err.Error(), "encoder")
	assert.Contains(t, err.Error(), "decoder")
}

func TestProcessFrame_EndToEnd(t *testing.T) {
	cfg := testConfig()
	writer := mocks.NewFrameWriter(cfg.Width, cfg.Height)
	metrics := &mocks.QualityMetrics{PSNRValue: 42, SSIMValue: 0.98}
	h := newHarness(t, cfg, WithDecodedFrameWriter(writer), WithQualityMetrics(metrics))

	h.p.SetRates(300, 30)
	h.process(3)

	require.Equal(t, 3, h.stats.Size())
	for i, want := range []uint32{0, 3000, 6000} {
		fs := h.stats.GetFrame(i)
		require.NotNil(t, fs)
		assert.Equal(t, i, fs.FrameNumber)
		assert.Equal(t, want, fs.RTPTimestamp)
		assert.True(t, fs.EncodingSuccessful)
		assert.True(t, fs.DecodingSuccessful)
		assert.Equal(t, video.CodecOK, fs.EncodeReturnCode)
		assert.Equal(t, video.CodecOK, fs.DecodeReturnCode)
		assert.Equal(t, len(mocks.DefaultPayload), fs.EncodedFrameSizeBytes)
		assert.Equal(t, 30, fs.QP)
		assert.Equal(t, 300, fs.TargetBitrateKbps)
		assert.Equal(t, testWidth, fs.DecodedWidth)
		assert.Equal(t, testHeight, fs.DecodedHeight)
		assert.Greater(t, fs.PSNR, 0.0)
		assert.LessOrEqual(t, fs.EncodeStartNs, fs.DecodeStartNs)
	}

	assert.Equal(t, 3, h.p.NumEncodedFrames())
	assert.Equal(t, 3, h.p.NumDecodedFrames())
	assert.Len(t, writer.Frames, 3)
	assert.Equal(t, 0, h.p.ReplicatedFrames())
	assert.Equal(t, Drops{}, h.p.Drops())

	require.Len(t, h.dec.DecodeCalls, 3)
	assert.Equal(t, int64(0), h.dec.DecodeCalls[0].RenderTimeMs)
	assert.Equal(t, int64(33), h.dec.DecodeCalls[1].RenderTimeMs)
	assert.Equal(t, int64(66), h.dec.DecodeCalls[2].RenderTimeMs)
	assert.False(t, h.dec.DecodeCalls[0].MissingFrames)
}

func TestProcessFrame_SequenceNumbers(t *testing.T) {
	h := newHarness(t, testConfig())
	h.process(8)

	for i, fs := range h.stats.Frames() {
		assert.Equal(t, i, fs.FrameNumber)
	}
	assert.Equal(t, 8, h.stats.Size())
}

func TestProcessFrame_SourceExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.NumFrames = 1
	h := newHarness(t, cfg)

	h.p.ProcessFrame()
	requireViolation(t, "past the end", h.p.ProcessFrame)
}

func TestProcessFrame_ReadError(t *testing.T) {
	h := newHarness(t, testConfig())
	h.reader.ReadFrameFunc = func() (*video.I420Buffer, error) { return nil, errors.New("disk gone") }

	requireViolation(t, "disk gone", h.p.ProcessFrame)
}

func TestProcessFrame_FrameTypeSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Codec.KeyFrameInterval = 2
	h := newHarness(t, cfg)
	h.process(3)

	require.Len(t, h.enc.EncodeCalls, 3)
	assert.Equal(t, []video.FrameType{video.FrameKey}, h.enc.EncodeCalls[0].FrameTypes)
	assert.Equal(t, []video.FrameType{video.FrameDelta}, h.enc.EncodeCalls[1].FrameTypes)
	assert.Equal(t, []video.FrameType{video.FrameKey}, h.enc.EncodeCalls[2].FrameTypes)
	assert.Equal(t, video.FrameKey, h.stats.GetFrame(2).FrameType)
}

func TestProcessFrame_TemporalLayers(t *testing.T) {
	cfg := testConfig()
	cfg.Codec.NumTemporalLayers = 2
	h := newHarness(t, cfg)
	h.process(4)

	for i, want := range []int{0, 1, 0, 1} {
		assert.Equal(t, want, h.stats.GetFrame(i).TemporalLayerIdx, "frame %d", i)
	}
}

func TestProcessFrame_SoftEncodeFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.enc.EncodeFunc = func(*video.VideoFrame, []video.FrameType) video.ReturnCode { return video.CodecError }
	h.process(2)

	for _, fs := range h.stats.Frames() {
		assert.Equal(t, video.CodecError, fs.EncodeReturnCode)
		assert.False(t, fs.EncodingSuccessful)
		assert.Equal(t, video.CodecUninitialized, fs.DecodeReturnCode)
	}
	assert.Equal(t, 0, h.p.NumEncodedFrames())
}

func TestSetRates(t *testing.T) {
	h := newHarness(t, testConfig())
	h.p.SetRates(500, 15)
	h.process(2)

	require.Len(t, h.enc.SetRateCalls, 1)
	assert.Equal(t, 15, h.enc.SetRateCalls[0].Framerate)
	assert.Equal(t, uint32(500000), h.enc.SetRateCalls[0].Allocation.Sum())
	assert.Equal(t, uint32(6000), h.stats.GetFrame(1).RTPTimestamp)
	assert.Equal(t, 500, h.stats.GetFrame(1).TargetBitrateKbps)
}

func TestSetRates_MidStream(t *testing.T) {
	h := newHarness(t, testConfig())
	h.p.SetRates(300, 30)
	h.process(2)
	h.p.SetRates(300, 10)
	h.process(1)

	assert.Equal(t, uint32(3000), h.stats.GetFrame(1).RTPTimestamp)
	assert.Equal(t, uint32(12000), h.stats.GetFrame(2).RTPTimestamp)
}

func TestSetRates_Rejected(t *testing.T) {
	h := newHarness(t, testConfig())
	h.enc.SetRateAllocationFunc = func(video.BitrateAllocation, int) video.ReturnCode { return video.CodecError }
	requireViolation(t, "rejected", func() { h.p.SetRates(300, 30) })

	// Positive codes are acknowledgements.
	h.enc.SetRateAllocationFunc = func(video.BitrateAllocation, int) video.ReturnCode {
		return video.CodecTargetBitrateOvershoot
	}
	assert.NotPanics(t, func() { h.p.SetRates(300, 30) })

	requireViolation(t, "framerate", func() { h.p.SetRates(300, 0) })
}

func TestSetRates_FramerateAboveClockRate(t *testing.T) {
	h := newHarness(t, testConfig())
	requireViolation(t, "framerate must be between 1 and 90000, got 100000", func() { h.p.SetRates(300, 100000) })
	assert.Empty(t, h.enc.SetRateCalls)

	assert.NotPanics(t, func() { h.p.SetRates(300, video.PayloadClockRate) })
	h.process(2)
	assert.Equal(t, uint32(1), h.stats.GetFrame(1).RTPTimestamp)
}

func TestProcessFrame_TimestampWrap(t *testing.T) {
	h := newHarness(t, testConfig())
	h.process(1)
	h.p.lastTimestamp = math.MaxUint32 - 1000

	requireViolation(t, "timestamp of frame 1 wrapped", h.p.ProcessFrame)
	assert.Equal(t, 1, h.stats.Size())
}

func TestProcessFrame_TimestampAlreadyInLedger(t *testing.T) {
	h := newHarness(t, testConfig())
	h.process(1)
	h.stats.AddFrame(3000)

	requireViolation(t, "timestamp 3000 of frame 1 is already in the ledger", h.p.ProcessFrame)
	assert.Len(t, h.enc.EncodeCalls, 1)
}

func TestTiming_RoundsTowardZero(t *testing.T) {
	clock := &stepClock{values: []int64{1000, 2999, 5000, 5999}}
	h := newHarness(t, testConfig(), WithClock(clock.now))
	h.process(1)

	fs := h.stats.GetFrame(0)
	assert.Equal(t, int64(1000), fs.EncodeStartNs)
	assert.Equal(t, 1, fs.EncodeTimeUs)
	assert.Equal(t, int64(5000), fs.DecodeStartNs)
	assert.Equal(t, 0, fs.DecodeTimeUs)
}

func TestElapsedMicroseconds(t *testing.T) {
	assert.Equal(t, 0, elapsedMicroseconds(0, 999))
	assert.Equal(t, 1, elapsedMicroseconds(0, 1999))
	assert.Equal(t, -1, elapsedMicroseconds(1999, 0))
	assert.Equal(t, 2147483647, elapsedMicroseconds(0, 2147483647*1000))

	requireViolation(t, "32 bits", func() { elapsedMicroseconds(0, 2147483648*1000) })
	requireViolation(t, "32 bits", func() { elapsedMicroseconds(2147483649*1000, 0) })
}

func TestEncodeCompletion_OutOfOrder(t *testing.T) {
	h := newHarness(t, testConfig())
	h.enc.EncodeFunc = func(*video.VideoFrame, []video.FrameType) video.ReturnCode { return video.CodecOK }
	h.process(3)

	h.enc.Complete(&video.EncodedImage{Data: mocks.DefaultPayload, Timestamp: 6000})
	requireViolation(t, "completed after", func() {
		h.enc.Complete(&video.EncodedImage{Data: mocks.DefaultPayload, Timestamp: 3000})
	})
}

func TestDecodeCompletion_OutOfOrder(t *testing.T) {
	h := newHarness(t, testConfig())
	h.dec.DecodeFunc = func(*video.EncodedImage, bool, int64) video.ReturnCode { return video.CodecOK }
	h.process(3)

	h.dec.CompleteWithSize(6000, testWidth, testHeight)
	requireViolation(t, "completed after", func() {
		h.dec.CompleteWithSize(3000, testWidth, testHeight)
	})
}

func TestCompletion_UnknownTimestamp(t *testing.T) {
	h := newHarness(t, testConfig())
	h.process(1)

	requireViolation(t, "no statistics", func() {
		h.enc.Complete(&video.EncodedImage{Data: mocks.DefaultPayload, Timestamp: 12345})
	})
	requireViolation(t, "no statistics", func() {
		h.dec.CompleteWithSize(12345, testWidth, testHeight)
	})
}

// decodeTagged completes every frame except the dropped timestamps with a flat
// picture whose value identifies the frame.
func decodeTagged(h *harness, dropped ...uint32) func(*video.EncodedImage, bool, int64) video.ReturnCode {
	return func(img *video.EncodedImage, _ bool, _ int64) video.ReturnCode {
		for _, ts := range dropped {
			if img.Timestamp == ts {
				return video.CodecOK
			}
		}
		buf := mocks.GrayBuffer(testWidth, testHeight, byte(10+img.Timestamp/3000))
		h.dec.Complete(&video.VideoFrame{Buffer: buf, Timestamp: img.Timestamp})
		buf.Release()
		return video.CodecOK
	}
}

func TestDropReplication_DecoderDrop(t *testing.T) {
	cfg := testConfig()
	writer := mocks.NewFrameWriter(cfg.Width, cfg.Height)
	h := newHarness(t, cfg, WithDecodedFrameWriter(writer))
	h.dec.DecodeFunc = decodeTagged(h, 6000)

	h.process(4)

	require.Len(t, writer.Frames, 4)
	assert.Equal(t, byte(10), writer.Frames[0][0])
	assert.Equal(t, byte(11), writer.Frames[1][0])
	assert.Equal(t, writer.Frames[1], writer.Frames[2])
	assert.Equal(t, byte(13), writer.Frames[3][0])

	assert.Equal(t, 1, h.p.ReplicatedFrames())
	assert.Equal(t, Drops{Encode: 0, Decode: 1}, h.p.Drops())
	assert.False(t, h.stats.GetFrame(2).DecodingSuccessful)
	assert.True(t, h.stats.GetFrame(2).EncodingSuccessful)
}

func TestDropReplication_EncoderDrop(t *testing.T) {
	cfg := testConfig()
	writer := mocks.NewFrameWriter(cfg.Width, cfg.Height)
	h := newHarness(t, cfg, WithDecodedFrameWriter(writer))
	h.dec.DecodeFunc = decodeTagged(h)
	h.enc.EncodeFunc = func(frame *video.VideoFrame, _ []video.FrameType) video.ReturnCode {
		if frame.Timestamp == 6000 {
			return video.CodecOK
		}
		h.enc.Complete(&video.EncodedImage{Data: mocks.DefaultPayload, Timestamp: frame.Timestamp})
		return video.CodecOK
	}

	h.process(4)

	require.Len(t, writer.Frames, 4)
	assert.Equal(t, writer.Frames[1], writer.Frames[2])
	assert.Equal(t, 1, h.p.ReplicatedFrames())
	assert.Equal(t, Drops{Encode: 1, Decode: 0}, h.p.Drops())
}

func TestDropReplication_FirstFrameNotReplicated(t *testing.T) {
	cfg := testConfig()
	writer := mocks.NewFrameWriter(cfg.Width, cfg.Height)
	h := newHarness(t, cfg, WithDecodedFrameWriter(writer))
	h.dec.DecodeFunc = decodeTagged(h, 0)

	h.process(2)

	assert.Len(t, writer.Frames, 1)
	assert.Equal(t, 0, h.p.ReplicatedFrames())
	assert.Equal(t, 1, h.p.Drops().Decode)
}

func TestDropReplication_NoWriter(t *testing.T) {
	h := newHarness(t, testConfig())
	h.dec.DecodeFunc = decodeTagged(h, 3000, 6000)

	h.process(4)

	assert.Equal(t, 0, h.p.ReplicatedFrames())
	assert.Equal(t, 2, h.p.Drops().Decode)
}

func TestBufferRetention_Synchronous(t *testing.T) {
	h := newHarness(t, testConfig())

	h.process(1)
	assert.Equal(t, []int{0}, h.p.BufferedFrameNumbers())

	h.process(4)
	assert.Equal(t, []int{3, 4}, h.p.BufferedFrameNumbers())
	for i := 0; i < 3; i++ {
		assert.True(t, h.reader.Buffers[i].Released(), "frame %d", i)
	}
	assert.False(t, h.reader.Buffers[3].Released())
}

func TestBufferRetention_PendingDecode(t *testing.T) {
	h := newHarness(t, testConfig())
	h.dec.DecodeFunc = func(*video.EncodedImage, bool, int64) video.ReturnCode { return video.CodecOK }

	h.process(4)
	assert.Equal(t, []int{0, 1, 2, 3}, h.p.BufferedFrameNumbers())

	h.dec.CompleteWithSize(3000, testWidth, testHeight)
	assert.Equal(t, []int{0, 1, 2, 3}, h.p.BufferedFrameNumbers())

	h.dec.CompleteWithSize(9000, testWidth, testHeight)
	assert.Equal(t, []int{2, 3}, h.p.BufferedFrameNumbers())
	assert.True(t, h.reader.Buffers[1].Released())
}

func TestQualityMetrics(t *testing.T) {
	metrics := &mocks.QualityMetrics{PSNRValue: 35.5, SSIMValue: 0.93}
	h := newHarness(t, testConfig(), WithQualityMetrics(metrics))
	h.process(2)

	assert.Equal(t, 2, metrics.PSNRCalls)
	assert.Equal(t, 2, metrics.SSIMCalls)
	assert.Equal(t, 35.5, h.stats.GetFrame(1).PSNR)
	assert.Equal(t, 0.93, h.stats.GetFrame(1).SSIM)
}

func TestQualityMetrics_SkippedWhenMeasuringCPU(t *testing.T) {
	cfg := testConfig()
	cfg.MeasureCPU = true
	metrics := &mocks.QualityMetrics{PSNRValue: 35.5}
	h := newHarness(t, cfg, WithQualityMetrics(metrics))
	h.process(2)

	assert.Equal(t, 0, metrics.PSNRCalls)
	assert.Equal(t, 0.0, h.stats.GetFrame(0).PSNR)
}

func TestQualityMetrics_NotMeasuredByDefault(t *testing.T) {
	h := newHarness(t, testConfig())
	h.process(2)

	assert.True(t, h.stats.GetFrame(1).DecodingSuccessful)
	assert.Equal(t, 0.0, h.stats.GetFrame(1).PSNR)
	assert.Equal(t, 0.0, h.stats.GetFrame(1).SSIM)
}

func TestResize_ScaledOutput(t *testing.T) {
	cfg := testConfig()
	writer := mocks.NewFrameWriter(cfg.Width, cfg.Height)
	h := newHarness(t, cfg, WithDecodedFrameWriter(writer))
	h.dec.DecodeFunc = func(img *video.EncodedImage, _ bool, _ int64) video.ReturnCode {
		h.dec.CompleteWithSize(img.Timestamp, testWidth/2, testHeight/2)
		return video.CodecOK
	}

	h.process(2)

	require.Len(t, writer.Frames, 2)
	assert.Len(t, writer.Frames[0], video.CalcBufferSize(testWidth, testHeight))
	assert.Equal(t, testWidth/2, h.stats.GetFrame(0).DecodedWidth)
	assert.Equal(t, testHeight/2, h.stats.GetFrame(0).DecodedHeight)
}

func TestResize_AspectMismatch(t *testing.T) {
	cfg := testConfig()
	writer := mocks.NewFrameWriter(cfg.Width, cfg.Height)
	h := newHarness(t, cfg, WithDecodedFrameWriter(writer))
	h.dec.DecodeFunc = func(img *video.EncodedImage, _ bool, _ int64) video.ReturnCode {
		h.dec.CompleteWithSize(img.Timestamp, 16, 16)
		return video.CodecOK
	}

	requireViolation(t, "aspect ratio", h.p.ProcessFrame)
}

func TestExtractBufferWithSize(t *testing.T) {
	src := mocks.GrayBuffer(64, 48, 77)
	frame := &video.VideoFrame{Buffer: src}

	var buf []byte
	extractBufferWithSize(frame, 64, 48, &buf)
	assert.Len(t, buf, video.CalcBufferSize(64, 48))
	want := make([]byte, src.Size())
	_, err := video.ExtractBuffer(src, want)
	require.NoError(t, err)
	assert.Equal(t, want, buf)

	extractBufferWithSize(frame, 32, 24, &buf)
	assert.Len(t, buf, video.CalcBufferSize(32, 24))
	assert.Equal(t, byte(77), buf[0])

	extractBufferWithSize(frame, 128, 96, &buf)
	assert.Len(t, buf, video.CalcBufferSize(128, 96))

	requireViolation(t, "aspect ratio", func() { extractBufferWithSize(frame, 64, 64, &buf) })
}

func TestMaxNaluSize_H264(t *testing.T) {
	cfg := testConfig()
	cfg.Codec.Name = "h264"
	h := newHarness(t, cfg)
	h.enc.EncodeFunc = func(frame *video.VideoFrame, _ []video.FrameType) video.ReturnCode {
		h.enc.Complete(&video.EncodedImage{Data: annexB(50, 120, 30), Timestamp: frame.Timestamp})
		return video.CodecOK
	}

	h.process(1)
	assert.Equal(t, 120, h.stats.GetFrame(0).MaxNaluSizeBytes)
}

func TestMaxNaluSize_OtherCodecs(t *testing.T) {
	img := &video.EncodedImage{Data: annexB(50, 120, 30)}
	assert.Equal(t, 0, maxNaluSizeBytes(img, video.CodecVP8))
	assert.Equal(t, 0, maxNaluSizeBytes(img, video.CodecVP9))
	assert.Equal(t, 120, maxNaluSizeBytes(img, video.CodecH264))
}

func TestMaxNaluSize_NoStartCode(t *testing.T) {
	img := &video.EncodedImage{Data: []byte{0x65, 0x88, 0x84, 0x21, 0x11, 0x22, 0x33, 0x44}}
	requireViolation(t, "no NAL units", func() { maxNaluSizeBytes(img, video.CodecH264) })
}

func TestEncodedFrameChecker(t *testing.T) {
	cfg := testConfig()
	checker := &mocks.EncodedFrameChecker{}
	cfg.EncodedFrameChecker = checker
	h := newHarness(t, cfg)
	h.process(2)
	assert.Equal(t, 2, checker.Calls)

	checker.CheckFunc = func(video.CodecType, *video.EncodedImage) error { return errors.New("bad partition") }
	requireViolation(t, "bad partition", h.p.ProcessFrame)
}

func TestEncodedFrameWriter(t *testing.T) {
	writer := &mocks.EncodedFrameWriter{}
	h := newHarness(t, testConfig(), WithEncodedFrameWriter(writer))
	h.process(3)
	assert.Equal(t, []uint32{0, 3000, 6000}, writer.Timestamps)

	writer.WriteFrameFunc = func(*video.EncodedImage, video.CodecType) error { return errors.New("disk full") }
	requireViolation(t, "disk full", h.p.ProcessFrame)
}

func TestDecodedFrameWriter_Failures(t *testing.T) {
	cfg := testConfig()
	writer := mocks.NewFrameWriter(cfg.Width, cfg.Height)
	writer.Length++
	h := newHarness(t, cfg, WithDecodedFrameWriter(writer))
	requireViolation(t, "writer expects", h.p.ProcessFrame)

	writer = mocks.NewFrameWriter(cfg.Width, cfg.Height)
	writer.WriteFrameFunc = func([]byte) error { return errors.New("closed pipe") }
	h = newHarness(t, cfg, WithDecodedFrameWriter(writer))
	requireViolation(t, "closed pipe", h.p.ProcessFrame)
}

func TestSequenceGuard_RejectsOverlap(t *testing.T) {
	writer := &mocks.EncodedFrameWriter{}
	h := newHarness(t, testConfig(), WithEncodedFrameWriter(writer))
	writer.WriteFrameFunc = func(*video.EncodedImage, video.CodecType) error {
		h.p.ProcessFrame()
		return nil
	}

	requireViolation(t, "overlapping", h.p.ProcessFrame)

	// The guard is released once the violating call unwinds.
	writer.WriteFrameFunc = nil
	assert.NotPanics(t, h.p.ProcessFrame)
}

func TestSequenceGuard_RejectsEntryFromCodecCall(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		run   func(h *harness)
		want  string
	}{
		{
			name: "SetRates from Encode",
			setup: func(h *harness) {
				h.enc.EncodeFunc = func(*video.VideoFrame, []video.FrameType) video.ReturnCode {
					h.p.SetRates(100, 15)
					return video.CodecOK
				}
			},
			run:  func(h *harness) { h.p.ProcessFrame() },
			want: "SetRates: overlapping",
		},
		{
			name: "ProcessFrame from Decode",
			setup: func(h *harness) {
				h.dec.DecodeFunc = func(*video.EncodedImage, bool, int64) video.ReturnCode {
					h.p.ProcessFrame()
					return video.CodecOK
				}
			},
			run:  func(h *harness) { h.p.ProcessFrame() },
			want: "ProcessFrame: overlapping",
		},
		{
			name: "Close from SetRateAllocation",
			setup: func(h *harness) {
				h.enc.SetRateAllocationFunc = func(video.BitrateAllocation, int) video.ReturnCode {
					h.p.Close()
					return video.CodecOK
				}
			},
			run:  func(h *harness) { h.p.SetRates(300, 30) },
			want: "Close: overlapping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testConfig())
			tt.setup(h)

			requireViolation(t, tt.want, func() { tt.run(h) })
			assert.False(t, h.enc.ReleaseCalled)

			// The guard is idle again once the violating call unwinds.
			h.enc.EncodeFunc, h.enc.SetRateAllocationFunc, h.dec.DecodeFunc = nil, nil, nil
			assert.NotPanics(t, h.p.ProcessFrame)
		})
	}
}

func TestSequenceGuard_AllowsNestedCallbacks(t *testing.T) {
	h := newHarness(t, testConfig())
	assert.NotPanics(t, func() { h.process(3) })
	assert.Equal(t, 3, h.p.NumDecodedFrames())
}
