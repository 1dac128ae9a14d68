// Package processor drives an encoder/decoder pair frame by frame and records
// what happened to every frame in a stats ledger.
//
// A VideoProcessor is not safe for concurrent use. ProcessFrame, SetRates and
// Close must be called from one sequence, and codecs must deliver their
// completion callbacks either from inside Encode/Decode or from a dispatcher
// that is serialized with those calls. Overlapping calls panic with a
// *Violation, as does every other broken contract.
package processor

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/user/codectest/pkg/allocator"
	"github.com/user/codectest/pkg/config"
	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/stats"
	"github.com/user/codectest/pkg/video"
)

// msToRTPTimestamp converts milliseconds to 90 kHz ticks.
const msToRTPTimestamp = video.PayloadClockRate / 1000

// Drops counts frames that went missing at each stage.
type Drops struct {
	Encode int // submitted frames the encoder never completed
	Decode int // encoded frames the decoder never completed
}

// Option configures a VideoProcessor.
type Option func(*VideoProcessor)

// WithEncodedFrameWriter persists every encoded image.
func WithEncodedFrameWriter(w ports.EncodedFrameWriter) Option {
	return func(p *VideoProcessor) { p.encodedWriter = w }
}

// WithDecodedFrameWriter persists every reconstructed frame at the configured
// size, repeating the previous one for each dropped frame.
func WithDecodedFrameWriter(w ports.FrameWriter) Option {
	return func(p *VideoProcessor) { p.decodedWriter = w }
}

// WithQualityMetrics measures PSNR/SSIM of every decoded frame with m.
// Without it quality is not measured.
func WithQualityMetrics(m ports.QualityMetrics) Option {
	return func(p *VideoProcessor) { p.metrics = m }
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l ports.Logger) Option {
	return func(p *VideoProcessor) { p.logger = l }
}

// WithClock replaces the monotonic nanosecond clock used for timing.
func WithClock(now func() int64) Option {
	return func(p *VideoProcessor) { p.now = now }
}

// VideoProcessor round-trips raw frames through an encoder and a decoder.
type VideoProcessor struct {
	cfg        config.TestConfig
	settings   video.CodecSettings
	framerate  int
	encoder    ports.VideoEncoder
	decoder    ports.VideoDecoder
	reader     ports.FrameReader
	allocator  ports.BitrateAllocator
	allocation video.BitrateAllocation
	stats      *stats.Stats

	encodedWriter ports.EncodedFrameWriter
	decodedWriter ports.FrameWriter
	metrics       ports.QualityMetrics
	logger        ports.Logger
	now           func() int64

	frames *frameStore
	guard  sequenceChecker
	closed bool

	numInput            int
	lastTimestamp       uint32
	numEncoded          int
	lastEncodedFrameNum int
	numDecoded          int
	lastDecodedFrameNum int

	drops      Drops
	replicated int

	// Packed copy of the last decoded frame, replayed for dropped frames.
	lastDecodedFrameBuffer []byte
}

// New wires the processor to its codecs and initializes both of them with
// the settings derived from cfg. st must be empty; it receives one record per
// processed frame.
func New(
	encoder ports.VideoEncoder,
	decoder ports.VideoDecoder,
	reader ports.FrameReader,
	cfg config.TestConfig,
	st *stats.Stats,
	opts ...Option,
) (*VideoProcessor, error) {
	base := time.Now()
	p := &VideoProcessor{
		cfg:                 cfg,
		settings:            cfg.CodecSettings(),
		framerate:           cfg.Codec.MaxFramerate,
		encoder:             encoder,
		decoder:             decoder,
		reader:              reader,
		stats:               st,
		logger:              nopLogger{},
		now:                 func() int64 { return int64(time.Since(base)) },
		frames:              newFrameStore(),
		lastEncodedFrameNum: -1,
		lastDecodedFrameNum: -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("processor")
	p.allocator = allocator.New(p.settings)
	p.lastDecodedFrameBuffer = make([]byte, reader.FrameLength())

	if rc := encoder.RegisterEncodeCompleteCallback(encodeCompleteHandler{p}); rc != video.CodecOK {
		return nil, fmt.Errorf("%w: register encode callback: %s", ErrCodecInit, rc)
	}
	if rc := decoder.RegisterDecodeCompleteCallback(decodeCompleteHandler{p}); rc != video.CodecOK {
		return nil, fmt.Errorf("%w: register decode callback: %s", ErrCodecInit, rc)
	}

	cores := cfg.NumberOfCores()
	if rc := encoder.InitEncode(&p.settings, cores, cfg.MaxPayloadSizeBytes); rc != video.CodecOK {
		return nil, fmt.Errorf("%w: InitEncode: %s", ErrCodecInit, rc)
	}
	if rc := decoder.InitDecode(&p.settings, cores); rc != video.CodecOK {
		return nil, fmt.Errorf("%w: InitDecode: %s", ErrCodecInit, rc)
	}

	p.logger.Debug("Codecs initialized: %s %dx%d, %d cores", p.settings.Type, p.settings.Width, p.settings.Height, cores)
	return p, nil
}

// Close releases both codecs, detaches the completion callbacks and drops
// every frame still held.
func (p *VideoProcessor) Close() error {
	defer p.guard.leave(p.guard.enter("Close", false))

	if p.closed {
		return nil
	}
	p.closed = true

	var encRC, decRC video.ReturnCode
	p.guard.callOut("Close", func() {
		encRC = p.encoder.Release()
		decRC = p.decoder.Release()
	})
	p.encoder.RegisterEncodeCompleteCallback(nil)
	p.decoder.RegisterDecodeCompleteCallback(nil)
	p.frames.clear()

	var errs []error
	if encRC != video.CodecOK {
		errs = append(errs, fmt.Errorf("%w: encoder: %s", ErrCodecRelease, encRC))
	}
	if decRC != video.CodecOK {
		errs = append(errs, fmt.Errorf("%w: decoder: %s", ErrCodecRelease, decRC))
	}

	return errors.Join(errs...)
}

// ProcessFrame reads the next input frame and submits it to the encoder.
// It does not wait for the frame to be encoded or decoded.
//
// Timestamps are 32-bit 90 kHz ticks. A run that would wrap them (about
// 13 hours of input) panics with a *Violation, as does a timestamp that is
// already in the ledger.
func (p *VideoProcessor) ProcessFrame() {
	const op = "ProcessFrame"
	defer p.guard.leave(p.guard.enter(op, false))

	frameNumber := p.numInput
	p.numInput++

	buffer, err := p.reader.ReadFrame()
	if errors.Is(err, io.EOF) {
		fatalf(op, "tried to read frame %d past the end of the input", frameNumber)
	}
	check(err == nil, op, "read frame %d: %v", frameNumber, err)

	check(p.framerate > 0 && p.framerate <= video.PayloadClockRate, op,
		"framerate must be between 1 and %d, got %d", video.PayloadClockRate, p.framerate)
	var timestamp uint32
	if frameNumber > 0 {
		timestamp = p.lastTimestamp + uint32(video.PayloadClockRate/p.framerate)
		check(timestamp > p.lastTimestamp, op,
			"timestamp of frame %d wrapped past %d", frameNumber, p.lastTimestamp)
	}
	check(!p.stats.HasTimestamp(timestamp), op,
		"timestamp %d of frame %d is already in the ledger", timestamp, frameNumber)
	p.lastTimestamp = timestamp

	frame := &video.VideoFrame{
		Buffer:       buffer,
		Timestamp:    timestamp,
		RenderTimeMs: int64(timestamp / msToRTPTimestamp),
		Rotation:     video.Rotation0,
	}
	p.frames.put(frameNumber, frame)

	frameTypes := p.cfg.FrameTypeForFrame(frameNumber)
	stat := p.stats.AddFrame(timestamp)

	p.guard.callOut(op, func() {
		stat.EncodeStartNs = p.now()
		stat.EncodeReturnCode = p.encoder.Encode(frame, frameTypes)
	})
	if stat.EncodeReturnCode != video.CodecOK {
		p.logger.Debug("Encode of frame %d returned %s", frameNumber, stat.EncodeReturnCode)
	}
}

// SetRates updates the target bitrate and framerate and pushes the new
// allocation to the encoder. Timestamps of later frames follow the new
// framerate.
func (p *VideoProcessor) SetRates(bitrateKbps, framerateFps int) {
	const op = "SetRates"
	defer p.guard.leave(p.guard.enter(op, false))

	check(framerateFps > 0 && framerateFps <= video.PayloadClockRate, op,
		"framerate must be between 1 and %d, got %d", video.PayloadClockRate, framerateFps)
	check(bitrateKbps >= 0, op, "bitrate must not be negative, got %d", bitrateKbps)

	p.framerate = framerateFps
	p.settings.MaxFramerate = framerateFps
	p.allocation = p.allocator.GetAllocation(uint32(bitrateKbps)*1000, uint32(framerateFps))

	var rc video.ReturnCode
	p.guard.callOut(op, func() {
		rc = p.encoder.SetRateAllocation(p.allocation, framerateFps)
	})
	check(rc >= 0, op, "encoder rejected %d kbps at %d fps: %s", bitrateKbps, framerateFps, rc)

	p.logger.Debug("Rates set to %d kbps at %d fps", bitrateKbps, framerateFps)
}

// NumEncodedFrames returns how many encode completions were handled.
func (p *VideoProcessor) NumEncodedFrames() int {
	return p.numEncoded
}

// NumDecodedFrames returns how many decode completions were handled.
func (p *VideoProcessor) NumDecodedFrames() int {
	return p.numDecoded
}

// Drops returns the frames lost at the encoder and at the decoder so far.
func (p *VideoProcessor) Drops() Drops {
	return p.drops
}

// ReplicatedFrames returns how many times a previous decoded frame was
// written again in place of a dropped one.
func (p *VideoProcessor) ReplicatedFrames() int {
	return p.replicated
}

// BufferedFrameNumbers returns the sequence numbers of the input frames
// still held, in increasing order.
func (p *VideoProcessor) BufferedFrameNumbers() []int {
	return p.frames.sequenceNumbers()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{}) {}
func (l nopLogger) WithComponent(string) ports.Logger { return l }

type encodeCompleteHandler struct{ p *VideoProcessor }

func (h encodeCompleteHandler) OnEncodedImage(codec video.CodecType, image *video.EncodedImage) {
	h.p.frameEncoded(codec, image)
}

type decodeCompleteHandler struct{ p *VideoProcessor }

func (h decodeCompleteHandler) OnDecodedFrame(frame *video.VideoFrame) {
	h.p.frameDecoded(frame)
}

func (p *VideoProcessor) frameEncoded(codec video.CodecType, image *video.EncodedImage) {
	const op = "frameEncoded"
	defer p.guard.leave(p.guard.enter(op, true))

	encodeStopNs := p.now()

	if checker := p.cfg.EncodedFrameChecker; checker != nil {
		err := checker.CheckEncodedFrame(codec, image)
		check(err == nil, op, "encoded frame %d rejected: %v", image.Timestamp, err)
	}

	stat := p.stats.GetFrameWithTimestamp(image.Timestamp)
	check(stat != nil, op, "no statistics for timestamp %d", image.Timestamp)

	frameNumber := stat.FrameNumber
	if p.numEncoded > 0 {
		check(frameNumber > p.lastEncodedFrameNum, op,
			"frame %d completed after frame %d", frameNumber, p.lastEncodedFrameNum)
	}
	if gap := frameNumber - p.lastEncodedFrameNum - 1; gap > 0 {
		p.drops.Encode += gap
		p.logger.Debug("Encoder dropped %d frames before frame %d", gap, frameNumber)
	}
	p.lastEncodedFrameNum = frameNumber

	stat.EncodeTimeUs = elapsedMicroseconds(stat.EncodeStartNs, encodeStopNs)
	stat.EncodingSuccessful = true
	stat.EncodedFrameSizeBytes = image.Size()
	stat.FrameType = image.FrameType
	stat.TemporalLayerIdx = p.cfg.TemporalLayerForFrame(frameNumber)
	stat.QP = image.QP
	stat.TargetBitrateKbps = int(p.allocation.GetSpatialLayerSum(0) / 1000)
	stat.MaxNaluSizeBytes = maxNaluSizeBytes(image, codec)

	renderTimeMs := int64(image.Timestamp / msToRTPTimestamp)
	if input, ok := p.frames.get(frameNumber); ok {
		renderTimeMs = input.RenderTimeMs
	}

	p.guard.callOut(op, func() {
		stat.DecodeStartNs = p.now()
		stat.DecodeReturnCode = p.decoder.Decode(image, false, renderTimeMs)
	})

	if p.encodedWriter != nil {
		err := p.encodedWriter.WriteFrame(image, codec)
		check(err == nil, op, "write encoded frame %d: %v", frameNumber, err)
	}

	p.numEncoded++
}

func (p *VideoProcessor) frameDecoded(frame *video.VideoFrame) {
	const op = "frameDecoded"
	defer p.guard.leave(p.guard.enter(op, true))

	decodeStopNs := p.now()

	stat := p.stats.GetFrameWithTimestamp(frame.Timestamp)
	check(stat != nil, op, "no statistics for timestamp %d", frame.Timestamp)

	stat.DecodedWidth = frame.Width()
	stat.DecodedHeight = frame.Height()
	stat.DecodeTimeUs = elapsedMicroseconds(stat.DecodeStartNs, decodeStopNs)
	stat.DecodingSuccessful = true

	frameNumber := stat.FrameNumber
	if p.numDecoded > 0 {
		check(frameNumber > p.lastDecodedFrameNum, op,
			"frame %d completed after frame %d", frameNumber, p.lastDecodedFrameNum)
	}

	for n := p.lastDecodedFrameNum + 1; n < frameNumber; n++ {
		if missing := p.stats.GetFrame(n); missing != nil && missing.EncodingSuccessful {
			p.drops.Decode++
		}
	}

	// A dropped frame is written as a repeat of the previous one so the
	// output keeps its length.
	if p.decodedWriter != nil && p.numDecoded > 0 {
		numDropped := frameNumber - p.lastDecodedFrameNum - 1
		for i := 0; i < numDropped; i++ {
			p.writeDecodedFrame(op)
			p.replicated++
		}
		if numDropped > 0 {
			p.logger.Debug("Repeated frame %d for %d dropped frames", p.lastDecodedFrameNum, numDropped)
		}
	}
	p.lastDecodedFrameNum = frameNumber

	if !p.cfg.MeasureCPU && p.metrics != nil {
		input, ok := p.frames.get(frameNumber)
		check(ok, op, "input frame %d is no longer held", frameNumber)
		stat.PSNR = p.metrics.PSNR(input.Buffer, frame.Buffer)
		stat.SSIM = p.metrics.SSIM(input.Buffer, frame.Buffer)
	}

	// The current frame may still be referenced by another layer of the next
	// frame, so eviction lags by one.
	if frameNumber > 0 {
		if n := p.frames.evictBefore(frameNumber - 1); n > 0 {
			p.logger.Debug("Released %d input frames before frame %d", n, frameNumber-1)
		}
	}

	if p.decodedWriter != nil {
		extractBufferWithSize(frame, p.cfg.Width, p.cfg.Height, &p.lastDecodedFrameBuffer)
		p.writeDecodedFrame(op)
	}

	p.numDecoded++
}

func (p *VideoProcessor) writeDecodedFrame(op string) {
	want := p.decodedWriter.FrameLength()
	check(len(p.lastDecodedFrameBuffer) == want, op,
		"decoded frame is %d bytes, writer expects %d", len(p.lastDecodedFrameBuffer), want)
	err := p.decodedWriter.WriteFrame(p.lastDecodedFrameBuffer)
	check(err == nil, op, "write decoded frame: %v", err)
}
