// Package loopback is a software codec pair for exercising the processor
// without a real codec. The encoder quantizes samples by a rate-dependent
// step and the decoder restores them; optional knobs drop frames on either
// side, delay encoder output by one frame or shrink the decoded picture.
//
// Both completion callbacks run synchronously inside Encode and Decode.
package loopback

import (
	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/video"
)

const defaultShift = 3

// EncoderOptions configures an Encoder.
type EncoderOptions struct {
	// DropInterval drops every DropInterval-th delta frame. 0 keeps all
	// frames; 1 is invalid.
	DropInterval int

	// Delay delivers the output of each frame during the following Encode
	// call instead of the current one.
	Delay bool
}

// Encoder implements ports.VideoEncoder.
type Encoder struct {
	opts        EncoderOptions
	callback    ports.EncodeCompleteCallback
	settings    video.CodecSettings
	maxPayload  int
	initialized bool
	shift       uint8
	frames      int
	pending     *pendingFrame
}

type pendingFrame struct {
	frame video.VideoFrame
	key   bool
}

// NewEncoder creates an Encoder.
func NewEncoder(opts EncoderOptions) *Encoder {
	return &Encoder{opts: opts}
}

// RegisterEncodeCompleteCallback implements ports.VideoEncoder.
func (e *Encoder) RegisterEncodeCompleteCallback(cb ports.EncodeCompleteCallback) video.ReturnCode {
	e.callback = cb
	return video.CodecOK
}

// InitEncode implements ports.VideoEncoder.
func (e *Encoder) InitEncode(settings *video.CodecSettings, numCores, maxPayloadBytes int) video.ReturnCode {
	if settings == nil || !validSize(settings.Width, settings.Height) || numCores < 1 || maxPayloadBytes < 0 {
		return video.CodecErrParameter
	}
	if e.opts.DropInterval < 0 || e.opts.DropInterval == 1 {
		return video.CodecErrParameter
	}
	e.dropPending()
	e.settings = *settings
	e.maxPayload = maxPayloadBytes
	e.shift = defaultShift
	e.frames = 0
	e.initialized = true
	return video.CodecOK
}

// Encode implements ports.VideoEncoder.
func (e *Encoder) Encode(frame *video.VideoFrame, frameTypes []video.FrameType) video.ReturnCode {
	if !e.initialized || e.callback == nil {
		return video.CodecUninitialized
	}
	if frame == nil || frame.Buffer == nil || !validSize(frame.Width(), frame.Height()) {
		return video.CodecErrParameter
	}

	n := e.frames
	e.frames++
	key := n == 0 || (len(frameTypes) > 0 && frameTypes[0] == video.FrameKey)

	if e.pending != nil {
		p := e.pending
		e.pending = nil
		e.deliver(&p.frame, p.key)
		p.frame.Buffer.Release()
	}

	if !key && e.opts.DropInterval > 0 && n%e.opts.DropInterval == e.opts.DropInterval-1 {
		return video.CodecOK
	}

	if e.opts.Delay {
		held := *frame
		held.Buffer = frame.Buffer.Retain()
		e.pending = &pendingFrame{frame: held, key: key}
		return video.CodecOK
	}

	e.deliver(frame, key)
	return video.CodecOK
}

func (e *Encoder) deliver(frame *video.VideoFrame, key bool) {
	hdr := frameHeader{
		key:    key,
		shift:  e.shift,
		width:  frame.Width(),
		height: frame.Height(),
	}
	samples := make([]byte, frame.Buffer.Size())
	if _, err := video.ExtractBuffer(frame.Buffer, samples); err != nil {
		return
	}

	var data []byte
	if e.settings.Type == video.CodecH264 {
		data = writeAnnexB(hdr, samples, e.maxPayload)
	} else {
		data = writeRaw(hdr, samples)
	}

	ft := video.FrameDelta
	if key {
		ft = video.FrameKey
	}
	e.callback.OnEncodedImage(e.settings.Type, &video.EncodedImage{
		Data:          data,
		Timestamp:     frame.Timestamp,
		FrameType:     ft,
		QP:            int(e.shift),
		EncodedWidth:  hdr.width,
		EncodedHeight: hdr.height,
		CompleteFrame: true,
	})
}

// SetRateAllocation implements ports.VideoEncoder. The quantization step is
// chosen from the bits available per pixel.
func (e *Encoder) SetRateAllocation(allocation video.BitrateAllocation, framerate int) video.ReturnCode {
	if !e.initialized {
		return video.CodecUninitialized
	}
	if framerate <= 0 {
		return video.CodecErrParameter
	}
	pixels := float64(e.settings.Width * e.settings.Height)
	bpp := float64(allocation.Sum()) / float64(framerate) / pixels
	e.shift = shiftForBitsPerPixel(bpp)
	return video.CodecOK
}

func shiftForBitsPerPixel(bpp float64) uint8 {
	shift := uint8(minShift)
	for threshold := 2.0; shift < maxShift && bpp < threshold; threshold /= 2 {
		shift++
	}
	return shift
}

// Release implements ports.VideoEncoder. A frame held back by Delay is
// discarded.
func (e *Encoder) Release() video.ReturnCode {
	e.dropPending()
	e.initialized = false
	return video.CodecOK
}

func (e *Encoder) dropPending() {
	if e.pending != nil {
		e.pending.frame.Buffer.Release()
		e.pending = nil
	}
}

func validSize(width, height int) bool {
	return width > 0 && height > 0 && width <= maxDimension && height <= maxDimension
}

var _ ports.VideoEncoder = (*Encoder)(nil)
