package mocks

import (
	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/video"
)

// DefaultPayload is the bitstream delivered by VideoEncoder when EncodeFunc is
// not set: one Annex B NAL unit of 4 bytes.
var DefaultPayload = []byte{0x00, 0x00, 0x00, 0x01, 0x65, 0x88, 0x84, 0x21}

// VideoEncoder is a mock implementation of ports.VideoEncoder.
//
// Unless EncodeFunc is set, Encode completes synchronously with DefaultPayload
// before returning.
type VideoEncoder struct {
	Codec video.CodecType

	InitEncodeFunc        func(settings *video.CodecSettings, numCores, maxPayloadBytes int) video.ReturnCode
	EncodeFunc            func(frame *video.VideoFrame, frameTypes []video.FrameType) video.ReturnCode
	SetRateAllocationFunc func(allocation video.BitrateAllocation, framerate int) video.ReturnCode
	ReleaseFunc           func() video.ReturnCode

	// Recorded calls for verification
	Callback          ports.EncodeCompleteCallback
	InitEncodeCalls   []InitEncodeCall
	EncodeCalls       []EncodeCall
	SetRateCalls      []SetRateCall
	ReleaseCalled     bool
	RegisterNilCalled bool
}

// InitEncodeCall records a call to InitEncode.
type InitEncodeCall struct {
	Settings        video.CodecSettings
	NumCores        int
	MaxPayloadBytes int
}

// EncodeCall records a call to Encode.
type EncodeCall struct {
	Frame      *video.VideoFrame
	Timestamp  uint32
	FrameTypes []video.FrameType
}

// SetRateCall records a call to SetRateAllocation.
type SetRateCall struct {
	Allocation video.BitrateAllocation
	Framerate  int
}

func (m *VideoEncoder) RegisterEncodeCompleteCallback(cb ports.EncodeCompleteCallback) video.ReturnCode {
	if cb == nil {
		m.RegisterNilCalled = true
	}
	m.Callback = cb
	return video.CodecOK
}

func (m *VideoEncoder) InitEncode(settings *video.CodecSettings, numCores, maxPayloadBytes int) video.ReturnCode {
	m.InitEncodeCalls = append(m.InitEncodeCalls, InitEncodeCall{
		Settings:        *settings,
		NumCores:        numCores,
		MaxPayloadBytes: maxPayloadBytes,
	})
	if m.InitEncodeFunc != nil {
		return m.InitEncodeFunc(settings, numCores, maxPayloadBytes)
	}
	return video.CodecOK
}

func (m *VideoEncoder) Encode(frame *video.VideoFrame, frameTypes []video.FrameType) video.ReturnCode {
	m.EncodeCalls = append(m.EncodeCalls, EncodeCall{
		Frame:      frame,
		Timestamp:  frame.Timestamp,
		FrameTypes: append([]video.FrameType(nil), frameTypes...),
	})
	if m.EncodeFunc != nil {
		return m.EncodeFunc(frame, frameTypes)
	}

	ft := video.FrameDelta
	if len(frameTypes) > 0 && frameTypes[0] == video.FrameKey {
		ft = video.FrameKey
	}
	m.Complete(&video.EncodedImage{
		Data:          DefaultPayload,
		Timestamp:     frame.Timestamp,
		FrameType:     ft,
		QP:            30,
		EncodedWidth:  frame.Width(),
		EncodedHeight: frame.Height(),
		CompleteFrame: true,
	})
	return video.CodecOK
}

func (m *VideoEncoder) SetRateAllocation(allocation video.BitrateAllocation, framerate int) video.ReturnCode {
	m.SetRateCalls = append(m.SetRateCalls, SetRateCall{Allocation: allocation, Framerate: framerate})
	if m.SetRateAllocationFunc != nil {
		return m.SetRateAllocationFunc(allocation, framerate)
	}
	return video.CodecOK
}

func (m *VideoEncoder) Release() video.ReturnCode {
	m.ReleaseCalled = true
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc()
	}
	return video.CodecOK
}

// Complete delivers image to the registered callback, if any.
func (m *VideoEncoder) Complete(image *video.EncodedImage) {
	if m.Callback != nil {
		m.Callback.OnEncodedImage(m.Codec, image)
	}
}

var _ ports.VideoEncoder = (*VideoEncoder)(nil)
