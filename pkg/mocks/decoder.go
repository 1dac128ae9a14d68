package mocks

import (
	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/video"
)

// VideoDecoder is a mock implementation of ports.VideoDecoder.
//
// Unless DecodeFunc is set, Decode completes synchronously with a mid-gray
// frame of the initialized size before returning.
type VideoDecoder struct {
	InitDecodeFunc func(settings *video.CodecSettings, numCores int) video.ReturnCode
	DecodeFunc     func(image *video.EncodedImage, missingFrames bool, renderTimeMs int64) video.ReturnCode
	ReleaseFunc    func() video.ReturnCode

	// Recorded calls for verification
	Callback          ports.DecodeCompleteCallback
	Settings          video.CodecSettings
	InitDecodeCalled  bool
	DecodeCalls       []DecodeCall
	ReleaseCalled     bool
	RegisterNilCalled bool
}

// DecodeCall records a call to Decode.
type DecodeCall struct {
	Timestamp     uint32
	Size          int
	MissingFrames bool
	RenderTimeMs  int64
}

func (m *VideoDecoder) RegisterDecodeCompleteCallback(cb ports.DecodeCompleteCallback) video.ReturnCode {
	if cb == nil {
		m.RegisterNilCalled = true
	}
	m.Callback = cb
	return video.CodecOK
}

func (m *VideoDecoder) InitDecode(settings *video.CodecSettings, numCores int) video.ReturnCode {
	m.InitDecodeCalled = true
	m.Settings = *settings
	if m.InitDecodeFunc != nil {
		return m.InitDecodeFunc(settings, numCores)
	}
	return video.CodecOK
}

func (m *VideoDecoder) Decode(image *video.EncodedImage, missingFrames bool, renderTimeMs int64) video.ReturnCode {
	m.DecodeCalls = append(m.DecodeCalls, DecodeCall{
		Timestamp:     image.Timestamp,
		Size:          image.Size(),
		MissingFrames: missingFrames,
		RenderTimeMs:  renderTimeMs,
	})
	if m.DecodeFunc != nil {
		return m.DecodeFunc(image, missingFrames, renderTimeMs)
	}

	m.CompleteWithSize(image.Timestamp, m.Settings.Width, m.Settings.Height)
	return video.CodecOK
}

func (m *VideoDecoder) Release() video.ReturnCode {
	m.ReleaseCalled = true
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc()
	}
	return video.CodecOK
}

// Complete delivers frame to the registered callback, if any.
func (m *VideoDecoder) Complete(frame *video.VideoFrame) {
	if m.Callback != nil {
		m.Callback.OnDecodedFrame(frame)
	}
}

// CompleteWithSize delivers a mid-gray width x height frame for timestamp and
// releases it afterwards.
func (m *VideoDecoder) CompleteWithSize(timestamp uint32, width, height int) {
	buf := GrayBuffer(width, height, 128)
	m.Complete(&video.VideoFrame{Buffer: buf, Timestamp: timestamp})
	buf.Release()
}

var _ ports.VideoDecoder = (*VideoDecoder)(nil)
