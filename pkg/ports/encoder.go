// Package ports defines interfaces for external dependencies.
package ports

import (
	"github.com/user/codectest/pkg/video"
)

// EncodeCompleteCallback receives encoder output.
type EncodeCompleteCallback interface {
	// OnEncodedImage is called at most once per submitted frame.
	// The image is only valid for the duration of the call.
	OnEncodedImage(codec video.CodecType, image *video.EncodedImage)
}

// VideoEncoder abstracts a codec under test.
//
// Encode returns as soon as the frame is accepted; output is delivered through
// the registered EncodeCompleteCallback, possibly before Encode returns.
type VideoEncoder interface {
	// RegisterEncodeCompleteCallback installs the output handler. nil removes it.
	RegisterEncodeCompleteCallback(cb EncodeCompleteCallback) video.ReturnCode

	// InitEncode configures the encoder. maxPayloadBytes bounds a single packet.
	InitEncode(settings *video.CodecSettings, numCores, maxPayloadBytes int) video.ReturnCode

	// Encode submits one frame. frameTypes requests key or delta frames per stream.
	Encode(frame *video.VideoFrame, frameTypes []video.FrameType) video.ReturnCode

	// SetRateAllocation updates the target rates. A negative result means the
	// encoder rejected the change.
	SetRateAllocation(allocation video.BitrateAllocation, framerate int) video.ReturnCode

	// Release frees all encoder resources.
	Release() video.ReturnCode
}

// BitrateAllocator distributes a total target rate over codec layers.
type BitrateAllocator interface {
	GetAllocation(totalBps, framerate uint32) video.BitrateAllocation
}

// EncodedFrameChecker validates encoder output before it is measured.
// A non-nil error aborts the run.
type EncodedFrameChecker interface {
	CheckEncodedFrame(codec video.CodecType, image *video.EncodedImage) error
}
