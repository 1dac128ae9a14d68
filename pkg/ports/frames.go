package ports

import (
	"github.com/user/codectest/pkg/video"
)

// FrameReader supplies raw input frames in display order.
type FrameReader interface {
	// ReadFrame returns the next frame, or io.EOF once the source is exhausted.
	// The caller owns the returned buffer reference.
	ReadFrame() (*video.I420Buffer, error)

	// FrameLength returns the packed I420 size of one frame in bytes.
	FrameLength() int

	// NumberOfFrames returns the total frame count, or -1 if unknown.
	NumberOfFrames() int

	// Close releases the underlying source.
	Close() error
}

// FrameWriter persists reconstructed frames of a fixed size.
type FrameWriter interface {
	// WriteFrame writes one packed I420 frame. len(data) must equal FrameLength.
	// The writer must not keep data after returning.
	WriteFrame(data []byte) error

	// FrameLength returns the size every frame must have.
	FrameLength() int

	// Close flushes and closes the output.
	Close() error
}

// EncodedFrameWriter persists encoder output.
type EncodedFrameWriter interface {
	// WriteFrame appends one encoded image to the output.
	WriteFrame(image *video.EncodedImage, codec video.CodecType) error

	// Close flushes and closes the output.
	Close() error
}
