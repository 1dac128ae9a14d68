package video

import "errors"

var (
	// ErrBufferSize is returned when a byte slice does not match the expected frame size.
	ErrBufferSize = errors.New("video: buffer size mismatch")

	// ErrReleased is returned when reading from a buffer whose references were all dropped.
	ErrReleased = errors.New("video: buffer already released")
)
