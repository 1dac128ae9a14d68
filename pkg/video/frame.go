package video

// VideoFrame is a raw picture with its timing metadata.
type VideoFrame struct {
	Buffer       *I420Buffer
	Timestamp    uint32 // RTP timestamp, 90 kHz
	RenderTimeMs int64
	Rotation     Rotation
}

// Width returns the picture width, or 0 when the frame has no buffer.
func (f *VideoFrame) Width() int {
	if f.Buffer == nil {
		return 0
	}
	return f.Buffer.Width()
}

// Height returns the picture height, or 0 when the frame has no buffer.
func (f *VideoFrame) Height() int {
	if f.Buffer == nil {
		return 0
	}
	return f.Buffer.Height()
}

// EncodedImage is the bitstream produced by an encoder for one frame.
type EncodedImage struct {
	Data          []byte
	Timestamp     uint32 // RTP timestamp of the source frame
	FrameType     FrameType
	QP            int // -1 when the encoder does not report it
	EncodedWidth  int
	EncodedHeight int
	SpatialIndex  int
	CompleteFrame bool
}

// Size returns the bitstream length in bytes.
func (e *EncodedImage) Size() int {
	return len(e.Data)
}
