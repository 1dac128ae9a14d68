package mocks

import (
	"io"

	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/video"
)

// GrayBuffer returns a buffer with every sample set to value.
func GrayBuffer(width, height int, value byte) *video.I420Buffer {
	b := video.NewI420Buffer(width, height)
	for _, plane := range [][]byte{b.DataY(), b.DataU(), b.DataV()} {
		for i := range plane {
			plane[i] = value
		}
	}
	return b
}

// FrameReader is a mock implementation of ports.FrameReader that serves
// NumFrames flat frames whose luma value is the frame index.
type FrameReader struct {
	Width     int
	Height    int
	NumFrames int

	ReadFrameFunc func() (*video.I420Buffer, error)

	// Recorded calls for verification
	Buffers     []*video.I420Buffer
	ReadCalls   int
	CloseCalled bool
}

// NewFrameReader creates a reader of n frames of the given size.
func NewFrameReader(width, height, n int) *FrameReader {
	return &FrameReader{Width: width, Height: height, NumFrames: n}
}

func (m *FrameReader) ReadFrame() (*video.I420Buffer, error) {
	m.ReadCalls++
	if m.ReadFrameFunc != nil {
		return m.ReadFrameFunc()
	}
	if len(m.Buffers) >= m.NumFrames {
		return nil, io.EOF
	}
	buf := GrayBuffer(m.Width, m.Height, 128)
	y := buf.DataY()
	for i := range y {
		y[i] = byte(len(m.Buffers))
	}
	m.Buffers = append(m.Buffers, buf)
	return buf, nil
}

func (m *FrameReader) FrameLength() int {
	return video.CalcBufferSize(m.Width, m.Height)
}

func (m *FrameReader) NumberOfFrames() int {
	return m.NumFrames
}

func (m *FrameReader) Close() error {
	m.CloseCalled = true
	return nil
}

// FrameWriter is a mock implementation of ports.FrameWriter that keeps a
// copy of every frame written.
type FrameWriter struct {
	Length int

	WriteFrameFunc func(data []byte) error

	// Recorded calls for verification
	Frames      [][]byte
	CloseCalled bool
}

// NewFrameWriter creates a writer expecting frames of the given size.
func NewFrameWriter(width, height int) *FrameWriter {
	return &FrameWriter{Length: video.CalcBufferSize(width, height)}
}

func (m *FrameWriter) WriteFrame(data []byte) error {
	if m.WriteFrameFunc != nil {
		return m.WriteFrameFunc(data)
	}
	m.Frames = append(m.Frames, append([]byte(nil), data...))
	return nil
}

func (m *FrameWriter) FrameLength() int {
	return m.Length
}

func (m *FrameWriter) Close() error {
	m.CloseCalled = true
	return nil
}

// EncodedFrameWriter is a mock implementation of ports.EncodedFrameWriter.
type EncodedFrameWriter struct {
	WriteFrameFunc func(image *video.EncodedImage, codec video.CodecType) error

	// Recorded calls for verification
	Timestamps  []uint32
	Sizes       []int
	CloseCalled bool
}

func (m *EncodedFrameWriter) WriteFrame(image *video.EncodedImage, codec video.CodecType) error {
	if m.WriteFrameFunc != nil {
		return m.WriteFrameFunc(image, codec)
	}
	m.Timestamps = append(m.Timestamps, image.Timestamp)
	m.Sizes = append(m.Sizes, image.Size())
	return nil
}

func (m *EncodedFrameWriter) Close() error {
	m.CloseCalled = true
	return nil
}

// QualityMetrics is a mock implementation of ports.QualityMetrics returning
// fixed values.
type QualityMetrics struct {
	PSNRValue float64
	SSIMValue float64

	// Recorded calls for verification
	PSNRCalls int
	SSIMCalls int
}

func (m *QualityMetrics) PSNR(ref, test *video.I420Buffer) float64 {
	m.PSNRCalls++
	return m.PSNRValue
}

func (m *QualityMetrics) SSIM(ref, test *video.I420Buffer) float64 {
	m.SSIMCalls++
	return m.SSIMValue
}

// EncodedFrameChecker is a mock implementation of ports.EncodedFrameChecker.
type EncodedFrameChecker struct {
	CheckFunc func(codec video.CodecType, image *video.EncodedImage) error

	// Recorded calls for verification
	Calls int
}

func (m *EncodedFrameChecker) CheckEncodedFrame(codec video.CodecType, image *video.EncodedImage) error {
	m.Calls++
	if m.CheckFunc != nil {
		return m.CheckFunc(codec, image)
	}
	return nil
}

var (
	_ ports.FrameReader         = (*FrameReader)(nil)
	_ ports.FrameWriter         = (*FrameWriter)(nil)
	_ ports.EncodedFrameWriter  = (*EncodedFrameWriter)(nil)
	_ ports.QualityMetrics      = (*QualityMetrics)(nil)
	_ ports.EncodedFrameChecker = (*EncodedFrameChecker)(nil)
)
