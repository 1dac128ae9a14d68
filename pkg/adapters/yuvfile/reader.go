// Package yuvfile reads and writes raw planar I420 video files, one packed
// frame after another with no container.
package yuvfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/video"
)

// Reader implements ports.FrameReader over a raw I420 file.
type Reader struct {
	file        *os.File
	r           *bufio.Reader
	width       int
	height      int
	frameLength int
	numFrames   int
	buf         []byte
}

// Open opens a raw I420 file of width x height frames. A trailing partial
// frame is ignored.
func Open(path string, width, height int) (*Reader, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat input: %w", err)
	}

	frameLength := video.CalcBufferSize(width, height)
	return &Reader{
		file:        f,
		r:           bufio.NewReaderSize(f, frameLength),
		width:       width,
		height:      height,
		frameLength: frameLength,
		numFrames:   int(info.Size() / int64(frameLength)),
		buf:         make([]byte, frameLength),
	}, nil
}

// ReadFrame implements ports.FrameReader.
func (r *Reader) ReadFrame() (*video.I420Buffer, error) {
	_, err := io.ReadFull(r.r, r.buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return video.I420FromBytes(r.width, r.height, r.buf)
}

// FrameLength implements ports.FrameReader.
func (r *Reader) FrameLength() int {
	return r.frameLength
}

// NumberOfFrames implements ports.FrameReader.
func (r *Reader) NumberOfFrames() int {
	return r.numFrames
}

// Close implements ports.FrameReader.
func (r *Reader) Close() error {
	return r.file.Close()
}

var _ ports.FrameReader = (*Reader)(nil)
