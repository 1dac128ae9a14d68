package yuvfile

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/video"
)

// ErrFrameLength is returned when a frame does not have the writer's length.
var ErrFrameLength = errors.New("frame length mismatch")

// Writer implements ports.FrameWriter, appending packed I420 frames of one
// fixed size to a file.
type Writer struct {
	file        *os.File
	w           *bufio.Writer
	frameLength int
	frames      int
}

// Create creates (or truncates) path for width x height frames. Missing
// parent directories are created.
func Create(path string, width, height int) (*Writer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	frameLength := video.CalcBufferSize(width, height)
	return &Writer{
		file:        f,
		w:           bufio.NewWriterSize(f, frameLength),
		frameLength: frameLength,
	}, nil
}

// WriteFrame implements ports.FrameWriter.
func (w *Writer) WriteFrame(data []byte) error {
	if len(data) != w.frameLength {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameLength, len(data), w.frameLength)
	}
	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("write frame %d: %w", w.frames, err)
	}
	w.frames++
	return nil
}

// FrameLength implements ports.FrameWriter.
func (w *Writer) FrameLength() int {
	return w.frameLength
}

// FramesWritten returns the number of frames written so far.
func (w *Writer) FramesWritten() int {
	return w.frames
}

// Close flushes buffered frames and closes the file.
func (w *Writer) Close() error {
	flushErr := w.w.Flush()
	closeErr := w.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flush output: %w", flushErr)
	}
	return closeErr
}

var _ ports.FrameWriter = (*Writer)(nil)
