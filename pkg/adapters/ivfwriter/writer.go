// Package ivfwriter stores encoded frames in an IVF container.
package ivfwriter

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/video"
)

const (
	fileHeaderSize  = 32
	frameHeaderSize = 12
	frameCountAt    = 24
)

var (
	// ErrCodecMismatch is returned for a frame of another codec than the file's.
	ErrCodecMismatch = errors.New("codec does not match file")

	// ErrEmptyFrame is returned for a frame without data.
	ErrEmptyFrame = errors.New("empty encoded frame")
)

// Writer implements ports.EncodedFrameWriter. Timestamps are stored in the
// 90 kHz RTP clock; the frame count in the header is updated on Close.
type Writer struct {
	ws            io.WriteSeeker
	closer        io.Closer
	codec         video.CodecType
	numFrames     uint32
	lastTimestamp int64
	unwrapped     int64
	prevRTP       uint32
}

// Create creates an IVF file at path and writes its header.
func Create(path string, codec video.CodecType, width, height int) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	w, err := New(f, codec, width, height)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// New writes an IVF header to ws and returns a Writer appending to it.
func New(ws io.WriteSeeker, codec video.CodecType, width, height int) (*Writer, error) {
	fourcc, err := fourCC(codec)
	if err != nil {
		return nil, err
	}
	if width <= 0 || width > 0xFFFF || height <= 0 || height > 0xFFFF {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	var hdr [fileHeaderSize]byte
	copy(hdr[0:4], "DKIF")
	binary.LittleEndian.PutUint16(hdr[4:], 0) // version
	binary.LittleEndian.PutUint16(hdr[6:], fileHeaderSize)
	copy(hdr[8:12], fourcc)
	binary.LittleEndian.PutUint16(hdr[12:], uint16(width))
	binary.LittleEndian.PutUint16(hdr[14:], uint16(height))
	binary.LittleEndian.PutUint32(hdr[16:], video.PayloadClockRate)
	binary.LittleEndian.PutUint32(hdr[20:], 1)
	if _, err := ws.Write(hdr[:]); err != nil {
		return nil, fmt.Errorf("write ivf header: %w", err)
	}

	return &Writer{ws: ws, codec: codec, lastTimestamp: -1}, nil
}

func fourCC(codec video.CodecType) (string, error) {
	switch codec {
	case video.CodecVP8:
		return "VP80", nil
	case video.CodecVP9:
		return "VP90", nil
	case video.CodecH264:
		return "H264", nil
	default:
		return "", fmt.Errorf("no ivf fourcc for codec %s", codec)
	}
}

// WriteFrame implements ports.EncodedFrameWriter.
func (w *Writer) WriteFrame(image *video.EncodedImage, codec video.CodecType) error {
	if codec != w.codec {
		return fmt.Errorf("%w: %s frame in %s file", ErrCodecMismatch, codec, w.codec)
	}
	if image.Size() == 0 {
		return ErrEmptyFrame
	}

	ts := w.unwrap(image.Timestamp)
	if ts <= w.lastTimestamp {
		return fmt.Errorf("timestamp %d does not follow %d", ts, w.lastTimestamp)
	}
	w.lastTimestamp = ts

	var hdr [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(image.Size()))
	binary.LittleEndian.PutUint64(hdr[4:], uint64(ts))
	if _, err := w.ws.Write(hdr[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.ws.Write(image.Data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	w.numFrames++
	return nil
}

// unwrap extends 32-bit RTP timestamps to 64 bits across wraparound.
func (w *Writer) unwrap(rtp uint32) int64 {
	if w.lastTimestamp < 0 {
		w.unwrapped = int64(rtp)
	} else {
		w.unwrapped += int64(int32(rtp - w.prevRTP))
	}
	w.prevRTP = rtp
	return w.unwrapped
}

// FramesWritten returns the number of frames written so far.
func (w *Writer) FramesWritten() int {
	return int(w.numFrames)
}

// Close stores the final frame count in the header and closes the file.
func (w *Writer) Close() error {
	err := w.writeFrameCount()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (w *Writer) writeFrameCount() error {
	if _, err := w.ws.Seek(frameCountAt, io.SeekStart); err != nil {
		return fmt.Errorf("seek to frame count: %w", err)
	}
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], w.numFrames)
	if _, err := w.ws.Write(n[:]); err != nil {
		return fmt.Errorf("write frame count: %w", err)
	}
	_, err := w.ws.Seek(0, io.SeekEnd)
	return err
}

var _ ports.EncodedFrameWriter = (*Writer)(nil)
