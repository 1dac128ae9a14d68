// Package video defines the raw and encoded frame types exchanged between the
// processing pipeline and the codecs under test.
package video

import (
	"fmt"
	"strings"
)

// PayloadClockRate is the RTP clock rate used for video timestamps (90 kHz).
const PayloadClockRate = 90000

// CodecType identifies the compression format of a stream.
type CodecType int

const (
	CodecGeneric CodecType = iota
	CodecVP8
	CodecVP9
	CodecH264
)

// String returns the lower-case codec name.
func (c CodecType) String() string {
	switch c {
	case CodecVP8:
		return "vp8"
	case CodecVP9:
		return "vp9"
	case CodecH264:
		return "h264"
	default:
		return "generic"
	}
}

// ParseCodecType parses a codec name such as "vp8" or "H264".
func ParseCodecType(s string) (CodecType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vp8":
		return CodecVP8, nil
	case "vp9":
		return CodecVP9, nil
	case "h264", "h.264", "avc":
		return CodecH264, nil
	case "generic", "":
		return CodecGeneric, nil
	default:
		return CodecGeneric, fmt.Errorf("unknown codec %q", s)
	}
}

// FrameType tells whether an encoded frame can be decoded on its own.
type FrameType int

const (
	FrameEmpty FrameType = iota
	FrameKey
	FrameDelta
)

// String returns the frame type name.
func (t FrameType) String() string {
	switch t {
	case FrameKey:
		return "key"
	case FrameDelta:
		return "delta"
	default:
		return "empty"
	}
}

// Rotation is the clockwise rotation to apply when rendering a frame.
type Rotation int

const (
	Rotation0   Rotation = 0
	Rotation90  Rotation = 90
	Rotation180 Rotation = 180
	Rotation270 Rotation = 270
)

// ReturnCode is the status returned by codec calls. CodecOK is success;
// positive values are informational, negative values are failures.
type ReturnCode int32

const (
	CodecOK                     ReturnCode = 0
	CodecNoOutput               ReturnCode = 1
	CodecTargetBitrateOvershoot ReturnCode = 5
	CodecError                  ReturnCode = -1
	CodecMemory                 ReturnCode = -3
	CodecErrParameter           ReturnCode = -4
	CodecUninitialized          ReturnCode = -7
	CodecFallbackSoftware       ReturnCode = -13
)

// String returns a readable name for the code.
func (r ReturnCode) String() string {
	switch r {
	case CodecOK:
		return "ok"
	case CodecNoOutput:
		return "no_output"
	case CodecTargetBitrateOvershoot:
		return "target_bitrate_overshoot"
	case CodecError:
		return "error"
	case CodecMemory:
		return "memory"
	case CodecErrParameter:
		return "err_parameter"
	case CodecUninitialized:
		return "uninitialized"
	case CodecFallbackSoftware:
		return "fallback_software"
	default:
		return fmt.Sprintf("code(%d)", int32(r))
	}
}
