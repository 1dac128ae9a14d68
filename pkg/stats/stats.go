// Package stats holds the per-frame measurement ledger of a codec run.
package stats

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/user/codectest/pkg/video"
)

// FrameStatistic is the measurement record of one submitted frame.
//
// It is created when the frame is handed to the encoder and filled in by the
// encode- and decode-complete handlers. Records of frames whose completion
// never arrived keep their zero values and the Uninitialized return codes.
type FrameStatistic struct {
	FrameNumber  int    `json:"frame_number"`
	RTPTimestamp uint32 `json:"rtp_timestamp"`

	// Encoding.
	EncodeStartNs         int64            `json:"encode_start_ns"`
	EncodeTimeUs          int              `json:"encode_time_us"`
	EncodeReturnCode      video.ReturnCode `json:"encode_return_code"`
	EncodingSuccessful    bool             `json:"encoding_successful"`
	EncodedFrameSizeBytes int              `json:"encoded_frame_size_bytes"`
	FrameType             video.FrameType  `json:"frame_type"`
	TemporalLayerIdx      int              `json:"temporal_layer_idx"`
	QP                    int              `json:"qp"`
	TargetBitrateKbps     int              `json:"target_bitrate_kbps"`
	MaxNaluSizeBytes      int              `json:"max_nalu_size_bytes"`

	// Decoding.
	DecodeStartNs      int64            `json:"decode_start_ns"`
	DecodeTimeUs       int              `json:"decode_time_us"`
	DecodeReturnCode   video.ReturnCode `json:"decode_return_code"`
	DecodingSuccessful bool             `json:"decoding_successful"`
	DecodedWidth       int              `json:"decoded_width"`
	DecodedHeight      int              `json:"decoded_height"`

	// Quality.
	PSNR float64 `json:"psnr"`
	SSIM float64 `json:"ssim"`
}

// Stats is an append-only ledger of frame statistics, addressable by frame
// number and by RTP timestamp.
//
// Stats is not safe for concurrent use; the processor mutates it from its
// serialized call sequence only.
type Stats struct {
	frames      []*FrameStatistic
	byTimestamp map[uint32]int
}

// New creates an empty ledger.
func New() *Stats {
	return &Stats{
		byTimestamp: make(map[uint32]int),
	}
}

// AddFrame appends a record for the next frame and returns it for filling in.
// The frame number is the record's position in the ledger. Timestamps must be
// unique; AddFrame panics on a timestamp it already holds.
func (s *Stats) AddFrame(timestamp uint32) *FrameStatistic {
	fs := &FrameStatistic{
		FrameNumber:      len(s.frames),
		RTPTimestamp:     timestamp,
		QP:               -1,
		EncodeReturnCode: video.CodecUninitialized,
		DecodeReturnCode: video.CodecUninitialized,
	}
	if prev, ok := s.byTimestamp[timestamp]; ok {
		panic(fmt.Sprintf("stats: timestamp %d already recorded for frame %d", timestamp, prev))
	}
	s.byTimestamp[timestamp] = fs.FrameNumber
	s.frames = append(s.frames, fs)
	return fs
}

// GetFrame returns the record for a frame number, or nil if out of range.
func (s *Stats) GetFrame(frameNumber int) *FrameStatistic {
	if frameNumber < 0 || frameNumber >= len(s.frames) {
		return nil
	}
	return s.frames[frameNumber]
}

// GetFrameWithTimestamp returns the record created for timestamp, or nil.
func (s *Stats) GetFrameWithTimestamp(timestamp uint32) *FrameStatistic {
	idx, ok := s.byTimestamp[timestamp]
	if !ok {
		return nil
	}
	return s.frames[idx]
}

// HasTimestamp reports whether a record was created for timestamp.
func (s *Stats) HasTimestamp(timestamp uint32) bool {
	_, ok := s.byTimestamp[timestamp]
	return ok
}

// Size returns the number of records.
func (s *Stats) Size() int {
	return len(s.frames)
}

// Frames returns a snapshot copy of all records in frame order.
func (s *Stats) Frames() []FrameStatistic {
	out := make([]FrameStatistic, len(s.frames))
	for i, fs := range s.frames {
		out[i] = *fs
	}
	return out
}

// WriteJSON writes all records as an indented JSON array.
func (s *Stats) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.Frames())
}
