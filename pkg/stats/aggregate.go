package stats

import (
	"math"

	"github.com/user/codectest/pkg/video"
)

// VideoStatistic summarizes a contiguous slice of frames.
type VideoStatistic struct {
	FirstFrame int `json:"first_frame"`
	LastFrame  int `json:"last_frame"`

	TargetBitrateKbps int     `json:"target_bitrate_kbps"`
	InputFramerateFps float64 `json:"input_framerate_fps"`

	BitrateKbps          float64 `json:"bitrate_kbps"`
	FramerateFps         float64 `json:"framerate_fps"`
	BitrateMismatchPct   float64 `json:"bitrate_mismatch_pct"`
	FramerateMismatchPct float64 `json:"framerate_mismatch_pct"`

	NumInputFrames   int `json:"num_input_frames"`
	NumEncodedFrames int `json:"num_encoded_frames"`
	NumDecodedFrames int `json:"num_decoded_frames"`
	NumKeyFrames     int `json:"num_key_frames"`

	AvgKeyFrameSizeBytes   float64 `json:"avg_key_frame_size_bytes"`
	AvgDeltaFrameSizeBytes float64 `json:"avg_delta_frame_size_bytes"`
	MaxNaluSizeBytes       int     `json:"max_nalu_size_bytes"`
	AvgQP                  float64 `json:"avg_qp"`

	AvgEncodeTimeUs float64 `json:"avg_encode_time_us"`
	AvgDecodeTimeUs float64 `json:"avg_decode_time_us"`
	EncodeSpeedFps  float64 `json:"enc_speed_fps"`
	DecodeSpeedFps  float64 `json:"dec_speed_fps"`

	AvgPSNR float64 `json:"avg_psnr"`
	MinPSNR float64 `json:"min_psnr"`
	AvgSSIM float64 `json:"avg_ssim"`
	MinSSIM float64 `json:"min_ssim"`

	Width  int `json:"width"`
	Height int `json:"height"`
}

// SliceAndCalcVideoStatistic aggregates frames first..last inclusive.
// inputFps is the framerate the slice was fed at; it sets the wall-clock
// duration the bitrate is computed over. Bounds are clipped to the ledger.
func (s *Stats) SliceAndCalcVideoStatistic(first, last int, inputFps float64) VideoStatistic {
	if first < 0 {
		first = 0
	}
	if last >= len(s.frames) {
		last = len(s.frames) - 1
	}
	vs := VideoStatistic{
		FirstFrame:        first,
		LastFrame:         last,
		InputFramerateFps: inputFps,
		MinPSNR:           math.Inf(1),
		MinSSIM:           math.Inf(1),
	}
	if last < first {
		vs.MinPSNR, vs.MinSSIM = 0, 0
		return vs
	}

	var (
		totalBytes, keyBytes, deltaBytes int
		numDelta, numQP, numQuality      int
		sumQP, sumEncUs, sumDecUs        float64
		sumPSNR, sumSSIM                 float64
	)

	for _, fs := range s.frames[first : last+1] {
		vs.NumInputFrames++

		if fs.EncodingSuccessful {
			vs.NumEncodedFrames++
			totalBytes += fs.EncodedFrameSizeBytes
			sumEncUs += float64(fs.EncodeTimeUs)
			vs.TargetBitrateKbps = fs.TargetBitrateKbps
			if fs.FrameType == video.FrameKey {
				vs.NumKeyFrames++
				keyBytes += fs.EncodedFrameSizeBytes
			} else {
				numDelta++
				deltaBytes += fs.EncodedFrameSizeBytes
			}
			if fs.QP >= 0 {
				numQP++
				sumQP += float64(fs.QP)
			}
			if fs.MaxNaluSizeBytes > vs.MaxNaluSizeBytes {
				vs.MaxNaluSizeBytes = fs.MaxNaluSizeBytes
			}
		}

		if fs.DecodingSuccessful {
			vs.NumDecodedFrames++
			sumDecUs += float64(fs.DecodeTimeUs)
			vs.Width = fs.DecodedWidth
			vs.Height = fs.DecodedHeight
			// Quality is absent when it was skipped for CPU measurements.
			if fs.PSNR > 0 || fs.SSIM > 0 {
				numQuality++
				sumPSNR += fs.PSNR
				sumSSIM += fs.SSIM
				vs.MinPSNR = math.Min(vs.MinPSNR, fs.PSNR)
				vs.MinSSIM = math.Min(vs.MinSSIM, fs.SSIM)
			}
		}
	}

	if inputFps > 0 {
		durationSec := float64(vs.NumInputFrames) / inputFps
		vs.BitrateKbps = float64(totalBytes) * 8 / 1000 / durationSec
		vs.FramerateFps = float64(vs.NumEncodedFrames) / durationSec
		vs.FramerateMismatchPct = 100 * math.Abs(vs.FramerateFps-inputFps) / inputFps
	}
	if vs.TargetBitrateKbps > 0 {
		target := float64(vs.TargetBitrateKbps)
		vs.BitrateMismatchPct = 100 * math.Abs(vs.BitrateKbps-target) / target
	}
	if vs.NumKeyFrames > 0 {
		vs.AvgKeyFrameSizeBytes = float64(keyBytes) / float64(vs.NumKeyFrames)
	}
	if numDelta > 0 {
		vs.AvgDeltaFrameSizeBytes = float64(deltaBytes) / float64(numDelta)
	}
	if numQP > 0 {
		vs.AvgQP = sumQP / float64(numQP)
	}
	if vs.NumEncodedFrames > 0 {
		vs.AvgEncodeTimeUs = sumEncUs / float64(vs.NumEncodedFrames)
		if vs.AvgEncodeTimeUs > 0 {
			vs.EncodeSpeedFps = 1e6 / vs.AvgEncodeTimeUs
		}
	}
	if vs.NumDecodedFrames > 0 {
		vs.AvgDecodeTimeUs = sumDecUs / float64(vs.NumDecodedFrames)
		if vs.AvgDecodeTimeUs > 0 {
			vs.DecodeSpeedFps = 1e6 / vs.AvgDecodeTimeUs
		}
	}
	if numQuality > 0 {
		vs.AvgPSNR = sumPSNR / float64(numQuality)
		vs.AvgSSIM = sumSSIM / float64(numQuality)
	} else {
		vs.MinPSNR, vs.MinSSIM = 0, 0
	}

	return vs
}
