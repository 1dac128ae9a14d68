package processor

import (
	"math"

	"github.com/Eyevinn/mp4ff/avc"

	"github.com/user/codectest/pkg/video"
)

const nanosPerMicrosecond = 1000

// elapsedMicroseconds converts a nanosecond interval to whole microseconds,
// truncating toward zero.
func elapsedMicroseconds(startNs, stopNs int64) int {
	diffUs := (stopNs - startNs) / nanosPerMicrosecond
	check(diffUs >= math.MinInt32 && diffUs <= math.MaxInt32,
		"elapsed time", "%d us does not fit in 32 bits", diffUs)
	return int(diffUs)
}

// maxNaluSizeBytes returns the largest NAL unit payload of an H.264 Annex B
// access unit, start codes excluded. Other codecs report 0.
func maxNaluSizeBytes(img *video.EncodedImage, codec video.CodecType) int {
	if codec != video.CodecH264 {
		return 0
	}

	nalus := avc.ExtractNalusFromByteStream(img.Data)
	check(len(nalus) > 0, "max nalu size", "no NAL units in %d byte frame", img.Size())

	maxSize := 0
	for _, nalu := range nalus {
		maxSize = max(maxSize, len(nalu))
	}
	return maxSize
}

// extractBufferWithSize packs frame into *buf at width x height. A frame of
// another size is scaled, which is only allowed when the aspect ratio is
// unchanged. *buf is resized to exactly CalcBufferSize(width, height).
func extractBufferWithSize(frame *video.VideoFrame, width, height int, buf *[]byte) {
	src := frame.Buffer
	if src.Width() != width || src.Height() != height {
		check(width*src.Height() == src.Width()*height, "resize",
			"aspect ratio of %dx%d differs from %dx%d", src.Width(), src.Height(), width, height)
		scaled := video.NewI420Buffer(width, height)
		scaled.ScaleFrom(src)
		src = scaled
	}

	length := video.CalcBufferSize(width, height)
	if cap(*buf) < length {
		*buf = make([]byte, length)
	}
	*buf = (*buf)[:length]

	_, err := video.ExtractBuffer(src, *buf)
	check(err == nil, "resize", "extract %dx%d: %v", width, height, err)
}
