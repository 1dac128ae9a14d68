package ports

import (
	"github.com/user/codectest/pkg/video"
)

// DecodeCompleteCallback receives reconstructed frames.
type DecodeCompleteCallback interface {
	// OnDecodedFrame is called at most once per submitted encoded image.
	// The frame is only valid for the duration of the call.
	OnDecodedFrame(frame *video.VideoFrame)
}

// VideoDecoder abstracts the decoder paired with the codec under test.
type VideoDecoder interface {
	// RegisterDecodeCompleteCallback installs the output handler. nil removes it.
	RegisterDecodeCompleteCallback(cb DecodeCompleteCallback) video.ReturnCode

	// InitDecode configures the decoder.
	InitDecode(settings *video.CodecSettings, numCores int) video.ReturnCode

	// Decode submits one encoded image. Output is delivered through the
	// registered callback, possibly before Decode returns.
	Decode(image *video.EncodedImage, missingFrames bool, renderTimeMs int64) video.ReturnCode

	// Release frees all decoder resources.
	Release() video.ReturnCode
}

// QualityMetrics compares a reconstructed picture against its source.
type QualityMetrics interface {
	// PSNR returns the peak signal-to-noise ratio in dB.
	PSNR(ref, test *video.I420Buffer) float64

	// SSIM returns the structural similarity index in [0, 1].
	SSIM(ref, test *video.I420Buffer) float64
}
