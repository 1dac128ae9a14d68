package loopback

import (
	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/video"
)

// DecoderOptions configures a Decoder.
type DecoderOptions struct {
	// DropInterval discards every DropInterval-th delta frame without
	// output. 0 keeps all frames; 1 is invalid.
	DropInterval int

	// ScaleDown divides the output width and height by this factor. 0 or 1
	// keeps the coded size. It must divide the configured size evenly.
	ScaleDown int
}

// Decoder implements ports.VideoDecoder.
type Decoder struct {
	opts        DecoderOptions
	callback    ports.DecodeCompleteCallback
	codec       video.CodecType
	initialized bool
	frames      int
}

// NewDecoder creates a Decoder.
func NewDecoder(opts DecoderOptions) *Decoder {
	return &Decoder{opts: opts}
}

// RegisterDecodeCompleteCallback implements ports.VideoDecoder.
func (d *Decoder) RegisterDecodeCompleteCallback(cb ports.DecodeCompleteCallback) video.ReturnCode {
	d.callback = cb
	return video.CodecOK
}

// InitDecode implements ports.VideoDecoder.
func (d *Decoder) InitDecode(settings *video.CodecSettings, numCores int) video.ReturnCode {
	if settings == nil || !validSize(settings.Width, settings.Height) || numCores < 1 {
		return video.CodecErrParameter
	}
	if d.opts.DropInterval < 0 || d.opts.DropInterval == 1 || d.opts.ScaleDown < 0 {
		return video.CodecErrParameter
	}
	if s := d.opts.ScaleDown; s > 1 && (settings.Width%s != 0 || settings.Height%s != 0) {
		return video.CodecErrParameter
	}
	d.codec = settings.Type
	d.frames = 0
	d.initialized = true
	return video.CodecOK
}

// Decode implements ports.VideoDecoder. Dropped frames return CodecNoOutput;
// an unparsable bitstream returns CodecError.
func (d *Decoder) Decode(image *video.EncodedImage, missingFrames bool, renderTimeMs int64) video.ReturnCode {
	if !d.initialized || d.callback == nil {
		return video.CodecUninitialized
	}
	if image == nil || image.Size() == 0 {
		return video.CodecErrParameter
	}

	n := d.frames
	d.frames++
	if image.FrameType != video.FrameKey && d.opts.DropInterval > 0 && n%d.opts.DropInterval == d.opts.DropInterval-1 {
		return video.CodecNoOutput
	}

	var (
		hdr     frameHeader
		payload []byte
		err     error
	)
	if d.codec == video.CodecH264 {
		hdr, payload, err = readAnnexB(image.Data)
	} else {
		hdr, payload, err = readRaw(image.Data)
	}
	if err != nil {
		return video.CodecError
	}
	buf, err := decodePicture(hdr, payload)
	if err != nil {
		return video.CodecError
	}

	if s := d.opts.ScaleDown; s > 1 {
		scaled := video.NewI420Buffer(hdr.width/s, hdr.height/s)
		scaled.ScaleFrom(buf)
		buf.Release()
		buf = scaled
	}

	d.callback.OnDecodedFrame(&video.VideoFrame{
		Buffer:       buf,
		Timestamp:    image.Timestamp,
		RenderTimeMs: renderTimeMs,
	})
	buf.Release()
	return video.CodecOK
}

// Release implements ports.VideoDecoder.
func (d *Decoder) Release() video.ReturnCode {
	d.initialized = false
	return video.CodecOK
}

var _ ports.VideoDecoder = (*Decoder)(nil)
