package loopback

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Eyevinn/mp4ff/avc"

	"github.com/user/codectest/pkg/video"
)

// ErrMalformed is returned by the decoder for a bitstream it cannot parse.
var ErrMalformed = errors.New("malformed loopback bitstream")

const (
	maxDimension = 1<<14 - 1
	minShift     = 1
	maxShift     = 7

	rawMagic0     = 'L'
	rawMagic1     = 'B'
	rawHeaderSize = 8
)

var startCode = []byte{0x00, 0x00, 0x00, 0x01}

// NAL header bytes: nal_ref_idc 3 for SPS/IDR, 2 for non-IDR, 0 for SEI.
const (
	nalHeaderSPS    = 0x67
	nalHeaderSEI    = 0x06
	nalHeaderIDR    = 0x65
	nalHeaderNonIDR = 0x41
)

// frameHeader describes one coded picture.
type frameHeader struct {
	key    bool
	shift  uint8
	width  int
	height int
}

// quantize drops the low shift bits of every sample. Every output byte has
// its top bit set, so a payload never contains an Annex B start code.
func quantize(dst, src []byte, shift uint8) {
	for i, v := range src {
		dst[i] = 0x80 | v>>shift
	}
}

// dequantize restores samples to the middle of their quantization step.
func dequantize(dst, src []byte, shift uint8) {
	half := byte(1) << (shift - 1)
	for i, q := range src {
		dst[i] = (q&0x7f)<<shift | half
	}
}

// writeRaw lays out a frame as an 8 byte header followed by the quantized
// planes.
func writeRaw(hdr frameHeader, samples []byte) []byte {
	out := make([]byte, rawHeaderSize+len(samples))
	out[0], out[1] = rawMagic0, rawMagic1
	if hdr.key {
		out[2] = 1
	}
	out[3] = hdr.shift
	binary.BigEndian.PutUint16(out[4:], uint16(hdr.width))
	binary.BigEndian.PutUint16(out[6:], uint16(hdr.height))
	quantize(out[rawHeaderSize:], samples, hdr.shift)
	return out
}

func readRaw(data []byte) (frameHeader, []byte, error) {
	if len(data) < rawHeaderSize || data[0] != rawMagic0 || data[1] != rawMagic1 {
		return frameHeader{}, nil, fmt.Errorf("%w: missing header", ErrMalformed)
	}
	hdr := frameHeader{
		key:    data[2]&1 == 1,
		shift:  data[3],
		width:  int(binary.BigEndian.Uint16(data[4:])),
		height: int(binary.BigEndian.Uint16(data[6:])),
	}
	return hdr, data[rawHeaderSize:], nil
}

// writeAnnexB lays out a frame as an H.264 style byte stream: a parameter NAL
// unit (SPS on key frames, SEI otherwise) holding the geometry, then the
// quantized planes split into slice NAL units of at most maxNaluSize bytes.
func writeAnnexB(hdr frameHeader, samples []byte, maxNaluSize int) []byte {
	paramHeader, sliceHeader := byte(nalHeaderSEI), byte(nalHeaderNonIDR)
	if hdr.key {
		paramHeader, sliceHeader = nalHeaderSPS, nalHeaderIDR
	}

	chunk := len(samples)
	if maxNaluSize > 1 && maxNaluSize-1 < chunk {
		chunk = maxNaluSize - 1
	}

	out := make([]byte, 0, len(samples)+len(samples)/max(chunk, 1)*5+16)
	out = append(out, startCode...)
	out = append(out, paramHeader, 0x80|hdr.shift,
		0x80|byte(hdr.width>>7), 0x80|byte(hdr.width&0x7f),
		0x80|byte(hdr.height>>7), 0x80|byte(hdr.height&0x7f))

	for off := 0; off < len(samples); off += chunk {
		end := min(off+chunk, len(samples))
		out = append(out, startCode...)
		out = append(out, sliceHeader)
		start := len(out)
		out = append(out, samples[off:end]...)
		quantize(out[start:], samples[off:end], hdr.shift)
	}
	return out
}

func readAnnexB(data []byte) (frameHeader, []byte, error) {
	nalus := avc.ExtractNalusFromByteStream(data)
	if len(nalus) == 0 {
		return frameHeader{}, nil, fmt.Errorf("%w: no NAL units", ErrMalformed)
	}

	param := nalus[0]
	var hdr frameHeader
	switch avc.GetNaluType(param[0]) {
	case avc.NALU_SPS:
		hdr.key = true
	case avc.NALU_SEI:
	default:
		return frameHeader{}, nil, fmt.Errorf("%w: unexpected NAL type %d", ErrMalformed, avc.GetNaluType(param[0]))
	}
	if len(param) != 6 {
		return frameHeader{}, nil, fmt.Errorf("%w: parameter NAL unit of %d bytes", ErrMalformed, len(param))
	}
	hdr.shift = param[1] & 0x7f
	hdr.width = int(param[2]&0x7f)<<7 | int(param[3]&0x7f)
	hdr.height = int(param[4]&0x7f)<<7 | int(param[5]&0x7f)

	var payload []byte
	for _, nalu := range nalus[1:] {
		switch avc.GetNaluType(nalu[0]) {
		case avc.NALU_IDR, avc.NALU_NON_IDR:
			payload = append(payload, nalu[1:]...)
		default:
			return frameHeader{}, nil, fmt.Errorf("%w: unexpected NAL type %d", ErrMalformed, avc.GetNaluType(nalu[0]))
		}
	}
	return hdr, payload, nil
}

// decodePicture rebuilds an I420 buffer from a parsed frame.
func decodePicture(hdr frameHeader, payload []byte) (*video.I420Buffer, error) {
	if hdr.width <= 0 || hdr.height <= 0 || hdr.shift < minShift || hdr.shift > maxShift {
		return nil, fmt.Errorf("%w: bad header %+v", ErrMalformed, hdr)
	}
	size := video.CalcBufferSize(hdr.width, hdr.height)
	if len(payload) != size {
		return nil, fmt.Errorf("%w: %d payload bytes for %dx%d", ErrMalformed, len(payload), hdr.width, hdr.height)
	}
	samples := make([]byte, size)
	dequantize(samples, payload, hdr.shift)
	return video.I420FromBytes(hdr.width, hdr.height, samples)
}
