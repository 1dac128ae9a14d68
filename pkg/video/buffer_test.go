package video

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcBufferSize(t *testing.T) {
	tests := []struct {
		width, height int
		want          int
	}{
		{352, 288, 352*288 + 2*176*144},
		{320, 180, 320*180 + 2*160*90},
		{3, 3, 9 + 2*2*2},
		{1, 1, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CalcBufferSize(tt.width, tt.height), "%dx%d", tt.width, tt.height)
	}
}

func TestI420FromBytes_ExtractRoundTrip(t *testing.T) {
	data := make([]byte, CalcBufferSize(4, 2))
	for i := range data {
		data[i] = byte(i + 1)
	}

	buf, err := I420FromBytes(4, 2, data)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, buf.DataY())
	assert.Equal(t, []byte{9, 10}, buf.DataU())
	assert.Equal(t, []byte{11, 12}, buf.DataV())

	out := make([]byte, buf.Size())
	n, err := ExtractBuffer(buf, out)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, out)
}

func TestI420FromBytes_WrongSize(t *testing.T) {
	_, err := I420FromBytes(4, 4, make([]byte, 10))
	assert.ErrorIs(t, err, ErrBufferSize)
}

func TestExtractBuffer_DestinationTooSmall(t *testing.T) {
	buf := NewI420Buffer(8, 8)
	_, err := ExtractBuffer(buf, make([]byte, 8))
	assert.ErrorIs(t, err, ErrBufferSize)
}

func TestI420Buffer_RefCounting(t *testing.T) {
	buf := NewI420Buffer(4, 4)
	assert.Equal(t, 1, buf.RefCount())

	buf.Retain()
	assert.Equal(t, 2, buf.RefCount())

	buf.Release()
	assert.False(t, buf.Released())
	assert.NotNil(t, buf.DataY())

	buf.Release()
	assert.True(t, buf.Released())
	assert.Nil(t, buf.DataY())

	_, err := ExtractBuffer(buf, make([]byte, 64))
	assert.ErrorIs(t, err, ErrReleased)

	assert.Panics(t, func() { buf.Release() })
}

func TestI420Buffer_RetainAfterReleasePanics(t *testing.T) {
	buf := NewI420Buffer(2, 2)
	buf.Release()
	assert.Panics(t, func() { buf.Retain() })
}

func TestI420Buffer_ScaleFrom(t *testing.T) {
	src := NewI420Buffer(64, 48)
	for i := range src.DataY() {
		src.DataY()[i] = 200
	}
	for i := range src.DataU() {
		src.DataU()[i] = 100
		src.DataV()[i] = 50
	}

	dst := NewI420Buffer(32, 24)
	dst.ScaleFrom(src)

	assert.Equal(t, CalcBufferSize(32, 24), dst.Size())
	// A flat picture stays flat after resampling.
	for _, p := range dst.DataY() {
		require.Equal(t, byte(200), p)
	}
	for i := range dst.DataU() {
		require.Equal(t, byte(100), dst.DataU()[i])
		require.Equal(t, byte(50), dst.DataV()[i])
	}
}

func TestI420Buffer_ScaleFromSameSizeCopies(t *testing.T) {
	src := NewI420Buffer(4, 4)
	src.DataY()[5] = 77
	dst := NewI420Buffer(4, 4)
	dst.ScaleFrom(src)
	assert.Equal(t, src.DataY(), dst.DataY())
}

func TestI420FromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	buf := I420FromImage(img)
	assert.Equal(t, 4, buf.Width())
	assert.Equal(t, 4, buf.Height())
	for _, p := range buf.DataY() {
		assert.Equal(t, byte(255), p)
	}
	for i := range buf.DataU() {
		assert.Equal(t, byte(128), buf.DataU()[i])
		assert.Equal(t, byte(128), buf.DataV()[i])
	}
}

func TestBitrateAllocation(t *testing.T) {
	var a BitrateAllocation
	a.SetBitrate(0, 0, 300000)
	a.SetBitrate(0, 1, 200000)
	a.SetBitrate(1, 0, 100000)

	assert.Equal(t, uint32(500000), a.GetSpatialLayerSum(0))
	assert.Equal(t, uint32(100000), a.GetSpatialLayerSum(1))
	assert.Equal(t, uint32(600000), a.Sum())

	a.SetBitrate(0, 1, 50000)
	assert.Equal(t, uint32(450000), a.Sum())

	// Out of range is ignored.
	a.SetBitrate(MaxSpatialLayers, 0, 1)
	assert.Equal(t, uint32(450000), a.Sum())
	assert.Equal(t, uint32(0), a.GetSpatialLayerSum(-1))
}

func TestParseCodecType(t *testing.T) {
	tests := map[string]CodecType{
		"vp8":   CodecVP8,
		"VP9":   CodecVP9,
		"h264":  CodecH264,
		"H.264": CodecH264,
		"":      CodecGeneric,
	}
	for in, want := range tests {
		got, err := ParseCodecType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseCodecType("mpeg2")
	assert.Error(t, err)
}
