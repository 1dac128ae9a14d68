package video

import (
	"fmt"
	"image"
	"image/color"
	"sync/atomic"

	"golang.org/x/image/draw"
)

// I420Buffer holds a planar YUV 4:2:0 picture with tightly packed planes.
//
// Buffers are reference counted: the creator owns one reference, every
// additional holder calls Retain and later Release. The pixel planes are
// dropped when the last reference goes away.
type I420Buffer struct {
	width  int
	height int
	y      []byte
	u      []byte
	v      []byte
	refs   atomic.Int32
}

// NewI420Buffer allocates a zeroed buffer holding one reference.
func NewI420Buffer(width, height int) *I420Buffer {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("video: invalid I420 dimensions %dx%d", width, height))
	}
	cw, ch := chromaSize(width, height)
	b := &I420Buffer{
		width:  width,
		height: height,
		y:      make([]byte, width*height),
		u:      make([]byte, cw*ch),
		v:      make([]byte, cw*ch),
	}
	b.refs.Store(1)
	return b
}

// I420FromBytes copies a packed I420 frame (Y, then U, then V) into a new buffer.
func I420FromBytes(width, height int, data []byte) (*I420Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if want := CalcBufferSize(width, height); len(data) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d for %dx%d", ErrBufferSize, len(data), want, width, height)
	}
	b := NewI420Buffer(width, height)
	n := copy(b.y, data)
	n += copy(b.u, data[n:])
	copy(b.v, data[n:])
	return b, nil
}

// I420FromImage converts an arbitrary image to I420 using BT.601 coefficients.
// Chroma is averaged over each 2x2 block.
func I420FromImage(img image.Image) *I420Buffer {
	r := img.Bounds()
	b := NewI420Buffer(r.Dx(), r.Dy())
	cw, _ := chromaSize(b.width, b.height)

	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			yy, _, _ := toYCbCr(img.At(r.Min.X+x, r.Min.Y+y))
			b.y[y*b.width+x] = yy
		}
	}
	for cy := 0; cy*2 < b.height; cy++ {
		for cx := 0; cx*2 < b.width; cx++ {
			var sumU, sumV, n int
			for dy := 0; dy < 2 && cy*2+dy < b.height; dy++ {
				for dx := 0; dx < 2 && cx*2+dx < b.width; dx++ {
					_, cb, cr := toYCbCr(img.At(r.Min.X+cx*2+dx, r.Min.Y+cy*2+dy))
					sumU += int(cb)
					sumV += int(cr)
					n++
				}
			}
			b.u[cy*cw+cx] = byte((sumU + n/2) / n)
			b.v[cy*cw+cx] = byte((sumV + n/2) / n)
		}
	}
	return b
}

func toYCbCr(c color.Color) (uint8, uint8, uint8) {
	r, g, b, _ := c.RGBA()
	return color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

func chromaSize(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}

// CalcBufferSize returns the packed I420 size in bytes for the given dimensions.
func CalcBufferSize(width, height int) int {
	cw, ch := chromaSize(width, height)
	return width*height + 2*cw*ch
}

// Width returns the luma width.
func (b *I420Buffer) Width() int { return b.width }

// Height returns the luma height.
func (b *I420Buffer) Height() int { return b.height }

// ChromaWidth returns the width of the U and V planes.
func (b *I420Buffer) ChromaWidth() int { return (b.width + 1) / 2 }

// ChromaHeight returns the height of the U and V planes.
func (b *I420Buffer) ChromaHeight() int { return (b.height + 1) / 2 }

// DataY returns the luma plane.
func (b *I420Buffer) DataY() []byte { return b.y }

// DataU returns the Cb plane.
func (b *I420Buffer) DataU() []byte { return b.u }

// DataV returns the Cr plane.
func (b *I420Buffer) DataV() []byte { return b.v }

// Size returns the packed size of the buffer in bytes.
func (b *I420Buffer) Size() int { return CalcBufferSize(b.width, b.height) }

// Retain adds a reference and returns the buffer for chaining.
func (b *I420Buffer) Retain() *I420Buffer {
	if b.refs.Add(1) <= 1 {
		panic("video: retain of released I420 buffer")
	}
	return b
}

// Release drops a reference. The planes are freed when the count reaches zero.
func (b *I420Buffer) Release() {
	n := b.refs.Add(-1)
	switch {
	case n == 0:
		b.y, b.u, b.v = nil, nil, nil
	case n < 0:
		panic("video: I420 buffer released too many times")
	}
}

// Released reports whether every reference has been dropped.
func (b *I420Buffer) Released() bool {
	return b.refs.Load() <= 0
}

// RefCount returns the current number of references.
func (b *I420Buffer) RefCount() int {
	return int(b.refs.Load())
}

// Clone returns a deep copy holding a single reference.
func (b *I420Buffer) Clone() *I420Buffer {
	c := NewI420Buffer(b.width, b.height)
	copy(c.y, b.y)
	copy(c.u, b.u)
	copy(c.v, b.v)
	return c
}

// ScaleFrom fills b with src resampled to b's dimensions.
// Each plane is scaled independently with a bilinear kernel.
func (b *I420Buffer) ScaleFrom(src *I420Buffer) {
	if src.width == b.width && src.height == b.height {
		copy(b.y, src.y)
		copy(b.u, src.u)
		copy(b.v, src.v)
		return
	}
	scalePlane(b.y, b.width, b.height, src.y, src.width, src.height)
	scalePlane(b.u, b.ChromaWidth(), b.ChromaHeight(), src.u, src.ChromaWidth(), src.ChromaHeight())
	scalePlane(b.v, b.ChromaWidth(), b.ChromaHeight(), src.v, src.ChromaWidth(), src.ChromaHeight())
}

func scalePlane(dst []byte, dw, dh int, src []byte, sw, sh int) {
	d := planeImage(dst, dw, dh)
	s := planeImage(src, sw, sh)
	draw.BiLinear.Scale(d, d.Bounds(), s, s.Bounds(), draw.Src, nil)
}

func planeImage(pix []byte, width, height int) *image.Gray {
	return &image.Gray{Pix: pix, Stride: width, Rect: image.Rect(0, 0, width, height)}
}

// ExtractBuffer copies b into dst in packed I420 layout and returns the number
// of bytes written. dst must hold at least b.Size() bytes.
func ExtractBuffer(b *I420Buffer, dst []byte) (int, error) {
	if b == nil || b.Released() {
		return 0, ErrReleased
	}
	size := b.Size()
	if len(dst) < size {
		return 0, fmt.Errorf("%w: destination holds %d bytes, need %d", ErrBufferSize, len(dst), size)
	}
	n := copy(dst, b.y)
	n += copy(dst[n:], b.u)
	n += copy(dst[n:], b.v)
	return n, nil
}
