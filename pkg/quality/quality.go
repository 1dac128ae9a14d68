// Package quality computes objective picture quality between a source frame
// and its reconstruction.
package quality

import (
	"math"

	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/video"
)

// PerfectPSNR is reported for identical pictures instead of +Inf.
const PerfectPSNR = 48.0

// Metrics implements ports.QualityMetrics over I420 buffers.
// When the reconstruction has a different size it is scaled to the
// reference size first.
type Metrics struct{}

// New creates a Metrics.
func New() *Metrics {
	return &Metrics{}
}

// PSNR implements ports.QualityMetrics. The error is accumulated over all
// three planes.
func (m *Metrics) PSNR(ref, test *video.I420Buffer) float64 {
	test = matchSize(ref, test)

	var sse uint64
	sse += planeSSE(ref.DataY(), test.DataY())
	sse += planeSSE(ref.DataU(), test.DataU())
	sse += planeSSE(ref.DataV(), test.DataV())

	samples := uint64(ref.Size())
	return psnrFromSSE(sse, samples)
}

// SSIM implements ports.QualityMetrics. The result weighs luma 0.8 and each
// chroma plane 0.1.
func (m *Metrics) SSIM(ref, test *video.I420Buffer) float64 {
	test = matchSize(ref, test)

	y := planeSSIM(ref.DataY(), test.DataY(), ref.Width(), ref.Height())
	u := planeSSIM(ref.DataU(), test.DataU(), ref.ChromaWidth(), ref.ChromaHeight())
	v := planeSSIM(ref.DataV(), test.DataV(), ref.ChromaWidth(), ref.ChromaHeight())
	return 0.8*y + 0.1*u + 0.1*v
}

func matchSize(ref, test *video.I420Buffer) *video.I420Buffer {
	if ref.Width() == test.Width() && ref.Height() == test.Height() {
		return test
	}
	scaled := video.NewI420Buffer(ref.Width(), ref.Height())
	scaled.ScaleFrom(test)
	return scaled
}

func planeSSE(a, b []byte) uint64 {
	var sse uint64
	for i := range a {
		d := int(a[i]) - int(b[i])
		sse += uint64(d * d)
	}
	return sse
}

func psnrFromSSE(sse, samples uint64) float64 {
	if sse == 0 {
		return PerfectPSNR
	}
	mse := float64(sse) / float64(samples)
	psnr := 10 * math.Log10(255*255/mse)
	return math.Min(psnr, PerfectPSNR)
}

const (
	ssimWindow = 8
	ssimStep   = 4
	ssimC1     = (0.01 * 255) * (0.01 * 255)
	ssimC2     = (0.03 * 255) * (0.03 * 255)
)

// planeSSIM averages SSIM over 8x8 windows placed every 4 pixels. Planes
// smaller than a window are treated as one window.
func planeSSIM(a, b []byte, width, height int) float64 {
	win := ssimWindow
	if width < win || height < win {
		return windowSSIM(a, b, width, 0, 0, width, height)
	}

	var sum float64
	var n int
	for y := 0; y+win <= height; y += ssimStep {
		for x := 0; x+win <= width; x += ssimStep {
			sum += windowSSIM(a, b, width, x, y, win, win)
			n++
		}
	}
	return sum / float64(n)
}

func windowSSIM(a, b []byte, stride, x0, y0, w, h int) float64 {
	var sa, sb, saa, sbb, sab float64
	for y := y0; y < y0+h; y++ {
		row := y * stride
		for x := x0; x < x0+w; x++ {
			pa := float64(a[row+x])
			pb := float64(b[row+x])
			sa += pa
			sb += pb
			saa += pa * pa
			sbb += pb * pb
			sab += pa * pb
		}
	}
	n := float64(w * h)
	ma, mb := sa/n, sb/n
	va := saa/n - ma*ma
	vb := sbb/n - mb*mb
	cov := sab/n - ma*mb

	return ((2*ma*mb + ssimC1) * (2*cov + ssimC2)) /
		((ma*ma + mb*mb + ssimC1) * (va + vb + ssimC2))
}

var _ ports.QualityMetrics = (*Metrics)(nil)
