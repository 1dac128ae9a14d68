// Package patternsource provides a synthetic frame source rendered with gg,
// for runs without a raw input file.
package patternsource

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"

	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/video"
)

// Source implements ports.FrameReader. Each frame shows color bars, a ball
// moving across the picture and the frame number, so consecutive frames
// differ in a predictable way.
type Source struct {
	width     int
	height    int
	numFrames int
	next      int
}

// New creates a source of numFrames frames of width x height.
func New(width, height, numFrames int) (*Source, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if numFrames < 0 {
		return nil, fmt.Errorf("invalid frame count %d", numFrames)
	}
	return &Source{width: width, height: height, numFrames: numFrames}, nil
}

var barColors = [][3]float64{
	{0.75, 0.75, 0.75},
	{0.75, 0.75, 0},
	{0, 0.75, 0.75},
	{0, 0.75, 0},
	{0.75, 0, 0.75},
	{0.75, 0, 0},
	{0, 0, 0.75},
}

// ReadFrame implements ports.FrameReader.
func (s *Source) ReadFrame() (*video.I420Buffer, error) {
	if s.next >= s.numFrames {
		return nil, io.EOF
	}
	n := s.next
	s.next++
	return video.I420FromImage(s.render(n)), nil
}

func (s *Source) render(n int) image.Image {
	w, h := float64(s.width), float64(s.height)
	dc := gg.NewContext(s.width, s.height)

	// Color bars, scrolling one pixel per frame.
	barWidth := w / float64(len(barColors))
	shift := math.Mod(float64(n), w)
	for i, c := range barColors {
		x := math.Mod(float64(i)*barWidth+shift, w)
		dc.SetRGB(c[0], c[1], c[2])
		dc.DrawRectangle(x, 0, barWidth+1, h*0.75)
		dc.DrawRectangle(x-w, 0, barWidth+1, h*0.75)
		dc.Fill()
	}

	// Luma ramp along the bottom.
	grad := gg.NewLinearGradient(0, 0, w, 0)
	grad.AddColorStop(0, color.Gray{Y: 16})
	grad.AddColorStop(1, color.Gray{Y: 235})
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, h*0.75, w, h*0.25)
	dc.Fill()

	// Ball bouncing horizontally.
	r := math.Max(2, h/8)
	period := 2 * (w - 2*r)
	pos := math.Mod(float64(n)*4, math.Max(period, 1))
	if pos > period/2 {
		pos = period - pos
	}
	dc.SetRGB(1, 1, 1)
	dc.DrawCircle(r+pos, h*0.4, r)
	dc.Fill()

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(fmt.Sprintf("%d", n), w/2, h*0.875, 0.5, 0.5)
	return dc.Image()
}

// FrameLength implements ports.FrameReader.
func (s *Source) FrameLength() int {
	return video.CalcBufferSize(s.width, s.height)
}

// NumberOfFrames implements ports.FrameReader.
func (s *Source) NumberOfFrames() int {
	return s.numFrames
}

// Close implements ports.FrameReader.
func (s *Source) Close() error {
	return nil
}

var _ ports.FrameReader = (*Source)(nil)
