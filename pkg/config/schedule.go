package config

import (
	"github.com/user/codectest/pkg/video"
)

// TemporalLayerForFrame returns the temporal layer a frame belongs to.
//
//	2 layers:  tl1:    1     3
//	           tl0: 0     2     4 ...
//
//	3 layers:  tl2:    1     3     5     7
//	           tl1:       2           6
//	           tl0: 0           4           8 ...
func (c TestConfig) TemporalLayerForFrame(frameNumber int) int {
	switch c.NumberOfTemporalLayers() {
	case 2:
		if frameNumber%2 == 0 {
			return 0
		}
		return 1
	case 3:
		switch {
		case frameNumber%4 == 0:
			return 0
		case (frameNumber+2)%4 == 0:
			return 1
		default:
			return 2
		}
	default:
		return 0
	}
}

// FrameTypeForFrame returns the frame types to request for a frame.
func (c TestConfig) FrameTypeForFrame(frameNumber int) []video.FrameType {
	if c.Codec.KeyFrameInterval > 0 && frameNumber%c.Codec.KeyFrameInterval == 0 {
		return []video.FrameType{video.FrameKey}
	}
	return []video.FrameType{video.FrameDelta}
}
