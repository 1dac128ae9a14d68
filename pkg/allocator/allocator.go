// Package allocator implements the bitrate allocation policies the processor
// feeds to the encoder's rate control.
package allocator

import (
	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/video"
)

// New picks the allocation policy for a codec configuration: VP8 with more
// than one temporal layer splits the rate over layers, everything else puts
// the whole rate on the base layer.
func New(settings video.CodecSettings) ports.BitrateAllocator {
	if settings.Type == video.CodecVP8 && settings.NumTemporalLayers > 1 {
		return NewTemporalLayers(settings)
	}
	return NewDefault(settings)
}

// Default assigns the clamped total rate to spatial layer 0, temporal layer 0.
type Default struct {
	minBps uint32
	maxBps uint32
}

// NewDefault creates a Default allocator bounded by the settings' min/max rates.
func NewDefault(settings video.CodecSettings) *Default {
	return &Default{
		minBps: uint32(settings.MinBitrateKbps) * 1000,
		maxBps: uint32(settings.MaxBitrateKbps) * 1000,
	}
}

// GetAllocation implements ports.BitrateAllocator.
func (d *Default) GetAllocation(totalBps, framerate uint32) video.BitrateAllocation {
	var a video.BitrateAllocation
	if totalBps == 0 {
		return a
	}
	a.SetBitrate(0, 0, clamp(totalBps, d.minBps, d.maxBps))
	return a
}

func clamp(bps, minBps, maxBps uint32) uint32 {
	if bps < minBps {
		bps = minBps
	}
	if maxBps > 0 && bps > maxBps {
		bps = maxBps
	}
	return bps
}

var _ ports.BitrateAllocator = (*Default)(nil)
