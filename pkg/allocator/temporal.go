package allocator

import (
	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/video"
)

// cumulativeRateShare is the fraction of the total rate available up to and
// including each temporal layer, indexed by layer count - 1.
var cumulativeRateShare = [video.MaxTemporalLayers][video.MaxTemporalLayers]float64{
	{1.0, 1.0, 1.0, 1.0},
	{0.6, 1.0, 1.0, 1.0},
	{0.4, 0.6, 1.0, 1.0},
	{0.25, 0.4, 0.6, 1.0},
}

// TemporalLayers splits the rate of a single stream over its temporal layers.
type TemporalLayers struct {
	Default
	numLayers int
}

// NewTemporalLayers creates a TemporalLayers allocator. The layer count is
// clamped to [1, video.MaxTemporalLayers].
func NewTemporalLayers(settings video.CodecSettings) *TemporalLayers {
	n := settings.NumTemporalLayers
	if n < 1 {
		n = 1
	}
	if n > video.MaxTemporalLayers {
		n = video.MaxTemporalLayers
	}
	return &TemporalLayers{
		Default:   *NewDefault(settings),
		numLayers: n,
	}
}

// GetAllocation implements ports.BitrateAllocator. The per-layer rates sum to
// the clamped total.
func (t *TemporalLayers) GetAllocation(totalBps, framerate uint32) video.BitrateAllocation {
	var a video.BitrateAllocation
	if totalBps == 0 {
		return a
	}
	total := clamp(totalBps, t.minBps, t.maxBps)
	shares := cumulativeRateShare[t.numLayers-1]

	var assigned uint32
	for tl := 0; tl < t.numLayers; tl++ {
		upTo := uint32(float64(total)*shares[tl] + 0.5)
		if tl == t.numLayers-1 {
			upTo = total
		}
		a.SetBitrate(0, tl, upTo-assigned)
		assigned = upTo
	}
	return a
}

var _ ports.BitrateAllocator = (*TemporalLayers)(nil)
