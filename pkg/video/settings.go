package video

const (
	// MaxSpatialLayers bounds the spatial dimension of a BitrateAllocation.
	MaxSpatialLayers = 5
	// MaxTemporalLayers bounds the temporal dimension of a BitrateAllocation.
	MaxTemporalLayers = 4
)

// CodecSettings configures an encoder/decoder pair.
type CodecSettings struct {
	Type              CodecType
	Width             int
	Height            int
	StartBitrateKbps  int
	MinBitrateKbps    int
	MaxBitrateKbps    int // 0 means unbounded
	MaxFramerate      int
	NumTemporalLayers int
	KeyFrameInterval  int
	FrameDropping     bool
	Denoising         bool
}

// BitrateAllocation distributes a target bitrate over spatial and temporal
// layers. Values are in bits per second.
type BitrateAllocation struct {
	bitrates [MaxSpatialLayers][MaxTemporalLayers]uint32
	sum      uint32
}

// SetBitrate sets the rate of a single layer. Out of range indices are ignored.
func (a *BitrateAllocation) SetBitrate(spatial, temporal int, bps uint32) {
	if spatial < 0 || spatial >= MaxSpatialLayers || temporal < 0 || temporal >= MaxTemporalLayers {
		return
	}
	a.sum -= a.bitrates[spatial][temporal]
	a.bitrates[spatial][temporal] = bps
	a.sum += bps
}

// GetBitrate returns the rate of a single layer.
func (a BitrateAllocation) GetBitrate(spatial, temporal int) uint32 {
	if spatial < 0 || spatial >= MaxSpatialLayers || temporal < 0 || temporal >= MaxTemporalLayers {
		return 0
	}
	return a.bitrates[spatial][temporal]
}

// GetSpatialLayerSum returns the total rate of all temporal layers in a spatial layer.
func (a BitrateAllocation) GetSpatialLayerSum(spatial int) uint32 {
	if spatial < 0 || spatial >= MaxSpatialLayers {
		return 0
	}
	var total uint32
	for _, bps := range a.bitrates[spatial] {
		total += bps
	}
	return total
}

// Sum returns the total allocated rate.
func (a BitrateAllocation) Sum() uint32 {
	return a.sum
}
