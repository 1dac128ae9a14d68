// Package summarizer renders the outcome of a codec run as a report.
package summarizer

import (
	"time"

	"github.com/user/codectest/pkg/stats"
)

// Summary contains everything reported about one run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	Run    RunInfo
	Frames FrameCounts

	// One entry per rate profile, in frame order.
	Profiles []ProfileInfo

	// Aggregate over the whole run.
	Total ProfileInfo
}

// RunInfo describes what was run.
type RunInfo struct {
	Codec      string
	Width      int
	Height     int
	Input      string // empty for the synthetic pattern
	NumCores   int
	MeasureCPU bool // quality was not measured
	ElapsedMs  int64
}

// FrameCounts tracks frames through the pipeline.
type FrameCounts struct {
	Input        int
	Encoded      int
	Decoded      int
	EncoderDrops int
	DecoderDrops int
	Replicated   int
}

// ProfileInfo is the aggregate of a contiguous range of frames.
type ProfileInfo struct {
	FirstFrame int
	LastFrame  int
	TargetKbps int
	InputFps   float64

	BitrateKbps        float64
	BitrateMismatchPct float64
	FramerateFps       float64

	NumKeyFrames           int
	AvgKeyFrameSizeBytes   float64
	AvgDeltaFrameSizeBytes float64
	MaxNaluSizeBytes       int
	AvgQP                  float64

	EncodeSpeedFps float64
	DecodeSpeedFps float64

	AvgPSNR float64
	MinPSNR float64
	AvgSSIM float64
	MinSSIM float64
}

// ProfileFromStatistic converts a ledger aggregate. targetKbps is the rate
// that was requested for the range.
func ProfileFromStatistic(targetKbps int, vs stats.VideoStatistic) ProfileInfo {
	return ProfileInfo{
		FirstFrame:             vs.FirstFrame,
		LastFrame:              vs.LastFrame,
		TargetKbps:             targetKbps,
		InputFps:               vs.InputFramerateFps,
		BitrateKbps:            vs.BitrateKbps,
		BitrateMismatchPct:     vs.BitrateMismatchPct,
		FramerateFps:           vs.FramerateFps,
		NumKeyFrames:           vs.NumKeyFrames,
		AvgKeyFrameSizeBytes:   vs.AvgKeyFrameSizeBytes,
		AvgDeltaFrameSizeBytes: vs.AvgDeltaFrameSizeBytes,
		MaxNaluSizeBytes:       vs.MaxNaluSizeBytes,
		AvgQP:                  vs.AvgQP,
		EncodeSpeedFps:         vs.EncodeSpeedFps,
		DecodeSpeedFps:         vs.DecodeSpeedFps,
		AvgPSNR:                vs.AvgPSNR,
		MinPSNR:                vs.MinPSNR,
		AvgSSIM:                vs.AvgSSIM,
		MinSSIM:                vs.MinSSIM,
	}
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithRun sets the run description.
func (b *Builder) WithRun(run RunInfo) *Builder {
	b.summary.Run = run
	return b
}

// WithFrames sets the frame counts.
func (b *Builder) WithFrames(frames FrameCounts) *Builder {
	b.summary.Frames = frames
	return b
}

// AddProfile appends a rate profile aggregate.
func (b *Builder) AddProfile(p ProfileInfo) *Builder {
	b.summary.Profiles = append(b.summary.Profiles, p)
	return b
}

// WithTotal sets the whole-run aggregate.
func (b *Builder) WithTotal(p ProfileInfo) *Builder {
	b.summary.Total = p
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
