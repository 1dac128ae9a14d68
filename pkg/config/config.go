// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/video"
)

// TestConfig describes one codec run.
type TestConfig struct {
	// Input
	InputPath string `yaml:"input"`  // raw I420 file; empty selects the synthetic pattern
	Width     int    `yaml:"width"`  // input frame width
	Height    int    `yaml:"height"` // input frame height
	NumFrames int    `yaml:"frames"` // frames to process

	// Codec
	Codec    CodecConfig    `yaml:"codec"`
	Loopback LoopbackConfig `yaml:"loopback"`

	// Run behavior
	UseSingleCore       bool `yaml:"single_core"`
	MeasureCPU          bool `yaml:"measure_cpu"` // skip PSNR/SSIM so they do not skew timing
	MaxPayloadSizeBytes int  `yaml:"max_payload_size_bytes"`
	RealTime            bool `yaml:"real_time"` // pace frames at the input framerate

	// Rate profiles applied during the run; the first one starts at frame 0.
	RateProfiles []RateProfile `yaml:"rate_profiles"`

	// Outputs (empty disables)
	EncodedOutputPath string `yaml:"encoded_output"`
	DecodedOutputPath string `yaml:"decoded_output"`
	SummaryPath       string `yaml:"summary"`
	FramesJSONPath    string `yaml:"frames_json"`

	// Optional validator run on every encoded frame.
	EncodedFrameChecker ports.EncodedFrameChecker `yaml:"-"`
}

// CodecConfig holds the codec settings of a run.
type CodecConfig struct {
	Name              string `yaml:"name"`
	StartBitrateKbps  int    `yaml:"start_bitrate_kbps"`
	MinBitrateKbps    int    `yaml:"min_bitrate_kbps"`
	MaxBitrateKbps    int    `yaml:"max_bitrate_kbps"`
	MaxFramerate      int    `yaml:"framerate"`
	NumTemporalLayers int    `yaml:"temporal_layers"`
	KeyFrameInterval  int    `yaml:"keyframe_interval"` // 0 leaves key frames to the encoder
	FrameDropping     bool   `yaml:"frame_dropping"`
	Denoising         bool   `yaml:"denoising"`
}

// LoopbackConfig tunes the built-in software codec pair.
type LoopbackConfig struct {
	EncoderDropInterval int  `yaml:"encoder_drop_interval"` // drop every nth delta frame; 0 disables
	DecoderDropInterval int  `yaml:"decoder_drop_interval"`
	ScaleDown           int  `yaml:"scale_down"`  // divide decoded width and height; 0 or 1 disables
	DelayOutput         bool `yaml:"delay_output"` // deliver each encoded frame one Encode call late
}

// RateProfile sets the target rate from a frame index onwards.
type RateProfile struct {
	TargetKbps           int `yaml:"target_kbps"`
	InputFps             int `yaml:"input_fps"`
	FrameIndexRateUpdate int `yaml:"frame_index_rate_update"`
}

// Defaults returns a TestConfig with default values: CIF VP8 at 30 fps, 300 kbps.
func Defaults() TestConfig {
	return TestConfig{
		Width:     352,
		Height:    288,
		NumFrames: 30,

		Codec: CodecConfig{
			Name:              "vp8",
			StartBitrateKbps:  300,
			MinBitrateKbps:    30,
			MaxFramerate:      30,
			NumTemporalLayers: 1,
		},

		MaxPayloadSizeBytes: 1440,

		RateProfiles: []RateProfile{
			{TargetKbps: 300, InputFps: 30, FrameIndexRateUpdate: 0},
		},
	}
}

// ErrNotFound is returned by LoadFromFile when the file does not exist.
var ErrNotFound = errors.New("config file not found")

// LoadFromFile loads configuration from a YAML file on top of Defaults.
func LoadFromFile(fsys ports.FileSystem, path string) (TestConfig, error) {
	cfg := Defaults()

	exists, err := fsys.Exists(path)
	if err != nil {
		return cfg, err
	}
	if !exists {
		return cfg, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports every configuration problem at once.
func (c TestConfig) Validate() error {
	var result *multierror.Error

	if c.Width <= 0 || c.Height <= 0 {
		result = multierror.Append(result, fmt.Errorf("invalid frame size %dx%d", c.Width, c.Height))
	}
	if c.NumFrames <= 0 {
		result = multierror.Append(result, fmt.Errorf("frames must be positive, got %d", c.NumFrames))
	}
	if _, err := video.ParseCodecType(c.Codec.Name); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Codec.MaxFramerate <= 0 || c.Codec.MaxFramerate > video.PayloadClockRate {
		result = multierror.Append(result, fmt.Errorf("framerate must be between 1 and %d, got %d", video.PayloadClockRate, c.Codec.MaxFramerate))
	}
	if n := c.Codec.NumTemporalLayers; n < 0 || n > 3 {
		result = multierror.Append(result, fmt.Errorf("temporal layers must be between 0 and 3, got %d", n))
	}
	if c.Codec.KeyFrameInterval < 0 {
		result = multierror.Append(result, fmt.Errorf("keyframe interval must not be negative, got %d", c.Codec.KeyFrameInterval))
	}
	if c.MaxPayloadSizeBytes <= 0 {
		result = multierror.Append(result, fmt.Errorf("max payload size must be positive, got %d", c.MaxPayloadSizeBytes))
	}

	if n := c.Loopback.EncoderDropInterval; n < 0 || n == 1 {
		result = multierror.Append(result, fmt.Errorf("loopback encoder drop interval must be 0 or at least 2, got %d", n))
	}
	if n := c.Loopback.DecoderDropInterval; n < 0 || n == 1 {
		result = multierror.Append(result, fmt.Errorf("loopback decoder drop interval must be 0 or at least 2, got %d", n))
	}
	if s := c.Loopback.ScaleDown; s < 0 || (s > 1 && c.Width > 0 && c.Height > 0 && (c.Width%s != 0 || c.Height%s != 0)) {
		result = multierror.Append(result, fmt.Errorf("loopback scale down %d does not divide %dx%d", s, c.Width, c.Height))
	}

	if len(c.RateProfiles) == 0 {
		result = multierror.Append(result, fmt.Errorf("at least one rate profile is required"))
	}
	for i, rp := range c.RateProfiles {
		if rp.TargetKbps <= 0 {
			result = multierror.Append(result, fmt.Errorf("rate profile %d: target must be positive, got %d", i, rp.TargetKbps))
		}
		if rp.InputFps <= 0 || rp.InputFps > video.PayloadClockRate {
			result = multierror.Append(result, fmt.Errorf("rate profile %d: input fps must be between 1 and %d, got %d", i, video.PayloadClockRate, rp.InputFps))
		}
		switch {
		case i == 0 && rp.FrameIndexRateUpdate != 0:
			result = multierror.Append(result, fmt.Errorf("rate profile 0 must start at frame 0, got %d", rp.FrameIndexRateUpdate))
		case i > 0 && rp.FrameIndexRateUpdate <= c.RateProfiles[i-1].FrameIndexRateUpdate:
			result = multierror.Append(result, fmt.Errorf("rate profile %d: frame index %d does not follow %d",
				i, rp.FrameIndexRateUpdate, c.RateProfiles[i-1].FrameIndexRateUpdate))
		}
	}

	return result.ErrorOrNil()
}

// CodecType returns the parsed codec name, CodecGeneric if it is not recognized.
func (c TestConfig) CodecType() video.CodecType {
	ct, _ := video.ParseCodecType(c.Codec.Name)
	return ct
}

// CodecSettings builds the settings handed to InitEncode/InitDecode.
func (c TestConfig) CodecSettings() video.CodecSettings {
	return video.CodecSettings{
		Type:              c.CodecType(),
		Width:             c.Width,
		Height:            c.Height,
		StartBitrateKbps:  c.Codec.StartBitrateKbps,
		MinBitrateKbps:    c.Codec.MinBitrateKbps,
		MaxBitrateKbps:    c.Codec.MaxBitrateKbps,
		MaxFramerate:      c.Codec.MaxFramerate,
		NumTemporalLayers: c.NumberOfTemporalLayers(),
		KeyFrameInterval:  c.Codec.KeyFrameInterval,
		FrameDropping:     c.Codec.FrameDropping,
		Denoising:         c.Codec.Denoising,
	}
}

// NumberOfCores returns the core count handed to the codecs.
func (c TestConfig) NumberOfCores() int {
	if c.UseSingleCore {
		return 1
	}
	return runtime.NumCPU()
}

// NumberOfTemporalLayers returns the configured temporal layer count, at least 1.
func (c TestConfig) NumberOfTemporalLayers() int {
	if c.Codec.NumTemporalLayers < 1 {
		return 1
	}
	return c.Codec.NumTemporalLayers
}
