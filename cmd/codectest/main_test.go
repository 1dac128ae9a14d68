package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/user/codectest/pkg/config"
	"github.com/user/codectest/pkg/video"
)

// parseConfig runs the run command's flag parsing and captures the config.
func parseConfig(t *testing.T, args ...string) config.TestConfig {
	t.Helper()
	var cfg config.TestConfig
	app := &cli.App{
		Commands: []*cli.Command{{
			Name:  "run",
			Flags: runFlags(),
			Action: func(c *cli.Context) error {
				var err error
				cfg, err = buildConfig(c)
				return err
			},
		}},
	}
	require.NoError(t, app.Run(append([]string{"codectest", "run"}, args...)))
	return cfg
}

func TestBuildConfig_Defaults(t *testing.T) {
	assert.Equal(t, config.Defaults(), parseConfig(t))
}

func TestBuildConfig_Overrides(t *testing.T) {
	cfg := parseConfig(t,
		"--width", "176", "--height", "144", "--frames", "10",
		"--codec", "vp9", "--bitrate", "150", "--fps", "15",
		"--keyframe-interval", "5", "--temporal-layers", "2",
		"--drop-interval", "3", "--scale-down", "2", "--delay-output",
		"--measure-cpu", "--summary", "out/summary.md",
	)

	assert.Equal(t, 176, cfg.Width)
	assert.Equal(t, 144, cfg.Height)
	assert.Equal(t, 10, cfg.NumFrames)
	assert.Equal(t, video.CodecVP9, cfg.CodecType())
	assert.Equal(t, []config.RateProfile{{TargetKbps: 150, InputFps: 15}}, cfg.RateProfiles)
	assert.Equal(t, 15, cfg.Codec.MaxFramerate)
	assert.Equal(t, 5, cfg.Codec.KeyFrameInterval)
	assert.Equal(t, 2, cfg.Codec.NumTemporalLayers)
	assert.Equal(t, config.LoopbackConfig{DecoderDropInterval: 3, ScaleDown: 2, DelayOutput: true}, cfg.Loopback)
	assert.True(t, cfg.MeasureCPU)
	assert.Equal(t, "out/summary.md", cfg.SummaryPath)
	assert.NoError(t, cfg.Validate())
}

func TestBuildConfig_FileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input: clip.yuv\nframes: 50\ncodec:\n  name: h264\n"), 0644))

	cfg := parseConfig(t, "--config", path, "--frames", "20")
	assert.Equal(t, "clip.yuv", cfg.InputPath)
	assert.Equal(t, 20, cfg.NumFrames)
	assert.Equal(t, video.CodecH264, cfg.CodecType())

	cfg = parseConfig(t, "--config", path, "--pattern")
	assert.Empty(t, cfg.InputPath)
}

func TestRunCommand_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	summary := filepath.Join(dir, "summary.md")
	framesJSON := filepath.Join(dir, "frames.json")
	decoded := filepath.Join(dir, "decoded.yuv")

	err := newApp().Run([]string{"codectest", "run",
		"--quiet", "--pattern",
		"--width", "32", "--height", "32", "--frames", "6",
		"--codec", "h264", "--drop-interval", "3",
		"--decoded-out", decoded, "--summary", summary, "--frames-json", framesJSON,
	})
	require.NoError(t, err)

	report, err := os.ReadFile(summary)
	require.NoError(t, err)
	assert.Contains(t, string(report), "32x32")
	assert.Contains(t, string(report), "| 0-5 |")

	data, err := os.ReadFile(framesJSON)
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(data, &records))
	assert.Len(t, records, 6)

	// Frame 5 is dropped by the decoder and has no successor to trigger a repeat.
	info, err := os.Stat(decoded)
	require.NoError(t, err)
	assert.Equal(t, int64(5*video.CalcBufferSize(32, 32)), info.Size())
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	err := newApp().Run([]string{"codectest", "run", "--quiet", "--frames", "0"})
	assert.ErrorContains(t, err, "invalid config")
}

func TestRunCommand_BadLogLevel(t *testing.T) {
	err := newApp().Run([]string{"codectest", "run", "--log-level", "loud"})
	assert.ErrorContains(t, err, "unknown log level")
}

func TestRunCommand_MissingConfigFile(t *testing.T) {
	err := newApp().Run([]string{"codectest", "run", "--config", filepath.Join(t.TempDir(), "absent.yaml")})
	assert.ErrorIs(t, err, config.ErrNotFound)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	require.NoError(t, app.Run([]string{"codectest", "version"}))
	assert.Contains(t, out.String(), version)
}
