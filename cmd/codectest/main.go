// Package main provides the CLI entry point for codectest.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/codectest/pkg/adapters/logger"
	"github.com/user/codectest/pkg/adapters/osfilesystem"
	"github.com/user/codectest/pkg/config"
	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/runner"
	"github.com/user/codectest/pkg/summarizer"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:        "codectest",
		Usage:       l10n.T("Round-trip raw video through a codec and measure every frame"),
		HideVersion: true,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  l10n.T("Encode and decode a video, recording per-frame statistics"),
				Flags:  runFlags(),
				Action: runAction,
			},
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, l10n.F("codectest version %s", version))
					return nil
				},
			},
		},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file; flags override it"), Category: l10n.T("Input")},
		&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: l10n.T("Raw I420 input file"), Category: l10n.T("Input")},
		&cli.BoolFlag{Name: "pattern", Usage: l10n.T("Use the synthetic test pattern instead of an input file"), Category: l10n.T("Input")},
		&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: l10n.T("Frame width in pixels"), Category: l10n.T("Input")},
		&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: l10n.T("Frame height in pixels"), Category: l10n.T("Input")},
		&cli.IntFlag{Name: "frames", Aliases: []string{"n"}, Usage: l10n.T("Number of frames to process"), Category: l10n.T("Input")},

		&cli.StringFlag{Name: "codec", Usage: l10n.T("Codec (vp8, vp9, h264)"), Category: l10n.T("Codec")},
		&cli.IntFlag{Name: "bitrate", Aliases: []string{"b"}, Usage: l10n.T("Target bitrate in kbps for the whole run"), Category: l10n.T("Codec")},
		&cli.IntFlag{Name: "fps", Usage: l10n.T("Input framerate for the whole run"), Category: l10n.T("Codec")},
		&cli.IntFlag{Name: "keyframe-interval", Usage: l10n.T("Request a key frame every n frames (0 = encoder decides)"), Category: l10n.T("Codec")},
		&cli.IntFlag{Name: "temporal-layers", Usage: l10n.T("Number of temporal layers (1-3)"), Category: l10n.T("Codec")},
		&cli.BoolFlag{Name: "single-core", Usage: l10n.T("Limit the codecs to one core"), Category: l10n.T("Codec")},

		&cli.IntFlag{Name: "drop-interval", Usage: l10n.T("Decoder drops every nth delta frame (0 = none)"), Category: l10n.T("Loopback codec")},
		&cli.IntFlag{Name: "encoder-drop-interval", Usage: l10n.T("Encoder drops every nth delta frame (0 = none)"), Category: l10n.T("Loopback codec")},
		&cli.IntFlag{Name: "scale-down", Usage: l10n.T("Divide the decoded width and height by this factor"), Category: l10n.T("Loopback codec")},
		&cli.BoolFlag{Name: "delay-output", Usage: l10n.T("Deliver each encoded frame one frame late"), Category: l10n.T("Loopback codec")},

		&cli.BoolFlag{Name: "measure-cpu", Usage: l10n.T("Skip PSNR/SSIM so they do not skew timings"), Category: l10n.T("Measurement")},
		&cli.BoolFlag{Name: "real-time", Usage: l10n.T("Feed frames at the input framerate"), Category: l10n.T("Measurement")},

		&cli.StringFlag{Name: "encoded-out", Usage: l10n.T("Write encoded frames to an IVF file"), Category: l10n.T("Output")},
		&cli.StringFlag{Name: "decoded-out", Usage: l10n.T("Write decoded frames to a raw I420 file"), Category: l10n.T("Output")},
		&cli.StringFlag{Name: "summary", Aliases: []string{"s"}, Usage: l10n.T("Output execution summary to file (Markdown format)"), Category: l10n.T("Output")},
		&cli.StringFlag{Name: "frames-json", Usage: l10n.T("Write per-frame statistics as JSON"), Category: l10n.T("Output")},

		&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info", Usage: l10n.T("Log level (debug, info, warn, error)"), Category: l10n.T("Logging")},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: l10n.T("Suppress all log output"), Category: l10n.T("Logging")},
	}
}

func runAction(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := ports.ParseLogLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	var log ports.Logger
	if c.Bool("quiet") {
		log = logger.NewNoop()
	} else {
		log = logger.NewConsole(level)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.InputPath == "" {
		log.Info("Using synthetic pattern source")
	} else {
		log.Info("Reading frames from %s", cfg.InputPath)
	}

	components, err := runner.Build(cfg)
	if err != nil {
		return err
	}

	fs := osfilesystem.New()
	res, runErr := runner.New(fs, log).Run(ctx, cfg, components)
	if err := components.Close(); err != nil {
		log.Error("Failed to close outputs: %s", err)
		if runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return runErr
	}

	for _, path := range []string{cfg.EncodedOutputPath, cfg.DecodedOutputPath} {
		if path != "" {
			log.Info("Output saved to %s", path)
		}
	}

	if cfg.SummaryPath != "" {
		formatter := summarizer.NewMarkdownFormatter(
			summarizer.WithTranslator(l10n.T),
			summarizer.WithVersion(version),
		)
		if err := summarizer.NewWriter(formatter, fs).Write(cfg.SummaryPath, buildSummary(res)); err != nil {
			log.Error("Failed to write output: %s", err)
			return err
		}
		log.Info("Output saved to %s", cfg.SummaryPath)
	}

	log.Info("Run completed successfully")
	return nil
}

// buildConfig loads the config file, if any, and applies flag overrides.
func buildConfig(c *cli.Context) (config.TestConfig, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(osfilesystem.New(), path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if c.IsSet("input") {
		cfg.InputPath = c.String("input")
	}
	if c.Bool("pattern") {
		cfg.InputPath = ""
	}
	setInt(c, "width", &cfg.Width)
	setInt(c, "height", &cfg.Height)
	setInt(c, "frames", &cfg.NumFrames)

	if c.IsSet("codec") {
		cfg.Codec.Name = c.String("codec")
	}
	setInt(c, "keyframe-interval", &cfg.Codec.KeyFrameInterval)
	setInt(c, "temporal-layers", &cfg.Codec.NumTemporalLayers)
	if c.Bool("single-core") {
		cfg.UseSingleCore = true
	}

	// --bitrate and --fps replace the rate profiles with a single one.
	if c.IsSet("bitrate") || c.IsSet("fps") {
		rp := config.RateProfile{TargetKbps: cfg.Codec.StartBitrateKbps, InputFps: cfg.Codec.MaxFramerate}
		if len(cfg.RateProfiles) > 0 {
			rp = cfg.RateProfiles[0]
		}
		setInt(c, "bitrate", &rp.TargetKbps)
		setInt(c, "fps", &rp.InputFps)
		rp.FrameIndexRateUpdate = 0
		cfg.RateProfiles = []config.RateProfile{rp}
		cfg.Codec.StartBitrateKbps = rp.TargetKbps
		cfg.Codec.MaxFramerate = rp.InputFps
	}

	setInt(c, "drop-interval", &cfg.Loopback.DecoderDropInterval)
	setInt(c, "encoder-drop-interval", &cfg.Loopback.EncoderDropInterval)
	setInt(c, "scale-down", &cfg.Loopback.ScaleDown)
	if c.Bool("delay-output") {
		cfg.Loopback.DelayOutput = true
	}

	if c.Bool("measure-cpu") {
		cfg.MeasureCPU = true
	}
	if c.Bool("real-time") {
		cfg.RealTime = true
	}

	if c.IsSet("encoded-out") {
		cfg.EncodedOutputPath = c.String("encoded-out")
	}
	if c.IsSet("decoded-out") {
		cfg.DecodedOutputPath = c.String("decoded-out")
	}
	if c.IsSet("summary") {
		cfg.SummaryPath = c.String("summary")
	}
	if c.IsSet("frames-json") {
		cfg.FramesJSONPath = c.String("frames-json")
	}

	return cfg, nil
}

func setInt(c *cli.Context, name string, dst *int) {
	if c.IsSet(name) {
		*dst = c.Int(name)
	}
}

// buildSummary converts a run result into a report.
func buildSummary(res *runner.Result) *summarizer.Summary {
	b := summarizer.NewBuilder().
		WithRun(summarizer.RunInfo{
			Codec:      res.Config.CodecType().String(),
			Width:      res.Config.Width,
			Height:     res.Config.Height,
			Input:      res.Config.InputPath,
			NumCores:   res.Config.NumberOfCores(),
			MeasureCPU: res.Config.MeasureCPU,
			ElapsedMs:  res.Elapsed.Milliseconds(),
		}).
		WithFrames(summarizer.FrameCounts{
			Input:        res.NumFrames,
			Encoded:      res.NumEncodedFrames,
			Decoded:      res.NumDecodedFrames,
			EncoderDrops: res.Drops.Encode,
			DecoderDrops: res.Drops.Decode,
			Replicated:   res.ReplicatedFrames,
		}).
		WithTotal(summarizer.ProfileFromStatistic(res.Total.TargetBitrateKbps, res.Total))

	for _, p := range res.Profiles {
		b.AddProfile(summarizer.ProfileFromStatistic(p.Profile.TargetKbps, p.Statistic))
	}
	return b.Build()
}
