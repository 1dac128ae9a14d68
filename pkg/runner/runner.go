// Package runner executes a complete codec run described by a TestConfig.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/codectest/pkg/config"
	"github.com/user/codectest/pkg/ports"
	"github.com/user/codectest/pkg/processor"
	"github.com/user/codectest/pkg/quality"
	"github.com/user/codectest/pkg/stats"
)

const progressInterval = 100

// ProfileResult is the aggregate of the frames one rate profile covered.
type ProfileResult struct {
	Profile   config.RateProfile
	Statistic stats.VideoStatistic
}

// Result contains the outcome of a run for summary generation.
type Result struct {
	Config config.TestConfig
	Stats  *stats.Stats

	NumFrames        int
	NumEncodedFrames int
	NumDecodedFrames int
	Drops            processor.Drops
	ReplicatedFrames int

	Profiles []ProfileResult
	Total    stats.VideoStatistic

	Elapsed time.Duration
}

// Runner drives a VideoProcessor through a TestConfig.
type Runner struct {
	fs     ports.FileSystem
	logger ports.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a new Runner.
func New(fs ports.FileSystem, logger ports.Logger) *Runner {
	return &Runner{
		fs:     fs,
		logger: logger.WithComponent("runner"),
		sleep:  sleepContext,
	}
}

// Run processes cfg.NumFrames frames (fewer if the input is shorter),
// applying each rate profile at its frame index, then releases the codecs
// and aggregates the ledger per profile. The components are not closed.
//
// A broken codec contract ends the run with a *processor.Violation error.
func (r *Runner) Run(ctx context.Context, cfg config.TestConfig, c Components) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	numFrames := cfg.NumFrames
	if n := c.Reader.NumberOfFrames(); n >= 0 && n < numFrames {
		r.logger.Warn("Input has %d frames, running %d", n, n)
		numFrames = n
	}
	r.logger.Info("Running %s at %dx%d for %d frames", cfg.CodecType(), cfg.Width, cfg.Height, numFrames)

	st := stats.New()
	opts := []processor.Option{processor.WithLogger(r.logger)}
	if c.EncodedWriter != nil {
		opts = append(opts, processor.WithEncodedFrameWriter(c.EncodedWriter))
	}
	if c.DecodedWriter != nil {
		opts = append(opts, processor.WithDecodedFrameWriter(c.DecodedWriter))
	}
	metrics := c.Metrics
	if metrics == nil {
		metrics = quality.New()
	}
	opts = append(opts, processor.WithQualityMetrics(metrics))

	p, err := processor.New(c.Encoder, c.Decoder, c.Reader, cfg, st, opts...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	loopErr := catchViolation(func() error {
		return r.processFrames(ctx, p, cfg, numFrames)
	})
	closeErr := catchViolation(p.Close)
	if err := errors.Join(loopErr, closeErr); err != nil {
		var v *processor.Violation
		if errors.As(err, &v) {
			r.logger.Error("Codec contract violated: %s", v)
		}
		return nil, err
	}

	res := &Result{
		Config:           cfg,
		Stats:            st,
		NumFrames:        numFrames,
		NumEncodedFrames: p.NumEncodedFrames(),
		NumDecodedFrames: p.NumDecodedFrames(),
		Drops:            p.Drops(),
		ReplicatedFrames: p.ReplicatedFrames(),
		Elapsed:          time.Since(start),
	}
	res.Profiles, res.Total = aggregate(st, cfg.RateProfiles)

	r.logger.Info("Encoded %d frames, decoded %d frames", res.NumEncodedFrames, res.NumDecodedFrames)
	r.logger.Info("Dropped by encoder: %d, by decoder: %d, repeated in output: %d",
		res.Drops.Encode, res.Drops.Decode, res.ReplicatedFrames)
	if res.Total.AvgPSNR > 0 {
		r.logger.Info("Average PSNR %.2f dB, SSIM %.4f", res.Total.AvgPSNR, res.Total.AvgSSIM)
	}

	if cfg.FramesJSONPath != "" {
		var buf bytes.Buffer
		if err := st.WriteJSON(&buf); err != nil {
			return res, fmt.Errorf("encode frame statistics: %w", err)
		}
		if err := r.fs.WriteFile(cfg.FramesJSONPath, buf.Bytes()); err != nil {
			r.logger.Error("Failed to write output: %s", err)
			return res, fmt.Errorf("write frame statistics: %w", err)
		}
		r.logger.Info("Output saved to %s", cfg.FramesJSONPath)
	}

	return res, nil
}

func (r *Runner) processFrames(ctx context.Context, p *processor.VideoProcessor, cfg config.TestConfig, numFrames int) error {
	profile := 0
	fps := cfg.RateProfiles[0].InputFps

	for n := 0; n < numFrames; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if profile < len(cfg.RateProfiles) && cfg.RateProfiles[profile].FrameIndexRateUpdate == n {
			rp := cfg.RateProfiles[profile]
			r.logger.Info("Rate profile %d: %d kbps at %d fps from frame %d", profile, rp.TargetKbps, rp.InputFps, n)
			p.SetRates(rp.TargetKbps, rp.InputFps)
			fps = rp.InputFps
			profile++
		}

		frameStart := time.Now()
		p.ProcessFrame()

		if (n+1)%progressInterval == 0 {
			r.logger.Info("Processed %d/%d frames", n+1, numFrames)
		}

		if cfg.RealTime {
			wait := time.Second/time.Duration(fps) - time.Since(frameStart)
			if err := r.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	return nil
}

// aggregate slices the ledger at the rate profile boundaries. The total is
// computed at the average input framerate over all profiles.
func aggregate(st *stats.Stats, profiles []config.RateProfile) ([]ProfileResult, stats.VideoStatistic) {
	var (
		results     []ProfileResult
		durationSec float64
	)
	for i, rp := range profiles {
		first := rp.FrameIndexRateUpdate
		if first >= st.Size() {
			break
		}
		last := st.Size() - 1
		if i+1 < len(profiles) && profiles[i+1].FrameIndexRateUpdate-1 < last {
			last = profiles[i+1].FrameIndexRateUpdate - 1
		}
		vs := st.SliceAndCalcVideoStatistic(first, last, float64(rp.InputFps))
		durationSec += float64(last-first+1) / float64(rp.InputFps)
		results = append(results, ProfileResult{Profile: rp, Statistic: vs})
	}

	var avgFps float64
	if durationSec > 0 {
		avgFps = float64(st.Size()) / durationSec
	}
	return results, st.SliceAndCalcVideoStatistic(0, st.Size()-1, avgFps)
}

// catchViolation converts a *processor.Violation panic into an error. Any
// other panic is propagated.
func catchViolation(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v, ok := processor.AsViolation(rec)
			if !ok {
				panic(rec)
			}
			err = v
		}
	}()
	return fn()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
