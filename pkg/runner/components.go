package runner

import (
	"github.com/hashicorp/go-multierror"

	"github.com/user/codectest/pkg/adapters/ivfwriter"
	"github.com/user/codectest/pkg/adapters/loopback"
	"github.com/user/codectest/pkg/adapters/patternsource"
	"github.com/user/codectest/pkg/adapters/yuvfile"
	"github.com/user/codectest/pkg/config"
	"github.com/user/codectest/pkg/ports"
)

// Components are the collaborators of one run.
type Components struct {
	Encoder ports.VideoEncoder
	Decoder ports.VideoDecoder
	Reader  ports.FrameReader

	// Optional outputs.
	EncodedWriter ports.EncodedFrameWriter
	DecodedWriter ports.FrameWriter

	// Metrics replaces quality.Metrics for PSNR/SSIM when set.
	Metrics ports.QualityMetrics
}

// Build opens the components described by cfg: the raw input file or the
// synthetic pattern, the loopback codec pair and the configured outputs.
func Build(cfg config.TestConfig) (Components, error) {
	var (
		c   Components
		err error
	)

	if cfg.InputPath == "" {
		c.Reader, err = patternsource.New(cfg.Width, cfg.Height, cfg.NumFrames)
	} else {
		c.Reader, err = yuvfile.Open(cfg.InputPath, cfg.Width, cfg.Height)
	}
	if err != nil {
		return Components{}, err
	}

	if cfg.EncodedOutputPath != "" {
		w, err := ivfwriter.Create(cfg.EncodedOutputPath, cfg.CodecType(), cfg.Width, cfg.Height)
		if err != nil {
			c.Close()
			return Components{}, err
		}
		c.EncodedWriter = w
	}

	if cfg.DecodedOutputPath != "" {
		w, err := yuvfile.Create(cfg.DecodedOutputPath, cfg.Width, cfg.Height)
		if err != nil {
			c.Close()
			return Components{}, err
		}
		c.DecodedWriter = w
	}

	c.Encoder = loopback.NewEncoder(loopback.EncoderOptions{
		DropInterval: cfg.Loopback.EncoderDropInterval,
		Delay:        cfg.Loopback.DelayOutput,
	})
	c.Decoder = loopback.NewDecoder(loopback.DecoderOptions{
		DropInterval: cfg.Loopback.DecoderDropInterval,
		ScaleDown:    cfg.Loopback.ScaleDown,
	})
	return c, nil
}

// Close closes the reader and both writers. Codecs are released by the
// processor.
func (c Components) Close() error {
	var result *multierror.Error
	if c.Reader != nil {
		if err := c.Reader.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if c.EncodedWriter != nil {
		if err := c.EncodedWriter.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if c.DecodedWriter != nil {
		if err := c.DecodedWriter.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
