package summarizer

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders a Summary as Markdown tables.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator translates every label through fn.
func WithTranslator(fn func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) { f.translate = fn }
}

// WithVersion adds the tool version to the footer.
func WithVersion(version string) MarkdownOption {
	return func(f *MarkdownFormatter) { f.version = version }
}

// NewMarkdownFormatter creates a MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{translate: func(s string) string { return s }}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Codec Run Summary"))

	input := s.Run.Input
	if input == "" {
		input = t("Synthetic pattern")
	}
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Codec"), s.Run.Codec)
	fmt.Fprintf(&b, "| %s | %dx%d |\n", t("Resolution"), s.Run.Width, s.Run.Height)
	fmt.Fprintf(&b, "| %s | %s |\n", t("Input"), input)
	fmt.Fprintf(&b, "| %s | %d |\n", t("Cores"), s.Run.NumCores)
	fmt.Fprintf(&b, "| %s | %d ms |\n", t("Elapsed"), s.Run.ElapsedMs)
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Frames"))
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Item"), t("Count"))
	fmt.Fprintf(&b, "| %s | %d |\n", t("Input"), s.Frames.Input)
	fmt.Fprintf(&b, "| %s | %d |\n", t("Encoded"), s.Frames.Encoded)
	fmt.Fprintf(&b, "| %s | %d |\n", t("Decoded"), s.Frames.Decoded)
	fmt.Fprintf(&b, "| %s | %d |\n", t("Dropped by encoder"), s.Frames.EncoderDrops)
	fmt.Fprintf(&b, "| %s | %d |\n", t("Dropped by decoder"), s.Frames.DecoderDrops)
	fmt.Fprintf(&b, "| %s | %d |\n", t("Repeated in output"), s.Frames.Replicated)
	b.WriteString("\n")

	if len(s.Profiles) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", t("Rate Profiles"))
		f.writeProfileHeader(&b)
		for _, p := range s.Profiles {
			f.writeProfileRow(&b, fmt.Sprintf("%d-%d", p.FirstFrame, p.LastFrame), p, s.Run.MeasureCPU)
		}
		f.writeProfileRow(&b, "**"+t("Total")+"**", s.Total, s.Run.MeasureCPU)
		b.WriteString("\n")
	}

	if s.Run.MeasureCPU {
		fmt.Fprintf(&b, "%s\n\n", t("Quality was not measured to keep CPU timings clean."))
	}

	b.WriteString("---\n\n")
	footer := fmt.Sprintf("%s %s", t("Generated at"), s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if f.version != "" {
		footer += fmt.Sprintf(" (codectest %s)", f.version)
	}
	b.WriteString(footer + "\n")

	return b.String()
}

func (f *MarkdownFormatter) writeProfileHeader(b *strings.Builder) {
	t := f.translate
	cols := []string{
		t("Frames"), t("Target"), t("Bitrate"), t("Mismatch"), t("Framerate"),
		t("Key frames"), t("Avg key frame"), t("Avg delta frame"), t("Max NAL unit"),
		t("Avg QP"), t("Encode speed"), t("Decode speed"), t("PSNR avg/min"), t("SSIM avg/min"),
	}
	fmt.Fprintf(b, "| %s |\n", strings.Join(cols, " | "))
	b.WriteString("|" + strings.Repeat("---|", len(cols)) + "\n")
}

func (f *MarkdownFormatter) writeProfileRow(b *strings.Builder, label string, p ProfileInfo, measureCPU bool) {
	psnr := fmt.Sprintf("%.2f / %.2f dB", p.AvgPSNR, p.MinPSNR)
	ssim := fmt.Sprintf("%.4f / %.4f", p.AvgSSIM, p.MinSSIM)
	if measureCPU {
		psnr, ssim = "N/A", "N/A"
	}
	cells := []string{
		label,
		fmt.Sprintf("%d kbps @ %.4g fps", p.TargetKbps, p.InputFps),
		fmt.Sprintf("%.1f kbps", p.BitrateKbps),
		fmt.Sprintf("%.1f%%", p.BitrateMismatchPct),
		fmt.Sprintf("%.1f fps", p.FramerateFps),
		fmt.Sprintf("%d", p.NumKeyFrames),
		formatBytes(int64(p.AvgKeyFrameSizeBytes)),
		formatBytes(int64(p.AvgDeltaFrameSizeBytes)),
		formatBytes(int64(p.MaxNaluSizeBytes)),
		fmt.Sprintf("%.1f", p.AvgQP),
		fmt.Sprintf("%.1f fps", p.EncodeSpeedFps),
		fmt.Sprintf("%.1f fps", p.DecodeSpeedFps),
		psnr,
		ssim,
	}
	fmt.Fprintf(b, "| %s |\n", strings.Join(cells, " | "))
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 2; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMG"[exp])
}
