package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/geoken/typemotion/internal/composition"
)

// FFmpegEncoder renders a bound composition with ffmpeg. The visual output
// is the composition's mood-themed background at the declared resolution and
// frame rate, with the optional audio track muxed in and trimmed to the
// video duration.
type FFmpegEncoder struct{}

func NewFFmpegEncoder() *FFmpegEncoder {
	return &FFmpegEncoder{}
}

func (e *FFmpegEncoder) Encode(ctx context.Context, comp *composition.Bound, durationFrames int, outputPath string) error {
	durationSec := float64(durationFrames) / float64(comp.FPS)

	mood, _ := comp.Params["mood"].(string)
	theme := composition.ThemeFor(mood)

	// lavfi color source: solid themed background at the composition's
	// declared geometry.
	videoInput := fmt.Sprintf("color=c=%s:s=%dx%d:r=%d",
		theme.Background, comp.Width, comp.Height, comp.FPS)

	args := []string{
		"-f", "lavfi",
		"-i", videoInput,
	}

	audioURL, _ := comp.Params["audioUrl"].(string)
	if audioURL != "" {
		args = append(args, "-i", audioURL)
	}

	args = append(args,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-t", fmt.Sprintf("%.3f", durationSec),
	)

	if audioURL != "" {
		args = append(args, "-c:a", "aac", "-b:a", "192k", "-shortest")
	}

	args = append(args, "-y", outputPath)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg encode failed: %w: %s", err, truncateOutput(stderr.String()))
	}

	return nil
}

func truncateOutput(s string) string {
	const max = 500
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
