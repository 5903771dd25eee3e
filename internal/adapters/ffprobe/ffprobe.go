package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mikey-austin/homewatch/internal/ports"
)

// Thumbnail geometry.
const (
	ThumbnailWidth  = 200
	ThumbnailHeight = 300
)

// runFunc runs an executable and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Prober runs ffprobe and decodes its JSON report.
type Prober struct {
	bin string
	run runFunc
}

var _ ports.Prober = (*Prober)(nil)

// NewProber uses bin, or "ffprobe" from PATH when empty.
func NewProber(bin string) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{bin: bin, run: run}
}

func (p *Prober) Probe(ctx context.Context, path string) (ports.ProbeResult, error) {
	out, err := p.run(ctx, p.bin, "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path)
	if err != nil {
		return ports.ProbeResult{}, err
	}
	var result ports.ProbeResult
	if err := json.Unmarshal(out, &result); err != nil {
		return ports.ProbeResult{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	return result, nil
}

// Thumbnailer extracts one cropped keyframe with ffmpeg.
type Thumbnailer struct {
	bin string
	run runFunc
}

var _ ports.Thumbnailer = (*Thumbnailer)(nil)

// NewThumbnailer uses bin, or "ffmpeg" from PATH when empty.
func NewThumbnailer(bin string) *Thumbnailer {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Thumbnailer{bin: bin, run: run}
}

// Extract succeeds only if ffmpeg exits cleanly and outPath exists afterwards;
// ffmpeg writes nothing when at lies past the last keyframe.
func (t *Thumbnailer) Extract(ctx context.Context, videoPath string, outPath string, at time.Duration) error {
	if _, err := t.run(ctx, t.bin, thumbnailArgs(videoPath, outPath, at)...); err != nil {
		return err
	}
	if _, err := os.Stat(outPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no frame at %s", timestamp(at))
		}
		return err
	}
	return nil
}

func thumbnailArgs(videoPath string, outPath string, at time.Duration) []string {
	w, h := ThumbnailWidth, ThumbnailHeight
	scale := fmt.Sprintf("scale='max(%d,%d*iw/ih)':'max(%d,%d*ih/iw)',crop=%d:%d", w, h, h, w, w, h)
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-skip_frame", "nokey",
		"-ss", timestamp(at),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-vf", scale,
		outPath,
		"-y",
	}
}

// timestamp formats at as HH:MM:SS.mmm.
func timestamp(at time.Duration) string {
	at = max(at, 0)
	ms := at.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3600000, (ms/60000)%60, (ms/1000)%60, ms%1000)
}
