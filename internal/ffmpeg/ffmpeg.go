package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/reelroom/reelroom-server/internal/logging"
)

const (
	maxStderrBytes  = 8 * 1024 // bounded stderr buffer per invocation
	stderrTailLines = 10       // lines retained in diagnostics

	proxyHeight    = 540
	proxyFrameRate = 24
	thumbnailWidth = 320
)

// Config holds the CLI adapter's configuration.
type Config struct {
	FFmpegPath       string // path to ffmpeg binary; empty = look up on PATH
	FFprobePath      string // path to ffprobe binary; empty = look up on PATH
	ProbeTimeout     time.Duration
	TranscodeTimeout time.Duration
	Logger           *slog.Logger
}

// CLI is the production Tools implementation, shelling out to ffprobe and
// ffmpeg. Binaries are resolved once at construction. A missing binary does
// not fail construction; each call reports ErrToolMissing instead, so the
// server can start and surface the problem through /status.
type CLI struct {
	cfg     Config
	ffmpeg  string
	ffprobe string
}

func NewCLI(cfg Config) *CLI {
	c := &CLI{cfg: cfg}
	c.ffmpeg = resolveBinary(cfg.FFmpegPath, "ffmpeg")
	c.ffprobe = resolveBinary(cfg.FFprobePath, "ffprobe")

	if cfg.Logger != nil {
		cfg.Logger.Info("transcoder initialised",
			"ffmpeg", c.ffmpeg,
			"ffprobe", c.ffprobe,
		)
	}
	return c
}

// Probe runs ffprobe with JSON output and extracts duration, the first video
// stream's dimensions, and the container creation time.
func (c *CLI) Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	if c.ffprobe == "" {
		return nil, fmt.Errorf("ffprobe: %w", ErrToolMissing)
	}

	if c.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ProbeTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &limitedWriter{w: &stderr, limit: maxStderrBytes}

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", logging.SanitizePath(filePath), err)
	}

	return parseProbeOutput(stdout.Bytes())
}

// MakeProxy renders a constrained-bitrate preview: height capped with the
// width scaled to an even value preserving aspect ratio, 24 fps, fast x264,
// mono low-bitrate AAC, faststart for progressive playback.
func (c *CLI) MakeProxy(ctx context.Context, inputPath, outputPath string) error {
	return c.transcode(ctx, "proxy", proxyArgs(inputPath, outputPath), outputPath)
}

// MakeThumbnail extracts one frame near t=1s scaled to a fixed width.
func (c *CLI) MakeThumbnail(ctx context.Context, inputPath, outputPath string) error {
	return c.transcode(ctx, "thumbnail", thumbnailArgs(inputPath, outputPath), outputPath)
}

func proxyArgs(inputPath, outputPath string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		// trunc keeps the capped height even; libx264 with yuv420p rejects
		// odd dimensions, and -2 only rounds the width.
		"-vf", fmt.Sprintf("scale=-2:'2*trunc(min(%d,ih)/2)'", proxyHeight),
		"-r", strconv.Itoa(proxyFrameRate),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "28",
		"-c:a", "aac",
		"-b:a", "64k",
		"-ac", "1",
		"-movflags", "+faststart",
		outputPath,
	}
}

func thumbnailArgs(inputPath, outputPath string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", "1",
		"-i", inputPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", thumbnailWidth),
		outputPath,
	}
}

// transcode is the core ffmpeg invocation helper. Launch failures map to
// ErrToolMissing; non-zero exits map to *TranscodeError with the stderr
// tail. Partial output files are removed on failure.
func (c *CLI) transcode(ctx context.Context, what string, args []string, outputPath string) error {
	if c.ffmpeg == "" {
		return fmt.Errorf("ffmpeg: %w", ErrToolMissing)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}

	if c.cfg.TranscodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.TranscodeTimeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.ffmpeg, args...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderrBuf, limit: maxStderrBytes})
	cmd.Stdout = io.Discard

	err := cmd.Run()
	elapsed := time.Since(start)

	if err == nil {
		if c.cfg.Logger != nil {
			c.cfg.Logger.Info("transcode succeeded",
				"kind", what,
				"output", logging.SanitizePath(outputPath),
				"duration_ms", elapsed.Milliseconds(),
			)
		}
		return nil
	}

	os.Remove(outputPath)

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		// The process never ran: binary vanished, permissions, etc.
		if c.cfg.Logger != nil {
			c.cfg.Logger.Error("transcoder could not be launched", "kind", what, "error", err)
		}
		return fmt.Errorf("ffmpeg launch failed: %v: %w", err, ErrToolMissing)
	}

	tail := lastLines(stderrBuf.String(), stderrTailLines)
	if c.cfg.Logger != nil {
		c.cfg.Logger.Warn("transcode failed",
			"kind", what,
			"exit_code", exitErr.ExitCode(),
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", tail,
		)
	}
	return &TranscodeError{Tool: "ffmpeg", ExitCode: exitErr.ExitCode(), StderrTail: tail}
}

// probeOutput mirrors the subset of ffprobe JSON the catalog cares about.
type probeOutput struct {
	Format struct {
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		CodecType string            `json:"codec_type"`
		Width     int               `json:"width"`
		Height    int               `json:"height"`
		Tags      map[string]string `json:"tags"`
	} `json:"streams"`
}

func parseProbeOutput(data []byte) (*ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}

	result := &ProbeResult{}

	if out.Format.Duration != "" {
		if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
			result.Duration = d
		}
	}

	for _, s := range out.Streams {
		if s.CodecType == "video" {
			result.Width = s.Width
			result.Height = s.Height
			if result.CreatedAt == nil {
				result.CreatedAt = parseCreationTime(s.Tags["creation_time"])
			}
			break
		}
	}

	if t := parseCreationTime(out.Format.Tags["creation_time"]); t != nil {
		result.CreatedAt = t
	}

	return result, nil
}

// parseCreationTime handles the creation_time formats containers actually
// emit; nil for anything unrecognised.
func parseCreationTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000000Z",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, value); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// resolveBinary resolves a configured or well-known binary name to a path,
// returning "" when nothing is found.
func resolveBinary(preferred, fallback string) string {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p
		}
		return ""
	}
	if p, err := exec.LookPath(fallback); err == nil {
		return p
	}
	return ""
}

// lastLines keeps the last n non-empty lines of a diagnostic stream.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "\n")
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
