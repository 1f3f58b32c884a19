// Package ffmpeg wraps the external ffprobe/ffmpeg binaries behind the
// Tools interface: one metadata probe and two transcode operations (proxy
// video, thumbnail image) per clip.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrToolMissing reports that a required binary could not be located or
// launched at all. An operational misconfiguration, not a bad input: every
// clip will fail until it is fixed, so it is kept distinct from a per-input
// transcode failure.
var ErrToolMissing = errors.New("external tool missing")

// TranscodeError reports that the tool ran but could not convert this
// specific input. The stderr tail is retained for operator-visible logging.
type TranscodeError struct {
	Tool       string
	ExitCode   int
	StderrTail string
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("%s exited %d: %s", e.Tool, e.ExitCode, e.StderrTail)
}

// ProbeResult is the technical metadata extracted from a media file.
// Zero values stand in for anything the container did not report.
type ProbeResult struct {
	Duration  float64    // seconds
	Width     int        // first video stream
	Height    int        // first video stream
	CreatedAt *time.Time // container creation_time tag, if any
}

// Tools is the execution contract the ingest pipeline depends on.
// Implementations must be safe for concurrent use across clips.
type Tools interface {
	// Probe inspects a media file. Any failure (launch, exit, parse) is
	// returned as an error; callers treat it as "no metadata available",
	// never as fatal. No retries at this layer.
	Probe(ctx context.Context, filePath string) (*ProbeResult, error)

	// MakeProxy renders the reduced-quality preview MP4.
	MakeProxy(ctx context.Context, inputPath, outputPath string) error

	// MakeThumbnail extracts a single frame near the one-second mark.
	MakeThumbnail(ctx context.Context, inputPath, outputPath string) error
}

// ToolStatus reports availability of the external binaries, as probed by
// the doctor.
type ToolStatus struct {
	FFmpegAvailable  bool      `json:"ffmpeg_available"`
	FFprobeAvailable bool      `json:"ffprobe_available"`
	FFmpegVersion    string    `json:"ffmpeg_version,omitempty"`
	ProbedAt         time.Time `json:"probed_at"`
}
