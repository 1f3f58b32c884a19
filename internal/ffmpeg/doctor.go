package ffmpeg

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const doctorCacheTTL = 5 * time.Minute

// Checker probes the availability of the external tools.
type Checker interface {
	CheckTools(ctx context.Context) ToolStatus
}

// CheckTools reports whether the resolved binaries exist and which ffmpeg
// version is installed. A missing tool here means every upload will fail
// with TranscodeToolMissing until the host is fixed.
func (c *CLI) CheckTools(ctx context.Context) ToolStatus {
	status := ToolStatus{
		FFprobeAvailable: c.ffprobe != "",
		ProbedAt:         time.Now(),
	}

	if c.ffmpeg == "" {
		return status
	}

	cmd := exec.CommandContext(ctx, c.ffmpeg, "-version")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return status
	}

	status.FFmpegAvailable = true
	if line, _, found := strings.Cut(out.String(), "\n"); found || line != "" {
		status.FFmpegVersion = strings.TrimSpace(line)
	}
	return status
}

// CachedDoctor wraps a Checker to cache tool probes with a TTL, so /status
// does not spawn a subprocess on every request.
type CachedDoctor struct {
	checker Checker
	ttl     time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	cached *ToolStatus
}

// NewCachedDoctor creates a caching wrapper around tool probes.
func NewCachedDoctor(checker Checker, logger *slog.Logger) *CachedDoctor {
	return &CachedDoctor{
		checker: checker,
		ttl:     doctorCacheTTL,
		logger:  logger,
	}
}

// Get returns cached status if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) ToolStatus {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		status := *d.cached
		d.mu.RUnlock()
		return status
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

// Refresh forces a new probe regardless of cache freshness.
func (d *CachedDoctor) Refresh(ctx context.Context) ToolStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	status := d.checker.CheckTools(ctx)
	d.cached = &status

	if d.logger != nil && (!status.FFmpegAvailable || !status.FFprobeAvailable) {
		d.logger.Error("external tools unavailable, uploads will fail",
			"ffmpeg", status.FFmpegAvailable,
			"ffprobe", status.FFprobeAvailable,
		)
	}
	return status
}

// Invalidate clears the cached status.
func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}
