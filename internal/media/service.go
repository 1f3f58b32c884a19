package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/reelroom/reelroom-server/internal/ffmpeg"
	"github.com/reelroom/reelroom-server/internal/logging"
)

// ErrInvalidRange rejects a mark whose bounds are not 0 <= in < out (<=
// clip duration, when a duration is known).
var ErrInvalidRange = errors.New("invalid range")

// ErrProjectNotFound is returned by operations on an unknown project.
var ErrProjectNotFound = errors.New("project not found")

// ErrClipNotFound is returned by operations on an unknown clip.
var ErrClipNotFound = errors.New("clip not found")

// Dirs names the filesystem locations the service writes. Artifact files are
// namespaced by clip id, so concurrent pipelines never share a path.
type Dirs struct {
	Originals  string
	Proxies    string
	Thumbnails string
}

// Service owns the clip catalog and the per-clip processing pipeline.
type Service struct {
	repo   Repository
	tools  ffmpeg.Tools
	dirs   Dirs
	logger *slog.Logger

	// sem bounds the number of concurrent pipelines; wg lets shutdown (and
	// tests) wait for in-flight ones.
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func NewService(repo Repository, tools ffmpeg.Tools, dirs Dirs, workers int, logger *slog.Logger) (*Service, error) {
	if workers < 1 {
		workers = 1
	}
	for _, dir := range []string{dirs.Originals, dirs.Proxies, dirs.Thumbnails} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create media dir: %w", err)
		}
	}
	return &Service{
		repo:   repo,
		tools:  tools,
		dirs:   dirs,
		logger: logger,
		sem:    semaphore.NewWeighted(int64(workers)),
	}, nil
}

// CreateProject registers a new collaboration container.
func (s *Service) CreateProject(ctx context.Context, name string) (*Project, error) {
	p := &Project{
		ID:        NewID(),
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC(),
	}
	if p.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("project created", "project_id", p.ID, "name", p.Name)
	}
	return p, nil
}

func (s *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	return s.repo.GetProject(ctx, id)
}

func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.repo.ListProjects(ctx)
}

// Upload describes one incoming raw clip.
type Upload struct {
	ProjectID string
	Filename  string
	Uploader  string
	Content   io.Reader
}

// Ingest stores the raw upload, creates the clip record in "processing", and
// starts its pipeline detached from the caller. It returns as soon as the
// record exists; progress is observed by re-reading clip status.
func (s *Service) Ingest(ctx context.Context, up Upload) (*Clip, error) {
	project, err := s.repo.GetProject(ctx, up.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}

	id := NewID()
	originalPath := filepath.Join(s.dirs.Originals, id+strings.ToLower(filepath.Ext(up.Filename)))

	size, err := writeFile(originalPath, up.Content)
	if err != nil {
		return nil, fmt.Errorf("cannot store upload: %w", err)
	}

	now := time.Now().UTC()
	clip := &Clip{
		ID:              id,
		ProjectID:       up.ProjectID,
		Filename:        up.Filename,
		OriginalPath:    originalPath,
		Uploader:        up.Uploader,
		Size:            size,
		UploadedAt:      now,
		Source:          ClassifySource(up.Filename),
		Status:          StatusProcessing,
		IncludeInExport: true,
	}
	if t, ok := ExtractFilenameTimestamp(up.Filename); ok {
		clip.FilenameTime = &t
	}

	if err := s.repo.CreateClip(ctx, clip); err != nil {
		os.Remove(originalPath)
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("clip ingested",
			"clip_id", clip.ID,
			"project_id", clip.ProjectID,
			"filename", clip.Filename,
			"source", clip.Source,
			"size", size,
		)
	}

	s.wg.Add(1)
	go s.runPipeline(clip.ID, originalPath)

	return clip, nil
}

// Wait blocks until every in-flight pipeline has finished. Used during
// shutdown; callers stop submitting first.
func (s *Service) Wait() {
	s.wg.Wait()
}

// runPipeline drives one clip from processing to ready or failed. Failures
// are fully contained: they become a status transition plus a log entry,
// never a fault visible to other clips or the host process.
func (s *Service) runPipeline(clipID, originalPath string) {
	defer s.wg.Done()

	// Detached from the upload request; the HTTP context is long gone.
	ctx := context.Background()

	logger := s.logger
	if logger != nil {
		logger = logging.WithClipID(logger, clipID)
	}

	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error("pipeline panic recovered", "panic", r)
			}
			s.repo.MarkClipFailed(ctx, clipID, fmt.Sprintf("internal pipeline error: %v", r))
		}
	}()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.repo.MarkClipFailed(ctx, clipID, fmt.Sprintf("pipeline not scheduled: %v", err))
		return
	}
	defer s.sem.Release(1)

	// Step 1: probe. Failure degrades metadata quality, nothing more.
	if probe, err := s.tools.Probe(ctx, originalPath); err != nil {
		if logger != nil {
			logger.Warn("metadata probe unavailable, continuing without technical metadata", "error", err)
		}
	} else {
		if err := s.repo.UpdateClipProbe(ctx, clipID, probe.Duration, probe.Width, probe.Height, probe.CreatedAt); err != nil && logger != nil {
			logger.Warn("failed to store probe result", "error", err)
		}
	}

	// Step 2: proxy then thumbnail. Either failing fails the clip.
	proxyPath := filepath.Join(s.dirs.Proxies, clipID+".mp4")
	thumbnailPath := filepath.Join(s.dirs.Thumbnails, clipID+".jpg")

	if err := s.tools.MakeProxy(ctx, originalPath, proxyPath); err != nil {
		s.failClip(ctx, logger, clipID, "proxy", err, proxyPath, thumbnailPath)
		return
	}

	if err := s.tools.MakeThumbnail(ctx, originalPath, thumbnailPath); err != nil {
		s.failClip(ctx, logger, clipID, "thumbnail", err, proxyPath, thumbnailPath)
		return
	}

	// Step 3: both artifacts exist, finalize.
	if err := s.repo.MarkClipReady(ctx, clipID, proxyPath, thumbnailPath); err != nil {
		if logger != nil {
			logger.Error("failed to mark clip ready", "error", err)
		}
		return
	}

	if logger != nil {
		logger.Info("clip ready",
			"proxy", logging.SanitizePath(proxyPath),
			"thumbnail", logging.SanitizePath(thumbnailPath),
		)
	}
}

func (s *Service) failClip(ctx context.Context, logger *slog.Logger, clipID, step string, cause error, artifacts ...string) {
	// No partial artifacts may remain referenced or on disk.
	for _, p := range artifacts {
		os.Remove(p)
	}

	diagnostic := fmt.Sprintf("%s generation failed: %v", step, cause)
	if err := s.repo.MarkClipFailed(ctx, clipID, diagnostic); err != nil && logger != nil {
		logger.Error("failed to record clip failure", "error", err)
	}

	if logger == nil {
		return
	}
	if errors.Is(cause, ffmpeg.ErrToolMissing) {
		// Operational misconfiguration, not a bad input.
		logger.Error("transcode tool missing", "step", step, "error", cause)
	} else {
		logger.Warn("clip failed", "step", step, "error", cause)
	}
}

// GetClip returns the clip record, nil when absent.
func (s *Service) GetClip(ctx context.Context, id string) (*Clip, error) {
	return s.repo.GetClip(ctx, id)
}

// CurrentStatus returns the processing status for a clip.
func (s *Service) CurrentStatus(ctx context.Context, id string) (string, error) {
	clip, err := s.repo.GetClip(ctx, id)
	if err != nil {
		return "", err
	}
	if clip == nil {
		return "", ErrClipNotFound
	}
	return clip.Status, nil
}

// SortedClips lists a project's clips ordered by the requested mode.
func (s *Service) SortedClips(ctx context.Context, projectID, mode string) ([]*Clip, error) {
	clips, err := s.repo.ListClipsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	SortClips(clips, mode)
	return clips, nil
}

// SetClipInclude flips the included-in-export flag.
func (s *Service) SetClipInclude(ctx context.Context, id string, include bool) error {
	return s.repo.SetClipInclude(ctx, id, include)
}

// SetClipOrder updates the manual order index.
func (s *Service) SetClipOrder(ctx context.Context, id string, orderIndex int) error {
	return s.repo.SetClipOrder(ctx, id, orderIndex)
}

// DeleteClip removes the clip, its marks, and any artifacts. Safe to call
// while the clip's pipeline is in flight: the pipeline's terminal write is
// conditional and cannot resurrect the record.
func (s *Service) DeleteClip(ctx context.Context, id string) error {
	clip, err := s.repo.GetClip(ctx, id)
	if err != nil {
		return err
	}
	if clip == nil {
		return nil
	}

	if err := s.repo.DeleteClip(ctx, id); err != nil {
		return err
	}

	// Best effort; a pipeline racing us re-creates at most files the next
	// deletion sweep or re-upload overwrites.
	os.Remove(clip.OriginalPath)
	os.Remove(filepath.Join(s.dirs.Proxies, id+".mp4"))
	os.Remove(filepath.Join(s.dirs.Thumbnails, id+".jpg"))

	if s.logger != nil {
		s.logger.Info("clip deleted", "clip_id", id, "project_id", clip.ProjectID)
	}
	return nil
}

// AddMark creates an in/out range on a clip. The duration upper bound is
// advisory: when probing failed the duration is 0 and only ordering is
// enforced.
func (s *Service) AddMark(ctx context.Context, clipID string, in, out float64) (*Mark, error) {
	clip, err := s.repo.GetClip(ctx, clipID)
	if err != nil {
		return nil, err
	}
	if clip == nil {
		return nil, ErrClipNotFound
	}

	if in < 0 || out <= in {
		return nil, ErrInvalidRange
	}
	if clip.Duration > 0 && out > clip.Duration {
		return nil, ErrInvalidRange
	}

	m := &Mark{
		ID:        NewID(),
		ClipID:    clipID,
		In:        in,
		Out:       out,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateMark(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RemoveMark deletes a mark. Removing an absent id is not an error.
func (s *Service) RemoveMark(ctx context.Context, id string) error {
	return s.repo.DeleteMark(ctx, id)
}

// Marks lists a clip's marks in insertion order.
func (s *Service) Marks(ctx context.Context, clipID string) ([]*Mark, error) {
	return s.repo.ListMarksByClip(ctx, clipID)
}

// ProjectExportPlan assembles the current clips and marks of a project and
// computes its export plan.
func (s *Service) ProjectExportPlan(ctx context.Context, projectID string) (*ExportPlan, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}

	clips, err := s.repo.ListClipsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	SortClips(clips, SortSmart)

	marksByClip := make(map[string][]*Mark, len(clips))
	for _, c := range clips {
		marks, err := s.repo.ListMarksByClip(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		marksByClip[c.ID] = marks
	}

	return BuildExportPlan(clips, marksByClip), nil
}

// CountClipsByStatus exposes catalog counts for the status endpoint.
func (s *Service) CountClipsByStatus(ctx context.Context) (map[string]int, error) {
	return s.repo.CountClipsByStatus(ctx)
}

// ProjectClipCounts tallies a project's clips per status.
func (s *Service) ProjectClipCounts(ctx context.Context, projectID string) (map[string]int, error) {
	clips, err := s.repo.ListClipsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, c := range clips {
		counts[c.Status]++
	}
	return counts, nil
}

func writeFile(path string, content io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	size, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return size, nil
}
