package media

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is the storeless Repository implementation, used for
// throwaway deployments and tests. It honours the same conditional terminal
// write rules as the sqlite implementation. Records are copied on the way in
// and out so callers never share mutable state with the store.
type MemoryRepository struct {
	mu       sync.RWMutex
	projects map[string]*Project
	clips    map[string]*Clip
	marks    map[string]*Mark
	// monotonically increasing insertion counters, used to keep listing
	// order deterministic without a real ORDER BY
	clipSeq map[string]int
	markSeq map[string]int
	seq     int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		projects: make(map[string]*Project),
		clips:    make(map[string]*Clip),
		marks:    make(map[string]*Mark),
		clipSeq:  make(map[string]int),
		markSeq:  make(map[string]int),
	}
}

func (r *MemoryRepository) CreateProject(_ context.Context, p *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.projects[p.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetProject(_ context.Context, id string) (*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) ListProjects(_ context.Context) ([]*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Project, 0, len(r.projects))
	for _, p := range r.projects {
		cp := *p
		out = append(out, &cp)
	}
	sortProjectsByCreated(out)
	return out, nil
}

func (r *MemoryRepository) CreateClip(_ context.Context, c *Clip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.clipSeq[c.ID] = r.seq
	r.clips[c.ID] = cloneClip(c)
	return nil
}

func (r *MemoryRepository) GetClip(_ context.Context, id string) (*Clip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clips[id]
	if !ok {
		return nil, nil
	}
	return cloneClip(c), nil
}

func (r *MemoryRepository) ListClipsByProject(_ context.Context, projectID string) ([]*Clip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Clip
	for _, c := range r.clips {
		if c.ProjectID == projectID {
			out = append(out, cloneClip(c))
		}
	}
	r.sortClipsByInsertion(out)
	return out, nil
}

func (r *MemoryRepository) UpdateClipProbe(_ context.Context, id string, duration float64, width, height int, mediaCreatedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clips[id]
	if !ok {
		return nil
	}
	c.Duration = duration
	c.Width = width
	c.Height = height
	c.MediaCreatedAt = cloneTime(mediaCreatedAt)
	return nil
}

func (r *MemoryRepository) MarkClipReady(_ context.Context, id, proxyPath, thumbnailPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clips[id]
	if !ok || c.Status != StatusProcessing {
		return nil
	}
	c.Status = StatusReady
	c.ProxyPath = proxyPath
	c.ThumbnailPath = thumbnailPath
	c.ProcessError = ""
	return nil
}

func (r *MemoryRepository) MarkClipFailed(_ context.Context, id, diagnostic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clips[id]
	if !ok || c.Status != StatusProcessing {
		return nil
	}
	c.Status = StatusFailed
	c.ProxyPath = ""
	c.ThumbnailPath = ""
	c.ProcessError = diagnostic
	return nil
}

func (r *MemoryRepository) SetClipInclude(_ context.Context, id string, include bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clips[id]; ok {
		c.IncludeInExport = include
	}
	return nil
}

func (r *MemoryRepository) SetClipOrder(_ context.Context, id string, orderIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clips[id]; ok {
		c.OrderIndex = orderIndex
	}
	return nil
}

func (r *MemoryRepository) DeleteClip(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clips, id)
	delete(r.clipSeq, id)
	for mid, m := range r.marks {
		if m.ClipID == id {
			delete(r.marks, mid)
			delete(r.markSeq, mid)
		}
	}
	return nil
}

func (r *MemoryRepository) CountClipsByStatus(_ context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, c := range r.clips {
		counts[c.Status]++
	}
	return counts, nil
}

func (r *MemoryRepository) CreateMark(_ context.Context, m *Mark) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.markSeq[m.ID] = r.seq
	cp := *m
	r.marks[m.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetMark(_ context.Context, id string) (*Mark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.marks[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepository) ListMarksByClip(_ context.Context, clipID string) ([]*Mark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Mark
	for _, m := range r.marks {
		if m.ClipID == clipID {
			cp := *m
			out = append(out, &cp)
		}
	}
	r.sortMarksByInsertion(out)
	return out, nil
}

func (r *MemoryRepository) DeleteMark(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.marks, id)
	delete(r.markSeq, id)
	return nil
}

func (r *MemoryRepository) sortClipsByInsertion(clips []*Clip) {
	sort.Slice(clips, func(i, j int) bool {
		return r.clipSeq[clips[i].ID] < r.clipSeq[clips[j].ID]
	})
}

func (r *MemoryRepository) sortMarksByInsertion(marks []*Mark) {
	sort.Slice(marks, func(i, j int) bool {
		return r.markSeq[marks[i].ID] < r.markSeq[marks[j].ID]
	})
}

func sortProjectsByCreated(projects []*Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
}

func cloneClip(c *Clip) *Clip {
	cp := *c
	cp.MediaCreatedAt = cloneTime(c.MediaCreatedAt)
	cp.FilenameTime = cloneTime(c.FilenameTime)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
