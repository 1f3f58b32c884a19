package media

import (
	"context"
	"database/sql"
	"time"
)

// Repository is the persistence collaborator for projects, clips and marks.
// Get methods return (nil, nil) for absent records. Implementations must make
// MarkClipReady/MarkClipFailed conditional on the clip still being in
// "processing", so a terminal state is never overwritten by a stale pipeline
// and a deleted clip stays deleted (last writer wins).
type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)

	CreateClip(ctx context.Context, c *Clip) error
	GetClip(ctx context.Context, id string) (*Clip, error)
	ListClipsByProject(ctx context.Context, projectID string) ([]*Clip, error)
	UpdateClipProbe(ctx context.Context, id string, duration float64, width, height int, mediaCreatedAt *time.Time) error
	MarkClipReady(ctx context.Context, id, proxyPath, thumbnailPath string) error
	MarkClipFailed(ctx context.Context, id, diagnostic string) error
	SetClipInclude(ctx context.Context, id string, include bool) error
	SetClipOrder(ctx context.Context, id string, orderIndex int) error
	DeleteClip(ctx context.Context, id string) error
	CountClipsByStatus(ctx context.Context) (map[string]int, error)

	CreateMark(ctx context.Context, m *Mark) error
	GetMark(ctx context.Context, id string) (*Mark, error)
	ListMarksByClip(ctx context.Context, clipID string) ([]*Mark, error)
	DeleteMark(ctx context.Context, id string) error
}

// SQLiteRepository persists the catalog in sqlite.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)
	`, p.ID, p.Name, p.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM projects WHERE id = ?`, id)

	var p Project
	var createdAt string
	err := row.Scan(&p.ID, &p.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

const clipColumns = `id, project_id, filename, original_path, uploader, size, uploaded_at,
	duration, width, height, media_created_at, source, filename_time,
	status, proxy_path, thumbnail_path, process_error, include_in_export, order_index`

func (r *SQLiteRepository) CreateClip(ctx context.Context, c *Clip) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clips (`+clipColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.ProjectID, c.Filename, c.OriginalPath, c.Uploader, c.Size,
		c.UploadedAt.UTC().Format(time.RFC3339),
		c.Duration, c.Width, c.Height, nullTime(c.MediaCreatedAt), string(c.Source), nullTime(c.FilenameTime),
		c.Status, nullString(c.ProxyPath), nullString(c.ThumbnailPath), nullString(c.ProcessError),
		boolToInt(c.IncludeInExport), c.OrderIndex)
	return err
}

func (r *SQLiteRepository) GetClip(ctx context.Context, id string) (*Clip, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clipColumns+` FROM clips WHERE id = ?`, id)
	return scanClip(row)
}

func (r *SQLiteRepository) ListClipsByProject(ctx context.Context, projectID string) ([]*Clip, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+clipColumns+` FROM clips WHERE project_id = ? ORDER BY uploaded_at, id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clips []*Clip
	for rows.Next() {
		c, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}
	return clips, rows.Err()
}

func (r *SQLiteRepository) UpdateClipProbe(ctx context.Context, id string, duration float64, width, height int, mediaCreatedAt *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE clips SET duration = ?, width = ?, height = ?, media_created_at = ? WHERE id = ?
	`, duration, width, height, nullTime(mediaCreatedAt), id)
	return err
}

func (r *SQLiteRepository) MarkClipReady(ctx context.Context, id, proxyPath, thumbnailPath string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE clips SET status = ?, proxy_path = ?, thumbnail_path = ?, process_error = NULL
		WHERE id = ? AND status = ?
	`, StatusReady, proxyPath, thumbnailPath, id, StatusProcessing)
	return err
}

func (r *SQLiteRepository) MarkClipFailed(ctx context.Context, id, diagnostic string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE clips SET status = ?, proxy_path = NULL, thumbnail_path = NULL, process_error = ?
		WHERE id = ? AND status = ?
	`, StatusFailed, diagnostic, id, StatusProcessing)
	return err
}

func (r *SQLiteRepository) SetClipInclude(ctx context.Context, id string, include bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE clips SET include_in_export = ? WHERE id = ?`, boolToInt(include), id)
	return err
}

func (r *SQLiteRepository) SetClipOrder(ctx context.Context, id string, orderIndex int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE clips SET order_index = ? WHERE id = ?`, orderIndex, id)
	return err
}

func (r *SQLiteRepository) DeleteClip(ctx context.Context, id string) error {
	// Marks go with the clip via ON DELETE CASCADE.
	_, err := r.db.ExecContext(ctx, `DELETE FROM clips WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepository) CountClipsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM clips GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *SQLiteRepository) CreateMark(ctx context.Context, m *Mark) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO marks (id, clip_id, in_point, out_point, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.ClipID, m.In, m.Out, m.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetMark(ctx context.Context, id string) (*Mark, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, clip_id, in_point, out_point, created_at FROM marks WHERE id = ?
	`, id)

	var m Mark
	var createdAt string
	err := row.Scan(&m.ID, &m.ClipID, &m.In, &m.Out, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &m, nil
}

func (r *SQLiteRepository) ListMarksByClip(ctx context.Context, clipID string) ([]*Mark, error) {
	// created_at only has second resolution, so two marks made in the same
	// second would tie; rowid carries the true insertion order.
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, clip_id, in_point, out_point, created_at
		FROM marks WHERE clip_id = ? ORDER BY rowid
	`, clipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var marks []*Mark
	for rows.Next() {
		var m Mark
		var createdAt string
		if err := rows.Scan(&m.ID, &m.ClipID, &m.In, &m.Out, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		marks = append(marks, &m)
	}
	return marks, rows.Err()
}

func (r *SQLiteRepository) DeleteMark(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM marks WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClip(row rowScanner) (*Clip, error) {
	var c Clip
	var uploadedAt string
	var mediaCreatedAt, filenameTime, proxyPath, thumbnailPath, processError sql.NullString
	var source string
	var include int

	err := row.Scan(&c.ID, &c.ProjectID, &c.Filename, &c.OriginalPath, &c.Uploader, &c.Size, &uploadedAt,
		&c.Duration, &c.Width, &c.Height, &mediaCreatedAt, &source, &filenameTime,
		&c.Status, &proxyPath, &thumbnailPath, &processError, &include, &c.OrderIndex)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.UploadedAt, _ = time.Parse(time.RFC3339, uploadedAt)
	c.MediaCreatedAt = parseNullTime(mediaCreatedAt)
	c.FilenameTime = parseNullTime(filenameTime)
	c.Source = SourceCategory(source)
	c.ProxyPath = proxyPath.String
	c.ThumbnailPath = thumbnailPath.String
	c.ProcessError = processError.String
	c.IncludeInExport = include == 1
	return &c, nil
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
