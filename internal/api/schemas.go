package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/reelroom/reelroom-server/internal/media"
)

// validate is shared across handlers; validator instances cache struct
// metadata and are safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	ClipCounts map[string]int     `json:"clip_counts"`
	Tools      ToolStatusResponse `json:"tools"`
}

type ToolStatusResponse struct {
	FFmpegAvailable  bool   `json:"ffmpeg_available"`
	FFprobeAvailable bool   `json:"ffprobe_available"`
	FFmpegVersion    string `json:"ffmpeg_version,omitempty"`
	ProbedAt         string `json:"probed_at"`
}

type LogEntryResponse struct {
	Time    string            `json:"time"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

type LogsResponse struct {
	Entries []LogEntryResponse `json:"entries"`
}

type CreateProjectRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

type ProjectResponse struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	CreatedAt  string         `json:"created_at"`
	ClipCounts map[string]int `json:"clip_counts,omitempty"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type ClipResponse struct {
	ID              string  `json:"id"`
	ProjectID       string  `json:"project_id"`
	Filename        string  `json:"filename"`
	Uploader        string  `json:"uploader,omitempty"`
	Size            int64   `json:"size"`
	UploadedAt      string  `json:"uploaded_at"`
	Duration        float64 `json:"duration"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	MediaCreatedAt  string  `json:"media_created_at,omitempty"`
	Source          string  `json:"source"`
	FilenameTime    string  `json:"filename_time,omitempty"`
	BestTimestamp   string  `json:"best_timestamp"`
	Status          string  `json:"status"`
	ProcessError    string  `json:"process_error,omitempty"`
	IncludeInExport bool    `json:"include_in_export"`
	OrderIndex      int     `json:"order_index"`
}

type ClipsResponse struct {
	Clips []ClipResponse `json:"clips"`
}

type UpdateClipRequest struct {
	IncludeInExport *bool `json:"include_in_export,omitempty"`
	OrderIndex      *int  `json:"order_index,omitempty" validate:"omitempty,min=0"`
}

type CreateMarkRequest struct {
	In  float64 `json:"in" validate:"min=0"`
	Out float64 `json:"out" validate:"gtfield=In"`
}

type MarkResponse struct {
	ID        string  `json:"id"`
	ClipID    string  `json:"clip_id"`
	In        float64 `json:"in"`
	Out       float64 `json:"out"`
	CreatedAt string  `json:"created_at"`
}

type MarksResponse struct {
	Marks []MarkResponse `json:"marks"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ProjectToResponse(p *media.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func ClipToResponse(c *media.Clip) ClipResponse {
	resp := ClipResponse{
		ID:              c.ID,
		ProjectID:       c.ProjectID,
		Filename:        c.Filename,
		Uploader:        c.Uploader,
		Size:            c.Size,
		UploadedAt:      c.UploadedAt.Format(time.RFC3339),
		Duration:        c.Duration,
		Width:           c.Width,
		Height:          c.Height,
		Source:          string(c.Source),
		BestTimestamp:   media.BestTimestamp(c).Format(time.RFC3339),
		Status:          c.Status,
		ProcessError:    c.ProcessError,
		IncludeInExport: c.IncludeInExport,
		OrderIndex:      c.OrderIndex,
	}
	if c.MediaCreatedAt != nil {
		resp.MediaCreatedAt = c.MediaCreatedAt.Format(time.RFC3339)
	}
	if c.FilenameTime != nil {
		resp.FilenameTime = c.FilenameTime.Format(time.RFC3339)
	}
	return resp
}

func MarkToResponse(m *media.Mark) MarkResponse {
	return MarkResponse{
		ID:        m.ID,
		ClipID:    m.ClipID,
		In:        m.In,
		Out:       m.Out,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}
