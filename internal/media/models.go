// Package media implements the clip catalog: ingestion of uploaded raw
// videos through probing and proxy generation, chronological ranking,
// in/out marks, and export plan aggregation.
package media

import (
	"time"

	"github.com/google/uuid"
)

// SourceCategory is the device family inferred from a clip's filename.
type SourceCategory string

const (
	SourceAndroid  SourceCategory = "android"
	SourceIPhone   SourceCategory = "iphone"
	SourceGoPro    SourceCategory = "gopro"
	SourceDJI      SourceCategory = "dji"
	SourceWhatsApp SourceCategory = "whatsapp"
	SourceOther    SourceCategory = "other"
)

// Clip processing statuses. A clip enters "processing" at upload (there is
// no queued state; ingestion starts immediately) and ends in "ready" or
// "failed". Terminal states are only left by re-ingestion.
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Sort modes accepted by SortClips.
const (
	SortSmart    = "smart"
	SortUpload   = "upload"
	SortFilename = "filename"
	SortManual   = "manual"
)

// Project is a collaboration container owning a set of clips.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Clip is one uploaded raw video and its derived artifacts and status.
type Clip struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`

	Filename     string    `json:"filename"`
	OriginalPath string    `json:"original_path"`
	Uploader     string    `json:"uploader,omitempty"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploaded_at"`

	Duration       float64    `json:"duration"`
	Width          int        `json:"width"`
	Height         int        `json:"height"`
	MediaCreatedAt *time.Time `json:"media_created_at,omitempty"`

	Source       SourceCategory `json:"source"`
	FilenameTime *time.Time     `json:"filename_time,omitempty"`

	Status        string `json:"status"`
	ProxyPath     string `json:"proxy_path,omitempty"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	ProcessError  string `json:"process_error,omitempty"`

	IncludeInExport bool `json:"include_in_export"`
	OrderIndex      int  `json:"order_index"`
}

// Mark is one user-defined in/out range on a clip. Marks are created and
// deleted whole, never mutated.
type Mark struct {
	ID        string    `json:"id"`
	ClipID    string    `json:"clip_id"`
	In        float64   `json:"in_point"`
	Out       float64   `json:"out_point"`
	CreatedAt time.Time `json:"created_at"`
}

func NewID() string {
	return uuid.NewString()
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".3gp":  true,
	".m4v":  true,
	".mts":  true,
	".webm": true,
}

// IsVideoFile reports whether the filename has a recognised video extension.
func IsVideoFile(filename string) bool {
	ext := ""
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			ext = filename[i:]
			break
		}
	}
	if ext == "" {
		return false
	}
	lower := make([]byte, len(ext))
	for i, c := range ext {
		if c >= 'A' && c <= 'Z' {
			lower[i] = byte(c + 32)
		} else {
			lower[i] = byte(c)
		}
	}
	return videoExtensions[string(lower)]
}
