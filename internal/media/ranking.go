package media

import (
	"sort"
	"time"
)

// BestTimestamp picks the most trustworthy capture time for a clip:
// container metadata beats the filename, the filename beats upload time.
// Upload time is always present, so the result is total.
func BestTimestamp(c *Clip) time.Time {
	if c.MediaCreatedAt != nil {
		return *c.MediaCreatedAt
	}
	if c.FilenameTime != nil {
		return *c.FilenameTime
	}
	return c.UploadedAt
}

// SortClips orders clips in place by the requested mode. The sort is stable:
// equal keys keep their prior relative order, so re-sorting an already
// sorted slice is a no-op. Unknown modes fall back to smart.
func SortClips(clips []*Clip, mode string) {
	switch mode {
	case SortUpload:
		sort.SliceStable(clips, func(i, j int) bool {
			return clips[i].UploadedAt.Before(clips[j].UploadedAt)
		})
	case SortFilename:
		sort.SliceStable(clips, func(i, j int) bool {
			return clips[i].Filename < clips[j].Filename
		})
	case SortManual:
		sort.SliceStable(clips, func(i, j int) bool {
			return clips[i].OrderIndex < clips[j].OrderIndex
		})
	default: // SortSmart
		sort.SliceStable(clips, func(i, j int) bool {
			return BestTimestamp(clips[i]).Before(BestTimestamp(clips[j]))
		})
	}
}

// ValidSortMode reports whether mode is one of the four supported modes.
func ValidSortMode(mode string) bool {
	switch mode {
	case SortSmart, SortUpload, SortFilename, SortManual:
		return true
	}
	return false
}
