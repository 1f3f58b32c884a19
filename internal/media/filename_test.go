package media

import (
	"testing"
	"time"
)

func TestClassifySource(t *testing.T) {
	tests := []struct {
		filename string
		want     SourceCategory
	}{
		{"VID_20240115_143022.mp4", SourceAndroid},
		{"vid_20240115_143022.mp4", SourceAndroid},
		{"IMG_1234.MOV", SourceIPhone},
		{"IMG_0001.mov", SourceIPhone},
		{"GH010042.MP4", SourceGoPro},
		{"GX020013.mp4", SourceGoPro},
		{"GOPR1234.mp4", SourceOther}, // older GoPro naming, not covered
		{"DJI_20240115143022_0001_D.mp4", SourceDJI},
		{"DJI_0042.mp4", SourceDJI},
		{"VID-20240115-WA0003.mp4", SourceWhatsApp},
		{"holiday_video.mp4", SourceOther},
		{"", SourceOther},
		{"VID_2024_bad.mp4", SourceOther},
		// WhatsApp must win over anything looser even though both start VID
		{"VID-20231224-WA0001.mp4", SourceWhatsApp},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := ClassifySource(tt.filename); got != tt.want {
				t.Errorf("ClassifySource(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestExtractFilenameTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     time.Time
		wantOK   bool
	}{
		{
			"android full datetime",
			"VID_20240115_143022.mp4",
			time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC),
			true,
		},
		{
			"whatsapp date only defaults to midnight",
			"VID-20231224-WA0001.mp4",
			time.Date(2023, 12, 24, 0, 0, 0, 0, time.UTC),
			true,
		},
		{
			"dji compact datetime",
			"DJI_20240115143022_0001_D.mp4",
			time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC),
			true,
		},
		{
			"generic datetime with underscore",
			"render_20220630_081500_final.mov",
			time.Date(2022, 6, 30, 8, 15, 0, 0, time.UTC),
			true,
		},
		{
			"generic datetime with dash",
			"20220630-081500.mp4",
			time.Date(2022, 6, 30, 8, 15, 0, 0, time.UTC),
			true,
		},
		{
			"generic bare date",
			"party_20230801.mp4",
			time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC),
			true,
		},
		{"no digits at all", "holiday.mp4", time.Time{}, false},
		{"too few digits", "clip_2024011.mp4", time.Time{}, false},
		{"month 13 rejected", "party_20231301.mp4", time.Time{}, false},
		{"feb 30 rejected", "VID-20240230-WA0001.mp4", time.Time{}, false},
		{
			"hour 25 falls through to the bare date",
			"VID_20240115_253022.mp4",
			time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			true,
		},
		{"empty filename", "", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractFilenameTimestamp(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ExtractFilenameTimestamp(%q) ok = %v, want %v", tt.filename, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ExtractFilenameTimestamp(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"clip.mp4", true},
		{"CLIP.MP4", true},
		{"clip.mov", true},
		{"clip.webm", true},
		{"clip.txt", false},
		{"clip", false},
		{"clip.mp4.txt", false},
	}

	for _, tt := range tests {
		if got := IsVideoFile(tt.filename); got != tt.want {
			t.Errorf("IsVideoFile(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}
