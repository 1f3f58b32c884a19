package logging

import (
	"fmt"
	"log/slog"
	"testing"
)

func TestRingSink_FillAndWrap(t *testing.T) {
	sink := NewRingSink(3)

	if sink.Len() != 0 {
		t.Fatalf("new sink Len = %d", sink.Len())
	}

	for i := 0; i < 5; i++ {
		sink.append(Entry{Message: fmt.Sprintf("msg-%d", i)})
	}

	if sink.Len() != 3 {
		t.Fatalf("Len = %d, want capacity 3", sink.Len())
	}

	entries := sink.Entries()
	want := []string{"msg-2", "msg-3", "msg-4"}
	for i, w := range want {
		if entries[i].Message != w {
			t.Errorf("entry %d = %q, want %q", i, entries[i].Message, w)
		}
	}
}

func TestRingSink_PartialFill(t *testing.T) {
	sink := NewRingSink(10)
	sink.append(Entry{Message: "only"})

	entries := sink.Entries()
	if len(entries) != 1 || entries[0].Message != "only" {
		t.Errorf("Entries = %+v", entries)
	}
}

func TestRingSink_ZeroCapacityDefaults(t *testing.T) {
	sink := NewRingSink(0)
	if len(sink.entries) != DefaultRingCapacity {
		t.Errorf("capacity = %d, want %d", len(sink.entries), DefaultRingCapacity)
	}
}

func TestNewLogger_TeesIntoSink(t *testing.T) {
	sink := NewRingSink(8)
	logger := NewLogger("info", sink)

	logger.Info("pipeline done", "clip_id", "abc", "status", "ready")
	logger.Debug("not retained at info level")

	entries := sink.Entries()
	if len(entries) != 1 {
		t.Fatalf("retained %d entries, want 1", len(entries))
	}

	e := entries[0]
	if e.Message != "pipeline done" || e.Level != slog.LevelInfo.String() {
		t.Errorf("entry = %+v", e)
	}
	if e.Attrs["clip_id"] != "abc" || e.Attrs["status"] != "ready" {
		t.Errorf("attrs = %v", e.Attrs)
	}
}

func TestNewLogger_WithAttrsReachRing(t *testing.T) {
	sink := NewRingSink(8)
	logger := NewLogger("info", sink)

	WithClipID(logger, "xyz").Info("probed")

	entries := sink.Entries()
	if len(entries) != 1 || entries[0].Attrs["clip_id"] != "xyz" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
