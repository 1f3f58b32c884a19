package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const DefaultRingCapacity = 512

// Entry is one retained log record.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// RingSink retains the most recent log entries in a fixed-capacity ring.
// Older entries are overwritten once capacity is reached, so memory use is
// bounded regardless of process lifetime.
type RingSink struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// NewRingSink creates a sink retaining at most capacity entries.
func NewRingSink(capacity int) *RingSink {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &RingSink{entries: make([]Entry, capacity)}
}

func (s *RingSink) append(e Entry) {
	s.mu.Lock()
	s.entries[s.next] = e
	s.next++
	if s.next == len(s.entries) {
		s.next = 0
		s.full = true
	}
	s.mu.Unlock()
}

// Entries returns retained entries, oldest first.
func (s *RingSink) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.full {
		out := make([]Entry, s.next)
		copy(out, s.entries[:s.next])
		return out
	}
	out := make([]Entry, 0, len(s.entries))
	out = append(out, s.entries[s.next:]...)
	out = append(out, s.entries[:s.next]...)
	return out
}

// Len returns the number of retained entries.
func (s *RingSink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return len(s.entries)
	}
	return s.next
}

// ringHandler adapts a RingSink to slog.Handler.
type ringHandler struct {
	sink  *RingSink
	level slog.Level
	attrs []slog.Attr
}

func (h *ringHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *ringHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]string, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()
		return true
	})
	if len(attrs) == 0 {
		attrs = nil
	}
	h.sink.append(Entry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

func (h *ringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &ringHandler{sink: h.sink, level: h.level, attrs: merged}
}

func (h *ringHandler) WithGroup(name string) slog.Handler {
	// Groups are flattened in the ring; the JSON handler keeps them.
	return h
}

// teeHandler fans records out to the primary handler and the ring.
type teeHandler struct {
	primary slog.Handler
	ring    slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.ring.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.ring.Enabled(ctx, r.Level) {
		h.ring.Handle(ctx, r)
	}
	if h.primary.Enabled(ctx, r.Level) {
		return h.primary.Handle(ctx, r)
	}
	return nil
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{primary: h.primary.WithAttrs(attrs), ring: h.ring.WithAttrs(attrs)}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{primary: h.primary.WithGroup(name), ring: h.ring.WithGroup(name)}
}
