package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Line is one formatted entry held by a Buffer.
type Line struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   string
}

func (l Line) String() string {
	s := fmt.Sprintf("%s %-5s %s", l.Time.Format("15:04:05"), l.Level.String(), l.Message)
	if l.Attrs != "" {
		s += " " + l.Attrs
	}
	return s
}

// Buffer is a slog.Handler that keeps the last N records in memory for
// the TUI log panel.
type Buffer struct {
	store *ringStore
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// ringStore overwrites the oldest line once full.
type ringStore struct {
	mu    sync.Mutex
	lines []Line
	start int // index of the oldest line
	n     int
}

func (s *ringStore) push(l Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n < len(s.lines) {
		s.lines[(s.start+s.n)%len(s.lines)] = l
		s.n++
		return
	}
	s.lines[s.start] = l
	s.start = (s.start + 1) % len(s.lines)
}

// NewBuffer returns a ring handler holding up to capacity lines.
func NewBuffer(capacity int, level slog.Leveler) *Buffer {
	if capacity < 1 {
		capacity = 200
	}
	if level == nil {
		level = slog.LevelDebug
	}
	return &Buffer{
		store: &ringStore{lines: make([]Line, capacity)},
		level: level,
	}
}

// Lines returns a copy of the buffered lines, oldest first.
func (b *Buffer) Lines() []Line {
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, s.n)
	for i := range out {
		out[i] = s.lines[(s.start+i)%len(s.lines)]
	}
	return out
}

// Len returns the number of buffered lines.
func (b *Buffer) Len() int {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return b.store.n
}

func (b *Buffer) Enabled(_ context.Context, level slog.Level) bool {
	return level >= b.level.Level()
}

func (b *Buffer) Handle(_ context.Context, r slog.Record) error {
	var parts []string
	for _, a := range b.attrs {
		parts = append(parts, b.format(a))
	}
	r.Attrs(func(a slog.Attr) bool {
		for _, q := range b.qualify([]slog.Attr{a}) {
			parts = append(parts, b.format(q))
		}
		return true
	})

	b.store.push(Line{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   strings.Join(parts, " "),
	})
	return nil
}

func (b *Buffer) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *b
	out.attrs = append(append([]slog.Attr(nil), b.attrs...), b.qualify(attrs)...)
	return &out
}

func (b *Buffer) WithGroup(name string) slog.Handler {
	if name == "" {
		return b
	}
	out := *b
	if out.group != "" {
		out.group += "." + name
	} else {
		out.group = name
	}
	return &out
}

// qualify prefixes attrs with the group active at the time they are added.
func (b *Buffer) qualify(attrs []slog.Attr) []slog.Attr {
	if b.group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: b.group + "." + a.Key, Value: a.Value}
	}
	return out
}

func (b *Buffer) format(a slog.Attr) string {
	return a.Key + "=" + a.Value.Resolve().String()
}
