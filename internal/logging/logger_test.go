package logging

import (
	"bytes"
	"log/slog"
	"strconv"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestBufferRing(t *testing.T) {
	buf := NewBuffer(2, slog.LevelInfo)
	log := slog.New(buf)

	log.Debug("hidden")
	log.Info("one")
	log.Info("two")
	log.With("endpoint", "/allocation/predict").Warn("three", "kind", "network")

	lines := buf.Lines()
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if lines[0].Message != "two" || lines[1].Message != "three" {
		t.Fatalf("messages = [%s, %s], want [two, three]", lines[0].Message, lines[1].Message)
	}
	if lines[1].Attrs != "endpoint=/allocation/predict kind=network" {
		t.Fatalf("attrs = %q", lines[1].Attrs)
	}
	if !strings.Contains(lines[1].String(), "WARN") {
		t.Fatalf("String() = %q, want level", lines[1].String())
	}
}

func TestBufferRingWrapsInOrder(t *testing.T) {
	buf := NewBuffer(3, slog.LevelDebug)
	log := slog.New(buf)
	for i := 1; i <= 7; i++ {
		log.Info(strconv.Itoa(i))
	}

	lines := buf.Lines()
	if len(lines) != 3 || buf.Len() != 3 {
		t.Fatalf("lines = %d, Len = %d, want 3", len(lines), buf.Len())
	}
	for i, want := range []string{"5", "6", "7"} {
		if lines[i].Message != want {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i].Message, want)
		}
	}
}

func TestBufferGroupsRecordAttrs(t *testing.T) {
	buf := NewBuffer(4, slog.LevelDebug)
	slog.New(buf).With("cycle", "c1").WithGroup("fetch").Info("done", "endpoint", "/waterUsage/detail")

	if got := buf.Lines()[0].Attrs; got != "cycle=c1 fetch.endpoint=/waterUsage/detail" {
		t.Errorf("attrs = %q", got)
	}
}

func TestTee(t *testing.T) {
	var out bytes.Buffer
	buf := NewBuffer(10, slog.LevelDebug)
	log := slog.New(Tee(NewHandler(&out, slog.LevelWarn, "text"), buf))

	log.Info("refresh committed", "cycle", "abc")
	log.Error("fetch failed")

	if buf.Len() != 2 {
		t.Fatalf("buffer len = %d, want 2", buf.Len())
	}
	if strings.Contains(out.String(), "refresh committed") {
		t.Fatal("info record leaked past warn-level writer")
	}
	if !strings.Contains(out.String(), "fetch failed") {
		t.Fatalf("writer output = %q, want error record", out.String())
	}
}

func TestJSONFormat(t *testing.T) {
	var out bytes.Buffer
	New(&out, slog.LevelInfo, "json").Info("hello")
	if !strings.HasPrefix(strings.TrimSpace(out.String()), "{") {
		t.Fatalf("output = %q, want JSON", out.String())
	}
}
