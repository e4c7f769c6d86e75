package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"starboard/internal/starboard"
)

func TestLedgerHandler_Handle(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 0, 30, 0, time.UTC)
	feed := starboard.Address{}

	tests := []struct {
		name    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			level:   slog.LevelInfo,
			message: "instruction executed",
			want:    "2026-03-02T09:00:30Z\tINFO\top-1\tinstruction executed\n",
		},
		{
			name:    "debug level",
			level:   slog.LevelDebug,
			message: "derived address",
			want:    "2026-03-02T09:00:30Z\tDEBUG\top-1\tderived address\n",
		},
		{
			name:    "with record attrs",
			level:   slog.LevelInfo,
			message: "staked",
			attrs:   []slog.Attr{slog.Any("feed", feed), slog.Int("deposits", 2)},
			want:    "2026-03-02T09:00:30Z\tINFO\top-1\tstaked\tfeed=11111111111111111111111111111111\tdeposits=2\n",
		},
		{
			name:    "group attr",
			level:   slog.LevelWarn,
			message: "retrying",
			attrs:   []slog.Attr{slog.Group("retry", slog.Int("attempt", 1))},
			want:    "2026-03-02T09:00:30Z\tWARN\top-1\tretrying\tretry.attempt=1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newLedgerHandler(&buf, "op-1")

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestLedgerHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newLedgerHandler(&buf, "op-1")
	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "client")})

	r := slog.NewRecord(time.Time{}, slog.LevelInfo, "batch submitted", 0)
	r.AddAttrs(slog.Int("failed", 0))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "\tcomponent=client\tfailed=0\n") {
		t.Errorf("unexpected output: %q", got)
	}
	if len(h.attrs) != 0 {
		t.Errorf("original handler attrs modified: got %d, want 0", len(h.attrs))
	}
}

func TestLedgerHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newLedgerHandler(&buf, "op-1")).WithGroup("store").With("type", "sqlite")
	logger.Info("opened", "path", "/tmp/l.db")

	got := buf.String()
	if !strings.Contains(got, "\tstore.type=sqlite\tstore.path=/tmp/l.db\n") {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestLedgerHandler_Enabled(t *testing.T) {
	h := newLedgerHandler(&bytes.Buffer{}, "")
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !h.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) = false, want true", level)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(dir, "test-op")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Info("hello")

	data, err := os.ReadFile(filepath.Join(dir, "starboard.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "\ttest-op\thello\n") {
		t.Errorf("log file = %q", data)
	}
}
