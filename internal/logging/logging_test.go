package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init("json", "info", &buf)
	defer Init("text", "info", os.Stderr)

	L("test").Info("hello", "k", "v")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "hello" {
		t.Fatalf("expected msg=hello, got %v", entry["msg"])
	}
	if entry[KeyComponent] != "test" {
		t.Fatalf("expected component=test, got %v", entry[KeyComponent])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init("text", "warn", &buf)
	defer Init("text", "info", os.Stderr)

	slog.Info("should not appear")
	slog.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("info record leaked through warn level: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Fatalf("warn record missing: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFileWriterRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reel.log")

	w, err := NewFileWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	defer w.Close()

	// Force rotation by shrinking the threshold.
	w.maxSize = 64

	chunk := bytes.Repeat([]byte("x"), 48)
	for i := 0; i < 4; i++ {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected rotated backup: %v", err)
	}
}
