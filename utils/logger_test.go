package utils

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestErrorSinkLineFormat(t *testing.T) {
	l := NewLoggerTo(io.Discard)
	l.now = func() time.Time { return time.Date(2024, 3, 7, 9, 5, 3, 42*int(time.Millisecond), time.UTC) }

	sink := nopCloser{&bytes.Buffer{}}
	l.AttachErrorSink(sink)

	l.Info("not mirrored")
	l.Warn("not mirrored either")
	l.Error("Error in %s: %v", "https://x/a", "timeout\nwaiting")

	want := "2024-03-07 09:05:03,042 - ERROR - Error in https://x/a: timeout waiting\n"
	if sink.String() != want {
		t.Errorf("error log: got %q, want %q", sink.String(), want)
	}
}

func TestAttachErrorLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scraping_errors.log")

	for _, msg := range []string{"first", "second"} {
		l := NewLoggerTo(io.Discard)
		if err := l.AttachErrorLog(path); err != nil {
			t.Fatalf("AttachErrorLog: %v", err)
		}
		l.Error("%s", msg)
		if err := l.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[1], " - ERROR - second") {
		t.Errorf("lines: got %q", lines)
	}
}

func TestDebugGatedByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf)

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug written at default level: %q", buf.String())
	}

	l.SetLevel("DEBUG")
	l.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug missing after SetLevel: %q", buf.String())
	}
}
