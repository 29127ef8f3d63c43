package logx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/martinwickman/tabswitch/internal/host"
	"pkt.systems/pslog"
)

func newCaptureLogger(buf *bytes.Buffer) pslog.Logger {
	return pslog.NewWithOptions(buf, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

func firstEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line, _, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
	var entry map[string]any
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("decode log entry %q: %v", line, err)
	}
	return entry
}

func TestWithTabAddsField(t *testing.T) {
	var buf bytes.Buffer
	WithTab(newCaptureLogger(&buf), 12).Info("hello")

	entry := firstEntry(t, &buf)
	if fmt.Sprint(entry["tab"]) != "12" {
		t.Fatalf("expected tab field, got %+v", entry)
	}
}

func TestWithWindowNone(t *testing.T) {
	var buf bytes.Buffer
	WithWindow(newCaptureLogger(&buf), host.NoWindow).Info("hello")

	entry := firstEntry(t, &buf)
	if entry["window"] != "none" {
		t.Fatalf("expected window=none, got %+v", entry)
	}
}

func TestOrFallsBack(t *testing.T) {
	if Or(nil) == nil {
		t.Fatal("expected a default logger")
	}
}
