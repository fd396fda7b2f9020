package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestRunIDHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := newRunIDHandler(slog.NewJSONHandler(&buf, nil), "run-123")

	slog.New(handler).With("extra", "value").Info("copied")

	output := buf.String()
	if !strings.Contains(output, `"run_id":"run-123"`) {
		t.Errorf("expected run_id in output, got: %s", output)
	}
	if !strings.Contains(output, `"extra":"value"`) {
		t.Errorf("expected extra attr in output, got: %s", output)
	}
}

func TestRunIDHandlerNilBase(t *testing.T) {
	if _, ok := newRunIDHandler(nil, "run").(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when base is nil")
	}
}

func TestPrettyHandlerOmitsRunIDAndHoistsComponent(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	handler := newRunIDHandler(newPrettyHandler(&buf, lvl, false), "run-9")

	logger := slog.New(handler).With(slog.String(FieldComponent, "planner"))
	logger.Info("bucket opened", slog.String("dir", "/dest/2021/1"), slog.String("note", "has space"))

	line := buf.String()
	if strings.Contains(line, "run-9") {
		t.Fatalf("console line should not repeat run_id: %q", line)
	}
	if !strings.Contains(line, "INFO planner: bucket opened") {
		t.Fatalf("expected level, component, and message: %q", line)
	}
	if !strings.Contains(line, `dir=/dest/2021/1`) || !strings.Contains(line, `note="has space"`) {
		t.Fatalf("expected formatted attrs: %q", line)
	}
}
