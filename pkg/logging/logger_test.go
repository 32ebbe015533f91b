package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	return line
}

func TestSlogLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(WithOutput(&buf), WithJSON())

	l.Info("request",
		String("path", "/form"),
		Int("status", 200),
		Bool("readOnly", true))

	line := decodeLine(t, &buf)
	if line["msg"] != "request" {
		t.Errorf("msg = %v", line["msg"])
	}
	if line["path"] != "/form" {
		t.Errorf("path = %v", line["path"])
	}
	if line["status"] != float64(200) {
		t.Errorf("status = %v", line["status"])
	}
	if line["readOnly"] != true {
		t.Errorf("readOnly = %v", line["readOnly"])
	}
}

func TestWithLevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(WithOutput(&buf), WithJSON(), WithLevel(slog.LevelInfo))

	l.Debug("dropped")
	if buf.Len() != 0 {
		t.Fatalf("debug line emitted at info level: %q", buf.String())
	}
	l.Error("kept")
	line := decodeLine(t, &buf)
	if line["msg"] != "kept" || line["level"] != "ERROR" {
		t.Errorf("line = %v", line)
	}
}

func TestWithCarriesPersistentFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(WithOutput(&buf), WithJSON()).
		With(String("requestID", "abc-123"))

	l.Info("request")
	if line := decodeLine(t, &buf); line["requestID"] != "abc-123" {
		t.Errorf("requestID = %v", line["requestID"])
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := Nop()
	ctx := ContextWithLogger(context.Background(), l)
	if got := LoggerFromContext(ctx); got != l {
		t.Error("attached logger not returned")
	}
	if got := LoggerFromContext(context.Background()); got == nil {
		t.Error("bare context must yield a usable no-op logger, not nil")
	}
}
