package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewJSONWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter("debug", FormatJSON, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}

	WithComponent(WithRequestID(logger, "req-1"), "httpapi").Info("hello")
	_ = logger.Sync()

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if line["request_id"] != "req-1" || line["component"] != "httpapi" {
		t.Fatalf("missing fields: %v", line)
	}
	if line["level"] != "INFO" {
		t.Fatalf("expected capital level, got %v", line["level"])
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatal("missing timestamp key")
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter("warn", FormatConsole, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn, got %q", buf.String())
	}
}

func TestNewRejectsUnknownInput(t *testing.T) {
	if _, err := New("loud", FormatJSON); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
