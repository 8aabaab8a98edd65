package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWritesJSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := New(false, &buf)
	logger.Debug("hidden")
	logger.Info("scene started", "scene", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single record, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("expected json record: %v", err)
	}
	if rec["msg"] != "scene started" || rec["scene"] != float64(2) {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestNewVerboseKeepsDebug(t *testing.T) {
	var buf bytes.Buffer
	New(true, &buf).Debug("tick")
	if !strings.Contains(buf.String(), `"msg":"tick"`) {
		t.Errorf("expected debug record, got %q", buf.String())
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}
