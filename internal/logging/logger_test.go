package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "WARN ")
	logger.Info("dropped")
	logger.Warn("kept", "booking_id", "b-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 record, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["msg"] != "kept" || rec["service"] != "ride-booking" || rec["booking_id"] != "b-1" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]string{"debug": "DEBUG", "warning": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"}
	for in, want := range cases {
		if got := levelFromString(in).Level().String(); got != want {
			t.Fatalf("%q: expected %s, got %s", in, want, got)
		}
	}
}
