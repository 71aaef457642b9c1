package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"pyshape/internal/core/ports"
)

func sampleRuns() []ports.RunRecord {
	return []ports.RunRecord{
		{
			RunID:     "abc123",
			Mode:      "check",
			Timestamp: time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
			Files:     15,
			Changed:   2,
			Cached:    10,
			Failed:    1,
			Elapsed:   1250 * time.Millisecond,
			Options:   []string{"relocate-imports", "fix-blank-lines"},
		},
	}
}

func TestRenderRunsTSV(t *testing.T) {
	out, err := RenderRunsTSV(sampleRuns())
	if err != nil {
		t.Fatalf("render tsv: %v", err)
	}

	body := string(out)
	if !strings.HasPrefix(body, "Timestamp\tRun\tMode") {
		t.Fatalf("missing header in output: %s", body)
	}
	want := "2026-02-13T00:00:00Z\tabc123\tcheck\t15\t2\t10\t1\t1250\trelocate-imports,fix-blank-lines\n"
	if !strings.Contains(body, want) {
		t.Fatalf("missing row values in output: %s", body)
	}
}

func TestRenderRunsJSON(t *testing.T) {
	out, err := RenderRunsJSON(sampleRuns())
	if err != nil {
		t.Fatalf("render json: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(decoded) != 1 || decoded[0]["run_id"] != "abc123" || decoded[0]["failed"] != float64(1) {
		t.Fatalf("unexpected json: %s", out)
	}

	empty, err := RenderRunsJSON(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(empty) != "[]" {
		t.Fatalf("expected empty array, got %s", empty)
	}
}
