package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/guildcrawl/internal/model"
)

// createTestReport creates a partial-progress report for testing.
func createTestReport() *model.StatusReport {
	cp := &model.Checkpoint{
		ProcessedCount: 40,
		CompletedAhead: []int{42, 45},
		VisitedGroups:  []string{"G1", "G2"},
		CollectedIDs:   []string{"A1", "B1", "M1"},
		SeedTotal:      100,
		UpdatedAt:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	r := model.NewStatusReport("/tmp/state.json", cp, 0)
	r.Runs = []model.RunSummary{{
		ID:             "3f0e3c1e-5b7e-4c3a-9c1e-000000000001",
		StartedAt:      time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC),
		Status:         "interrupted",
		ProcessedCount: 40,
		CollectedIDs:   3,
	}}
	return r
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes progress", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"/tmp/state.json",
			"In progress",
			"42/100 (42.0%)",
			"Remaining:       58",
			"Completed ahead: 2",
			"Collected ids:   3",
			"Recent runs:",
			"interrupted",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("missing checkpoint", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(model.NewStatusReport("state.json", nil, 0)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Not started") {
			t.Errorf("expected not started status, got %q", buf.String())
		}
		if strings.Contains(buf.String(), "Collected ids") {
			t.Error("expected no counters without a checkpoint")
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		opts   []JSONWriterOption
		indent bool
	}{
		{"compact", nil, false},
		{"pretty", []JSONWriterOption{WithPrettyPrint()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if _, err := NewJSONWriter(&buf, tt.opts...).Write(createTestReport()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var decoded map[string]any
			if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
				t.Fatalf("output is not valid JSON: %v", err)
			}
			if decoded["collected_ids"] != float64(3) {
				t.Errorf("expected collected_ids 3, got %v", decoded["collected_ids"])
			}
			if decoded["finished"] != float64(42) {
				t.Errorf("expected finished 42, got %v", decoded["finished"])
			}
			if decoded["status"] != "In progress" {
				t.Errorf("unexpected status %v", decoded["status"])
			}
			if got := strings.Contains(buf.String(), "\n  "); got != tt.indent {
				t.Errorf("indentation = %v, want %v", got, tt.indent)
			}
		})
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes table, chart and runs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# guildcrawl Status",
			"| Property",
			"`/tmp/state.json`",
			"```mermaid",
			"Seed Progress",
			"## Recent Runs",
			"58 seed entries remain",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("missing checkpoint", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(model.NewStatusReport("state.json", nil, 0)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No checkpoint yet") {
			t.Errorf("expected hint for missing checkpoint\n%s", buf.String())
		}
		if strings.Contains(buf.String(), "mermaid") {
			t.Error("expected no chart without a checkpoint")
		}
	})
}

func TestWriteArtifact(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "ids.txt")
	if err := WriteArtifact(path, []string{"M2", "A1", "M1", "B1", "A1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "A1\nB1\nM1\nM2\n"; string(data) != want {
		t.Errorf("artifact = %q, want %q", data, want)
	}
}

func TestWriteLines_Empty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := WriteLines(path, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("expected empty file, got %d bytes", info.Size())
	}
}
