package report

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nao1215/guildcrawl/internal/state"
)

// WriteLines writes lines to path, one per line, atomically.
func WriteLines(path string, lines []string) error {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := state.WriteFileAtomic(path, []byte(sb.String())); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteArtifact writes the collected ids sorted lexicographically.
func WriteArtifact(path string, ids []string) error {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return WriteLines(path, slices.Compact(sorted))
}
