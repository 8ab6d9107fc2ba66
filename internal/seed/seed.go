package seed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptySeedList is returned when a seed file holds no names.
var ErrEmptySeedList = errors.New("seed list is empty")

// maxLineSize bounds a single line of a seed file.
const maxLineSize = 1 << 20

// Load reads the seed list at path.
func Load(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // Path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open seed list: %w", err)
	}
	defer f.Close()

	names, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed list %s: %w", path, err)
	}
	return names, nil
}

// Read parses a seed list from r.
func Read(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	names := make([]string, 0)
	for scanner.Scan() {
		if name := Normalize(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// Normalize trims surrounding whitespace, including a UTF-8 byte order mark,
// and converts the name to NFC.
func Normalize(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	return norm.NFC.String(strings.TrimSpace(name))
}

// Merge reads every list in paths and returns the union of their names,
// sorted and without duplicates.
func Merge(paths ...string) ([]string, error) {
	var merged []string
	for _, path := range paths {
		names, err := Load(path)
		if err != nil {
			return nil, err
		}
		merged = append(merged, names...)
	}
	if len(merged) == 0 {
		return nil, ErrEmptySeedList
	}

	slices.Sort(merged)
	return slices.Compact(merged), nil
}
