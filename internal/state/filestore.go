package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/guildcrawl/internal/model"
)

// FileStore keeps the checkpoint in a single JSON file.
// Saves write a temporary file in the same directory, fsync it and rename it
// over the target.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path. The parent directory is
// created when missing.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the checkpoint file path.
func (s *FileStore) Path() string {
	return s.path
}

// fileCheckpoint is the on-disk layout. It also accepts the key names of
// the older crawler scripts (seen_guilds, all_uuids) so their state files
// can be resumed.
type fileCheckpoint struct {
	model.Checkpoint

	LegacyVisited   []string `json:"seen_guilds,omitempty"`
	LegacyCollected []string `json:"all_uuids,omitempty"`
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) (*model.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoCheckpoint
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var fc fileCheckpoint
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCheckpoint, s.path, err)
	}

	cp := fc.Checkpoint
	if len(cp.VisitedGroups) == 0 {
		cp.VisitedGroups = fc.LegacyVisited
	}
	if len(cp.CollectedIDs) == 0 {
		cp.CollectedIDs = fc.LegacyCollected
	}
	if cp.ProcessedCount < 0 {
		return nil, fmt.Errorf("%w: negative processed_count %d", ErrCorruptCheckpoint, cp.ProcessedCount)
	}
	cp.Normalize()
	return &cp, nil
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, cp *model.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return WriteFileAtomic(s.path, append(data, '\n'))
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}

// WriteFileAtomic writes data to path through a temporary file in the same
// directory, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName) //nolint:errcheck // Best effort cleanup
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err = os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
