package state

import (
	"context"

	"github.com/nao1215/guildcrawl/internal/model"
)

// Store persists checkpoints.
// Save must replace the previous checkpoint atomically: after a crash the
// store holds either the old or the new snapshot, never a mix.
type Store interface {
	// Load returns the last saved checkpoint, or ErrNoCheckpoint.
	Load(ctx context.Context) (*model.Checkpoint, error)

	// Save replaces the saved checkpoint with cp.
	Save(ctx context.Context, cp *model.Checkpoint) error

	// Close releases resources held by the store.
	Close() error
}
