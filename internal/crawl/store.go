package crawl

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nao1215/guildcrawl/internal/config"
	"github.com/nao1215/guildcrawl/internal/database"
	"github.com/nao1215/guildcrawl/internal/state"
)

// RunRecorder keeps a history of crawl runs. *database.CrawlDB satisfies it.
type RunRecorder interface {
	StartRun(ctx context.Context, id uuid.UUID, seedTotal int) error
	FinishRun(ctx context.Context, id uuid.UUID, status string, processed, collected int) error
}

// OpenStore opens the checkpoint store selected by cfg.StateBackend.
// The returned *database.CrawlDB is nil for the JSON backend.
func OpenStore(cfg *config.Config) (state.Store, *database.CrawlDB, error) {
	switch cfg.StateBackend {
	case config.BackendSQLite:
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db, db, nil
	case config.BackendJSON:
		store, err := state.NewFileStore(cfg.StateFile)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownStateBackend, cfg.StateBackend)
	}
}
