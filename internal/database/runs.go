package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run status values.
const (
	RunStatusRunning     = "running"
	RunStatusCompleted   = "completed"
	RunStatusInterrupted = "interrupted"
	RunStatusCircuitOpen = "circuit_open"
	RunStatusFailed      = "failed"
)

// RunRecord is one crawl invocation.
type RunRecord struct {
	ID             uuid.UUID
	StartedAt      time.Time
	FinishedAt     time.Time
	Status         string
	SeedTotal      int
	ProcessedCount int
	CollectedIDs   int
}

// StartRun records the start of a run.
func (cdb *CrawlDB) StartRun(ctx context.Context, id uuid.UUID, seedTotal int) error {
	_, err := cdb.db.ExecContext(ctx, `
	INSERT INTO runs (run_id, started_at, status, seed_total)
	VALUES (?, ?, ?, ?)
	`, id.String(), formatTimestamp(time.Now()), RunStatusRunning, seedTotal)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// FinishRun records how a run ended.
func (cdb *CrawlDB) FinishRun(ctx context.Context, id uuid.UUID, status string, processed, collected int) error {
	result, err := cdb.db.ExecContext(ctx, `
	UPDATE runs
	SET finished_at = ?, status = ?, processed_count = ?, collected_ids = ?
	WHERE run_id = ?
	`, formatTimestamp(time.Now()), status, processed, collected, id.String())
	if err != nil {
		return fmt.Errorf("failed to record run end: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s was never started", id)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means all.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
	SELECT run_id, started_at, finished_at, status, seed_total, processed_count, collected_ids
	FROM runs
	ORDER BY started_at DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		var (
			rec        RunRecord
			rawID      string
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&rawID, &startedAt, &finishedAt, &rec.Status,
			&rec.SeedTotal, &rec.ProcessedCount, &rec.CollectedIDs); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		rec.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", rawID, err)
		}
		rec.StartedAt = parseTimestamp(startedAt)
		if finishedAt.Valid {
			rec.FinishedAt = parseTimestamp(finishedAt.String)
		}
		results = append(results, rec)
	}

	return results, rows.Err()
}
