package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/guildcrawl/internal/model"
	"github.com/nao1215/guildcrawl/internal/state"
)

// FileName is the database file created inside the database directory.
const FileName = "guildcrawl.db"

// CrawlDB provides SQLite-based storage for crawl checkpoints and run history.
//
// Design decision: sets only ever grow, so CrawlDB remembers which groups
// and ids are already on disk and inserts just the difference on each Save.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// mu guards the persisted-value caches.
	mu             sync.Mutex
	savedGroups    map[string]struct{}
	savedCollected map[string]struct{}
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:             db,
		dbPath:         dbPath,
		savedGroups:    make(map[string]struct{}),
		savedCollected: make(map[string]struct{}),
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Single-row table holding the checkpoint counters
	CREATE TABLE IF NOT EXISTS checkpoint (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		processed_count INTEGER NOT NULL,
		seed_total INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS visited_groups (
		group_id TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS collected_ids (
		id TEXT PRIMARY KEY
	);

	-- Seed indexes finished ahead of the cursor
	CREATE TABLE IF NOT EXISTS completed_ahead (
		seed_index INTEGER PRIMARY KEY
	);

	-- One row per crawl invocation
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		status TEXT NOT NULL,
		seed_total INTEGER NOT NULL DEFAULT 0,
		processed_count INTEGER NOT NULL DEFAULT 0,
		collected_ids INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Load implements state.Store.
func (cdb *CrawlDB) Load(ctx context.Context) (*model.Checkpoint, error) {
	cp := model.NewCheckpoint()

	var updatedAt string
	err := cdb.db.QueryRowContext(ctx,
		`SELECT processed_count, seed_total, updated_at FROM checkpoint WHERE id = 1`,
	).Scan(&cp.ProcessedCount, &cp.SeedTotal, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, state.ErrNoCheckpoint
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	cp.UpdatedAt = parseTimestamp(updatedAt)

	if cp.VisitedGroups, err = queryStrings(ctx, cdb.db, `SELECT group_id FROM visited_groups ORDER BY group_id`); err != nil {
		return nil, fmt.Errorf("failed to load visited groups: %w", err)
	}
	if cp.CollectedIDs, err = queryStrings(ctx, cdb.db, `SELECT id FROM collected_ids ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to load collected ids: %w", err)
	}
	if cp.CompletedAhead, err = queryInts(ctx, cdb.db, `SELECT seed_index FROM completed_ahead ORDER BY seed_index`); err != nil {
		return nil, fmt.Errorf("failed to load completed entries: %w", err)
	}

	cdb.mu.Lock()
	for _, g := range cp.VisitedGroups {
		cdb.savedGroups[g] = struct{}{}
	}
	for _, id := range cp.CollectedIDs {
		cdb.savedCollected[id] = struct{}{}
	}
	cdb.mu.Unlock()

	cp.Normalize()
	return cp, nil
}

// Save implements state.Store. The whole checkpoint is written in one
// transaction.
func (cdb *CrawlDB) Save(ctx context.Context, cp *model.Checkpoint) (err error) {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // Already failing
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO checkpoint (id, processed_count, seed_total, updated_at)
	VALUES (1, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		processed_count = excluded.processed_count,
		seed_total = excluded.seed_total,
		updated_at = excluded.updated_at
	`, cp.ProcessedCount, cp.SeedTotal, formatTimestamp(cp.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	newGroups := unsaved(cp.VisitedGroups, cdb.savedGroups)
	if err = insertStrings(ctx, tx, `INSERT OR IGNORE INTO visited_groups (group_id) VALUES (?)`, newGroups); err != nil {
		return fmt.Errorf("failed to save visited groups: %w", err)
	}
	newIDs := unsaved(cp.CollectedIDs, cdb.savedCollected)
	if err = insertStrings(ctx, tx, `INSERT OR IGNORE INTO collected_ids (id) VALUES (?)`, newIDs); err != nil {
		return fmt.Errorf("failed to save collected ids: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM completed_ahead`); err != nil {
		return fmt.Errorf("failed to clear completed entries: %w", err)
	}
	for _, idx := range cp.CompletedAhead {
		if _, err = tx.ExecContext(ctx, `INSERT INTO completed_ahead (seed_index) VALUES (?)`, idx); err != nil {
			return fmt.Errorf("failed to save completed entries: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}

	// Only remember values once they are durable.
	for _, g := range newGroups {
		cdb.savedGroups[g] = struct{}{}
	}
	for _, id := range newIDs {
		cdb.savedCollected[id] = struct{}{}
	}
	return nil
}

// unsaved returns the values not yet in saved.
func unsaved(values []string, saved map[string]struct{}) []string {
	var out []string
	for _, v := range values {
		if _, ok := saved[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

func insertStrings(ctx context.Context, tx *sql.Tx, query string, values []string) error {
	if len(values) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range values {
		if _, err := stmt.ExecContext(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func queryStrings(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func queryInts(ctx context.Context, db *sql.DB, query string) ([]int, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// storageLayout has a fixed width so stored timestamps sort lexically.
const storageLayout = "2006-01-02T15:04:05.000000000Z"

// formatTimestamp renders t for storage. The zero time becomes now.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(storageLayout)
}
