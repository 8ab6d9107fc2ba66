// Package state owns the durable crawl progress.
//
// CrawlState is the single shared mutable resource of a crawl: the resume
// cursor, the visited groups and the collected ids. Every mutation goes
// through Commit, which applies a finished seed job, advances the cursor and
// persists a full snapshot while holding one mutex, so every checkpoint on
// disk is complete and consistent.
//
// Cursor semantics: ProcessedCount only advances across a contiguous prefix
// of finished seed entries. An entry that finishes while an earlier one is
// still in flight is recorded in CompletedAhead instead. The cursor never
// skips an unfinished entry, and a resume never redoes a recorded one.
//
// Persistence is pluggable through Store. The JSON file store is the
// default; the database package provides a SQLite store.
package state
