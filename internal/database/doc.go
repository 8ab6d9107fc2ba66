// Package database provides SQLite-based storage for guildcrawl.
//
// This package implements CrawlDB, which stores:
//   - The latest crawl checkpoint (cursor, visited groups, collected ids)
//   - A history of crawl runs for the status command
//
// CrawlDB satisfies state.Store, so it can replace the JSON checkpoint file.
// Each Save runs in one transaction: a crash leaves the previous checkpoint
// intact.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
//  1. The database is a single file next to the rest of the crawl data
//  2. CGO-free implementation allows easy cross-compilation
//  3. Inserting only the newly discovered ids keeps each commit small even
//     when the collected set grows to hundreds of thousands of entries,
//     where the JSON store rewrites the whole file
package database
