// Package model defines the core data structures used throughout guildcrawl.
//
// This package contains the following main types:
//   - SeedJob: The per-seed workflow record moved through the crawl pipeline
//   - Stage: The position of a SeedJob in its state machine
//   - Group: One membership lookup result (group id plus member ids)
//   - Checkpoint: The durable snapshot of crawl progress
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The pipeline, state, database and report packages all need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for checkpoint storage
// and status output.
package model
