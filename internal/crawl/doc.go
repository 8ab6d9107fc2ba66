// Package crawl runs a complete crawl from configuration to artifact.
//
// The Orchestrator loads the seed list and the last checkpoint, builds the
// rate limiters, the fetcher, the resolvers and the scheduler, and runs the
// remaining seed entries. How the run ends decides what is written:
//
//   - completion persists the state and writes the sorted collected ids to
//     the output file
//   - cancellation persists the state and returns ErrInterrupted
//   - a circuit break persists the state, logs at FATAL and returns
//     fetch.ErrCircuitOpen
//
// The artifact is only written on completion, so a partial crawl never
// replaces the output of a finished one.
package crawl
