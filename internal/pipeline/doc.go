// Package pipeline runs the per-seed crawl workflow with bounded concurrency.
//
// Each seed entry is processed by a Pipeline of Steps that move a
// model.SeedJob through its stages: resolve the name to an identity, skip
// identities already collected, then look up the identity's group. A step
// finishes the job early when there is nothing more to learn.
//
// The Scheduler admits seed entries in list order, runs at most W pipelines
// at once and commits every finished job to the crawl state, which persists a
// checkpoint per commit.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
//  1. Each stage is independently testable with fake resolvers
//  2. Logging and cancellation checks happen in one place, between stages
//  3. The cost-avoidance step (known members) slots in without touching
//     the resolvers
//
// Errors returned by steps are always fatal for the crawl (circuit breaker,
// cancellation). Absence is recorded on the job, never returned as an error.
package pipeline
