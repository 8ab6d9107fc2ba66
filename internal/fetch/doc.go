// Package fetch issues rate-limited HTTP calls against the external APIs and
// classifies every response into an explicit Outcome.
//
// Classification:
//   - HTTP 200 is a Success carrying the response body
//   - HTTP 429 is Throttled and is retried after a fixed backoff
//   - anything else (other status, transport error, body read error) is
//     Failed and is never retried
//
// Throttling is tracked process-wide. A Fetcher counts consecutive throttled
// responses across all callers and endpoints; any success resets the count.
// When the count reaches the policy threshold the circuit breaker trips and
// every call, current and future, fails with ErrCircuitOpen. The breaker
// never closes again within the process: the crawl is expected to checkpoint
// and exit, and the operator re-runs it later.
//
// Design decision: the HTTP request itself runs on a context detached from
// cancellation (context.WithoutCancel) and bounded only by the per-call
// timeout. An operator interrupt therefore lets calls already on the wire
// finish or fail naturally, while limiter waits and backoff sleeps observe
// cancellation so no new attempt starts.
package fetch
