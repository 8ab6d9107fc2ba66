// Package ratelimit provides per-endpoint admission gates for outbound API calls.
//
// Each external API publishes its own request budget, so every endpoint gets
// its own Limiter and quotas are never pooled across endpoints.
//
// Design decision: We build on golang.org/x/time/rate instead of a hand-rolled
// ticker because:
//  1. Wait honours context cancellation, so an interrupted crawl stops waiting
//  2. The token bucket spaces admissions evenly without a background goroutine
//  3. Reservations are FIFO-ish, which is all the crawl needs
package ratelimit
