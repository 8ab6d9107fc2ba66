// Package metrics exposes Prometheus metrics for a crawl run.
//
// Metrics are registered on a caller-supplied registry rather than the
// global default so that tests and repeated runs in one process never
// collide on registration. Serve exposes the registry over HTTP when the
// operator passes --metrics-addr.
package metrics
