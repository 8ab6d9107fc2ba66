// Package transport builds the HTTP client used for every external API call.
//
// The client can optionally egress through a SOCKS5 proxy (for example an
// SSH tunnel or a local Tor daemon) via golang.org/x/net/proxy, and injects
// fixed headers such as User-Agent into every request.
//
// Timeouts are not set on the http.Client: the fetcher applies a per-call
// deadline through the request context instead.
package transport
