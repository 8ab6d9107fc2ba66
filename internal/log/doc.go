// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (API keys, tokens, secrets)
//   - A FATAL level above ERROR, used when the crawl must stop
//   - A crawl logger that writes to the terminal and to an append-only log file
//
// # Security Features
//
// The SecureHandler sanitizes sensitive information in log output:
//   - Attributes whose key names a credential (api_key, authorization, token)
//   - Values that look like bearer tokens, JWTs or private keys
//   - Any occurrence of a configured secret, such as the membership API key
//   - key=... query parameters inside logged URLs
//
// Identity ids are 32-character hex strings, so unlike generic secret
// scanners the handler does not mask long alphanumeric values.
//
// # Usage
//
//	logger := log.NewCrawlLogger(os.Stderr, logFile, verbose, apiKey)
//	logger.Info("finished seed", "name", "alice", "progress", "[1/2]")
//	log.Fatal(logger, "circuit breaker open")
package log
