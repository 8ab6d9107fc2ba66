// Package config provides configuration structures and utilities for guildcrawl.
// It defines the crawl settings (seed list, endpoints, rate limits, retry
// policy), where state and artifacts are stored, and how the optional
// .guildcrawl YAML file and the API key file are loaded.
package config
