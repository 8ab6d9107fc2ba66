// Package main provides the entry point for the guildcrawl CLI.
//
// guildcrawl resolves a list of player names to identities, looks up the
// group each identity belongs to and collects every member of every group
// it finds. The crawl is rate limited per endpoint, stops on sustained
// throttling and resumes from its last checkpoint.
//
// Usage:
//
//	guildcrawl crawl --seeds names.txt --key-file api_key.txt
//	guildcrawl status
//
// See --help for all available options.
package main

// main is the entry point for guildcrawl.
func main() {
	Execute()
}
