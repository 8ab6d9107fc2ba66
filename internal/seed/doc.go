// Package seed reads seed name lists.
//
// A seed list is a plain text file with one name per line, as produced by
// the external scrapers. Lines are trimmed and Unicode-normalized to NFC so
// that the same name copied from different sources compares equal; blank
// lines are ignored; order and duplicates are preserved because the crawl
// cursor indexes into the list.
package seed
