// Package scraper fetches venue pages and renders them to line-structured text.
//
// The extraction pipeline only sees page text, so the fetcher is an interface: the
// HTTP implementation parses HTML with goquery and emits one line per block element,
// dropping scripts and styles. Other implementations (a static map for tests, a
// headless browser) can be swapped in without touching extraction.
package scraper
