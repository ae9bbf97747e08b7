// Package pipeline runs extraction across a list of venues.
//
// For every venue and each of its candidate URLs the page text is fetched, dates
// are located, a text window around each date is searched for the first plausible
// artist line, and a candidate event is built. Results from all venues are merged
// in registry order and deduplicated, so the output is identical whether venues
// were processed one at a time or by a worker pool.
//
// A failing URL never aborts the run. Each venue gets a report with status
// success, no_events (pages loaded, nothing found) or error (no page loaded).
package pipeline
