// Package event provides the candidate event model produced by the extraction pipeline.
//
// The event package handles date discovery and normalization across the formats venue
// sites use, candidate construction, and first-seen-wins deduplication keyed on the
// calendar day rather than on date formatting. Snapshots of a run's candidates can be
// diffed against the previous run to report newly listed shows.
package event
