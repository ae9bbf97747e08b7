// Package cli implements the command-line interface for sf-events.
//
// The cli package provides the Cobra-based commands: extract (one run, with
// text/JSON/table output, iCalendar export and new-since-last-run reporting),
// venues, history, serve (scheduled runs behind an HTTP status surface) and
// config. It wires configuration, the venue registry, the pipeline and run
// storage together; the packages themselves know nothing about flags.
package cli
